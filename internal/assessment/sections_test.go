package assessment

import (
	"reflect"
	"testing"

	"care-assess/internal/model"
)

func TestSectionKey(t *testing.T) {
	tests := map[string]string{
		"Home Environment":   "homeenvironment",
		"Overview":           "overview",
		"Mobility & Falls":   "mobilityfalls",
		"  Medication (PRN)": "medicationprn",
		"Step 2: Goals":      "step2goals",
		"Bien-être":          "bienêtre",
		"!!!":                "",
	}
	for in, want := range tests {
		if got := SectionKey(in); got != want {
			t.Errorf("SectionKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSectionsSkipsActionItemsAndBlanks(t *testing.T) {
	got := Keys([]string{"Overview", "", "Action Items", "Hygiene", "--"})
	if !reflect.DeepEqual(got, []string{"overview", "hygiene"}) {
		t.Errorf("keys = %v", got)
	}
}

func TestValidateSections(t *testing.T) {
	names := []string{"Overview", "Hygiene"}
	if err := ValidateSections(model.Sections{"overview": "a", "hygiene": ""}, names); err != nil {
		t.Errorf("valid sections rejected: %v", err)
	}
	err := ValidateSections(model.Sections{"overview": "a", "zz": "b", "finances": "c"}, names)
	if err == nil {
		t.Fatal("expected error for unknown keys")
	}
	if err.Error() != "unknown section keys: finances, zz" {
		t.Errorf("err = %q", err)
	}
}
