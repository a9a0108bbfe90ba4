package assessment

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"care-assess/internal/model"
)

// ActionItemsKey is reserved for the action item list and never used as a
// section key.
const ActionItemsKey = "actionitems"

// DefaultSections is used when a template cannot be resolved.
var DefaultSections = []string{"Overview", "Nutrition", "Hygiene", "Home Environment"}

// SectionKey lower-cases name and drops everything that is not a letter or
// digit: "Home Environment" becomes "homeenvironment".
func SectionKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Section is a template section with its derived key.
type Section struct {
	Key  string
	Name string
}

// Sections derives keys for names in order, skipping blank names and the
// action items entry.
func Sections(names []string) []Section {
	out := make([]Section, 0, len(names))
	for _, name := range names {
		key := SectionKey(name)
		if key == "" || key == ActionItemsKey {
			continue
		}
		out = append(out, Section{Key: key, Name: strings.TrimSpace(name)})
	}
	return out
}

// Keys returns just the keys of Sections(names).
func Keys(names []string) []string {
	sections := Sections(names)
	keys := make([]string, len(sections))
	for i, s := range sections {
		keys[i] = s.Key
	}
	return keys
}

// ValidateSections rejects keys that the template does not define.
func ValidateSections(sections model.Sections, names []string) error {
	allowed := map[string]bool{}
	for _, k := range Keys(names) {
		allowed[k] = true
	}
	var unknown []string
	for k := range sections {
		if !allowed[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown section keys: %s", strings.Join(unknown, ", "))
	}
	return nil
}
