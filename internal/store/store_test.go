package store_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"gorm.io/datatypes"

	"care-assess/internal/model"
	"care-assess/internal/store"
	"care-assess/internal/store/storetest"
)

func upload(t *testing.T, s *store.Store) (*model.Assessment, *model.Recording) {
	t.Helper()
	ctx := context.Background()

	c := &model.Case{ClientName: "Ellie Smith"}
	if err := s.CreateCase(ctx, c); err != nil {
		t.Fatalf("create case: %v", err)
	}
	a := &model.Assessment{CaseID: c.ID, Title: "First visit", TemplateName: "basic"}
	r := &model.Recording{Filename: "visit.m4a", Path: "/data/visit.m4a"}
	if err := s.CreateUpload(ctx, a, r); err != nil {
		t.Fatalf("create upload: %v", err)
	}
	return a, r
}

func TestCreateUpload(t *testing.T) {
	s := storetest.New(t)
	a, r := upload(t, s)

	got, err := s.GetAssessment(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get assessment: %v", err)
	}
	if got.Status != model.AssessmentProcessing {
		t.Errorf("assessment status = %q, want processing", got.Status)
	}
	if got.Case == nil || got.Case.ClientName != "Ellie Smith" {
		t.Errorf("case not preloaded: %+v", got.Case)
	}

	rec, err := s.GetRecording(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("get recording: %v", err)
	}
	if rec.Status != model.RecordingPending || rec.AssessmentID != a.ID {
		t.Errorf("recording = %+v", rec)
	}
}

func TestClaimRecordingOnce(t *testing.T) {
	s := storetest.New(t)
	_, r := upload(t, s)
	ctx := context.Background()

	ok, err := s.ClaimRecording(ctx, r.ID)
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v; want true", ok, err)
	}
	ok, err = s.ClaimRecording(ctx, r.ID)
	if err != nil || ok {
		t.Fatalf("second claim = %v, %v; want false", ok, err)
	}
	rec, _ := s.GetRecording(ctx, r.ID)
	if rec.Status != model.RecordingTranscribing {
		t.Errorf("status = %q, want transcribing", rec.Status)
	}
}

func TestApplyAssessmentResultMergesIdempotently(t *testing.T) {
	s := storetest.New(t)
	a, _ := upload(t, s)
	ctx := context.Background()

	if err := s.UpdateSections(ctx, a.ID, model.Sections{"notes": "user note", "overview": "draft"}); err != nil {
		t.Fatalf("update sections: %v", err)
	}

	generated := model.Sections{"overview": "Lives alone", "hygiene": ""}
	items := []string{"Book GP review"}
	for i := 0; i < 2; i++ {
		if err := s.ApplyAssessmentResult(ctx, a.ID, generated, items); err != nil {
			t.Fatalf("apply #%d: %v", i, err)
		}
	}

	got, _ := s.GetAssessment(ctx, a.ID)
	want := model.Sections{"overview": "Lives alone", "hygiene": "", "notes": "user note"}
	if !reflect.DeepEqual(got.Sections.Data(), want) {
		t.Errorf("sections = %v, want %v", got.Sections.Data(), want)
	}
	if !reflect.DeepEqual(got.ActionItems.Data(), items) {
		t.Errorf("action items = %v, want %v", got.ActionItems.Data(), items)
	}
	if got.Status != model.AssessmentCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestApplyAssessmentResultNilActionItems(t *testing.T) {
	s := storetest.New(t)
	a, _ := upload(t, s)
	ctx := context.Background()

	if err := s.ApplyAssessmentResult(ctx, a.ID, model.Sections{}, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, _ := s.GetAssessment(ctx, a.ID)
	if items := got.ActionItems.Data(); items == nil || len(items) != 0 {
		t.Errorf("action items = %#v, want empty list", items)
	}
}

func TestSetStatusMissingRow(t *testing.T) {
	s := storetest.New(t)
	err := s.SetAssessmentStatus(context.Background(), 999, model.AssessmentFailed)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetAssessment(context.Background(), 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get err = %v, want ErrNotFound", err)
	}
}

func TestDeleteAssessmentCascades(t *testing.T) {
	s := storetest.New(t)
	a, r := upload(t, s)
	ctx := context.Background()

	tr := &model.Transcript{CaseID: a.CaseID, AssessmentID: a.ID, RecordingID: r.ID, Text: "hello"}
	if err := s.CreateTranscript(ctx, tr); err != nil {
		t.Fatalf("create transcript: %v", err)
	}

	paths, err := s.DeleteAssessment(ctx, a.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !reflect.DeepEqual(paths, []string{"/data/visit.m4a"}) {
		t.Errorf("paths = %v", paths)
	}
	if _, err := s.GetRecording(ctx, r.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("recording still present: %v", err)
	}
	if n, _ := s.CountTranscripts(ctx, r.ID); n != 0 {
		t.Errorf("transcripts = %d, want 0", n)
	}
	if _, err := s.DeleteAssessment(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestTranscriptRoundTripsEnhanced(t *testing.T) {
	s := storetest.New(t)
	a, r := upload(t, s)
	ctx := context.Background()

	et := model.EnhancedTranscript{
		FullText:     "Hello",
		Segments:     []model.Segment{{Start: 0, End: 1.5, Text: "Hello", Speaker: "David", SpeakerRole: "Social Worker"}},
		Speakers:     []string{"David"},
		SpeakerRoles: map[string]string{"David": "Social Worker"},
	}
	tr := &model.Transcript{AssessmentID: a.ID, RecordingID: r.ID, CaseID: a.CaseID, Text: "Hello", Enhanced: datatypes.NewJSONType(et)}
	if err := s.CreateTranscript(ctx, tr); err != nil {
		t.Fatalf("create: %v", err)
	}

	et.ConversationText = `David: "Hello"`
	tr.Enhanced = datatypes.NewJSONType(et)
	tr.Status = model.TranscriptComplete
	if err := s.SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LatestTranscript(ctx, a.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !reflect.DeepEqual(got.Enhanced.Data(), et) {
		t.Errorf("enhanced = %+v, want %+v", got.Enhanced.Data(), et)
	}
	if got.Status != model.TranscriptComplete {
		t.Errorf("status = %q", got.Status)
	}
}

func TestSectionNames(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	if _, err := s.SaveTemplate(ctx, "basic", []string{"Overview", "Hygiene"}); err != nil {
		t.Fatalf("save template: %v", err)
	}
	if _, err := s.SaveTemplate(ctx, "basic", []string{"Overview", "Hygiene", "Nutrition"}); err != nil {
		t.Fatalf("resave template: %v", err)
	}
	names, err := s.SectionNames(ctx, "basic")
	if err != nil {
		t.Fatalf("section names: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"Overview", "Hygiene", "Nutrition"}) {
		t.Errorf("names = %v", names)
	}
	if _, err := s.SectionNames(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPendingRecordings(t *testing.T) {
	s := storetest.New(t)
	_, r := upload(t, s)
	ctx := context.Background()

	got, err := s.PendingRecordings(ctx, time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(got) != 1 || got[0].ID != r.ID {
		t.Errorf("pending = %+v", got)
	}

	got, _ = s.PendingRecordings(ctx, time.Now().Add(-time.Hour), 10)
	if len(got) != 0 {
		t.Errorf("recordings newer than cutoff returned: %+v", got)
	}
}

func TestListCasesByAssignee(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	worker := &model.User{Email: "sw@example.org", Password: "x", Role: model.RoleMember}
	admin := &model.User{Email: "admin@example.org", Password: "x", Role: model.RoleAdmin}
	for _, u := range []*model.User{worker, admin} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	mine := &model.Case{ClientName: "A"}
	other := &model.Case{ClientName: "B"}
	for _, c := range []*model.Case{mine, other} {
		if err := s.CreateCase(ctx, c); err != nil {
			t.Fatalf("create case: %v", err)
		}
	}
	if err := s.AssignCase(ctx, mine.ID, worker.ID, admin.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	got, err := s.ListCases(ctx, &worker.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Fatalf("cases = %+v", got)
	}
	if got[0].Assignee == nil || got[0].Assignee.Email != "sw@example.org" {
		t.Errorf("assignee not preloaded: %+v", got[0].Assignee)
	}

	all, _ := s.ListCases(ctx, nil)
	if len(all) != 2 {
		t.Errorf("all cases = %d, want 2", len(all))
	}

	if err := s.AssignCase(ctx, 999, worker.ID, admin.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("assign missing err = %v", err)
	}
}
