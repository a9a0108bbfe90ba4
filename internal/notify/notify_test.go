package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"care-assess/internal/model"
)

type outbox struct {
	to, subject, body string
	calls             int
	err               error
}

func (o *outbox) send(to, subject, body string) error {
	o.calls++
	o.to, o.subject, o.body = to, subject, body
	return o.err
}

func assessment() *model.Assessment {
	return &model.Assessment{
		Model: gorm.Model{ID: 7},
		Title: "Home visit",
		Case: &model.Case{
			ClientName: "Ellie Smith",
			Assignee:   &model.User{Email: "sw@example.org"},
		},
	}
}

func TestAssessmentCompletedSendsLink(t *testing.T) {
	box := &outbox{}
	m := NewWithSender("https://care.example.org/", box.send)

	if err := m.AssessmentCompleted(context.Background(), assessment()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if box.to != "sw@example.org" {
		t.Errorf("to = %q", box.to)
	}
	if !strings.Contains(box.body, `href="https://care.example.org/assessments/7"`) {
		t.Errorf("body = %q, want assessment link", box.body)
	}
	if !strings.Contains(box.body, "Ellie Smith") {
		t.Errorf("body = %q, want client name", box.body)
	}
}

func TestAssessmentCompletedWithoutAssignee(t *testing.T) {
	box := &outbox{}
	m := NewWithSender("http://localhost:8080", box.send)

	a := assessment()
	a.Case.Assignee = nil
	if err := m.AssessmentCompleted(context.Background(), a); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if box.calls != 0 {
		t.Errorf("sent %d emails, want 0", box.calls)
	}
}

func TestAssessmentCompletedSendError(t *testing.T) {
	box := &outbox{err: errors.New("connection refused")}
	m := NewWithSender("http://localhost:8080", box.send)

	err := m.AssessmentCompleted(context.Background(), assessment())
	if !errors.Is(err, box.err) {
		t.Errorf("err = %v, want wrapped send error", err)
	}
}
