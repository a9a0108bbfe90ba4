// Package notify emails case assignees when their assessment is ready.
package notify

import (
	"context"
	"fmt"
	"strings"

	"care-assess/internal/helper"
	"care-assess/internal/model"
)

// SendFunc delivers one email.
type SendFunc func(to, subject, body string) error

type Mailer struct {
	send    SendFunc
	urlBase string
}

// New returns a Mailer sending through SMTP.
func New(urlBase string) *Mailer {
	return NewWithSender(urlBase, helper.SendEmail)
}

func NewWithSender(urlBase string, send SendFunc) *Mailer {
	return &Mailer{send: send, urlBase: strings.TrimRight(urlBase, "/")}
}

// AssessmentCompleted mails the assignee of the assessment's case. A case
// without an assignee, or an assignee without an email, is skipped.
func (m *Mailer) AssessmentCompleted(_ context.Context, a *model.Assessment) error {
	if a.Case == nil || a.Case.Assignee == nil || a.Case.Assignee.Email == "" {
		return nil
	}
	link := m.Link(a.ID)
	body := fmt.Sprintf("The assessment \"%s\" for %s is ready. To review it, go to:<br/>\n<a href=\"%s\">%s</a>",
		a.Title, a.Case.ClientName, link, link)
	if err := m.send(a.Case.Assignee.Email, "Assessment ready", body); err != nil {
		return fmt.Errorf("send completion email to %s: %w", a.Case.Assignee.Email, err)
	}
	return nil
}

func (m *Mailer) Link(assessmentID uint) string {
	return fmt.Sprintf("%s/assessments/%d", m.urlBase, assessmentID)
}
