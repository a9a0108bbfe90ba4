package pipeline

import (
	"github.com/sirupsen/logrus"

	"care-assess/internal/assessment"
	"care-assess/internal/conversation"
	"care-assess/internal/helper"
	"care-assess/internal/llm"
	"care-assess/internal/notify"
	"care-assess/internal/segmentation"
	"care-assess/internal/store"
	"care-assess/internal/transcription"
)

// NewFromConfig wires the OpenAI backed stages and, when SMTP is
// configured, the completion mailer.
func NewFromConfig(s *store.Store, log *logrus.Entry) *Orchestrator {
	api := llm.NewOpenAIAPI(helper.GetConfig("OPENAI_API_KEY"), helper.GetConfig("OPENAI_BASE_URL"))
	chat := llm.New(api, helper.GetConfig("LLM_MODEL"))

	deps := Deps{
		Store:       s,
		Transcriber: transcription.New(api, helper.GetConfig("TRANSCRIBE_MODEL")),
		Segmenter:   segmentation.New(chat),
		Formatter:   conversation.New(chat),
		Generator:   assessment.New(chat, s),
		Log:         log,
	}
	if helper.MailEnabled() {
		deps.Notifier = notify.New(helper.GetConfigOr("URL_BASE", "http://localhost:8080"))
	}
	return New(deps)
}

// DefaultTemplate is the template used for assessments created without one.
func DefaultTemplate() string {
	return helper.GetConfigOr("DEFAULT_TEMPLATE", "default")
}
