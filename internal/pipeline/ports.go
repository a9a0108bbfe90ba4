package pipeline

import (
	"context"

	"care-assess/internal/assessment"
	"care-assess/internal/degrade"
	"care-assess/internal/model"
	"care-assess/internal/transcription"
)

// Store is the persistence the orchestrator writes through. Every write is
// scoped to one row.
type Store interface {
	ClaimRecording(ctx context.Context, recordingID uint) (bool, error)
	SetRecordingStatus(ctx context.Context, recordingID uint, status model.RecordingStatus) error
	SetRecordingDuration(ctx context.Context, recordingID uint, seconds float64) error
	SetAssessmentStatus(ctx context.Context, assessmentID uint, status model.ProcessingStatus) error
	GetAssessment(ctx context.Context, assessmentID uint) (*model.Assessment, error)
	CreateTranscript(ctx context.Context, t *model.Transcript) error
	SaveTranscript(ctx context.Context, t *model.Transcript) error
	ApplyAssessmentResult(ctx context.Context, assessmentID uint, sections model.Sections, actionItems []string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string) (transcription.Result, error)
}

type Segmenter interface {
	Segment(ctx context.Context, text string, words []model.Word, duration float64) degrade.Result[model.EnhancedTranscript]
}

type Formatter interface {
	Format(ctx context.Context, text string, et model.EnhancedTranscript) degrade.Result[string]
}

type Generator interface {
	Generate(ctx context.Context, conversation, clientName, templateName string) degrade.Result[assessment.Output]
}

// Notifier is told about completed assessments. Errors are logged only.
type Notifier interface {
	AssessmentCompleted(ctx context.Context, a *model.Assessment) error
}
