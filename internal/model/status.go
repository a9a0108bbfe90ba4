package model

// RecordingStatus tracks a recording through the processing pipeline.
type RecordingStatus string

const (
	RecordingPending                RecordingStatus = "pending"
	RecordingTranscribing           RecordingStatus = "transcribing"
	RecordingGeneratingConversation RecordingStatus = "generating_conversation"
	RecordingGeneratingAssessment   RecordingStatus = "generating_assessment"
	RecordingFinalizing             RecordingStatus = "finalizing"
	RecordingCompleted              RecordingStatus = "completed"
	RecordingFailed                 RecordingStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s RecordingStatus) Terminal() bool {
	return s == RecordingCompleted || s == RecordingFailed
}

// ProcessingStatus of an assessment document.
type ProcessingStatus string

const (
	AssessmentProcessing ProcessingStatus = "processing"
	AssessmentCompleted  ProcessingStatus = "completed"
	AssessmentFailed     ProcessingStatus = "failed"
)

// TranscriptStatus of a transcript row.
type TranscriptStatus string

const (
	TranscriptProcessing TranscriptStatus = "processing"
	TranscriptComplete   TranscriptStatus = "transcription_complete"
)
