// Package pipeline runs an uploaded recording through transcription,
// speaker segmentation, conversation formatting and assessment generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"care-assess/internal/logger"
	"care-assess/internal/model"
)

// ErrAlreadyRunning is returned by Submit for a recording that is in flight.
var ErrAlreadyRunning = errors.New("pipeline: recording already running")

// StageError is a terminal failure of one run.
type StageError struct {
	Stage model.RecordingStatus
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Job identifies one run. The recording id is the job id.
type Job struct {
	AssessmentID     uint
	RecordingID      uint
	AudioPath        string
	TemplateFallback string
}

type Deps struct {
	Store       Store
	Transcriber Transcriber
	Segmenter   Segmenter
	Formatter   Formatter
	Generator   Generator
	Notifier    Notifier      // optional
	Log         *logrus.Entry // optional
}

type Orchestrator struct {
	Deps

	mu       sync.Mutex
	inflight map[uint]struct{}
	wg       sync.WaitGroup
}

func New(d Deps) *Orchestrator {
	if d.Log == nil {
		d.Log = logger.New().WithField("component", "pipeline")
	}
	return &Orchestrator{Deps: d, inflight: map[uint]struct{}{}}
}

// Submit starts the job in the background and returns immediately. The run
// is not cancelled when the caller's request ends.
func (o *Orchestrator) Submit(job Job) error {
	o.mu.Lock()
	if _, ok := o.inflight[job.RecordingID]; ok {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.inflight[job.RecordingID] = struct{}{}
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		defer o.release(job.RecordingID)
		_ = o.Run(context.Background(), job)
	}()
	return nil
}

func (o *Orchestrator) release(id uint) {
	o.mu.Lock()
	delete(o.inflight, id)
	o.mu.Unlock()
}

// Running reports whether a submitted job for the recording is in flight.
func (o *Orchestrator) Running(recordingID uint) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.inflight[recordingID]
	return ok
}

// Wait blocks until every submitted job has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Run executes the job synchronously. A run that cannot claim its recording
// is skipped and returns nil. Any other failure marks both the recording and
// the assessment failed and is returned as *StageError.
func (o *Orchestrator) Run(ctx context.Context, job Job) (err error) {
	log := o.Log.WithFields(logrus.Fields{
		"recording_id":  job.RecordingID,
		"assessment_id": job.AssessmentID,
	})

	claimed, err := o.Store.ClaimRecording(ctx, job.RecordingID)
	if err != nil {
		err = &StageError{Stage: model.RecordingPending, Err: fmt.Errorf("claim recording: %w", err)}
		o.fail(ctx, job, log, err)
		return err
	}
	if !claimed {
		log.Info("recording is not pending, skipping run")
		return nil
	}

	r := &run{Orchestrator: o, job: job, stage: model.RecordingTranscribing}
	defer func() {
		if p := recover(); p != nil {
			err = &StageError{Stage: r.stage, Err: fmt.Errorf("panic: %v", p)}
			o.fail(ctx, job, log, err)
		}
	}()

	log.Info("pipeline started")
	if err := r.process(ctx, log); err != nil {
		var se *StageError
		if !errors.As(err, &se) {
			err = &StageError{Stage: r.stage, Err: err}
		}
		o.fail(ctx, job, log, err)
		return err
	}
	log.Info("pipeline completed")
	return nil
}

// fail records the terminal state. Partial transcript or section writes are
// left in place.
func (o *Orchestrator) fail(ctx context.Context, job Job, log *logrus.Entry, cause error) {
	ctx = context.WithoutCancel(ctx)
	log.WithField("error", cause.Error()).Error("pipeline failed")

	if err := o.Store.SetRecordingStatus(ctx, job.RecordingID, model.RecordingFailed); err != nil {
		log.WithField("error", err.Error()).Error("failed to mark recording failed")
	}
	if err := o.Store.SetAssessmentStatus(ctx, job.AssessmentID, model.AssessmentFailed); err != nil {
		log.WithField("error", err.Error()).Error("failed to mark assessment failed")
	}
}

// run holds the state of one job while it moves through the stages.
type run struct {
	*Orchestrator
	job   Job
	stage model.RecordingStatus
}

func (r *run) advance(ctx context.Context, stage model.RecordingStatus) error {
	r.stage = stage
	if err := r.Store.SetRecordingStatus(ctx, r.job.RecordingID, stage); err != nil {
		return fmt.Errorf("set recording status %s: %w", stage, err)
	}
	return nil
}

func (r *run) process(ctx context.Context, log *logrus.Entry) error {
	a, err := r.Store.GetAssessment(ctx, r.job.AssessmentID)
	if err != nil {
		return fmt.Errorf("load assessment: %w", err)
	}

	// transcribing
	log.WithField("stage", r.stage).Info("transcribing audio")
	res, err := r.Transcriber.Transcribe(ctx, r.job.AudioPath)
	if err != nil {
		return &StageError{Stage: r.stage, Err: err}
	}
	if res.Duration > 0 {
		if err := r.Store.SetRecordingDuration(ctx, r.job.RecordingID, res.Duration); err != nil {
			log.WithField("error", err.Error()).Warn("failed to store recording duration")
		}
	}

	seg := r.Segmenter.Segment(ctx, res.Text, res.Words, res.Duration)
	degraded(log, "segmentation", seg.Reason)

	transcript := &model.Transcript{
		CaseID:       a.CaseID,
		AssessmentID: a.ID,
		RecordingID:  r.job.RecordingID,
		Text:         res.Text,
		Enhanced:     datatypes.NewJSONType(seg.Value),
		Status:       model.TranscriptProcessing,
	}
	if err := r.Store.CreateTranscript(ctx, transcript); err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	log.WithFields(logrus.Fields{
		"transcript_id": transcript.ID,
		"segments":      len(seg.Value.Segments),
		"speakers":      len(seg.Value.Speakers),
	}).Info("transcript stored")

	if err := r.advance(ctx, model.RecordingGeneratingConversation); err != nil {
		return err
	}
	conv := r.Formatter.Format(ctx, res.Text, seg.Value)
	degraded(log, "formatting", conv.Reason)

	enhanced := seg.Value
	enhanced.ConversationText = conv.Value
	transcript.Enhanced = datatypes.NewJSONType(enhanced)
	transcript.Status = model.TranscriptComplete
	if err := r.Store.SaveTranscript(ctx, transcript); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}

	if err := r.advance(ctx, model.RecordingGeneratingAssessment); err != nil {
		return err
	}
	templateName := a.TemplateName
	if templateName == "" {
		templateName = r.job.TemplateFallback
	}
	clientName := ""
	if a.Case != nil {
		clientName = a.Case.ClientName
	}
	gen := r.Generator.Generate(ctx, conv.Value, clientName, templateName)
	degraded(log, "generation", gen.Reason)

	if err := r.advance(ctx, model.RecordingFinalizing); err != nil {
		return err
	}
	if err := r.Store.ApplyAssessmentResult(ctx, a.ID, gen.Value.Sections, gen.Value.ActionItems); err != nil {
		return fmt.Errorf("store assessment result: %w", err)
	}

	if err := r.advance(ctx, model.RecordingCompleted); err != nil {
		return err
	}

	if r.Notifier != nil {
		a.Status = model.AssessmentCompleted
		if err := r.Notifier.AssessmentCompleted(ctx, a); err != nil {
			log.WithField("error", err.Error()).Warn("completion notification failed")
		}
	}
	return nil
}

func degraded(log *logrus.Entry, stage, reason string) {
	if reason == "" {
		return
	}
	log.WithFields(logrus.Fields{"stage": stage, "reason": reason}).Warn("stage degraded")
}
