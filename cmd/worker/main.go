package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"care-assess/internal/helper"
	"care-assess/internal/logger"
	"care-assess/internal/model"
	"care-assess/internal/pipeline"
	"care-assess/internal/store"
)

const batchSize = 10

// Queue is what the worker reads pending recordings from
type Queue interface {
	PendingRecordings(ctx context.Context, before time.Time, limit int) ([]model.Recording, error)
}

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, job pipeline.Job) error
}

// sweep runs every recording still pending since before and returns how
// many were picked up
func sweep(ctx context.Context, q Queue, run Runner, before time.Time, templateFallback string, log *logger.Logger) (int, error) {
	recordings, err := q.PendingRecordings(ctx, before, batchSize)
	if err != nil {
		return 0, err
	}

	for _, r := range recordings {
		log.WithField("recording_id", r.ID).Info("recovering pending recording")

		job := pipeline.Job{
			AssessmentID:     r.AssessmentID,
			RecordingID:      r.ID,
			AudioPath:        r.Path,
			TemplateFallback: templateFallback,
		}
		// A run in progress finishes even when the worker is stopping
		if err := run.Run(context.WithoutCancel(ctx), job); err != nil {
			log.WithError(err).WithField("recording_id", r.ID).Error("recovered run failed")
		}
		if ctx.Err() != nil {
			break
		}
	}
	return len(recordings), nil
}

func main() {
	log := logger.New()

	db, err := helper.ConnectDB()
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	s := store.New(db)
	orch := pipeline.NewFromConfig(s, log.WithField("component", "pipeline"))

	poll := time.Duration(helper.GetConfigInt("WORKER_POLL_SECONDS", 10)) * time.Second
	grace := time.Duration(helper.GetConfigInt("WORKER_GRACE_SECONDS", 120)) * time.Second
	templateFallback := pipeline.DefaultTemplate()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithField("poll", poll.String()).WithField("grace", grace.String()).Info("worker started")
	for {
		n, err := sweep(ctx, s, orch, time.Now().Add(-grace), templateFallback, log)
		if err != nil {
			log.WithError(err).Error("cannot list pending recordings")
		}

		// Keep draining while full batches come back
		if n < batchSize || err != nil {
			select {
			case <-ctx.Done():
				log.Info("worker stopped")
				return
			case <-time.After(poll):
			}
		} else if ctx.Err() != nil {
			log.Info("worker stopped")
			return
		}
	}
}
