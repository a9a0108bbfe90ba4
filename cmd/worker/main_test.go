package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"care-assess/internal/logger"
	"care-assess/internal/model"
	"care-assess/internal/pipeline"
	"care-assess/internal/store/storetest"
)

type runner struct {
	jobs []pipeline.Job
	err  error
}

func (r *runner) Run(_ context.Context, job pipeline.Job) error {
	r.jobs = append(r.jobs, job)
	return r.err
}

func quiet() *logger.Logger {
	log := logger.New()
	log.Logger.SetOutput(io.Discard)
	return log
}

func TestSweepRunsPendingRecordings(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	c := &model.Case{ClientName: "Ellie Smith"}
	if err := s.CreateCase(ctx, c); err != nil {
		t.Fatalf("create case: %v", err)
	}
	a := &model.Assessment{CaseID: c.ID, Title: "Visit"}
	r := &model.Recording{Filename: "visit.m4a", Path: "/data/visit.m4a"}
	if err := s.CreateUpload(ctx, a, r); err != nil {
		t.Fatalf("create upload: %v", err)
	}

	run := &runner{err: errors.New("provider down")}
	n, err := sweep(ctx, s, run, time.Now().Add(time.Minute), "default", quiet())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 || len(run.jobs) != 1 {
		t.Fatalf("picked up %d, ran %d; want 1, 1", n, len(run.jobs))
	}
	want := pipeline.Job{AssessmentID: a.ID, RecordingID: r.ID, AudioPath: "/data/visit.m4a", TemplateFallback: "default"}
	if run.jobs[0] != want {
		t.Errorf("job = %+v, want %+v", run.jobs[0], want)
	}
}

func TestSweepSkipsRecentRecordings(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	c := &model.Case{ClientName: "Ellie Smith"}
	s.CreateCase(ctx, c)
	s.CreateUpload(ctx, &model.Assessment{CaseID: c.ID, Title: "Visit"}, &model.Recording{Filename: "a.m4a", Path: "/a.m4a"})

	run := &runner{}
	n, err := sweep(ctx, s, run, time.Now().Add(-time.Hour), "default", quiet())
	if err != nil || n != 0 || len(run.jobs) != 0 {
		t.Errorf("sweep = %d, %v, ran %d; want nothing", n, err, len(run.jobs))
	}
}
