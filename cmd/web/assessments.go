package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"care-assess/internal/assessment"
	"care-assess/internal/export"
	"care-assess/internal/helper"
	"care-assess/internal/model"
	"care-assess/internal/pipeline"
	"care-assess/internal/store"
)

var maxUploadBytes int64 = 50 << 20

func hiddenSections(a *model.Assessment) datatypes.JSONType[model.Sections] {
	return datatypes.NewJSONType(a.VisibleSections())
}

func tooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
		gin.H{"error": fmt.Sprintf("audio files are limited to %d MB", maxUploadBytes>>20)})
}

func (s *server) uploadRecording(c *gin.Context) {
	cs, ok := s.loadCase(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// Leave room for the other form fields
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+1<<20)

	file, err := c.FormFile("content")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			tooLarge(c)
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	if file.Size > maxUploadBytes {
		tooLarge(c)
		return
	}

	filename := filepath.Base(file.Filename)
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = filename
	}
	templateName := strings.TrimSpace(c.PostForm("template"))
	if templateName != "" {
		if _, err := s.store.GetTemplate(ctx, templateName); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown template"})
			return
		}
	}

	localFilename := helper.RecordingFilename(filename)
	if err := c.SaveUploadedFile(file, localFilename); err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not store audio"})
		return
	}

	a := &model.Assessment{CaseID: cs.ID, Title: title, TemplateName: templateName}
	r := &model.Recording{Filename: filename, Path: localFilename}
	if err := s.store.CreateUpload(ctx, a, r); err != nil {
		os.Remove(localFilename)
		abortWithStoreError(c, err)
		return
	}

	job := pipeline.Job{
		AssessmentID:     a.ID,
		RecordingID:      r.ID,
		AudioPath:        r.Path,
		TemplateFallback: s.defaultTemplate,
	}
	if err := s.orch.Submit(job); err != nil {
		// The recovery worker picks up recordings left pending
		s.log.WithError(err).WithField("recording_id", r.ID).Warn("pipeline not started")
	}

	c.JSON(http.StatusAccepted, gin.H{
		"assessment_id": a.ID,
		"recording_id":  r.ID,
		"status":        a.Status,
		"status_url":    fmt.Sprintf("/recordings/%d/status", r.ID),
	})
}

func (s *server) recordingStatus(c *gin.Context) {
	id, ok := paramID(c, "recording_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	r, err := s.store.GetRecording(ctx, id)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	a, err := s.store.GetAssessment(ctx, r.AssessmentID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	if !canAccess(currentUser(c), a.Case) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "case is not assigned to you"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recording_id":      r.ID,
		"recording_status":  r.Status,
		"assessment_id":     a.ID,
		"assessment_status": a.Status,
		"running":           s.orch.Running(r.ID),
	})
}

// loadAssessment fetches the assessment of the URL and checks the user may
// see its case
func (s *server) loadAssessment(c *gin.Context) (*model.Assessment, bool) {
	id, ok := paramID(c, "assessment_id")
	if !ok {
		return nil, false
	}
	a, err := s.store.GetAssessment(c.Request.Context(), id)
	if err != nil {
		abortWithStoreError(c, err)
		return nil, false
	}
	if !canAccess(currentUser(c), a.Case) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "case is not assigned to you"})
		return nil, false
	}
	return a, true
}

type assessmentView struct {
	*model.Assessment
	Transcript *model.Transcript `json:"transcript,omitempty"`
}

func (s *server) showAssessment(c *gin.Context) {
	a, ok := s.loadAssessment(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	recordings, err := s.store.ListRecordings(ctx, a.ID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	a.Recordings = recordings

	view := assessmentView{Assessment: a}
	if a.Status == model.AssessmentCompleted {
		if t, err := s.store.LatestTranscript(ctx, a.ID); err == nil {
			view.Transcript = t
		} else if !errors.Is(err, store.ErrNotFound) {
			abortWithStoreError(c, err)
			return
		}
	}
	a.Sections = hiddenSections(a)
	c.JSON(http.StatusOK, view)
}

// sectionNames resolves the template of a the same way generation does
func (s *server) sectionNames(ctx context.Context, a *model.Assessment) []string {
	name := a.TemplateName
	if name == "" {
		name = s.defaultTemplate
	}
	names, err := s.store.SectionNames(ctx, name)
	if err != nil || len(assessment.Keys(names)) == 0 {
		return assessment.DefaultSections
	}
	return names
}

func (s *server) updateSections(c *gin.Context) {
	a, ok := s.loadAssessment(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var sections model.Sections
	if err := c.ShouldBindJSON(&sections); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "sections must be an object of strings"})
		return
	}
	if err := assessment.ValidateSections(sections, s.sectionNames(ctx, a)); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.UpdateSections(ctx, a.ID, sections); err != nil {
		abortWithStoreError(c, err)
		return
	}

	a, err := s.store.GetAssessment(ctx, a.ID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	a.Sections = hiddenSections(a)
	c.JSON(http.StatusOK, a)
}

func (s *server) deleteAssessment(c *gin.Context) {
	a, ok := s.loadAssessment(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	recordings, err := s.store.ListRecordings(ctx, a.ID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	for _, r := range recordings {
		if s.orch.Running(r.ID) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "assessment is still processing"})
			return
		}
	}

	paths, err := s.store.DeleteAssessment(ctx, a.ID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.WithError(err).WithField("path", p).Warn("could not remove audio file")
		}
	}
	c.Status(http.StatusNoContent)
}

func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, contentType, data)
}

func (s *server) exportXLSX(c *gin.Context) {
	a, ok := s.loadAssessment(c)
	if !ok {
		return
	}
	if a.Status != model.AssessmentCompleted {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "assessment is not completed"})
		return
	}

	buf := &bytes.Buffer{}
	if err := export.WriteXLSX(buf, a, s.sectionNames(c.Request.Context(), a)); err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	attachment(c, fmt.Sprintf("assessment-%d.xlsx", a.ID),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (s *server) exportSRT(c *gin.Context) {
	s.exportSubtitles(c, ".srt", "text/srt", export.WriteSRT)
}

func (s *server) exportWebVTT(c *gin.Context) {
	s.exportSubtitles(c, ".vtt", "text/vtt", export.WriteWebVTT)
}

func (s *server) exportSubtitles(c *gin.Context, ext, contentType string, write func(w io.Writer, segments []model.Segment) error) {
	a, ok := s.loadAssessment(c)
	if !ok {
		return
	}
	t, err := s.store.LatestTranscript(c.Request.Context(), a.ID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}

	buf := &bytes.Buffer{}
	if err := write(buf, t.Enhanced.Data().Segments); err != nil {
		if errors.Is(err, export.ErrNoSegments) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "transcript has no segments"})
			return
		}
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	attachment(c, fmt.Sprintf("assessment-%d%s", a.ID, ext), contentType, buf.Bytes())
}
