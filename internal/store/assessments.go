package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"care-assess/internal/model"
)

// CreateUpload creates the assessment in processing state together with its
// pending recording.
func (s *Store) CreateUpload(ctx context.Context, a *model.Assessment, r *model.Recording) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a.Status = model.AssessmentProcessing
		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("create assessment: %w", err)
		}
		r.AssessmentID = a.ID
		r.Status = model.RecordingPending
		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("create recording: %w", err)
		}
		return nil
	})
}

// GetAssessment loads an assessment with its case and the case assignee.
func (s *Store) GetAssessment(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	if err := s.db.WithContext(ctx).Preload("Case.Assignee").First(&a, id).Error; err != nil {
		return nil, notFound(err, "assessment")
	}
	return &a, nil
}

func (s *Store) ListAssessments(ctx context.Context, caseID uint) ([]model.Assessment, error) {
	var out []model.Assessment
	err := s.db.WithContext(ctx).Where("case_id = ?", caseID).Order("id asc").Find(&out).Error
	return out, err
}

func (s *Store) GetRecording(ctx context.Context, id uint) (*model.Recording, error) {
	var r model.Recording
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFound(err, "recording")
	}
	return &r, nil
}

func (s *Store) ListRecordings(ctx context.Context, assessmentID uint) ([]model.Recording, error) {
	var out []model.Recording
	err := s.db.WithContext(ctx).Where("assessment_id = ?", assessmentID).Order("id asc").Find(&out).Error
	return out, err
}

// ClaimRecording moves a pending recording to transcribing. It reports false
// when the recording was not pending, i.e. another run owns it.
func (s *Store) ClaimRecording(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Recording{}).
		Where("id = ? AND status = ?", id, model.RecordingPending).
		Update("status", model.RecordingTranscribing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// PendingRecordings returns recordings still pending that were created
// before the cutoff.
func (s *Store) PendingRecordings(ctx context.Context, before time.Time, limit int) ([]model.Recording, error) {
	var out []model.Recording
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.RecordingPending, before).
		Order("id asc").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Store) SetRecordingStatus(ctx context.Context, id uint, status model.RecordingStatus) error {
	return s.updateField(ctx, &model.Recording{}, id, "status", status)
}

func (s *Store) SetRecordingDuration(ctx context.Context, id uint, seconds float64) error {
	return s.updateField(ctx, &model.Recording{}, id, "duration", seconds)
}

func (s *Store) SetAssessmentStatus(ctx context.Context, id uint, status model.ProcessingStatus) error {
	return s.updateField(ctx, &model.Assessment{}, id, "status", status)
}

func (s *Store) updateField(ctx context.Context, m interface{}, id uint, column string, value interface{}) error {
	res := s.db.WithContext(ctx).Model(m).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %s of %d: %w", column, id, ErrNotFound)
	}
	return nil
}

func (s *Store) CreateTranscript(ctx context.Context, t *model.Transcript) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *Store) SaveTranscript(ctx context.Context, t *model.Transcript) error {
	return s.db.WithContext(ctx).Save(t).Error
}

// LatestTranscript returns the newest transcript of an assessment.
func (s *Store) LatestTranscript(ctx context.Context, assessmentID uint) (*model.Transcript, error) {
	var t model.Transcript
	err := s.db.WithContext(ctx).Where("assessment_id = ?", assessmentID).Order("id desc").First(&t).Error
	if err != nil {
		return nil, notFound(err, "transcript")
	}
	return &t, nil
}

func (s *Store) CountTranscripts(ctx context.Context, recordingID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Transcript{}).Where("recording_id = ?", recordingID).Count(&n).Error
	return n, err
}

// ApplyAssessmentResult merges generated sections into the stored ones,
// replaces the action items and marks the assessment completed.
func (s *Store) ApplyAssessmentResult(ctx context.Context, id uint, sections model.Sections, actionItems []string) error {
	if actionItems == nil {
		actionItems = []string{}
	}
	return s.mergeSections(ctx, id, sections, map[string]interface{}{
		"action_items": datatypes.NewJSONType(actionItems),
		"status":       model.AssessmentCompleted,
	})
}

// UpdateSections merges user edits into the stored sections.
func (s *Store) UpdateSections(ctx context.Context, id uint, sections model.Sections) error {
	return s.mergeSections(ctx, id, sections, nil)
}

func (s *Store) mergeSections(ctx context.Context, id uint, sections model.Sections, extra map[string]interface{}) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.Assessment
		if err := tx.First(&a, id).Error; err != nil {
			return notFound(err, "assessment")
		}
		updates := map[string]interface{}{
			"sections": datatypes.NewJSONType(model.MergeSections(a.Sections.Data(), sections)),
		}
		for k, v := range extra {
			updates[k] = v
		}
		return tx.Model(&a).Updates(updates).Error
	})
}

// DeleteAssessment removes the assessment with its transcripts and
// recordings in one transaction and returns the audio paths to clean up.
func (s *Store) DeleteAssessment(ctx context.Context, id uint) ([]string, error) {
	var paths []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.Assessment
		if err := tx.First(&a, id).Error; err != nil {
			return notFound(err, "assessment")
		}
		var recordings []model.Recording
		if err := tx.Where("assessment_id = ?", id).Find(&recordings).Error; err != nil {
			return err
		}
		for _, r := range recordings {
			paths = append(paths, r.Path)
		}
		if err := tx.Unscoped().Where("assessment_id = ?", id).Delete(&model.Transcript{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("assessment_id = ?", id).Delete(&model.Recording{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&a).Error
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
