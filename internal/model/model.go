package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Role of a user account
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// User struct
type User struct {
	gorm.Model
	Email    string `gorm:"uniqueIndex;not null" json:"email" form:"email"`
	Password string `gorm:"not null" json:"-" form:"password"`
	Names    string `json:"names"`
	Role     Role   `gorm:"not null;default:member" json:"role"`
}

// Case struct
type Case struct {
	gorm.Model
	ClientName  string       `gorm:"not null" json:"client_name"`
	Reference   string       `json:"reference"`
	AssigneeID  *uint        `json:"assignee_id"`
	Assignee    *User        `json:"assignee,omitempty"`
	AssignerID  *uint        `json:"assigner_id"`
	Assessments []Assessment `json:"assessments,omitempty"`
}

// Template struct
type Template struct {
	gorm.Model
	Name     string                       `gorm:"uniqueIndex;not null" json:"name"`
	Sections datatypes.JSONType[[]string] `json:"sections"`
}

// Assessment struct
type Assessment struct {
	gorm.Model
	CaseID       uint                         `gorm:"not null;index" json:"case_id"`
	Case         *Case                        `json:"case,omitempty"`
	Title        string                       `gorm:"not null" json:"title"`
	TemplateName string                       `json:"template"`
	Sections     datatypes.JSONType[Sections] `json:"sections"`
	ActionItems  datatypes.JSONType[[]string] `json:"action_items"`
	Status       ProcessingStatus             `gorm:"not null;default:processing" json:"status"`
	Recordings   []Recording                  `json:"recordings,omitempty"`
}

// VisibleSections returns the dynamic sections only once the assessment is
// completed; a processing or failed assessment exposes none.
func (a *Assessment) VisibleSections() Sections {
	if a.Status != AssessmentCompleted {
		return nil
	}
	return a.Sections.Data()
}

// Recording struct
type Recording struct {
	gorm.Model
	AssessmentID uint            `gorm:"not null;index" json:"assessment_id"`
	Filename     string          `gorm:"not null" json:"file"`
	Path         string          `gorm:"not null" json:"-"`
	Duration     *float64        `json:"duration,omitempty"`
	Status       RecordingStatus `gorm:"not null;default:pending;index" json:"status"`
}

// Transcript struct
type Transcript struct {
	gorm.Model
	CaseID       uint                                   `gorm:"not null;index" json:"case_id"`
	AssessmentID uint                                   `gorm:"not null;index" json:"assessment_id"`
	RecordingID  uint                                   `gorm:"not null;index" json:"recording_id"`
	Text         string                                 `gorm:"type:text" json:"text"`
	Enhanced     datatypes.JSONType[EnhancedTranscript] `json:"enhanced"`
	Status       TranscriptStatus                       `gorm:"not null;default:processing" json:"status"`
}

// All returns every entity for AutoMigrate
func All() []interface{} {
	return []interface{}{&User{}, &Case{}, &Template{}, &Assessment{}, &Recording{}, &Transcript{}}
}
