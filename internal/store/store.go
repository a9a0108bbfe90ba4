// Package store persists cases, assessments, recordings and transcripts
// with gorm.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"care-assess/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the handle for callers that need ad hoc queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *Store) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where(&model.User{Email: email}).First(&u).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).Order("id asc").Find(&users).Error
	return users, err
}

// Cases

func (s *Store) CreateCase(ctx context.Context, c *model.Case) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *Store) GetCase(ctx context.Context, id uint) (*model.Case, error) {
	var c model.Case
	if err := s.db.WithContext(ctx).Preload("Assignee").First(&c, id).Error; err != nil {
		return nil, notFound(err, "case")
	}
	return &c, nil
}

// ListCases returns every case, or only those assigned to assigneeID when
// it is not nil.
func (s *Store) ListCases(ctx context.Context, assigneeID *uint) ([]model.Case, error) {
	q := s.db.WithContext(ctx).Preload("Assignee").Order("id asc")
	if assigneeID != nil {
		q = q.Where("assignee_id = ?", *assigneeID)
	}
	var cases []model.Case
	err := q.Find(&cases).Error
	return cases, err
}

func (s *Store) AssignCase(ctx context.Context, caseID, assigneeID, assignerID uint) error {
	res := s.db.WithContext(ctx).Model(&model.Case{}).Where("id = ?", caseID).
		Updates(map[string]interface{}{"assignee_id": assigneeID, "assigner_id": assignerID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("case: %w", ErrNotFound)
	}
	return nil
}

// Templates

func (s *Store) SaveTemplate(ctx context.Context, name string, sections []string) (*model.Template, error) {
	var t model.Template
	err := s.db.WithContext(ctx).Where(&model.Template{Name: name}).First(&t).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	t.Name = name
	t.Sections = datatypes.NewJSONType(sections)
	if err := s.db.WithContext(ctx).Save(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTemplate(ctx context.Context, name string) (*model.Template, error) {
	var t model.Template
	if err := s.db.WithContext(ctx).Where(&model.Template{Name: name}).First(&t).Error; err != nil {
		return nil, notFound(err, "template")
	}
	return &t, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]model.Template, error) {
	var templates []model.Template
	err := s.db.WithContext(ctx).Order("name asc").Find(&templates).Error
	return templates, err
}

// SectionNames resolves a template to its ordered section names.
func (s *Store) SectionNames(ctx context.Context, name string) ([]string, error) {
	t, err := s.GetTemplate(ctx, name)
	if err != nil {
		return nil, err
	}
	return t.Sections.Data(), nil
}
