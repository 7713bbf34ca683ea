package subject

import (
	"context"

	"github.com/google/uuid"

	"schoolattend/internal/apperr"
	"schoolattend/internal/model"
)

// Store is the persistence the subject service needs.
type Store interface {
	Insert(ctx context.Context, s model.Subject) (model.Subject, error)
	Get(ctx context.Context, schoolID, id string) (model.Subject, error)
	List(ctx context.Context, schoolID string) ([]model.Subject, error)
	Update(ctx context.Context, s model.Subject) (model.Subject, error)
	Delete(ctx context.Context, schoolID, id string) error
	NameTaken(ctx context.Context, schoolID, name, codename, exceptID string) (bool, error)
}

type CreateInput struct {
	SubjectName     string `json:"subject_name" binding:"required"`
	SubjectCodename string `json:"subject_codename" binding:"required"`
}

type UpdateInput struct {
	SubjectName     *string `json:"subject_name" binding:"omitempty,min=1"`
	SubjectCodename *string `json:"subject_codename" binding:"omitempty,min=1"`
}

const nameTaken = "Subject with this name or codename already exists."

// Service manages subjects.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create adds a subject unless its name or codename is already used in the school.
func (s *Service) Create(ctx context.Context, schoolID string, in CreateInput) (model.Subject, error) {
	taken, err := s.store.NameTaken(ctx, schoolID, in.SubjectName, in.SubjectCodename, "")
	if err != nil {
		return model.Subject{}, err
	}
	if taken {
		return model.Subject{}, apperr.Duplicate(nameTaken, nil)
	}
	return s.store.Insert(ctx, model.Subject{
		ID:              uuid.NewString(),
		SchoolID:        schoolID,
		SubjectName:     in.SubjectName,
		SubjectCodename: in.SubjectCodename,
	})
}

func (s *Service) Get(ctx context.Context, schoolID, id string) (model.Subject, error) {
	return s.store.Get(ctx, schoolID, id)
}

func (s *Service) List(ctx context.Context, schoolID string) ([]model.Subject, error) {
	return s.store.List(ctx, schoolID)
}

// Update renames a subject; the new name and codename must stay unique.
func (s *Service) Update(ctx context.Context, schoolID, id string, in UpdateInput) (model.Subject, error) {
	cur, err := s.store.Get(ctx, schoolID, id)
	if err != nil {
		return model.Subject{}, err
	}
	next := cur
	if in.SubjectName != nil {
		next.SubjectName = *in.SubjectName
	}
	if in.SubjectCodename != nil {
		next.SubjectCodename = *in.SubjectCodename
	}
	if next.SubjectName != cur.SubjectName || next.SubjectCodename != cur.SubjectCodename {
		taken, err := s.store.NameTaken(ctx, schoolID, next.SubjectName, next.SubjectCodename, cur.ID)
		if err != nil {
			return model.Subject{}, err
		}
		if taken {
			return model.Subject{}, apperr.Duplicate(nameTaken, nil)
		}
	}
	return s.store.Update(ctx, next)
}

func (s *Service) Delete(ctx context.Context, schoolID, id string) error {
	return s.store.Delete(ctx, schoolID, id)
}
