// Package classroom manages the classes of a school.
package classroom

import (
	"context"

	"github.com/google/uuid"

	"schoolattend/internal/apperr"
	"schoolattend/internal/model"
)

// Store is the persistence the class service needs.
type Store interface {
	Insert(ctx context.Context, c model.Class) (model.Class, error)
	Get(ctx context.Context, schoolID, id string) (model.Class, error)
	List(ctx context.Context, schoolID string) ([]model.Class, error)
	Update(ctx context.Context, c model.Class) (model.Class, error)
	CountStudents(ctx context.Context, schoolID, id string) (int, error)
	Delete(ctx context.Context, schoolID, id string) error
	NumberTaken(ctx context.Context, schoolID string, number int, exceptID string) (bool, error)
}

// CreateInput is the body of a class creation.
type CreateInput struct {
	ClassText   string  `json:"class_text" binding:"required"`
	ClassNumber int     `json:"class_number" binding:"required,gt=0"`
	AttendeeID  *string `json:"attendee"`
}

// UpdateInput carries the fields that may change; nil means unchanged.
// An empty attendee unassigns the class teacher.
type UpdateInput struct {
	ClassText   *string `json:"class_text" binding:"omitempty,min=1"`
	ClassNumber *int    `json:"class_number" binding:"omitempty,gt=0"`
	AttendeeID  *string `json:"attendee"`
}

const numberTaken = "Class with this number already exists for this school."

// Service manages classes.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create adds a class to schoolID.
func (s *Service) Create(ctx context.Context, schoolID string, in CreateInput) (model.Class, error) {
	taken, err := s.store.NumberTaken(ctx, schoolID, in.ClassNumber, "")
	if err != nil {
		return model.Class{}, err
	}
	if taken {
		return model.Class{}, apperr.Duplicate(numberTaken, nil)
	}
	return s.store.Insert(ctx, model.Class{
		ID:          uuid.NewString(),
		SchoolID:    schoolID,
		ClassText:   in.ClassText,
		ClassNumber: in.ClassNumber,
		AttendeeID:  emptyToNil(in.AttendeeID),
	})
}

// Get returns a class of schoolID.
func (s *Service) Get(ctx context.Context, schoolID, id string) (model.Class, error) {
	return s.store.Get(ctx, schoolID, id)
}

// List returns the classes of schoolID.
func (s *Service) List(ctx context.Context, schoolID string) ([]model.Class, error) {
	return s.store.List(ctx, schoolID)
}

// Update applies in to a class of schoolID.
func (s *Service) Update(ctx context.Context, schoolID, id string, in UpdateInput) (model.Class, error) {
	cur, err := s.store.Get(ctx, schoolID, id)
	if err != nil {
		return model.Class{}, err
	}
	if in.ClassText != nil {
		cur.ClassText = *in.ClassText
	}
	if in.ClassNumber != nil && *in.ClassNumber != cur.ClassNumber {
		taken, err := s.store.NumberTaken(ctx, schoolID, *in.ClassNumber, cur.ID)
		if err != nil {
			return model.Class{}, err
		}
		if taken {
			return model.Class{}, apperr.Duplicate(numberTaken, nil)
		}
		cur.ClassNumber = *in.ClassNumber
	}
	if in.AttendeeID != nil {
		cur.AttendeeID = emptyToNil(in.AttendeeID)
	}
	return s.store.Update(ctx, cur)
}

// Delete removes a class of schoolID that no student is enrolled in.
func (s *Service) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := s.store.Get(ctx, schoolID, id); err != nil {
		return err
	}
	n, err := s.store.CountStudents(ctx, schoolID, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("This class is already in use.", nil)
	}
	return s.store.Delete(ctx, schoolID, id)
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
