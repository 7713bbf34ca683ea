package student

import (
	"context"

	"github.com/google/uuid"

	"schoolattend/internal/apperr"
	"schoolattend/internal/auth"
	"schoolattend/internal/model"
)

// Filter narrows a student listing. Empty fields match everything.
type Filter struct {
	Search  string
	ClassID string
}

// Store is the persistence the student service needs.
type Store interface {
	auth.AccountStore
	Insert(ctx context.Context, s model.Student) (model.Student, error)
	Get(ctx context.Context, schoolID, id string) (model.Student, error)
	List(ctx context.Context, schoolID string, f Filter) ([]model.Student, error)
	Update(ctx context.Context, s model.Student) (model.Student, error)
	Delete(ctx context.Context, schoolID, id string) error
	EmailTaken(ctx context.Context, schoolID, email, exceptID string) (bool, error)
}

// RegisterInput is the body a school posts to enrol a student.
type RegisterInput struct {
	Email         string `json:"email" binding:"required,email"`
	Name          string `json:"name" binding:"required"`
	ClassID       string `json:"student_class" binding:"required"`
	Age           int    `json:"age" binding:"required,gt=0"`
	Gender        string `json:"gender" binding:"required,oneof=Male Female Other"`
	Guardian      string `json:"guardian" binding:"required"`
	GuardianPhone string `json:"guardian_phone" binding:"required,numeric,len=10"`
	Password      string `json:"password" binding:"required,min=6"`
}

// UpdateInput carries the fields that may change; nil means unchanged.
type UpdateInput struct {
	Email         *string `json:"email" binding:"omitempty,email"`
	Name          *string `json:"name" binding:"omitempty,min=1"`
	ClassID       *string `json:"student_class" binding:"omitempty,min=1"`
	Age           *int    `json:"age" binding:"omitempty,gt=0"`
	Gender        *string `json:"gender" binding:"omitempty,oneof=Male Female Other"`
	Guardian      *string `json:"guardian" binding:"omitempty,min=1"`
	GuardianPhone *string `json:"guardian_phone" binding:"omitempty,numeric,len=10"`
	Password      *string `json:"password" binding:"omitempty,min=6"`
}

// Service manages the students of a school.
type Service struct {
	store Store
	authn *auth.Authenticator
}

// NewService creates a service backed by a store.
func NewService(store Store, authn *auth.Authenticator) *Service {
	return &Service{store: store, authn: authn}
}

// Register enrols a student in schoolID. The class must belong to the same school.
func (s *Service) Register(ctx context.Context, schoolID string, in RegisterInput) (model.Student, error) {
	st := model.Student{
		ID:            uuid.NewString(),
		SchoolID:      schoolID,
		Name:          in.Name,
		ClassID:       in.ClassID,
		Age:           in.Age,
		Gender:        in.Gender,
		Guardian:      in.Guardian,
		GuardianPhone: in.GuardianPhone,
	}
	var created model.Student
	reg := auth.Registration{Role: auth.RoleStudent, SchoolID: schoolID, Email: in.Email, Password: in.Password}
	err := s.authn.Register(ctx, reg, func(ctx context.Context, email, hash string) error {
		st.Email, st.PasswordHash = email, hash
		var err error
		created, err = s.store.Insert(ctx, st)
		return err
	})
	return created, err
}

// Get returns a student of schoolID.
func (s *Service) Get(ctx context.Context, schoolID, id string) (model.Student, error) {
	return s.store.Get(ctx, schoolID, id)
}

// List returns the students of schoolID matching f.
func (s *Service) List(ctx context.Context, schoolID string, f Filter) ([]model.Student, error) {
	return s.store.List(ctx, schoolID, f)
}

// Update applies in to a student of schoolID.
func (s *Service) Update(ctx context.Context, schoolID, id string, in UpdateInput) (model.Student, error) {
	cur, err := s.store.Get(ctx, schoolID, id)
	if err != nil {
		return model.Student{}, err
	}
	if in.Name != nil {
		cur.Name = *in.Name
	}
	if in.ClassID != nil {
		cur.ClassID = *in.ClassID
	}
	if in.Age != nil {
		cur.Age = *in.Age
	}
	if in.Gender != nil {
		cur.Gender = *in.Gender
	}
	if in.Guardian != nil {
		cur.Guardian = *in.Guardian
	}
	if in.GuardianPhone != nil {
		cur.GuardianPhone = *in.GuardianPhone
	}
	if in.Email != nil {
		email := auth.NormalizeEmail(*in.Email)
		if email != cur.Email {
			taken, err := s.store.EmailTaken(ctx, schoolID, email, cur.ID)
			if err != nil {
				return model.Student{}, err
			}
			if taken {
				return model.Student{}, apperr.Duplicate("Email is already registered.", nil)
			}
			cur.Email = email
		}
	}
	if in.Password != nil {
		hash, err := s.authn.HashPassword(*in.Password)
		if err != nil {
			return model.Student{}, err
		}
		cur.PasswordHash = hash
	}
	return s.store.Update(ctx, cur)
}

// Delete removes a student of schoolID.
func (s *Service) Delete(ctx context.Context, schoolID, id string) error {
	return s.store.Delete(ctx, schoolID, id)
}
