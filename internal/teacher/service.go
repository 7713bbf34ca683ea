package teacher

import (
	"context"

	"github.com/google/uuid"

	"schoolattend/internal/apperr"
	"schoolattend/internal/auth"
	"schoolattend/internal/model"
)

// Filter narrows a teacher listing.
type Filter struct {
	Search string
}

// Store is the persistence the teacher service needs.
type Store interface {
	auth.AccountStore
	Insert(ctx context.Context, t model.Teacher) (model.Teacher, error)
	Get(ctx context.Context, schoolID, id string) (model.Teacher, error)
	List(ctx context.Context, schoolID string, f Filter) ([]model.Teacher, error)
	Update(ctx context.Context, t model.Teacher) (model.Teacher, error)
	Delete(ctx context.Context, schoolID, id string) error
	EmailTaken(ctx context.Context, schoolID, email, exceptID string) (bool, error)
}

// RegisterInput is the body a school posts to add a teacher.
type RegisterInput struct {
	Email         string `json:"email" binding:"required,email"`
	Name          string `json:"name" binding:"required"`
	Qualification string `json:"qualification" binding:"required"`
	Age           int    `json:"age" binding:"required,gt=0"`
	Gender        string `json:"gender" binding:"required,oneof=Male Female Other"`
	Password      string `json:"password" binding:"required,min=6"`
	TeacherImage  string `json:"teacher_image" binding:"omitempty,url"`
}

// UpdateInput carries the fields that may change; nil means unchanged.
type UpdateInput struct {
	Email         *string `json:"email" binding:"omitempty,email"`
	Name          *string `json:"name" binding:"omitempty,min=1"`
	Qualification *string `json:"qualification" binding:"omitempty,min=1"`
	Age           *int    `json:"age" binding:"omitempty,gt=0"`
	Gender        *string `json:"gender" binding:"omitempty,oneof=Male Female Other"`
	Password      *string `json:"password" binding:"omitempty,min=6"`
	TeacherImage  *string `json:"teacher_image" binding:"omitempty,url"`
}

// Service manages the teachers of a school.
type Service struct {
	store Store
	authn *auth.Authenticator
}

// NewService creates a service backed by a store.
func NewService(store Store, authn *auth.Authenticator) *Service {
	return &Service{store: store, authn: authn}
}

// Register adds a teacher to schoolID.
func (s *Service) Register(ctx context.Context, schoolID string, in RegisterInput) (model.Teacher, error) {
	t := model.Teacher{
		ID:            uuid.NewString(),
		SchoolID:      schoolID,
		Name:          in.Name,
		Qualification: in.Qualification,
		Age:           in.Age,
		Gender:        in.Gender,
		TeacherImage:  in.TeacherImage,
	}
	var created model.Teacher
	reg := auth.Registration{Role: auth.RoleTeacher, SchoolID: schoolID, Email: in.Email, Password: in.Password}
	err := s.authn.Register(ctx, reg, func(ctx context.Context, email, hash string) error {
		t.Email, t.PasswordHash = email, hash
		var err error
		created, err = s.store.Insert(ctx, t)
		return err
	})
	return created, err
}

// Get returns a teacher of schoolID.
func (s *Service) Get(ctx context.Context, schoolID, id string) (model.Teacher, error) {
	return s.store.Get(ctx, schoolID, id)
}

// List returns the teachers of schoolID.
func (s *Service) List(ctx context.Context, schoolID string, f Filter) ([]model.Teacher, error) {
	return s.store.List(ctx, schoolID, f)
}

// Update applies in to a teacher of schoolID.
func (s *Service) Update(ctx context.Context, schoolID, id string, in UpdateInput) (model.Teacher, error) {
	cur, err := s.store.Get(ctx, schoolID, id)
	if err != nil {
		return model.Teacher{}, err
	}
	if in.Name != nil {
		cur.Name = *in.Name
	}
	if in.Qualification != nil {
		cur.Qualification = *in.Qualification
	}
	if in.Age != nil {
		cur.Age = *in.Age
	}
	if in.Gender != nil {
		cur.Gender = *in.Gender
	}
	if in.TeacherImage != nil {
		cur.TeacherImage = *in.TeacherImage
	}
	if in.Email != nil {
		email := auth.NormalizeEmail(*in.Email)
		if email != cur.Email {
			taken, err := s.store.EmailTaken(ctx, schoolID, email, cur.ID)
			if err != nil {
				return model.Teacher{}, err
			}
			if taken {
				return model.Teacher{}, apperr.Duplicate("Email is already registered.", nil)
			}
			cur.Email = email
		}
	}
	if in.Password != nil {
		hash, err := s.authn.HashPassword(*in.Password)
		if err != nil {
			return model.Teacher{}, err
		}
		cur.PasswordHash = hash
	}
	return s.store.Update(ctx, cur)
}

// Delete removes a teacher of schoolID.
func (s *Service) Delete(ctx context.Context, schoolID, id string) error {
	return s.store.Delete(ctx, schoolID, id)
}
