package school

import (
	"context"

	"github.com/google/uuid"

	"schoolattend/internal/apperr"
	"schoolattend/internal/auth"
	"schoolattend/internal/model"
)

// Store is the persistence the school service needs.
type Store interface {
	auth.AccountStore
	Insert(ctx context.Context, s model.School) (model.School, error)
	Get(ctx context.Context, id string) (model.School, error)
	List(ctx context.Context) ([]model.School, error)
	Update(ctx context.Context, s model.School) (model.School, error)
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
}

// RegisterInput is the body of a school registration.
type RegisterInput struct {
	SchoolName  string `json:"school_name" binding:"required,min=3"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone" binding:"required,numeric,len=10"`
	AdminName   string `json:"admin_name" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
	SchoolImage string `json:"school_image" binding:"omitempty,url"`
}

// UpdateInput carries the fields a school may change; nil means unchanged.
type UpdateInput struct {
	SchoolName  *string `json:"school_name" binding:"omitempty,min=3"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone" binding:"omitempty,numeric,len=10"`
	AdminName   *string `json:"admin_name" binding:"omitempty,min=1"`
	Password    *string `json:"password" binding:"omitempty,min=6"`
	SchoolImage *string `json:"school_image" binding:"omitempty,url"`
}

// Service manages school accounts.
type Service struct {
	store Store
	authn *auth.Authenticator
}

// NewService creates a service backed by a store.
func NewService(store Store, authn *auth.Authenticator) *Service {
	return &Service{store: store, authn: authn}
}

// Register creates a school; the email must be unused by every other school.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.School, error) {
	sc := model.School{
		ID:          uuid.NewString(),
		SchoolName:  in.SchoolName,
		Phone:       in.Phone,
		AdminName:   in.AdminName,
		SchoolImage: in.SchoolImage,
	}
	var created model.School
	err := s.authn.Register(ctx, auth.Registration{Role: auth.RoleSchool, Email: in.Email, Password: in.Password},
		func(ctx context.Context, email, hash string) error {
			sc.Email, sc.PasswordHash = email, hash
			var err error
			created, err = s.store.Insert(ctx, sc)
			return err
		})
	return created, err
}

// Get returns one school.
func (s *Service) Get(ctx context.Context, id string) (model.School, error) {
	return s.store.Get(ctx, id)
}

// List returns every school.
func (s *Service) List(ctx context.Context) ([]model.School, error) {
	return s.store.List(ctx)
}

// Update applies in to the school identified by id.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (model.School, error) {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return model.School{}, err
	}
	if in.SchoolName != nil {
		cur.SchoolName = *in.SchoolName
	}
	if in.Phone != nil {
		cur.Phone = *in.Phone
	}
	if in.AdminName != nil {
		cur.AdminName = *in.AdminName
	}
	if in.SchoolImage != nil {
		cur.SchoolImage = *in.SchoolImage
	}
	if in.Email != nil {
		email := auth.NormalizeEmail(*in.Email)
		if email != cur.Email {
			taken, err := s.store.EmailTaken(ctx, email, cur.ID)
			if err != nil {
				return model.School{}, err
			}
			if taken {
				return model.School{}, apperr.Duplicate("Email is already registered.", nil)
			}
			cur.Email = email
		}
	}
	if in.Password != nil {
		hash, err := s.authn.HashPassword(*in.Password)
		if err != nil {
			return model.School{}, err
		}
		cur.PasswordHash = hash
	}
	return s.store.Update(ctx, cur)
}
