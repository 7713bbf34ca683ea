package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"schoolattend/internal/apperr"
	"schoolattend/internal/logger"
)

var (
	// ErrUnknownEmail marks a login for an email with no account in scope.
	ErrUnknownEmail = errors.New("email is not registered")
	// ErrWrongPassword marks a login whose password did not verify.
	ErrWrongPassword = errors.New("password is incorrect")
)

const invalidCredentials = "Invalid email or password."

// Account is the credential view of a school, teacher or student.
type Account struct {
	ID           string
	SchoolID     string
	Name         string
	Email        string
	PasswordHash string
}

// AccountStore finds accounts by email. An empty schoolID searches every school.
type AccountStore interface {
	LookupAccounts(ctx context.Context, schoolID, email string) ([]Account, error)
}

// Recorder receives authentication outcomes.
type Recorder interface {
	LoginFailed(role, reason string)
	LoginSucceeded(role string)
	Registered(role, outcome string)
}

// Credentials is a login attempt.
type Credentials struct {
	Role     Role
	Email    string
	Password string
	SchoolID string
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Claims    Claims
}

// Registration describes a new account before it is persisted.
type Registration struct {
	Role     Role
	SchoolID string
	Email    string
	Password string
}

// InsertFunc persists a registration with the normalised email and the password hash.
type InsertFunc func(ctx context.Context, email, passwordHash string) error

// Authenticator verifies credentials and registers accounts.
type Authenticator struct {
	tokens   *Tokens
	hasher   Hasher
	stores   map[Role]AccountStore
	recorder Recorder

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator wires the token issuer, hasher and per-role account stores.
func NewAuthenticator(tokens *Tokens, hasher Hasher, stores map[Role]AccountStore, rec Recorder) *Authenticator {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Authenticator{tokens: tokens, hasher: hasher, stores: stores, recorder: rec}
}

// HashPassword hashes a replacement password for a profile update.
func (a *Authenticator) HashPassword(plain string) (string, error) {
	hash, err := a.hasher.Hash(plain)
	if errors.Is(err, ErrPasswordTooLong) {
		return "", apperr.Validation("Password must be at most 72 bytes.")
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	return hash, nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies the credentials and issues a token.
func (a *Authenticator) Login(ctx context.Context, cr Credentials) (Session, error) {
	store, ok := a.stores[cr.Role]
	if !ok {
		return Session{}, apperr.Validation("Unsupported role.")
	}
	email := NormalizeEmail(cr.Email)
	if email == "" || cr.Password == "" {
		return Session{}, apperr.Validation("Email and password are required.")
	}
	scope := cr.SchoolID
	if cr.Role == RoleSchool {
		scope = ""
	}

	accounts, err := store.LookupAccounts(ctx, scope, email)
	if err != nil {
		return Session{}, err
	}
	if len(accounts) == 0 {
		// keep response time close to a real comparison
		_ = a.hasher.Compare(a.dummy(), cr.Password)
		return Session{}, a.reject(ctx, cr.Role, "unknown_email", ErrUnknownEmail)
	}

	var matched []Account
	for _, acc := range accounts {
		if err := a.hasher.Compare(acc.PasswordHash, cr.Password); err == nil {
			matched = append(matched, acc)
		}
	}
	switch len(matched) {
	case 0:
		return Session{}, a.reject(ctx, cr.Role, "wrong_password", ErrWrongPassword)
	case 1:
	default:
		a.recorder.LoginFailed(string(cr.Role), "ambiguous_school")
		return Session{}, apperr.Validation("school_id is required to sign in with this email.")
	}

	acc := matched[0]
	claims := Claims{PrincipalID: acc.ID, Name: acc.Name, Role: cr.Role}
	if cr.Role != RoleSchool {
		claims.SchoolID = acc.SchoolID
	}
	token, exp, err := a.tokens.Issue(claims)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	a.recorder.LoginSucceeded(string(cr.Role))
	return Session{Token: token, ExpiresAt: exp, Claims: claims}, nil
}

// Register checks the email is free in the role's scope, hashes the password
// and hands both to insert. The store's unique constraint settles races.
func (a *Authenticator) Register(ctx context.Context, reg Registration, insert InsertFunc) error {
	store, ok := a.stores[reg.Role]
	if !ok {
		return apperr.Validation("Unsupported role.")
	}
	email := NormalizeEmail(reg.Email)
	if email == "" || reg.Password == "" {
		return apperr.Validation("Email and password are required.")
	}
	scope := reg.SchoolID
	if reg.Role == RoleSchool {
		scope = ""
	} else if scope == "" {
		return apperr.Validation("A school is required.")
	}

	existing, err := store.LookupAccounts(ctx, scope, email)
	if err != nil {
		a.recorder.Registered(string(reg.Role), "error")
		return err
	}
	if len(existing) > 0 {
		a.recorder.Registered(string(reg.Role), "duplicate")
		return apperr.Duplicate("Email is already registered.", nil)
	}

	hash, err := a.HashPassword(reg.Password)
	if err != nil {
		return err
	}

	if err := insert(ctx, email, hash); err != nil {
		outcome := "error"
		if apperr.KindOf(err) == apperr.KindDuplicate {
			outcome = "duplicate"
		}
		a.recorder.Registered(string(reg.Role), outcome)
		return err
	}
	a.recorder.Registered(string(reg.Role), "created")
	return nil
}

func (a *Authenticator) reject(ctx context.Context, role Role, reason string, cause error) error {
	logger.FromContext(ctx).Info("login rejected",
		zap.String("role", string(role)),
		zap.String("reason", reason),
	)
	a.recorder.LoginFailed(string(role), reason)
	return apperr.Unauthenticated(invalidCredentials, cause)
}

func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = a.hasher.Hash("not-a-real-password")
	})
	return a.dummyHash
}

type nopRecorder struct{}

func (nopRecorder) LoginFailed(string, string) {}
func (nopRecorder) LoginSucceeded(string)      {}
func (nopRecorder) Registered(string, string)  {}
