package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Role names a principal type.
type Role string

const (
	RoleSchool  Role = "SCHOOL"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// DefaultTTL applies when no token lifetime is configured.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrMissingSecret is returned when tokens are built without a signing secret.
	ErrMissingSecret = errors.New("token signing secret is not configured")
	// ErrInvalidToken covers every verification failure.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims represents the JWT payload.
type Claims struct {
	PrincipalID string `json:"id"`
	SchoolID    string `json:"schoolId,omitempty"`
	Name        string `json:"name,omitempty"`
	Role        Role   `json:"role"`
	jwt.RegisteredClaims
}

// TenantID returns the school the principal acts for.
func (c Claims) TenantID() string {
	if c.Role == RoleSchool {
		return c.PrincipalID
	}
	return c.SchoolID
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokens configures the issuer. An empty secret is rejected.
func NewTokens(secret, issuer string, ttl time.Duration) (*Tokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// TTL is the lifetime stamped on every issued token.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs c with the configured lifetime and returns the token and its expiry.
func (t *Tokens) Issue(c Claims) (string, time.Time, error) {
	if t == nil || len(t.secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	now := time.Now()
	exp := now.Add(t.ttl)
	c.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   c.PrincipalID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, exp, nil
}

// Verify validates signature, method, issuer and expiry and returns the claims.
func (t *Tokens) Verify(tokenStr string) (Claims, error) {
	if t == nil || len(t.secret) == 0 {
		return Claims{}, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.PrincipalID == "" {
		return Claims{}, ErrInvalidToken
	}
	switch claims.Role {
	case RoleSchool:
	case RoleTeacher, RoleStudent:
		if claims.SchoolID == "" {
			return Claims{}, ErrInvalidToken
		}
	default:
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}
