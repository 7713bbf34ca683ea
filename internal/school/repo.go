package school

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"schoolattend/internal/auth"
	"schoolattend/internal/model"
	"schoolattend/internal/store"
)

const notFound = "School not found."

const columns = `id, school_name, email, phone, admin_name, school_image, password_hash, created_at`

// Repository persists schools in Postgres.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRepository creates a repo; timeout bounds each call.
func NewRepository(db *sql.DB, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

func scanSchool(row interface{ Scan(...any) error }) (model.School, error) {
	var s model.School
	err := row.Scan(&s.ID, &s.SchoolName, &s.Email, &s.Phone, &s.AdminName, &s.SchoolImage, &s.PasswordHash, &s.CreatedAt)
	return s, err
}

// LookupAccounts finds the school registered with email. School emails are
// global, so the scope argument is ignored.
func (r *Repository) LookupAccounts(ctx context.Context, _ string, email string) ([]auth.Account, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `SELECT id, school_name, email, password_hash FROM schools WHERE email = $1`, email)
	var a auth.Account
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, store.Translate(err, notFound)
	}
	a.SchoolID = a.ID
	return []auth.Account{a}, nil
}

// Insert writes a new school.
func (r *Repository) Insert(ctx context.Context, s model.School) (model.School, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO schools (id, school_name, email, phone, admin_name, school_image, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, s.ID, s.SchoolName, s.Email, s.Phone, s.AdminName, s.SchoolImage, s.PasswordHash)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return model.School{}, store.Translate(err, notFound)
	}
	return s, nil
}

// Get returns a single school by id.
func (r *Repository) Get(ctx context.Context, id string) (model.School, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	s, err := scanSchool(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM schools WHERE id = $1`, id))
	if err != nil {
		return model.School{}, store.Translate(err, notFound)
	}
	return s, nil
}

// List returns all schools, newest first.
func (r *Repository) List(ctx context.Context) ([]model.School, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM schools ORDER BY created_at DESC`)
	if err != nil {
		return nil, store.Translate(err, notFound)
	}
	defer rows.Close()
	res := []model.School{}
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, store.Translate(err, notFound)
		}
		res = append(res, s)
	}
	return res, store.Translate(rows.Err(), notFound)
}

// Update overwrites the mutable profile fields.
func (r *Repository) Update(ctx context.Context, s model.School) (model.School, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	updated, err := scanSchool(r.db.QueryRowContext(ctx, `
		UPDATE schools
		SET school_name = $2, email = $3, phone = $4, admin_name = $5, school_image = $6, password_hash = $7
		WHERE id = $1
		RETURNING `+columns, s.ID, s.SchoolName, s.Email, s.Phone, s.AdminName, s.SchoolImage, s.PasswordHash))
	if err != nil {
		return model.School{}, store.Translate(err, notFound)
	}
	return updated, nil
}

// EmailTaken reports whether another school uses email.
func (r *Repository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	var taken bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM schools WHERE email = $1 AND id <> $2)`, email, exceptID).Scan(&taken)
	return taken, store.Translate(err, notFound)
}
