package student

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"schoolattend/internal/auth"
	"schoolattend/internal/model"
	"schoolattend/internal/store"
)

const notFound = "Student not found."

const columns = `id, school_id, email, name, class_id, age, gender, guardian, guardian_phone, password_hash, created_at`

// Repository persists students in Postgres, always scoped by school_id.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRepository creates a repo; timeout bounds each call.
func NewRepository(db *sql.DB, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

func scanStudent(row interface{ Scan(...any) error }) (model.Student, error) {
	var s model.Student
	err := row.Scan(&s.ID, &s.SchoolID, &s.Email, &s.Name, &s.ClassID, &s.Age, &s.Gender,
		&s.Guardian, &s.GuardianPhone, &s.PasswordHash, &s.CreatedAt)
	return s, err
}

// LookupAccounts finds students by email, in one school or in all when schoolID is empty.
func (r *Repository) LookupAccounts(ctx context.Context, schoolID, email string) ([]auth.Account, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, school_id, name, email, password_hash
		FROM students
		WHERE email = $1 AND ($2 = '' OR school_id = $2)
	`, email, schoolID)
	if err != nil {
		return nil, store.Translate(err, notFound)
	}
	defer rows.Close()
	var res []auth.Account
	for rows.Next() {
		var a auth.Account
		if err := rows.Scan(&a.ID, &a.SchoolID, &a.Name, &a.Email, &a.PasswordHash); err != nil {
			return nil, store.Translate(err, notFound)
		}
		res = append(res, a)
	}
	return res, store.Translate(rows.Err(), notFound)
}

// Insert writes a new student. A class outside the school fails the foreign key.
func (r *Repository) Insert(ctx context.Context, s model.Student) (model.Student, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, school_id, email, name, class_id, age, gender, guardian, guardian_phone, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, s.ID, s.SchoolID, s.Email, s.Name, s.ClassID, s.Age, s.Gender, s.Guardian, s.GuardianPhone, s.PasswordHash)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return model.Student{}, store.Translate(err, notFound)
	}
	return s, nil
}

// Get returns a student of schoolID.
func (r *Repository) Get(ctx context.Context, schoolID, id string) (model.Student, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	s, err := scanStudent(r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM students WHERE id = $1 AND school_id = $2`, id, schoolID))
	if err != nil {
		return model.Student{}, store.Translate(err, notFound)
	}
	return s, nil
}

// List returns the students of schoolID matching f.
func (r *Repository) List(ctx context.Context, schoolID string, f Filter) ([]model.Student, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	query := `SELECT ` + columns + ` FROM students WHERE school_id = $1`
	args := []any{schoolID}
	if f.Search != "" {
		args = append(args, store.ContainsPattern(f.Search))
		query += fmt.Sprintf(` AND name ILIKE $%d`, len(args))
	}
	if f.ClassID != "" {
		args = append(args, f.ClassID)
		query += fmt.Sprintf(` AND class_id = $%d`, len(args))
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Translate(err, notFound)
	}
	defer rows.Close()
	res := []model.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, store.Translate(err, notFound)
		}
		res = append(res, s)
	}
	return res, store.Translate(rows.Err(), notFound)
}

// Update overwrites the mutable fields of a student of s.SchoolID.
func (r *Repository) Update(ctx context.Context, s model.Student) (model.Student, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	updated, err := scanStudent(r.db.QueryRowContext(ctx, `
		UPDATE students
		SET email = $3, name = $4, class_id = $5, age = $6, gender = $7, guardian = $8, guardian_phone = $9, password_hash = $10
		WHERE id = $1 AND school_id = $2
		RETURNING `+columns,
		s.ID, s.SchoolID, s.Email, s.Name, s.ClassID, s.Age, s.Gender, s.Guardian, s.GuardianPhone, s.PasswordHash))
	if err != nil {
		return model.Student{}, store.Translate(err, notFound)
	}
	return updated, nil
}

// Delete removes a student of schoolID; its attendance cascades.
func (r *Repository) Delete(ctx context.Context, schoolID, id string) error {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return store.TranslateDelete(err, notFound, "This student is still referenced.")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Translate(err, notFound)
	}
	if n == 0 {
		return store.Translate(sql.ErrNoRows, notFound)
	}
	return nil
}

// EmailTaken reports whether another student of schoolID uses email.
func (r *Repository) EmailTaken(ctx context.Context, schoolID, email, exceptID string) (bool, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	var taken bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE school_id = $1 AND email = $2 AND id <> $3)`,
		schoolID, email, exceptID).Scan(&taken)
	return taken, store.Translate(err, notFound)
}
