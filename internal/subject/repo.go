package subject

import (
	"context"
	"database/sql"
	"time"

	"schoolattend/internal/model"
	"schoolattend/internal/store"
)

const notFound = "Subject not found."

const columns = `id, school_id, subject_name, subject_codename, created_at`

// Repository persists subjects in Postgres, always scoped by school_id.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRepository creates a repo; timeout bounds each call.
func NewRepository(db *sql.DB, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

func scanSubject(row interface{ Scan(...any) error }) (model.Subject, error) {
	var s model.Subject
	err := row.Scan(&s.ID, &s.SchoolID, &s.SubjectName, &s.SubjectCodename, &s.CreatedAt)
	return s, err
}

// Insert writes a new subject.
func (r *Repository) Insert(ctx context.Context, s model.Subject) (model.Subject, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO subjects (id, school_id, subject_name, subject_codename)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, s.ID, s.SchoolID, s.SubjectName, s.SubjectCodename)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return model.Subject{}, store.Translate(err, notFound)
	}
	return s, nil
}

// Get returns a subject of schoolID.
func (r *Repository) Get(ctx context.Context, schoolID, id string) (model.Subject, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	s, err := scanSubject(r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM subjects WHERE id = $1 AND school_id = $2`, id, schoolID))
	if err != nil {
		return model.Subject{}, store.Translate(err, notFound)
	}
	return s, nil
}

// List returns the subjects of schoolID by name.
func (r *Repository) List(ctx context.Context, schoolID string) ([]model.Subject, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM subjects WHERE school_id = $1 ORDER BY subject_name`, schoolID)
	if err != nil {
		return nil, store.Translate(err, notFound)
	}
	defer rows.Close()
	res := []model.Subject{}
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, store.Translate(err, notFound)
		}
		res = append(res, s)
	}
	return res, store.Translate(rows.Err(), notFound)
}

// Update overwrites a subject of s.SchoolID.
func (r *Repository) Update(ctx context.Context, s model.Subject) (model.Subject, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	updated, err := scanSubject(r.db.QueryRowContext(ctx, `
		UPDATE subjects
		SET subject_name = $3, subject_codename = $4
		WHERE id = $1 AND school_id = $2
		RETURNING `+columns, s.ID, s.SchoolID, s.SubjectName, s.SubjectCodename))
	if err != nil {
		return model.Subject{}, store.Translate(err, notFound)
	}
	return updated, nil
}

// Delete removes a subject of schoolID; its attendance cascades.
func (r *Repository) Delete(ctx context.Context, schoolID, id string) error {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return store.TranslateDelete(err, notFound, "This subject is still referenced.")
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

// NameTaken reports whether another subject of schoolID has the name or the codename.
func (r *Repository) NameTaken(ctx context.Context, schoolID, name, codename, exceptID string) (bool, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	var taken bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subjects
			WHERE school_id = $1 AND (subject_name = $2 OR subject_codename = $3) AND id <> $4
		)`, schoolID, name, codename, exceptID).Scan(&taken)
	return taken, store.Translate(err, notFound)
}
