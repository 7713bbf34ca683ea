package teacher

import (
	"context"
	"database/sql"
	"time"

	"schoolattend/internal/auth"
	"schoolattend/internal/model"
	"schoolattend/internal/store"
)

const notFound = "Teacher not found."

const columns = `id, school_id, email, name, qualification, age, gender, teacher_image, password_hash, created_at`

// Repository persists teachers in Postgres. Every query is scoped by school_id.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRepository creates a repo; timeout bounds each call.
func NewRepository(db *sql.DB, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

func scanTeacher(row interface{ Scan(...any) error }) (model.Teacher, error) {
	var t model.Teacher
	err := row.Scan(&t.ID, &t.SchoolID, &t.Email, &t.Name, &t.Qualification, &t.Age, &t.Gender, &t.TeacherImage, &t.PasswordHash, &t.CreatedAt)
	return t, err
}

// LookupAccounts finds teachers by email, in one school or in all when schoolID is empty.
func (r *Repository) LookupAccounts(ctx context.Context, schoolID, email string) ([]auth.Account, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, school_id, name, email, password_hash
		FROM teachers
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

// Insert writes a new teacher.
func (r *Repository) Insert(ctx context.Context, t model.Teacher) (model.Teacher, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO teachers (id, school_id, email, name, qualification, age, gender, teacher_image, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, t.ID, t.SchoolID, t.Email, t.Name, t.Qualification, t.Age, t.Gender, t.TeacherImage, t.PasswordHash)
	if err := row.Scan(&t.CreatedAt); err != nil {
		return model.Teacher{}, store.Translate(err, notFound)
	}
	return t, nil
}

// Get returns a teacher of schoolID.
func (r *Repository) Get(ctx context.Context, schoolID, id string) (model.Teacher, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	t, err := scanTeacher(r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM teachers WHERE id = $1 AND school_id = $2`, id, schoolID))
	if err != nil {
		return model.Teacher{}, store.Translate(err, notFound)
	}
	return t, nil
}

// List returns the teachers of schoolID whose name contains search, case-insensitively.
func (r *Repository) List(ctx context.Context, schoolID string, f Filter) ([]model.Teacher, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	query := `SELECT ` + columns + ` FROM teachers WHERE school_id = $1`
	args := []any{schoolID}
	if f.Search != "" {
		args = append(args, store.ContainsPattern(f.Search))
		query += ` AND name ILIKE $2`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Translate(err, notFound)
	}
	defer rows.Close()
	res := []model.Teacher{}
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, store.Translate(err, notFound)
		}
		res = append(res, t)
	}
	return res, store.Translate(rows.Err(), notFound)
}

// Update overwrites the mutable fields of a teacher of t.SchoolID.
func (r *Repository) Update(ctx context.Context, t model.Teacher) (model.Teacher, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	updated, err := scanTeacher(r.db.QueryRowContext(ctx, `
		UPDATE teachers
		SET email = $3, name = $4, qualification = $5, age = $6, gender = $7, teacher_image = $8, password_hash = $9
		WHERE id = $1 AND school_id = $2
		RETURNING `+columns,
		t.ID, t.SchoolID, t.Email, t.Name, t.Qualification, t.Age, t.Gender, t.TeacherImage, t.PasswordHash))
	if err != nil {
		return model.Teacher{}, store.Translate(err, notFound)
	}
	return updated, nil
}

// Delete removes a teacher and unassigns the classes it attended.
func (r *Repository) Delete(ctx context.Context, schoolID, id string) error {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	err := store.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE classes SET attendee_id = NULL WHERE school_id = $1 AND attendee_id = $2`, schoolID, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1 AND school_id = $2`, id, schoolID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	return store.TranslateDelete(err, notFound, "This teacher is still referenced.")
}

// EmailTaken reports whether another teacher of schoolID uses email.
func (r *Repository) EmailTaken(ctx context.Context, schoolID, email, exceptID string) (bool, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	var taken bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM teachers WHERE school_id = $1 AND email = $2 AND id <> $3)`,
		schoolID, email, exceptID).Scan(&taken)
	return taken, store.Translate(err, notFound)
}
