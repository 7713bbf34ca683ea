package classroom

import (
	"context"
	"database/sql"
	"time"

	"schoolattend/internal/model"
	"schoolattend/internal/store"
)

const (
	notFound = "Class not found."
	inUse    = "This class is already in use."
)

const columns = `id, school_id, class_text, class_number, attendee_id, created_at`

// Repository persists classes in Postgres, always scoped by school_id.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRepository creates a repo; timeout bounds each call.
func NewRepository(db *sql.DB, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

func scanClass(row interface{ Scan(...any) error }) (model.Class, error) {
	var c model.Class
	var attendee sql.NullString
	if err := row.Scan(&c.ID, &c.SchoolID, &c.ClassText, &c.ClassNumber, &attendee, &c.CreatedAt); err != nil {
		return model.Class{}, err
	}
	if attendee.Valid {
		c.AttendeeID = &attendee.String
	}
	return c, nil
}

func nullable(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Insert writes a new class. An attendee outside the school fails the foreign key.
func (r *Repository) Insert(ctx context.Context, c model.Class) (model.Class, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO classes (id, school_id, class_text, class_number, attendee_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, c.ID, c.SchoolID, c.ClassText, c.ClassNumber, nullable(c.AttendeeID))
	if err := row.Scan(&c.CreatedAt); err != nil {
		return model.Class{}, store.Translate(err, notFound)
	}
	return c, nil
}

// Get returns a class of schoolID.
func (r *Repository) Get(ctx context.Context, schoolID, id string) (model.Class, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	c, err := scanClass(r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM classes WHERE id = $1 AND school_id = $2`, id, schoolID))
	if err != nil {
		return model.Class{}, store.Translate(err, notFound)
	}
	return c, nil
}

// List returns the classes of schoolID ordered by number.
func (r *Repository) List(ctx context.Context, schoolID string) ([]model.Class, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM classes WHERE school_id = $1 ORDER BY class_number`, schoolID)
	if err != nil {
		return nil, store.Translate(err, notFound)
	}
	defer rows.Close()
	res := []model.Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, store.Translate(err, notFound)
		}
		res = append(res, c)
	}
	return res, store.Translate(rows.Err(), notFound)
}

// Update overwrites a class of c.SchoolID.
func (r *Repository) Update(ctx context.Context, c model.Class) (model.Class, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	updated, err := scanClass(r.db.QueryRowContext(ctx, `
		UPDATE classes
		SET class_text = $3, class_number = $4, attendee_id = $5
		WHERE id = $1 AND school_id = $2
		RETURNING `+columns,
		c.ID, c.SchoolID, c.ClassText, c.ClassNumber, nullable(c.AttendeeID)))
	if err != nil {
		return model.Class{}, store.Translate(err, notFound)
	}
	return updated, nil
}

// CountStudents returns how many students of schoolID are enrolled in the class.
func (r *Repository) CountStudents(ctx context.Context, schoolID, id string) (int, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM students WHERE school_id = $1 AND class_id = $2`, schoolID, id).Scan(&n)
	return n, store.Translate(err, notFound)
}

// Delete removes a class of schoolID. Enrolled students block it through the foreign key.
func (r *Repository) Delete(ctx context.Context, schoolID, id string) error {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return store.TranslateDelete(err, notFound, inUse)
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

// NumberTaken reports whether another class of schoolID has number.
func (r *Repository) NumberTaken(ctx context.Context, schoolID string, number int, exceptID string) (bool, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	var taken bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM classes WHERE school_id = $1 AND class_number = $2 AND id <> $3)`,
		schoolID, number, exceptID).Scan(&taken)
	return taken, store.Translate(err, notFound)
}
