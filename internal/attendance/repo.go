package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"schoolattend/internal/model"
	"schoolattend/internal/store"
)

const notFound = "Attendance record not found."

// Repository persists attendance records in Postgres, always scoped by school_id.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRepository creates a repo; timeout bounds each call.
func NewRepository(db *sql.DB, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

// Insert writes a new record. References outside the school fail their foreign keys.
func (r *Repository) Insert(ctx context.Context, a model.Attendance) (model.Attendance, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, school_id, student_id, class_id, subject_id, date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, a.ID, a.SchoolID, a.StudentID, a.ClassID, a.SubjectID, a.Date, string(a.Status))
	if err := row.Scan(&a.CreatedAt); err != nil {
		return model.Attendance{}, store.Translate(err, notFound)
	}
	return a, nil
}

// Recent returns the latest record of a student in a subject within [from, to), or nil.
func (r *Repository) Recent(ctx context.Context, schoolID, studentID, subjectID string, from, to time.Time) (*model.Attendance, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `
		SELECT id, school_id, student_id, class_id, subject_id, date, status, created_at
		FROM attendance
		WHERE school_id = $1 AND student_id = $2 AND subject_id = $3 AND date >= $4 AND date < $5
		ORDER BY date DESC
		LIMIT 1
	`, schoolID, studentID, subjectID, from, to)
	var a model.Attendance
	var status string
	if err := row.Scan(&a.ID, &a.SchoolID, &a.StudentID, &a.ClassID, &a.SubjectID, &a.Date, &status, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, store.Translate(err, notFound)
	}
	a.Status = model.AttendanceStatus(status)
	return &a, nil
}

// ClassTaken reports whether any record exists for the class within [from, to).
func (r *Repository) ClassTaken(ctx context.Context, schoolID, classID string, from, to time.Time) (bool, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	var taken bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM attendance
			WHERE school_id = $1 AND class_id = $2 AND date >= $3 AND date < $4
		)`, schoolID, classID, from, to).Scan(&taken)
	return taken, store.Translate(err, notFound)
}

// HasStudent reports whether the student belongs to schoolID.
func (r *Repository) HasStudent(ctx context.Context, schoolID, studentID string) (bool, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE id = $1 AND school_id = $2)`, studentID, schoolID).Scan(&ok)
	return ok, store.Translate(err, notFound)
}

// StudentClass returns the class the student is enrolled in.
func (r *Repository) StudentClass(ctx context.Context, schoolID, studentID string) (string, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	var classID string
	err := r.db.QueryRowContext(ctx,
		`SELECT class_id FROM students WHERE id = $1 AND school_id = $2`, studentID, schoolID).Scan(&classID)
	if err != nil {
		return "", store.Translate(err, "Student not found.")
	}
	return classID, nil
}

// ListByStudent returns a student's records, newest first, with student and subject names.
func (r *Repository) ListByStudent(ctx context.Context, schoolID, studentID string, p Page) ([]model.Attendance, error) {
	ctx, cancel := store.Bounded(ctx, r.timeout)
	defer cancel()
	p = p.normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.school_id, a.student_id, st.name, a.class_id, a.subject_id, sb.subject_name, a.date, a.status, a.created_at
		FROM attendance a
		JOIN students st ON st.school_id = a.school_id AND st.id = a.student_id
		JOIN subjects sb ON sb.school_id = a.school_id AND sb.id = a.subject_id
		WHERE a.school_id = $1 AND a.student_id = $2
		ORDER BY a.date DESC
		LIMIT $3 OFFSET $4
	`, schoolID, studentID, p.Limit, p.Offset)
	if err != nil {
		return nil, store.Translate(err, notFound)
	}
	defer rows.Close()
	res := []model.Attendance{}
	for rows.Next() {
		var a model.Attendance
		var status string
		if err := rows.Scan(&a.ID, &a.SchoolID, &a.StudentID, &a.StudentName, &a.ClassID, &a.SubjectID,
			&a.SubjectName, &a.Date, &status, &a.CreatedAt); err != nil {
			return nil, store.Translate(err, notFound)
		}
		a.Status = model.AttendanceStatus(status)
		res = append(res, a)
	}
	return res, store.Translate(rows.Err(), notFound)
}
