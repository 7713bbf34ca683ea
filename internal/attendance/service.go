package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"schoolattend/internal/apperr"
	"schoolattend/internal/model"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Page bounds a listing.
type Page struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Store is the persistence the attendance service needs.
type Store interface {
	Insert(ctx context.Context, a model.Attendance) (model.Attendance, error)
	Recent(ctx context.Context, schoolID, studentID, subjectID string, from, to time.Time) (*model.Attendance, error)
	ClassTaken(ctx context.Context, schoolID, classID string, from, to time.Time) (bool, error)
	HasStudent(ctx context.Context, schoolID, studentID string) (bool, error)
	StudentClass(ctx context.Context, schoolID, studentID string) (string, error)
	ListByStudent(ctx context.Context, schoolID, studentID string, p Page) ([]model.Attendance, error)
}

// MarkInput is the body of an attendance mark. Date defaults to now and status to Absent.
// Date is an RFC 3339 timestamp or a bare YYYY-MM-DD day.
type MarkInput struct {
	StudentID string `json:"student_id" binding:"required"`
	ClassID   string `json:"class_id" binding:"required"`
	SubjectID string `json:"subject_id" binding:"required"`
	Date      string `json:"date"`
	Status    string `json:"status" binding:"omitempty,oneof=Present Absent"`
}

const dayLayout = "2006-01-02"

var errNotEnrolled = apperr.Validation("Student is not enrolled in this class.")

// Service records and queries attendance.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a service backed by a store, using the server clock.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock replaces the clock; days are taken in the clock's location.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Mark records one status for a student in a class and subject. A second mark
// for the same student and subject on the same day is rejected.
func (s *Service) Mark(ctx context.Context, schoolID string, in MarkInput) (model.Attendance, error) {
	status := model.StatusAbsent
	if in.Status != "" {
		status = model.AttendanceStatus(in.Status)
	}
	if !status.Valid() {
		return model.Attendance{}, apperr.Validation("Status must be Present or Absent.")
	}
	date, err := s.parseDate(in.Date)
	if err != nil {
		return model.Attendance{}, err
	}

	classID, err := s.store.StudentClass(ctx, schoolID, in.StudentID)
	if err != nil {
		return model.Attendance{}, err
	}
	if classID != in.ClassID {
		return model.Attendance{}, errNotEnrolled
	}

	from, to := dayBounds(date.In(s.now().Location()))
	recent, err := s.store.Recent(ctx, schoolID, in.StudentID, in.SubjectID, from, to)
	if err != nil {
		return model.Attendance{}, err
	}
	if recent != nil {
		return model.Attendance{}, apperr.Duplicate("Attendance already marked for this student and subject today.", nil)
	}

	return s.store.Insert(ctx, model.Attendance{
		ID:        uuid.NewString(),
		SchoolID:  schoolID,
		StudentID: in.StudentID,
		ClassID:   in.ClassID,
		SubjectID: in.SubjectID,
		Date:      date,
		Status:    status,
	})
}

// CheckToday reports whether any attendance was recorded for the class today.
func (s *Service) CheckToday(ctx context.Context, schoolID, classID string) (bool, error) {
	from, to := dayBounds(s.now())
	return s.store.ClassTaken(ctx, schoolID, classID, from, to)
}

// ListForStudent returns a student's records. A student outside schoolID is not found.
func (s *Service) ListForStudent(ctx context.Context, schoolID, studentID string, p Page) ([]model.Attendance, error) {
	ok, err := s.store.HasStudent(ctx, schoolID, studentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("Student not found.")
	}
	return s.store.ListByStudent(ctx, schoolID, studentID, p.normalize())
}

// parseDate reads a mark date; bare days start at midnight on the server clock.
func (s *Service) parseDate(v string) (time.Time, error) {
	if v == "" {
		return s.now(), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dayLayout, v, s.now().Location()); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Validation("date must be an RFC 3339 timestamp or YYYY-MM-DD.")
}

// dayBounds returns [midnight, next midnight) of t's calendar day in t's location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
