// Package memstore is an in-memory backend holding the same constraints as the
// Postgres schema. It serves local development without a database and handler tests.
package memstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"schoolattend/internal/apperr"
	"schoolattend/internal/model"
)

const emailTaken = "Email is already registered."

// Store holds every tenant's data behind one lock.
type Store struct {
	mu         sync.RWMutex
	schools    map[string]model.School
	teachers   map[string]model.Teacher
	students   map[string]model.Student
	classes    map[string]model.Class
	subjects   map[string]model.Subject
	attendance map[string]model.Attendance
	now        func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		schools:    map[string]model.School{},
		teachers:   map[string]model.Teacher{},
		students:   map[string]model.Student{},
		classes:    map[string]model.Class{},
		subjects:   map[string]model.Subject{},
		attendance: map[string]model.Attendance{},
		now:        time.Now,
	}
}

// Schools returns the school view.
func (s *Store) Schools() *Schools { return &Schools{s} }

// Teachers returns the teacher view.
func (s *Store) Teachers() *Teachers { return &Teachers{s} }

// Students returns the student view.
func (s *Store) Students() *Students { return &Students{s} }

// Classes returns the class view.
func (s *Store) Classes() *Classes { return &Classes{s} }

// Subjects returns the subject view.
func (s *Store) Subjects() *Subjects { return &Subjects{s} }

// Attendance returns the attendance view.
func (s *Store) Attendance() *Attendance { return &Attendance{s} }

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// checks below expect s.mu to be held

func (s *Store) teacherIn(schoolID, id string) bool {
	t, ok := s.teachers[id]
	return ok && t.SchoolID == schoolID
}

func (s *Store) classIn(schoolID, id string) bool {
	c, ok := s.classes[id]
	return ok && c.SchoolID == schoolID
}

func (s *Store) studentIn(schoolID, id string) bool {
	st, ok := s.students[id]
	return ok && st.SchoolID == schoolID
}

func (s *Store) subjectIn(schoolID, id string) bool {
	sb, ok := s.subjects[id]
	return ok && sb.SchoolID == schoolID
}

func (s *Store) checkAttendee(c model.Class) error {
	if c.AttendeeID != nil && !s.teacherIn(c.SchoolID, *c.AttendeeID) {
		return apperr.NotFound("Teacher not found.")
	}
	return nil
}

func (s *Store) classNumberTaken(schoolID string, number int, exceptID string) bool {
	for _, c := range s.classes {
		if c.SchoolID == schoolID && c.ClassNumber == number && c.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) subjectNameTaken(schoolID, name, codename, exceptID string) bool {
	for _, sb := range s.subjects {
		if sb.SchoolID == schoolID && sb.ID != exceptID && (sb.SubjectName == name || sb.SubjectCodename == codename) {
			return true
		}
	}
	return false
}

func (s *Store) cascadeAttendance(match func(model.Attendance) bool) {
	for id, a := range s.attendance {
		if match(a) {
			delete(s.attendance, id)
		}
	}
}

func sortByName[T any](items []T, name func(T) string) {
	sort.SliceStable(items, func(i, j int) bool { return name(items[i]) < name(items[j]) })
}
