package memstore

import (
	"context"
	"sort"
	"time"

	"schoolattend/internal/apperr"
	"schoolattend/internal/attendance"
	"schoolattend/internal/model"
)

// Classes implements classroom.Store.
type Classes struct{ s *Store }

func (v *Classes) Insert(_ context.Context, c model.Class) (model.Class, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.checkAttendee(c); err != nil {
		return model.Class{}, err
	}
	if v.s.classNumberTaken(c.SchoolID, c.ClassNumber, c.ID) {
		return model.Class{}, apperr.Duplicate("Class with this number already exists for this school.", nil)
	}
	c.CreatedAt = v.s.now()
	v.s.classes[c.ID] = c
	return c, nil
}

func (v *Classes) Get(_ context.Context, schoolID, id string) (model.Class, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if !v.s.classIn(schoolID, id) {
		return model.Class{}, apperr.NotFound("Class not found.")
	}
	return v.s.classes[id], nil
}

func (v *Classes) List(_ context.Context, schoolID string) ([]model.Class, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	res := []model.Class{}
	for _, c := range v.s.classes {
		if c.SchoolID == schoolID {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ClassNumber < res[j].ClassNumber })
	return res, nil
}

func (v *Classes) Update(_ context.Context, c model.Class) (model.Class, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if !v.s.classIn(c.SchoolID, c.ID) {
		return model.Class{}, apperr.NotFound("Class not found.")
	}
	if err := v.s.checkAttendee(c); err != nil {
		return model.Class{}, err
	}
	if v.s.classNumberTaken(c.SchoolID, c.ClassNumber, c.ID) {
		return model.Class{}, apperr.Duplicate("Class with this number already exists for this school.", nil)
	}
	c.CreatedAt = v.s.classes[c.ID].CreatedAt
	v.s.classes[c.ID] = c
	return c, nil
}

func (v *Classes) CountStudents(_ context.Context, schoolID, id string) (int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	n := 0
	for _, st := range v.s.students {
		if st.SchoolID == schoolID && st.ClassID == id {
			n++
		}
	}
	return n, nil
}

func (v *Classes) Delete(_ context.Context, schoolID, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if !v.s.classIn(schoolID, id) {
		return apperr.NotFound("Class not found.")
	}
	for _, st := range v.s.students {
		if st.SchoolID == schoolID && st.ClassID == id {
			return apperr.Conflict("This class is already in use.", nil)
		}
	}
	delete(v.s.classes, id)
	v.s.cascadeAttendance(func(a model.Attendance) bool { return a.ClassID == id })
	return nil
}

func (v *Classes) NumberTaken(_ context.Context, schoolID string, number int, exceptID string) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.classNumberTaken(schoolID, number, exceptID), nil
}

// Subjects implements subject.Store.
type Subjects struct{ s *Store }

func (v *Subjects) Insert(_ context.Context, sb model.Subject) (model.Subject, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.subjectNameTaken(sb.SchoolID, sb.SubjectName, sb.SubjectCodename, sb.ID) {
		return model.Subject{}, apperr.Duplicate("Subject with this name or codename already exists.", nil)
	}
	sb.CreatedAt = v.s.now()
	v.s.subjects[sb.ID] = sb
	return sb, nil
}

func (v *Subjects) Get(_ context.Context, schoolID, id string) (model.Subject, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if !v.s.subjectIn(schoolID, id) {
		return model.Subject{}, apperr.NotFound("Subject not found.")
	}
	return v.s.subjects[id], nil
}

func (v *Subjects) List(_ context.Context, schoolID string) ([]model.Subject, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	res := []model.Subject{}
	for _, sb := range v.s.subjects {
		if sb.SchoolID == schoolID {
			res = append(res, sb)
		}
	}
	sortByName(res, func(sb model.Subject) string { return sb.SubjectName })
	return res, nil
}

func (v *Subjects) Update(_ context.Context, sb model.Subject) (model.Subject, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if !v.s.subjectIn(sb.SchoolID, sb.ID) {
		return model.Subject{}, apperr.NotFound("Subject not found.")
	}
	if v.s.subjectNameTaken(sb.SchoolID, sb.SubjectName, sb.SubjectCodename, sb.ID) {
		return model.Subject{}, apperr.Duplicate("Subject with this name or codename already exists.", nil)
	}
	sb.CreatedAt = v.s.subjects[sb.ID].CreatedAt
	v.s.subjects[sb.ID] = sb
	return sb, nil
}

func (v *Subjects) Delete(_ context.Context, schoolID, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if !v.s.subjectIn(schoolID, id) {
		return apperr.NotFound("Subject not found.")
	}
	delete(v.s.subjects, id)
	v.s.cascadeAttendance(func(a model.Attendance) bool { return a.SubjectID == id })
	return nil
}

func (v *Subjects) NameTaken(_ context.Context, schoolID, name, codename, exceptID string) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.subjectNameTaken(schoolID, name, codename, exceptID), nil
}

// Attendance implements attendance.Store.
type Attendance struct{ s *Store }

func (v *Attendance) Insert(_ context.Context, a model.Attendance) (model.Attendance, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	switch {
	case !v.s.studentIn(a.SchoolID, a.StudentID):
		return model.Attendance{}, apperr.NotFound("Student not found.")
	case !v.s.classIn(a.SchoolID, a.ClassID):
		return model.Attendance{}, apperr.NotFound("Class not found.")
	case !v.s.subjectIn(a.SchoolID, a.SubjectID):
		return model.Attendance{}, apperr.NotFound("Subject not found.")
	case !a.Status.Valid():
		return model.Attendance{}, apperr.Validation("A field has an invalid value.")
	}
	a.CreatedAt = v.s.now()
	v.s.attendance[a.ID] = a
	return a, nil
}

func (v *Attendance) Recent(_ context.Context, schoolID, studentID, subjectID string, from, to time.Time) (*model.Attendance, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var latest *model.Attendance
	for _, a := range v.s.attendance {
		if a.SchoolID != schoolID || a.StudentID != studentID || a.SubjectID != subjectID || !within(a.Date, from, to) {
			continue
		}
		if latest == nil || a.Date.After(latest.Date) {
			found := a
			latest = &found
		}
	}
	return latest, nil
}

func (v *Attendance) ClassTaken(_ context.Context, schoolID, classID string, from, to time.Time) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, a := range v.s.attendance {
		if a.SchoolID == schoolID && a.ClassID == classID && within(a.Date, from, to) {
			return true, nil
		}
	}
	return false, nil
}

func (v *Attendance) HasStudent(_ context.Context, schoolID, studentID string) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.studentIn(schoolID, studentID), nil
}

func (v *Attendance) ListByStudent(_ context.Context, schoolID, studentID string, p attendance.Page) ([]model.Attendance, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	all := []model.Attendance{}
	for _, a := range v.s.attendance {
		if a.SchoolID == schoolID && a.StudentID == studentID {
			a.StudentName = v.s.students[a.StudentID].Name
			a.SubjectName = v.s.subjects[a.SubjectID].SubjectName
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })
	if p.Offset >= len(all) {
		return []model.Attendance{}, nil
	}
	all = all[p.Offset:]
	if p.Limit > 0 && p.Limit < len(all) {
		all = all[:p.Limit]
	}
	return all, nil
}

func (v *Attendance) StudentClass(_ context.Context, schoolID, studentID string) (string, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if !v.s.studentIn(schoolID, studentID) {
		return "", apperr.NotFound("Student not found.")
	}
	return v.s.students[studentID].ClassID, nil
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
