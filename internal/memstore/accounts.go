package memstore

import (
	"context"
	"sort"

	"schoolattend/internal/apperr"
	"schoolattend/internal/auth"
	"schoolattend/internal/model"
	"schoolattend/internal/student"
	"schoolattend/internal/teacher"
)

// Schools implements school.Store.
type Schools struct{ s *Store }

func (v *Schools) LookupAccounts(_ context.Context, _ string, email string) ([]auth.Account, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, sc := range v.s.schools {
		if sc.Email == email {
			return []auth.Account{{ID: sc.ID, SchoolID: sc.ID, Name: sc.SchoolName, Email: sc.Email, PasswordHash: sc.PasswordHash}}, nil
		}
	}
	return nil, nil
}

func (v *Schools) Insert(_ context.Context, sc model.School) (model.School, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, other := range v.s.schools {
		if other.Email == sc.Email {
			return model.School{}, apperr.Duplicate(emailTaken, nil)
		}
	}
	sc.CreatedAt = v.s.now()
	v.s.schools[sc.ID] = sc
	return sc, nil
}

func (v *Schools) Get(_ context.Context, id string) (model.School, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	sc, ok := v.s.schools[id]
	if !ok {
		return model.School{}, apperr.NotFound("School not found.")
	}
	return sc, nil
}

func (v *Schools) List(_ context.Context) ([]model.School, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	res := make([]model.School, 0, len(v.s.schools))
	for _, sc := range v.s.schools {
		res = append(res, sc)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (v *Schools) Update(_ context.Context, sc model.School) (model.School, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	cur, ok := v.s.schools[sc.ID]
	if !ok {
		return model.School{}, apperr.NotFound("School not found.")
	}
	for _, other := range v.s.schools {
		if other.ID != sc.ID && other.Email == sc.Email {
			return model.School{}, apperr.Duplicate(emailTaken, nil)
		}
	}
	sc.CreatedAt = cur.CreatedAt
	v.s.schools[sc.ID] = sc
	return sc, nil
}

func (v *Schools) EmailTaken(_ context.Context, email, exceptID string) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, sc := range v.s.schools {
		if sc.Email == email && sc.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

// Teachers implements teacher.Store.
type Teachers struct{ s *Store }

func (v *Teachers) LookupAccounts(_ context.Context, schoolID, email string) ([]auth.Account, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var res []auth.Account
	for _, t := range v.s.teachers {
		if t.Email == email && (schoolID == "" || t.SchoolID == schoolID) {
			res = append(res, auth.Account{ID: t.ID, SchoolID: t.SchoolID, Name: t.Name, Email: t.Email, PasswordHash: t.PasswordHash})
		}
	}
	return res, nil
}

func (v *Teachers) Insert(_ context.Context, t model.Teacher) (model.Teacher, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.schools[t.SchoolID]; !ok {
		return model.Teacher{}, apperr.NotFound("School not found.")
	}
	if v.teacherEmailTaken(t.SchoolID, t.Email, t.ID) {
		return model.Teacher{}, apperr.Duplicate(emailTaken, nil)
	}
	t.CreatedAt = v.s.now()
	v.s.teachers[t.ID] = t
	return t, nil
}

func (v *Teachers) Get(_ context.Context, schoolID, id string) (model.Teacher, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if !v.s.teacherIn(schoolID, id) {
		return model.Teacher{}, apperr.NotFound("Teacher not found.")
	}
	return v.s.teachers[id], nil
}

func (v *Teachers) List(_ context.Context, schoolID string, f teacher.Filter) ([]model.Teacher, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	res := []model.Teacher{}
	for _, t := range v.s.teachers {
		if t.SchoolID == schoolID && (f.Search == "" || containsFold(t.Name, f.Search)) {
			res = append(res, t)
		}
	}
	sortByName(res, func(t model.Teacher) string { return t.Name })
	return res, nil
}

func (v *Teachers) Update(_ context.Context, t model.Teacher) (model.Teacher, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if !v.s.teacherIn(t.SchoolID, t.ID) {
		return model.Teacher{}, apperr.NotFound("Teacher not found.")
	}
	if v.teacherEmailTaken(t.SchoolID, t.Email, t.ID) {
		return model.Teacher{}, apperr.Duplicate(emailTaken, nil)
	}
	t.CreatedAt = v.s.teachers[t.ID].CreatedAt
	v.s.teachers[t.ID] = t
	return t, nil
}

func (v *Teachers) Delete(_ context.Context, schoolID, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if !v.s.teacherIn(schoolID, id) {
		return apperr.NotFound("Teacher not found.")
	}
	for cid, c := range v.s.classes {
		if c.SchoolID == schoolID && c.AttendeeID != nil && *c.AttendeeID == id {
			c.AttendeeID = nil
			v.s.classes[cid] = c
		}
	}
	delete(v.s.teachers, id)
	return nil
}

func (v *Teachers) EmailTaken(_ context.Context, schoolID, email, exceptID string) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.teacherEmailTaken(schoolID, email, exceptID), nil
}

func (v *Teachers) teacherEmailTaken(schoolID, email, exceptID string) bool {
	for _, t := range v.s.teachers {
		if t.SchoolID == schoolID && t.Email == email && t.ID != exceptID {
			return true
		}
	}
	return false
}

// Students implements student.Store.
type Students struct{ s *Store }

func (v *Students) LookupAccounts(_ context.Context, schoolID, email string) ([]auth.Account, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var res []auth.Account
	for _, st := range v.s.students {
		if st.Email == email && (schoolID == "" || st.SchoolID == schoolID) {
			res = append(res, auth.Account{ID: st.ID, SchoolID: st.SchoolID, Name: st.Name, Email: st.Email, PasswordHash: st.PasswordHash})
		}
	}
	return res, nil
}

func (v *Students) Insert(_ context.Context, st model.Student) (model.Student, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if !v.s.classIn(st.SchoolID, st.ClassID) {
		return model.Student{}, apperr.NotFound("Class not found.")
	}
	if v.studentEmailTaken(st.SchoolID, st.Email, st.ID) {
		return model.Student{}, apperr.Duplicate(emailTaken, nil)
	}
	st.CreatedAt = v.s.now()
	v.s.students[st.ID] = st
	return st, nil
}

func (v *Students) Get(_ context.Context, schoolID, id string) (model.Student, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if !v.s.studentIn(schoolID, id) {
		return model.Student{}, apperr.NotFound("Student not found.")
	}
	return v.s.students[id], nil
}

func (v *Students) List(_ context.Context, schoolID string, f student.Filter) ([]model.Student, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	res := []model.Student{}
	for _, st := range v.s.students {
		if st.SchoolID != schoolID {
			continue
		}
		if f.Search != "" && !containsFold(st.Name, f.Search) {
			continue
		}
		if f.ClassID != "" && st.ClassID != f.ClassID {
			continue
		}
		res = append(res, st)
	}
	sortByName(res, func(st model.Student) string { return st.Name })
	return res, nil
}

func (v *Students) Update(_ context.Context, st model.Student) (model.Student, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if !v.s.studentIn(st.SchoolID, st.ID) {
		return model.Student{}, apperr.NotFound("Student not found.")
	}
	if !v.s.classIn(st.SchoolID, st.ClassID) {
		return model.Student{}, apperr.NotFound("Class not found.")
	}
	if v.studentEmailTaken(st.SchoolID, st.Email, st.ID) {
		return model.Student{}, apperr.Duplicate(emailTaken, nil)
	}
	st.CreatedAt = v.s.students[st.ID].CreatedAt
	v.s.students[st.ID] = st
	return st, nil
}

func (v *Students) Delete(_ context.Context, schoolID, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if !v.s.studentIn(schoolID, id) {
		return apperr.NotFound("Student not found.")
	}
	delete(v.s.students, id)
	v.s.cascadeAttendance(func(a model.Attendance) bool { return a.StudentID == id })
	return nil
}

func (v *Students) EmailTaken(_ context.Context, schoolID, email, exceptID string) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.studentEmailTaken(schoolID, email, exceptID), nil
}

func (v *Students) studentEmailTaken(schoolID, email, exceptID string) bool {
	for _, st := range v.s.students {
		if st.SchoolID == schoolID && st.Email == email && st.ID != exceptID {
			return true
		}
	}
	return false
}
