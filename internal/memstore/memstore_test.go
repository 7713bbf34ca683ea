package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolattend/internal/apperr"
	"schoolattend/internal/attendance"
	"schoolattend/internal/classroom"
	"schoolattend/internal/model"
	"schoolattend/internal/school"
	"schoolattend/internal/student"
	"schoolattend/internal/subject"
	"schoolattend/internal/teacher"
)

var (
	_ school.Store     = (*Schools)(nil)
	_ teacher.Store    = (*Teachers)(nil)
	_ student.Store    = (*Students)(nil)
	_ classroom.Store  = (*Classes)(nil)
	_ subject.Store    = (*Subjects)(nil)
	_ attendance.Store = (*Attendance)(nil)
)

func seed(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	for _, id := range []string{"s1", "s2"} {
		_, err := s.Schools().Insert(ctx, model.School{ID: id, Email: id + "@school.com"})
		require.NoError(t, err)
		_, err = s.Classes().Insert(ctx, model.Class{ID: "c-" + id, SchoolID: id, ClassText: "One", ClassNumber: 1})
		require.NoError(t, err)
		_, err = s.Subjects().Insert(ctx, model.Subject{ID: "m-" + id, SchoolID: id, SubjectName: "Maths", SubjectCodename: "MTH"})
		require.NoError(t, err)
	}
	return s
}

func TestTenantScopedReferences(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	_, err := s.Students().Insert(ctx, model.Student{ID: "st1", SchoolID: "s1", Email: "a@x.com", ClassID: "c-s2"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = s.Students().Insert(ctx, model.Student{ID: "st1", SchoolID: "s1", Email: "a@x.com", ClassID: "c-s1"})
	require.NoError(t, err)
	_, err = s.Students().Get(ctx, "s2", "st1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = s.Attendance().Insert(ctx, model.Attendance{ID: "a1", SchoolID: "s1", StudentID: "st1", ClassID: "c-s1", SubjectID: "m-s2", Status: model.StatusPresent})
	assert.Equal(t, "Subject not found.", apperr.Message(err))

	classID, err := s.Attendance().StudentClass(ctx, "s1", "st1")
	require.NoError(t, err)
	assert.Equal(t, "c-s1", classID)
	_, err = s.Attendance().StudentClass(ctx, "s2", "st1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUniquePerSchool(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	_, err := s.Classes().Insert(ctx, model.Class{ID: "c2", SchoolID: "s1", ClassNumber: 1})
	assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(err))
	_, err = s.Subjects().Insert(ctx, model.Subject{ID: "x", SchoolID: "s1", SubjectName: "Physics", SubjectCodename: "MTH"})
	assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(err))

	_, err = s.Teachers().Insert(ctx, model.Teacher{ID: "t1", SchoolID: "s1", Email: "t@x.com"})
	require.NoError(t, err)
	_, err = s.Teachers().Insert(ctx, model.Teacher{ID: "t2", SchoolID: "s1", Email: "t@x.com"})
	assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(err))
	_, err = s.Teachers().Insert(ctx, model.Teacher{ID: "t3", SchoolID: "s2", Email: "t@x.com"})
	assert.NoError(t, err)

	accounts, err := s.Teachers().LookupAccounts(ctx, "", "t@x.com")
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestClassDeleteRestrictedAndCascade(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	_, err := s.Students().Insert(ctx, model.Student{ID: "st1", SchoolID: "s1", Email: "a@x.com", ClassID: "c-s1"})
	require.NoError(t, err)
	_, err = s.Attendance().Insert(ctx, model.Attendance{ID: "a1", SchoolID: "s1", StudentID: "st1", ClassID: "c-s1", SubjectID: "m-s1", Date: time.Now(), Status: model.StatusAbsent})
	require.NoError(t, err)

	err = s.Classes().Delete(ctx, "s1", "c-s1")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	require.NoError(t, s.Students().Delete(ctx, "s1", "st1"))
	assert.Empty(t, s.attendance)
	assert.NoError(t, s.Classes().Delete(ctx, "s1", "c-s1"))
}

func TestTeacherDeleteClearsAttendee(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	_, err := s.Teachers().Insert(ctx, model.Teacher{ID: "t1", SchoolID: "s1", Email: "t@x.com"})
	require.NoError(t, err)
	attendee := "t1"
	_, err = s.Classes().Insert(ctx, model.Class{ID: "c2", SchoolID: "s1", ClassNumber: 2, AttendeeID: &attendee})
	require.NoError(t, err)

	require.NoError(t, s.Teachers().Delete(ctx, "s1", "t1"))
	c, err := s.Classes().Get(ctx, "s1", "c2")
	require.NoError(t, err)
	assert.Nil(t, c.AttendeeID)
}

func TestListByStudentPaged(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	_, err := s.Students().Insert(ctx, model.Student{ID: "st1", SchoolID: "s1", Name: "Ann", Email: "a@x.com", ClassID: "c-s1"})
	require.NoError(t, err)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a1", "a2", "a3"} {
		_, err := s.Attendance().Insert(ctx, model.Attendance{ID: id, SchoolID: "s1", StudentID: "st1", ClassID: "c-s1", SubjectID: "m-s1", Date: base.AddDate(0, 0, i), Status: model.StatusPresent})
		require.NoError(t, err)
	}

	page, err := s.Attendance().ListByStudent(ctx, "s1", "st1", attendance.Page{Limit: 2, Offset: 0})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a3", page[0].ID)
	assert.Equal(t, "Maths", page[0].SubjectName)
	assert.Equal(t, "Ann", page[0].StudentName)

	page, err = s.Attendance().ListByStudent(ctx, "s1", "st1", attendance.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a1", page[0].ID)
}
