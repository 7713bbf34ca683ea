package attendance

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolattend/internal/apperr"
	"schoolattend/internal/model"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db, time.Second), mock
}

func TestInsertForeignSubject(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("INSERT INTO attendance").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "attendance_subject_fkey"})

	_, err := repo.Insert(context.Background(), model.Attendance{ID: "a1", SchoolID: "s1", Status: model.StatusPresent})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Subject not found.", apperr.Message(err))
}

func TestRecentNone(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE school_id = $1 AND student_id = $2 AND subject_id = $3 AND date >= $4 AND date < $5`)).
		WithArgs("s1", "st1", "m", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	recent, err := repo.Recent(context.Background(), "s1", "st1", "m", from, to)
	require.NoError(t, err)
	assert.Nil(t, recent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassTaken(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE school_id = $1 AND class_id = $2 AND date >= $3 AND date < $4`)).
		WithArgs("s1", "c1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.ClassTaken(context.Background(), "s1", "c1", from, to)
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStudentJoinsNames(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery("FROM attendance a JOIN students st").
		WithArgs("s1", "st1", defaultLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "student_id", "name", "class_id", "subject_id", "subject_name", "date", "status", "created_at"}).
			AddRow("a1", "s1", "st1", "Ann", "c1", "m", "Maths", now, "Present", now))

	records, err := repo.ListByStudent(context.Background(), "s1", "st1", Page{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ann", records[0].StudentName)
	assert.Equal(t, "Maths", records[0].SubjectName)
	assert.Equal(t, model.StatusPresent, records[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentClass(t *testing.T) {
	repo, mock := newMockRepo(t)
	query := regexp.QuoteMeta(`SELECT class_id FROM students WHERE id = $1 AND school_id = $2`)
	mock.ExpectQuery(query).WithArgs("st1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id"}).AddRow("c1"))
	mock.ExpectQuery(query).WithArgs("st1", "s2").
		WillReturnRows(sqlmock.NewRows([]string{"class_id"}))

	classID, err := repo.StudentClass(context.Background(), "s1", "st1")
	require.NoError(t, err)
	assert.Equal(t, "c1", classID)

	_, err = repo.StudentClass(context.Background(), "s2", "st1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Student not found.", apperr.Message(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
