package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBHealthy(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	db := &DB{Client: mockDB}
	mock.ExpectPing()
	assert.True(t, db.Healthy(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.False(t, db.Healthy(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())

	var nilDB *DB
	assert.False(t, nilDB.Healthy(context.Background()))
	assert.NoError(t, nilDB.Close())
}

func TestRedisHealthy(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	r := &Redis{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	defer r.Close()
	assert.True(t, r.Healthy(context.Background()))

	mr.Close()
	assert.False(t, r.Healthy(context.Background()))

	var nilRedis *Redis
	assert.False(t, nilRedis.Healthy(context.Background()))
}

func TestInTx(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE classes").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err = InTx(context.Background(), mockDB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE classes SET attendee_id = NULL")
		return err
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")
	err = InTx(context.Background(), mockDB, func(*sql.Tx) error { return boom })
	assert.Equal(t, boom, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
