// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-keeper/internal/logger"
	"github.com/MKhiriev/go-offline-keeper/migrations"
)

func newTestSQLStorage(t *testing.T, dialect migrations.Dialect) (KVStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var classifier ErrorClassificator = NewSQLiteErrorClassifier()
	if dialect == migrations.DialectPostgres {
		classifier = NewPostgresErrorClassifier()
	}

	l := logger.Nop()
	return NewSQLStorage(&DB{DB: db, dialect: dialect, errorClassificator: classifier, logger: l}, l), mock
}

func TestSQLStorage_Get(t *testing.T) {
	kv, mock := newTestSQLStorage(t, migrations.DialectPostgres)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT entry_value FROM kv_store WHERE entry_key = $1")).
		WithArgs("sync_queue").
		WillReturnRows(sqlmock.NewRows([]string{"entry_value"}).AddRow([]byte("[]")))

	v, err := kv.Get(context.Background(), "sync_queue")
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Get_NotFound(t *testing.T) {
	kv, mock := newTestSQLStorage(t, migrations.DialectSQLite)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT entry_value FROM kv_store WHERE entry_key = ?")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := kv.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Set_Upserts(t *testing.T) {
	kv, mock := newTestSQLStorage(t, migrations.DialectPostgres)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_store (entry_key,entry_value,updated_at) VALUES ($1,$2,$3) ON CONFLICT (entry_key) DO UPDATE")).
		WithArgs("conflicts", []byte("[]"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, kv.Set(context.Background(), "conflicts", []byte("[]")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Set_RetriesRetryable(t *testing.T) {
	kv, mock := newTestSQLStorage(t, migrations.DialectPostgres)

	mock.ExpectExec("INSERT INTO kv_store").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	mock.ExpectExec("INSERT INTO kv_store").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, kv.Set(context.Background(), "k", []byte("v")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Set_NonRetryableFailsFast(t *testing.T) {
	kv, mock := newTestSQLStorage(t, migrations.DialectPostgres)

	mock.ExpectExec("INSERT INTO kv_store").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UndefinedTable})

	err := kv.Set(context.Background(), "k", []byte("v"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, ErrExecutingStatement)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Remove(t *testing.T) {
	kv, mock := newTestSQLStorage(t, migrations.DialectSQLite)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv_store WHERE entry_key = ?")).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, kv.Remove(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Keys_EscapesPrefix(t *testing.T) {
	kv, mock := newTestSQLStorage(t, migrations.DialectSQLite)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT entry_key FROM kv_store WHERE entry_key LIKE ? ESCAPE '\\' ORDER BY entry_key")).
		WithArgs(`cache:user\_profile\_%`).
		WillReturnRows(sqlmock.NewRows([]string{"entry_key"}).
			AddRow("cache:user_profile_1").
			AddRow("cache:user_profile_2"))

	keys, err := kv.Keys(context.Background(), "cache:user_profile_")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache:user_profile_1", "cache:user_profile_2"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Clear_All(t *testing.T) {
	kv, mock := newTestSQLStorage(t, migrations.DialectPostgres)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv_store")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, kv.Clear(context.Background(), ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorClassifiers(t *testing.T) {
	pg := NewPostgresErrorClassifier()
	assert.Equal(t, Retryable, pg.Classify(&pgconn.PgError{Code: pgerrcode.DeadlockDetected}))
	assert.Equal(t, Retryable, pg.Classify(&pgconn.PgError{Code: pgerrcode.TooManyConnections}))
	assert.Equal(t, NonRetryable, pg.Classify(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.Equal(t, NonRetryable, pg.Classify(assert.AnError))
	assert.Equal(t, NonRetryable, pg.Classify(nil))

	lite := NewSQLiteErrorClassifier()
	assert.Equal(t, Retryable, lite.Classify(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.Equal(t, Retryable, lite.Classify(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.Equal(t, NonRetryable, lite.Classify(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.Equal(t, NonRetryable, lite.Classify(nil))
}
