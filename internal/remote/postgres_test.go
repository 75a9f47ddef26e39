// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"errors"
	"io/fs"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/casewatch/internal/cases"
	"github.com/wingedpig/casewatch/internal/remote/migrations"
)

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, ""), mock
}

func TestBuildSelect(t *testing.T) {
	q, args, err := buildSelect(Query{
		Columns: []Column{ColID, ColDisplayName},
		Where:   []Predicate{EqFold(ColOwnerContact, "A@B.C"), IsNull(ColSoftDeletedAt)},
		Limit:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, display_name FROM cases WHERE lower(owner_contact) = lower($1) AND soft_deleted_at IS NULL ORDER BY submitted_on DESC NULLS LAST, id LIMIT 1", q)
	assert.Equal(t, []any{"A@B.C"}, args)

	_, _, err = buildSelect(Query{Columns: []Column{"password"}})
	assert.Error(t, err)
}

func TestBuildUpsert(t *testing.T) {
	row := cases.Case{ID: "1", DisplayName: "ana"}
	q, args, err := buildUpsert([]cases.Case{row}, []Column{ColID, ColDisplayName, ColNote}, ColID)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO cases (id, display_name, note) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, note = EXCLUDED.note", q)
	assert.Equal(t, []any{"1", "ana", nil}, args)

	_, _, err = buildUpsert([]cases.Case{row}, []Column{ColDisplayName}, ColID)
	assert.Error(t, err)
}

func TestBuildUpdate(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q, args, err := buildUpdate([]Predicate{Eq(ColID, "7")}, Patch{ColSoftDeletedAt: at, ColLastMutatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE cases SET last_mutated_at = $1, soft_deleted_at = $2 WHERE id = $3", q)
	assert.Equal(t, []any{at, at, "7"}, args)

	_, _, err = buildUpdate(nil, Patch{ColNote: "x"})
	assert.Error(t, err)
}

func TestPostgresStore_Select(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mutated := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "display_name", "protocol_on", "last_mutated_at", "soft_deleted_at"}).
		AddRow("c1", "ana", nil, mutated, nil).
		AddRow("c2", "bea", "2024-05-01", mutated, mutated)
	mock.ExpectQuery(`^SELECT id, display_name, protocol_on, last_mutated_at, soft_deleted_at FROM cases ORDER BY`).
		WillReturnRows(rows)

	got, err := s.Select(context.Background(), Query{
		Columns: []Column{ColID, ColDisplayName, ColProtocol, ColLastMutatedAt, ColSoftDeletedAt},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ana", got[0].DisplayName)
	assert.Equal(t, "", got[0].Timeline.ProtocolReceived)
	assert.Nil(t, got[0].SoftDeletedAt)
	assert.Equal(t, "2024-05-01", got[1].Timeline.ProtocolReceived)
	require.NotNil(t, got[1].SoftDeletedAt)
	assert.True(t, mutated.Equal(*got[1].SoftDeletedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "undefined column",
			err:  &pgconn.PgError{Code: "42703", Message: `column "soft_deleted_at" does not exist`},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSchemaMismatch)
				assert.False(t, IsUnavailable(err))
			},
		},
		{
			name: "constraint violation",
			err:  &pgconn.PgError{Code: "23505", Message: "duplicate key"},
			check: func(t *testing.T, err error) {
				var re *RejectedError
				require.ErrorAs(t, err, &re)
				assert.Equal(t, "23505", re.Code)
				assert.True(t, IsRejected(err))
			},
		},
		{
			name: "network",
			err:  errors.New("dial tcp 10.0.0.1:5432: connect: connection refused"),
			check: func(t *testing.T, err error) {
				assert.True(t, IsUnavailable(err))
				assert.NotErrorIs(t, err, ErrSchemaMismatch)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newStoreWithMock(t)
			mock.ExpectQuery(`^SELECT id FROM cases`).WillReturnError(tt.err)
			_, err := s.Select(context.Background(), Query{Columns: []Column{ColID}})
			tt.check(t, err)
		})
	}
}

func TestPostgresStore_Upsert(t *testing.T) {
	s, mock := newStoreWithMock(t)
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	row := cases.Case{ID: "1", DisplayName: "ana", LastMutatedAt: at}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cases (id, display_name, last_mutated_at) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET")).
		WithArgs("1", "ana", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Upsert(context.Background(), []cases.Case{row}, []Column{ColID, ColDisplayName, ColLastMutatedAt}, ColID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cases WHERE id = $1")).
		WithArgs("9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), []Predicate{Eq(ColID, "9")}))
	assert.Error(t, s.Delete(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM cases")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestPostgresStore_Config(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT maintenance_mode FROM app_config`).
		WillReturnRows(sqlmock.NewRows([]string{"maintenance_mode"}))
	cfg, err := s.LoadConfig(context.Background())
	require.NoError(t, err)
	assert.False(t, cfg.MaintenanceMode)

	mock.ExpectExec(`INSERT INTO app_config`).
		WithArgs(true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SaveConfig(context.Background(), cases.GlobalConfig{MaintenanceMode: true}))

	mock.ExpectQuery(`SELECT maintenance_mode FROM app_config`).
		WillReturnRows(sqlmock.NewRows([]string{"maintenance_mode"}).AddRow(true))
	cfg, err = s.LoadConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.MaintenanceMode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_create_cases.sql", "00002_add_soft_delete.sql"}, files)
}
