// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/wingedpig/casewatch/internal/cases"
	"github.com/wingedpig/casewatch/internal/remote/migrations"
)

// DefaultChannel is the NOTIFY channel raised by the cases trigger.
const DefaultChannel = "cases_changed"

const (
	codeUndefinedColumn = "42703"
	listenRetry         = 5 * time.Second
)

// PostgresOptions configures OpenPostgres.
type PostgresOptions struct {
	DSN     string
	Channel string
	// Migrate applies the embedded migrations on open.
	Migrate bool
	// MigrateTo stops at the given migration version; 0 means latest.
	MigrateTo int64
}

// PostgresStore is a Store backed by a Postgres table.
type PostgresStore struct {
	db      *sql.DB
	channel string
}

// OpenPostgres connects to Postgres. An unreachable server is not an error:
// the store is returned and its operations report ErrUnavailable until the
// server comes back.
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	db, err := sql.Open("pgx", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	s := NewPostgresStore(db, opts.Channel)

	if err := db.PingContext(ctx); err != nil {
		slog.Warn("remote store unreachable, starting offline", "error", err)
		return s, nil
	}
	if opts.Migrate {
		if err := Migrate(ctx, db, opts.MigrateTo); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return s, nil
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB, channel string) *PostgresStore {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PostgresStore{db: db, channel: channel}
}

// Migrate applies the embedded goose migrations up to version, or all of
// them when version is 0.
func Migrate(ctx context.Context, db *sql.DB, version int64) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if version > 0 {
		return goose.UpToContext(ctx, db, ".", version)
	}
	return goose.UpContext(ctx, db, ".")
}

// classifyErr maps driver errors onto the Store error contract.
func classifyErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == codeUndefinedColumn {
			return &SchemaError{Column: pgErr.ColumnName, Err: pgErr}
		}
		return &RejectedError{Code: pgErr.Code, Message: pgErr.Message}
	}
	return fmt.Errorf("postgres %s: %w: %v", op, ErrUnavailable, err)
}

func checkColumns(cols []Column) error {
	for _, c := range cols {
		if !knownColumn(c) {
			return fmt.Errorf("unknown column %q", c)
		}
	}
	return nil
}

func joinColumns(cols []Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// where renders predicates starting at placeholder $next.
func where(preds []Predicate, next int) (string, []any) {
	if len(preds) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		switch p.Op {
		case OpEq:
			parts = append(parts, fmt.Sprintf("%s = $%d", p.Column, next))
			args = append(args, p.Value)
			next++
		case OpEqFold:
			parts = append(parts, fmt.Sprintf("lower(%s) = lower($%d)", p.Column, next))
			args = append(args, p.Value)
			next++
		case OpIsNull:
			parts = append(parts, string(p.Column)+" IS NULL")
		case OpNotNull:
			parts = append(parts, string(p.Column)+" IS NOT NULL")
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func buildSelect(q Query) (string, []any, error) {
	if len(q.Columns) == 0 {
		return "", nil, errors.New("select without columns")
	}
	if err := checkColumns(q.columns()); err != nil {
		return "", nil, err
	}
	w, args := where(q.Where, 1)
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(joinColumns(q.Columns))
	b.WriteString(" FROM cases")
	b.WriteString(w)
	b.WriteString(" ORDER BY submitted_on DESC NULLS LAST, id")
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(q.Offset))
	}
	return b.String(), args, nil
}

// Select implements Store.
func (s *PostgresStore) Select(ctx context.Context, q Query) ([]cases.Case, error) {
	query, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyErr("select", err)
	}
	defer rows.Close()

	out := make([]cases.Case, 0)
	for rows.Next() {
		c, err := scanCase(rows, q.Columns)
		if err != nil {
			return nil, classifyErr("select", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyErr("select", err)
	}
	return out, nil
}

func isTimeColumn(c Column) bool {
	return c == ColLastMutatedAt || c == ColSoftDeletedAt
}

func scanCase(rows *sql.Rows, cols []Column) (cases.Case, error) {
	targets := make([]any, len(cols))
	for i, c := range cols {
		if isTimeColumn(c) {
			targets[i] = new(sql.NullTime)
		} else {
			targets[i] = new(sql.NullString)
		}
	}
	if err := rows.Scan(targets...); err != nil {
		return cases.Case{}, err
	}
	var c cases.Case
	for i, col := range cols {
		switch t := targets[i].(type) {
		case *sql.NullTime:
			if t.Valid {
				setValue(&c, col, t.Time)
			}
		case *sql.NullString:
			if t.Valid {
				setValue(&c, col, t.String)
			}
		}
	}
	return c, nil
}

func buildUpsert(rows []cases.Case, cols []Column, conflict Column) (string, []any, error) {
	if len(rows) == 0 || len(cols) == 0 {
		return "", nil, errors.New("upsert without rows or columns")
	}
	if !Has(cols, conflict) {
		return "", nil, fmt.Errorf("conflict column %q not in column set", conflict)
	}
	if err := checkColumns(cols); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	args := make([]any, 0, len(rows)*len(cols))
	b.WriteString("INSERT INTO cases (")
	b.WriteString(joinColumns(cols))
	b.WriteString(") VALUES ")
	n := 1
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, col := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("$" + strconv.Itoa(n))
			args = append(args, value(r, col))
			n++
		}
		b.WriteByte(')')
	}

	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		if col != conflict {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	b.WriteString(" ON CONFLICT (" + string(conflict) + ") ")
	if len(sets) == 0 {
		b.WriteString("DO NOTHING")
	} else {
		b.WriteString("DO UPDATE SET " + strings.Join(sets, ", "))
	}
	return b.String(), args, nil
}

// Upsert implements Store.
func (s *PostgresStore) Upsert(ctx context.Context, rows []cases.Case, columns []Column, conflict Column) error {
	query, args, err := buildUpsert(rows, columns, conflict)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return classifyErr("upsert", err)
}

func buildUpdate(preds []Predicate, patch Patch) (string, []any, error) {
	if len(preds) == 0 {
		return "", nil, errors.New("update without filter")
	}
	if len(patch) == 0 {
		return "", nil, errors.New("empty patch")
	}
	cols := make([]Column, 0, len(patch))
	for c := range patch {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	if err := checkColumns(cols); err != nil {
		return "", nil, err
	}
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(preds))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
		args = append(args, patch[c])
	}
	w, wargs := where(preds, len(cols)+1)
	return "UPDATE cases SET " + strings.Join(sets, ", ") + w, append(args, wargs...), nil
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, preds []Predicate, patch Patch) error {
	query, args, err := buildUpdate(preds, patch)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return classifyErr("update", err)
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, preds []Predicate) error {
	if len(preds) == 0 {
		return errors.New("delete without filter")
	}
	w, args := where(preds, 1)
	_, err := s.db.ExecContext(ctx, "DELETE FROM cases"+w, args...)
	return classifyErr("delete", err)
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM cases").Scan(&n); err != nil {
		return 0, classifyErr("count", err)
	}
	return n, nil
}

// LoadConfig implements Store. A missing row yields the zero config.
func (s *PostgresStore) LoadConfig(ctx context.Context) (cases.GlobalConfig, error) {
	var cfg cases.GlobalConfig
	err := s.db.QueryRowContext(ctx, "SELECT maintenance_mode FROM app_config WHERE id = 1").Scan(&cfg.MaintenanceMode)
	if errors.Is(err, sql.ErrNoRows) {
		return cases.GlobalConfig{}, nil
	}
	if err != nil {
		return cases.GlobalConfig{}, classifyErr("load config", err)
	}
	return cfg, nil
}

// SaveConfig implements Store.
func (s *PostgresStore) SaveConfig(ctx context.Context, cfg cases.GlobalConfig) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_config (id, maintenance_mode, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET maintenance_mode = EXCLUDED.maintenance_mode, updated_at = NOW()`,
		cfg.MaintenanceMode)
	return classifyErr("save config", err)
}

type pgSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *pgSubscription) Unsubscribe() {
	s.cancel()
	<-s.done
}

// Subscribe implements Store using LISTEN on a dedicated connection. A lost
// connection is re-established until the subscription ends.
func (s *PostgresStore) Subscribe(ctx context.Context, fn func()) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &pgSubscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for {
			err := s.listen(ctx, fn)
			if ctx.Err() != nil {
				return
			}
			slog.Warn("remote change feed lost", "channel", s.channel, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(listenRetry):
			}
		}
	}()
	return sub, nil
}

func (s *PostgresStore) listen(ctx context.Context, fn func()) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		pc := sc.Conn()
		if _, err := pc.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
			return err
		}
		defer func() {
			if !pc.IsClosed() {
				pc.Exec(context.Background(), "UNLISTEN *")
			}
		}()
		slog.Debug("listening for remote changes", "channel", s.channel)
		for {
			if _, err := pc.WaitForNotification(ctx); err != nil {
				return err
			}
			fn()
		}
	})
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
