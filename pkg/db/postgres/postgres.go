// Package postgres implements the import store over a direct Postgres
// connection pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/japaniel/vocabimport/pkg/db"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store is a db.Store backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses dsn, builds a pool and verifies connectivity.
func Open(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.RuntimeParams = map[string]string{
		"application_name": "vocabimport",
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the import tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// maxBindParams is the most positional parameters one statement may carry.
const maxBindParams = 65535

// Upsert sends rows as multi-row INSERT ... ON CONFLICT statements. A batch
// too large for one statement is split, and the parts run in one
// transaction so the batch still succeeds or fails as a whole. Postgres
// rejects a statement that touches the same key twice, so a batch with
// in-batch duplicates fails too.
func (s *Store) Upsert(ctx context.Context, t db.Table, rows []db.Record, ignoreDuplicates bool) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	chunks := splitRows(t, rows)
	if len(chunks) == 1 {
		query, args := BuildUpsert(t, rows, ignoreDuplicates)
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("upsert %s (%d rows): %w", t.Name, len(rows), err)
		}
		return len(rows), nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsert %s: %w", t.Name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after commit
	for _, chunk := range chunks {
		query, args := BuildUpsert(t, chunk, ignoreDuplicates)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("upsert %s (%d of %d rows): %w", t.Name, len(chunk), len(rows), err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsert %s: %w", t.Name, err)
	}
	return len(rows), nil
}

// splitRows cuts rows into runs that each fit in one statement's
// parameter limit.
func splitRows(t db.Table, rows []db.Record) [][]db.Record {
	per := maxBindParams / max(len(t.Columns), 1)
	chunks := make([][]db.Record, 0, (len(rows)+per-1)/per)
	for len(rows) > per {
		chunks = append(chunks, rows[:per])
		rows = rows[per:]
	}
	return append(chunks, rows)
}

// BuildUpsert renders the statement and its positional arguments.
func BuildUpsert(t db.Table, rows []db.Record, ignoreDuplicates bool) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgx.Identifier{t.Name}.Sanitize())
	b.WriteString(" (")
	b.WriteString(strings.Join(t.Columns, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(t.Columns))
	n := 1
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range t.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
		args = append(args, r.Values(t.Columns)...)
	}
	b.WriteString(db.UpsertClause(t, ignoreDuplicates))
	return b.String(), args
}

// Count returns the number of rows in t.
func (s *Store) Count(ctx context.Context, t db.Table) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+pgx.Identifier{t.Name}.Sanitize()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name, err)
	}
	return n, nil
}

// LookupSource returns the registry row named name.
func (s *Store) LookupSource(ctx context.Context, name string) (db.Source, error) {
	src := db.Source{Name: name}
	var desc *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, description, priority FROM dictionary_sources WHERE name = $1`, name,
	).Scan(&src.ID, &desc, &src.Priority)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.Source{}, fmt.Errorf("%w: %s", db.ErrSourceNotFound, name)
	}
	if err != nil {
		return db.Source{}, fmt.Errorf("lookup source %s: %w", name, err)
	}
	if desc != nil {
		src.Description = *desc
	}
	return src, nil
}

// CreateSource inserts src and returns it with the generated id.
func (s *Store) CreateSource(ctx context.Context, src db.Source) (db.Source, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO dictionary_sources (name, description, priority) VALUES ($1, $2, $3) RETURNING id`,
		src.Name, src.Description, src.Priority,
	).Scan(&src.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return db.Source{}, fmt.Errorf("%w: %s", db.ErrSourceExists, src.Name)
		}
		return db.Source{}, fmt.Errorf("create source %s: %w", src.Name, err)
	}
	return src, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
