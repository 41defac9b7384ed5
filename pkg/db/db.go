package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var migrationsSQL string

// InitDB runs migrations on the given DB connection using the embedded SQL.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore is a Store backed by a local SQLite database. It serves
// offline imports and tests.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// Ensure single connection to avoid separate in-memory DBs per connection.
		conn.SetMaxOpenConns(1)
	}
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return &SQLiteStore{conn: conn}, nil
}

// NewSQLiteStore wraps an already migrated connection.
func NewSQLiteStore(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{conn: conn}
}

// DB exposes the underlying connection.
func (s *SQLiteStore) DB() *sql.DB { return s.conn }

// Upsert writes all rows inside one transaction; any failing row rolls
// back the whole batch.
func (s *SQLiteStore) Upsert(ctx context.Context, t Table, rows []Record, ignoreDuplicates bool) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	query := "INSERT INTO " + t.Name + " (" + strings.Join(t.Columns, ", ") + ") VALUES (" +
		placeholders(len(t.Columns)) + ")" + UpsertClause(t, ignoreDuplicates)

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert %s: %w", t.Name, err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Values(t.Columns)...); err != nil {
			return 0, fmt.Errorf("upsert %s %q: %w", t.Name, r.Key(t), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert (%d rows): %w", len(rows), err)
	}
	return len(rows), nil
}

// Count returns the number of rows in t.
func (s *SQLiteStore) Count(ctx context.Context, t Table) (int64, error) {
	var n int64
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.Name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name, err)
	}
	return n, nil
}

// LookupSource returns the registry row named name.
func (s *SQLiteStore) LookupSource(ctx context.Context, name string) (Source, error) {
	return lookupSource(ctx, s.conn, name)
}

// CreateSource inserts src with a fresh uuid.
func (s *SQLiteStore) CreateSource(ctx context.Context, src Source) (Source, error) {
	return createSource(ctx, s.conn, src)
}

// Close closes the connection.
func (s *SQLiteStore) Close() error { return s.conn.Close() }

func lookupSource(ctx context.Context, db DBExecutor, name string) (Source, error) {
	var (
		id   string
		desc sql.NullString
		src  = Source{Name: name}
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, description, priority FROM `+SourcesTable+` WHERE name = ?`, name,
	).Scan(&id, &desc, &src.Priority)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	if err != nil {
		return Source{}, fmt.Errorf("lookup source %s: %w", name, err)
	}
	if err := src.ID.Scan(id); err != nil {
		return Source{}, fmt.Errorf("source %s has invalid id %q: %w", name, id, err)
	}
	src.Description = desc.String
	return src, nil
}

func createSource(ctx context.Context, db DBExecutor, src Source) (Source, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		return Source{}, fmt.Errorf("source name must be non-empty")
	}
	id := uuid.New()
	_, err := db.ExecContext(ctx,
		`INSERT INTO `+SourcesTable+` (id, name, description, priority) VALUES (?, ?, ?, ?)`,
		id.String(), name, src.Description, src.Priority,
	)
	if err != nil {
		if IsUniqueConstraintErr(err) {
			return Source{}, fmt.Errorf("%w: %s", ErrSourceExists, name)
		}
		return Source{}, fmt.Errorf("create source %s: %w", name, err)
	}
	src.Name = name
	src.ID.Bytes = id
	src.ID.Valid = true
	return src, nil
}
