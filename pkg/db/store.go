package db

import (
	"context"
	"errors"
	"strings"
)

// Store is the remote store contract used by the import pipeline. A single
// client is built at startup and handed to every component that needs it.
type Store interface {
	// Upsert inserts rows into t, resolving conflicts on t.ConflictKey.
	// When ignoreDuplicates is set, conflicting rows are left untouched;
	// otherwise they are overwritten. It returns the number of rows sent.
	Upsert(ctx context.Context, t Table, rows []Record, ignoreDuplicates bool) (int, error)
	// Count returns the number of rows currently in t.
	Count(ctx context.Context, t Table) (int64, error)
	// LookupSource returns the registry row named name or ErrSourceNotFound.
	LookupSource(ctx context.Context, name string) (Source, error)
	// CreateSource inserts a registry row and returns it with its id set.
	CreateSource(ctx context.Context, src Source) (Source, error)
	Close() error
}

var (
	// ErrSourceNotFound is returned by LookupSource when no row matches.
	ErrSourceNotFound = errors.New("source not found")
	// ErrSourceExists is returned by CreateSource when a row with the same
	// name was inserted concurrently.
	ErrSourceExists = errors.New("source already exists")
)

// IsUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func IsUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSourceExists) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed") ||
		strings.Contains(s, "duplicate key")
}

// placeholders returns "?, ?, ..." for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// UpsertClause builds the ON CONFLICT clause shared by the SQL backends.
func UpsertClause(t Table, ignoreDuplicates bool) string {
	var b strings.Builder
	b.WriteString(" ON CONFLICT(")
	b.WriteString(strings.Join(t.ConflictKey, ", "))
	b.WriteString(")")
	if ignoreDuplicates {
		b.WriteString(" DO NOTHING")
		return b.String()
	}
	key := make(map[string]bool, len(t.ConflictKey))
	for _, k := range t.ConflictKey {
		key[k] = true
	}
	var sets []string
	for _, c := range t.Columns {
		if key[c] {
			continue
		}
		sets = append(sets, c+" = excluded."+c)
	}
	if len(sets) == 0 {
		b.WriteString(" DO NOTHING")
		return b.String()
	}
	b.WriteString(" DO UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))
	return b.String()
}
