package dictionary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/japaniel/vocabimport/pkg/db"
)

// DefaultSourcePriority is the priority given to sources created by an import.
const DefaultSourcePriority = 30

// SourceStore is the subset of db.Store the resolver needs.
type SourceStore interface {
	LookupSource(ctx context.Context, name string) (db.Source, error)
	CreateSource(ctx context.Context, src db.Source) (db.Source, error)
}

// SourceResolver maps source tags to registry rows, creating missing rows.
// Each tag is resolved against the store at most once per resolver.
type SourceResolver struct {
	store    SourceStore
	priority int

	mu    sync.Mutex
	cache map[string]db.Source
}

// NewSourceResolver returns a resolver creating sources with priority.
func NewSourceResolver(store SourceStore, priority int) *SourceResolver {
	return &SourceResolver{store: store, priority: priority, cache: make(map[string]db.Source)}
}

// Resolve returns the source named tag, creating it when it does not exist.
func (r *SourceResolver) Resolve(ctx context.Context, tag string) (db.Source, error) {
	name := strings.TrimSpace(tag)
	if name == "" {
		return db.Source{}, fmt.Errorf("source tag must be non-empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if src, ok := r.cache[name]; ok {
		return src, nil
	}

	const maxRetries = 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		// First, try to find an existing source.
		src, err := r.store.LookupSource(ctx, name)
		if err == nil {
			r.cache[name] = src
			return src, nil
		}
		if !errors.Is(err, db.ErrSourceNotFound) {
			return db.Source{}, err
		}

		src, err = r.store.CreateSource(ctx, db.Source{
			Name:        name,
			Description: name + " word list import",
			Priority:    r.priority,
		})
		if err != nil {
			// Another importer inserted the same source; retry the lookup.
			if db.IsUniqueConstraintErr(err) {
				continue
			}
			return db.Source{}, err
		}
		r.cache[name] = src
		return src, nil
	}
	return db.Source{}, fmt.Errorf("could not create or get source %s after %d retries", name, maxRetries)
}
