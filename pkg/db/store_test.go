package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	_ "github.com/mattn/go-sqlite3"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func word(w string) Record {
	return Record{Word: w, DisplayWord: w, Translation: pgtype.Text{String: "t-" + w, Valid: true}}
}

func TestCreateAndLookupSource(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.LookupSource(ctx, "托福"); !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
	created, err := s.CreateSource(ctx, Source{Name: "托福", Description: "托福 word list import", Priority: 30})
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	if !created.ID.Valid {
		t.Fatalf("expected created source to carry an id")
	}
	got, err := s.LookupSource(ctx, "托福")
	if err != nil {
		t.Fatalf("lookup source: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected same source id, got %s and %s", UUIDString(got.ID), UUIDString(created.ID))
	}
	if got.Priority != 30 {
		t.Fatalf("expected priority 30, got %d", got.Priority)
	}

	if _, err := s.CreateSource(ctx, Source{Name: "托福"}); !errors.Is(err, ErrSourceExists) {
		t.Fatalf("expected ErrSourceExists on duplicate, got %v", err)
	}
}

func TestUpsertDictionaryIgnoresDuplicates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := Record{Word: "able", Translation: pgtype.Text{String: "能", Valid: true}, Oxford: true}
	if _, err := s.Upsert(ctx, Dictionary, []Record{first, word("abandon")}, true); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second := Record{Word: "able", Translation: pgtype.Text{String: "changed", Valid: true}}
	if _, err := s.Upsert(ctx, Dictionary, []Record{second}, true); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var translation string
	var oxford bool
	var collins *int64
	err := s.DB().QueryRow(`SELECT translation, oxford, collins FROM dictionary WHERE word = ?`, "able").Scan(&translation, &oxford, &collins)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if translation != "能" {
		t.Fatalf("expected ignored duplicate to keep 能, got %s", translation)
	}
	if !oxford {
		t.Fatalf("expected oxford=true")
	}
	if collins != nil {
		t.Fatalf("expected absent collins to be NULL, got %d", *collins)
	}

	n, err := s.Count(ctx, Dictionary)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

func TestUpsertWordsUnifiedOverwritesPerSource(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	gaokao, err := s.CreateSource(ctx, Source{Name: "高中"})
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	toefl, err := s.CreateSource(ctx, Source{Name: "托福"})
	if err != nil {
		t.Fatalf("create source: %v", err)
	}

	a := word("able")
	a.SourceID = gaokao.ID
	b := word("able")
	b.SourceID = toefl.ID
	if _, err := s.Upsert(ctx, WordsUnified, []Record{a, b}, false); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	a.Translation = pgtype.Text{String: "updated", Valid: true}
	if _, err := s.Upsert(ctx, WordsUnified, []Record{a}, false); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	n, err := s.Count(ctx, WordsUnified)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected one row per (word, source), got %d", n)
	}
	var translation string
	err = s.DB().QueryRow(`SELECT translation FROM words_unified WHERE word = ? AND source_id = ?`, "able", UUIDString(gaokao.ID)).Scan(&translation)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if translation != "updated" {
		t.Fatalf("expected overwrite on conflict, got %s", translation)
	}
}

func TestUpsertRollsBackWholeBatch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	src, err := s.CreateSource(ctx, Source{Name: "考研"})
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	good := word("effort")
	good.SourceID = src.ID
	// source_id is NOT NULL, so the last row fails after the first was written.
	rows := []Record{good, word("orphan")}

	if _, err := s.Upsert(ctx, WordsUnified, rows, false); err == nil {
		t.Fatalf("expected batch with missing source_id to fail")
	}
	n, err := s.Count(ctx, WordsUnified)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected failed batch to leave no rows, got %d", n)
	}
}

func TestUpsertClause(t *testing.T) {
	got := UpsertClause(WordsUnified, true)
	if got != " ON CONFLICT(word, source_id) DO NOTHING" {
		t.Fatalf("unexpected ignore clause: %q", got)
	}
	got = UpsertClause(Table{Name: "t", Columns: []string{"word", "translation"}, ConflictKey: []string{"word"}}, false)
	if got != " ON CONFLICT(word) DO UPDATE SET translation = excluded.translation" {
		t.Fatalf("unexpected merge clause: %q", got)
	}
}

func TestRecordKey(t *testing.T) {
	r := Record{Word: "able", SourceTag: "托福"}
	if got := r.Key(Dictionary); got != "able" {
		t.Fatalf("expected able, got %s", got)
	}
	if got := r.Key(WordsUnified); got != "able/托福" {
		t.Fatalf("expected able/托福, got %s", got)
	}
}
