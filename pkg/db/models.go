package db

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Record is one normalized word-list entry ready for upsert.
// Optional fields use pgtype values; an invalid value is stored as NULL.
type Record struct {
	Word        string
	DisplayWord string
	Phonetic    pgtype.Text
	Definition  pgtype.Text
	Translation pgtype.Text
	POS         pgtype.Text
	Tag         pgtype.Text
	Exchange    pgtype.Text
	Example     pgtype.Text
	Collins     pgtype.Int8
	BNC         pgtype.Int8
	FRQ         pgtype.Int8
	Oxford      bool

	SourceID      pgtype.UUID
	SourceTag     string
	IsAIGenerated bool

	// Line is the input line the record came from. It is not stored.
	Line int
}

// Key returns the natural key of the record for the given table, used to
// attribute per-record failures.
func (r Record) Key(t Table) string {
	if len(t.ConflictKey) <= 1 {
		return r.Word
	}
	parts := make([]string, 0, len(t.ConflictKey))
	for _, c := range t.ConflictKey {
		switch c {
		case "word":
			parts = append(parts, r.Word)
		case "source_id":
			parts = append(parts, r.SourceTag)
		default:
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "/")
}

// Value returns the column value of the record. Absent optional values
// are returned as nil so every backend writes NULL.
func (r Record) Value(column string) any {
	switch column {
	case "word":
		return r.Word
	case "display_word":
		if r.DisplayWord == "" {
			return r.Word
		}
		return r.DisplayWord
	case "phonetic":
		return text(r.Phonetic)
	case "definition":
		return text(r.Definition)
	case "translation":
		return text(r.Translation)
	case "pos":
		return text(r.POS)
	case "tag":
		return text(r.Tag)
	case "exchange":
		return text(r.Exchange)
	case "example":
		return text(r.Example)
	case "collins":
		return int8Value(r.Collins)
	case "bnc":
		return int8Value(r.BNC)
	case "frq":
		return int8Value(r.FRQ)
	case "oxford":
		return r.Oxford
	case "source_id":
		if !r.SourceID.Valid {
			return nil
		}
		return UUIDString(r.SourceID)
	case "is_ai_generated":
		return r.IsAIGenerated
	}
	return nil
}

// Values returns the record's values in column order.
func (r Record) Values(columns []string) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = r.Value(c)
	}
	return out
}

// Row returns the record as a column map.
func (r Record) Row(columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		out[c] = r.Value(c)
	}
	return out
}

func text(t pgtype.Text) any {
	if !t.Valid {
		return nil
	}
	return t.String
}

func int8Value(i pgtype.Int8) any {
	if !i.Valid {
		return nil
	}
	return i.Int64
}

// UUIDString formats a uuid column value in canonical form, or "" when unset.
func UUIDString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// Source is a row of the dictionary_sources registry.
type Source struct {
	ID          pgtype.UUID
	Name        string
	Description string
	Priority    int
}

// Table describes an upsert target: its columns and the conflict key the
// store deduplicates on.
type Table struct {
	Name        string
	Columns     []string
	ConflictKey []string
}

// Dictionary is the ECDICT reference table keyed by word.
var Dictionary = Table{
	Name: "dictionary",
	Columns: []string{
		"word", "phonetic", "definition", "translation", "pos",
		"collins", "oxford", "tag", "bnc", "frq", "exchange",
	},
	ConflictKey: []string{"word"},
}

// WordsUnified holds per-source vocabulary rows keyed by (word, source_id).
var WordsUnified = Table{
	Name: "words_unified",
	Columns: []string{
		"word", "display_word", "phonetic", "translation", "definition",
		"example", "source_id", "is_ai_generated",
	},
	ConflictKey: []string{"word", "source_id"},
}

// SourcesTable is the name of the sources registry.
const SourcesTable = "dictionary_sources"
