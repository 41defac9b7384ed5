package dictionary

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Text trims s; an empty result is absent.
func Text(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// Int parses a base-10 integer. Anything else, including an empty string,
// is absent rather than zero.
func Int(s string) pgtype.Int8 {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Int8{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: n, Valid: true}
}

// Bool is true only for true, 1, yes and t, compared case-insensitively.
func Bool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "t":
		return true
	}
	return false
}

// Key returns the natural-key form of a word: trimmed, NFC-normalized and
// lowercased.
func Key(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return cases.Lower(language.Und).String(s)
}
