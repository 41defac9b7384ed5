package dictionary

import (
	"strings"

	"github.com/japaniel/vocabimport/pkg/db"
	"github.com/japaniel/vocabimport/pkg/wordlist"
)

// Normalizer converts rows of one file into records. It is built once the
// file's header (if any) and source are known.
type Normalizer struct {
	profile Profile
	index   map[string]int
	source  db.Source
}

// NewNormalizer builds a normalizer for profile. header may be nil, in
// which case named columns follow the ECDICT order. source is attached to
// every record of a per-source profile.
func NewNormalizer(profile Profile, header []string, source db.Source) *Normalizer {
	index := make(map[string]int)
	names := header
	if len(names) == 0 {
		names = ecdictColumns
	}
	for i, h := range names {
		h = Key(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	return &Normalizer{profile: profile, index: index, source: source}
}

// Normalize maps row to a record. ok is false when the row must be dropped:
// its word is empty or the profile rejects it.
func (n *Normalizer) Normalize(row wordlist.Row) (db.Record, bool) {
	f := fields{row: row, index: n.index}
	display := strings.TrimSpace(f.at(n.wordColumn()))
	if display == "" {
		return db.Record{}, false
	}
	rec, ok := n.profile.build(f)
	if !ok {
		return db.Record{}, false
	}
	rec.Word = Key(display)
	rec.DisplayWord = display
	rec.Line = row.Line
	rec.IsAIGenerated = false
	if n.profile.PerSource {
		rec.SourceID = n.source.ID
		rec.SourceTag = n.source.Name
	}
	return rec, true
}

func (n *Normalizer) wordColumn() int {
	if n.profile.Header {
		if i, ok := n.index["word"]; ok {
			return i
		}
	}
	return 0
}
