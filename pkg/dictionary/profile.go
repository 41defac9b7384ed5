// Package dictionary turns raw word-list rows into records for the store.
package dictionary

import (
	"github.com/japaniel/vocabimport/pkg/db"
	"github.com/japaniel/vocabimport/pkg/wordlist"
)

// Profile describes one kind of word list: how its rows map onto a table
// and how the table is loaded.
type Profile struct {
	Name  string
	Table db.Table
	// Header is set when the file starts with a column-name row.
	Header bool
	// IgnoreDuplicates keeps existing rows on conflict instead of
	// overwriting them.
	IgnoreDuplicates bool
	BatchSize        int
	// Candidates are the default locations searched when no path is given.
	Candidates []string
	// PerSource rows carry the id of a registry source.
	PerSource bool

	build func(f fields) (db.Record, bool)
}

// ecdictColumns is the ECDICT column order, used when a file has no header.
var ecdictColumns = []string{
	"word", "phonetic", "definition", "translation", "pos",
	"collins", "oxford", "tag", "bnc", "frq", "exchange",
}

// ECDICT loads the ECDICT English-Chinese dictionary dump into the
// reference dictionary table.
var ECDICT = Profile{
	Name:             "ecdict",
	Table:            db.Dictionary,
	Header:           true,
	IgnoreDuplicates: true,
	BatchSize:        500,
	Candidates:       []string{"ecdict.csv", "../ecdict.csv"},
	build: func(f fields) (db.Record, bool) {
		return db.Record{
			Phonetic:    Text(f.get("phonetic")),
			Definition:  Text(f.get("definition")),
			Translation: Text(f.get("translation")),
			POS:         Text(f.get("pos")),
			Collins:     Int(f.get("collins")),
			Oxford:      Bool(f.get("oxford")),
			Tag:         Text(f.get("tag")),
			BNC:         Int(f.get("bnc")),
			FRQ:         Int(f.get("frq")),
			Exchange:    Text(f.get("exchange")),
		}, true
	},
}

// Translation loads word,translation pairs as a per-source list. Rows
// without a translation carry nothing worth storing and are dropped.
var Translation = Profile{
	Name:             "word_translation",
	Table:            db.WordsUnified,
	IgnoreDuplicates: true,
	BatchSize:        500,
	Candidates: []string{
		"word_translation.csv", "../word_translation.csv",
		"word_translation.txt", "../word_translation.txt",
	},
	PerSource: true,
	build: func(f fields) (db.Record, bool) {
		tr := Text(f.at(1))
		if !tr.Valid {
			return db.Record{}, false
		}
		return db.Record{Translation: tr}, true
	},
}

// VocabList loads exam vocabulary lists of the form "word<TAB>pos. meaning".
// The single meaning column fills both definition and translation, and
// re-imports overwrite earlier rows.
var VocabList = Profile{
	Name:             "vocab",
	Table:            db.WordsUnified,
	IgnoreDuplicates: false,
	BatchSize:        200,
	PerSource:        true,
	build: func(f fields) (db.Record, bool) {
		def := Text(f.at(1))
		return db.Record{Definition: def, Translation: def}, true
	},
}

// Profiles lists the built-in profiles by name.
var Profiles = map[string]Profile{
	ECDICT.Name:      ECDICT,
	Translation.Name: Translation,
	VocabList.Name:   VocabList,
}

// fields gives positional and, when a header exists, named access to a row.
type fields struct {
	row   wordlist.Row
	index map[string]int
}

func (f fields) at(i int) string {
	if i < 0 || i >= len(f.row.Fields) {
		return ""
	}
	return f.row.Fields[i]
}

func (f fields) get(name string) string {
	i, ok := f.index[name]
	if !ok {
		return ""
	}
	return f.at(i)
}
