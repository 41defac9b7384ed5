package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/vocabimport/pkg/db"
)

func TestBuildUpsertNumbersPlaceholders(t *testing.T) {
	tbl := db.Table{Name: "dictionary", Columns: []string{"word", "translation"}, ConflictKey: []string{"word"}}
	rows := []db.Record{
		{Word: "able", Translation: pgtype.Text{String: "能", Valid: true}},
		{Word: "abandon"},
	}

	query, args := BuildUpsert(tbl, rows, false)

	assert.Equal(t,
		`INSERT INTO "dictionary" (word, translation) VALUES ($1, $2), ($3, $4)`+
			` ON CONFLICT(word) DO UPDATE SET translation = excluded.translation`,
		query)
	require.Len(t, args, 4)
	assert.Equal(t, "able", args[0])
	assert.Equal(t, "能", args[1])
	assert.Equal(t, "abandon", args[2])
	assert.Nil(t, args[3], "absent translation must be sent as NULL")
}

func TestBuildUpsertIgnoreDuplicates(t *testing.T) {
	query, args := BuildUpsert(db.WordsUnified, []db.Record{{Word: "effort", DisplayWord: "Effort"}}, true)

	assert.Contains(t, query, "ON CONFLICT(word, source_id) DO NOTHING")
	require.Len(t, args, len(db.WordsUnified.Columns))
	assert.Equal(t, "Effort", args[1])
	assert.Equal(t, false, args[len(args)-1])
}

func TestSplitRowsRespectsParameterLimit(t *testing.T) {
	rows := make([]db.Record, 6000)
	for i := range rows {
		rows[i] = db.Record{Word: fmt.Sprintf("w%d", i)}
	}

	chunks := splitRows(db.Dictionary, rows)
	require.Len(t, chunks, 2)
	total := 0
	for _, c := range chunks {
		_, args := BuildUpsert(db.Dictionary, c, true)
		assert.LessOrEqual(t, len(args), maxBindParams)
		total += len(c)
	}
	assert.Equal(t, len(rows), total)
	assert.Equal(t, "w0", chunks[0][0].Word)
	assert.Equal(t, "w5999", chunks[1][len(chunks[1])-1].Word)
}

func TestSplitRowsKeepsSmallBatchWhole(t *testing.T) {
	rows := []db.Record{{Word: "able"}, {Word: "abandon"}}
	chunks := splitRows(db.WordsUnified, rows)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 2)
}
