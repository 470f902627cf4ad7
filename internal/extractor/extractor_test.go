package extractor_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramkansal/dexscrape/internal/extractor"
	"github.com/ramkansal/dexscrape/pkg/plugin"
)

func newExtractor(t *testing.T) *extractor.Extractor {
	t.Helper()
	return extractor.New(extractor.Options{})
}

func pikachuPage() []byte {
	return page("Pikachu",
		dexBlock("0025"),
		statsBlock(statRow("HP", "35", "7", "65")),
		movesBlock(moveRow("Thunder Shock", "1", "40", "100", "Electric", "Physical")),
	)
}

func TestExtract_Pikachu(t *testing.T) {
	rec, err := newExtractor(t).Extract(pikachuPage())
	require.NoError(t, err)

	want := &plugin.EntityRecord{
		Name:   "Pikachu",
		Number: 25,
		Attributes: map[string]plugin.StatEntry{
			"HP": {Start: 35, Min: 7, Max: 65},
		},
		Moves: []plugin.MoveEntry{
			{Name: "Thunder Shock", Level: 1, Power: 40, Accuracy: 100, Type: "Electric", Category: "Physical"},
		},
	}
	assert.Equal(t, want, rec)
}

func TestExtract_AllStatRows(t *testing.T) {
	p := page("Pikachu",
		dexBlock("25"),
		statsBlock(
			statRow("HP", "35", "180", "274"),
			statRow("Attack", "55", "103", "229"),
			statRow("Defense", "40", "76", "196"),
			statRow("Sp. Atk", "50", "94", "218"),
			statRow("Sp. Def", "50", "94", "218"),
			statRow("Speed", "90", "166", "306"),
		),
		movesBlock(),
	)

	rec, err := newExtractor(t).Extract(p)
	require.NoError(t, err)

	assert.Len(t, rec.Attributes, 6)
	assert.Equal(t, plugin.StatEntry{Start: 55, Min: 103, Max: 229}, rec.Attributes["Attack"])
	assert.Equal(t, plugin.StatEntry{Start: 90, Min: 166, Max: 306}, rec.Attributes["Speed"])
	assert.Empty(t, rec.Moves)
	assert.NotNil(t, rec.Moves)
}

func TestExtract_StatOrderingNotEnforced(t *testing.T) {
	p := page("Odd", dexBlock("7"), statsBlock(statRow("HP", "500", "10", "20")), movesBlock())

	rec, err := newExtractor(t).Extract(p)
	require.NoError(t, err)
	assert.Equal(t, plugin.StatEntry{Start: 500, Min: 10, Max: 20}, rec.Attributes["HP"])
}

func TestExtract_NonNumericPowerBecomesZero(t *testing.T) {
	p := page("Pikachu",
		dexBlock("25"),
		statsBlock(statRow("HP", "35", "7", "65")),
		movesBlock(
			moveRow("Growl", "1", "—", "100", "Normal", "Status"),
			moveRow("Thunder Wave", "4", "—", "—", "Electric", "Status"),
			moveRow("Quick Attack", "6", "40", "100", "Normal", "Physical"),
		),
	)

	rec, err := newExtractor(t).Extract(p)
	require.NoError(t, err)
	require.Len(t, rec.Moves, 3)

	assert.Equal(t, 0, rec.Moves[0].Power)
	assert.Equal(t, 100, rec.Moves[0].Accuracy)
	assert.Equal(t, 0, rec.Moves[1].Power)
	assert.Equal(t, 0, rec.Moves[1].Accuracy)
	assert.Equal(t, 40, rec.Moves[2].Power)
}

func TestExtract_EmptyMoveNameSkipsRow(t *testing.T) {
	p := page("Pikachu",
		dexBlock("25"),
		statsBlock(statRow("HP", "35", "7", "65")),
		movesBlock(
			moveRow("Tail Whip", "1", "—", "100", "Normal", "Status"),
			moveRow("", "3", "40", "100", "Normal", "Physical"),
			moveRow("Thunder Shock", "5", "40", "100", "Electric", "Special"),
		),
	)

	res, err := newExtractor(t).ExtractDetailed(p)
	require.NoError(t, err)

	names := []string{}
	for _, m := range res.Record.Moves {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Tail Whip", "Thunder Shock"}, names)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Row)
}

func TestExtract_MoveOrderPreserved(t *testing.T) {
	p := page("Pikachu",
		dexBlock("25"),
		statsBlock(statRow("HP", "35", "7", "65")),
		movesBlock(
			moveRow("Thunder", "50", "110", "70", "Electric", "Special"),
			moveRow("Agility", "24", "—", "—", "Psychic", "Status"),
			moveRow("Spark", "20", "65", "100", "Electric", "Physical"),
		),
	)

	rec, err := newExtractor(t).Extract(p)
	require.NoError(t, err)
	require.Len(t, rec.Moves, 3)
	assert.Equal(t, "Thunder", rec.Moves[0].Name)
	assert.Equal(t, "Agility", rec.Moves[1].Name)
	assert.Equal(t, "Spark", rec.Moves[2].Name)
}

func TestExtract_BadLevel(t *testing.T) {
	p := page("Pikachu",
		dexBlock("25"),
		statsBlock(statRow("HP", "35", "7", "65")),
		movesBlock(
			moveRow("Thunder Shock", "1", "40", "100", "Electric", "Special"),
			moveRow("Nuzzle", "Evo.", "20", "100", "Electric", "Physical"),
			moveRow("Spark", "20", "65", "100", "Electric", "Physical"),
		),
	)

	t.Run("skip row by default", func(t *testing.T) {
		res, err := newExtractor(t).ExtractDetailed(p)
		require.NoError(t, err)
		require.Len(t, res.Record.Moves, 2)
		assert.Equal(t, "Spark", res.Record.Moves[1].Name)

		require.Len(t, res.Skipped, 1)
		var fieldErr *extractor.FieldParseError
		require.ErrorAs(t, res.Skipped[0].Err, &fieldErr)
		assert.Equal(t, "level", fieldErr.Field)
		assert.Equal(t, "Evo.", fieldErr.Text)
	})

	t.Run("fail page when configured", func(t *testing.T) {
		ext := extractor.New(extractor.Options{BadMoveRow: extractor.BadMoveRowFail})
		rec, err := ext.Extract(p)
		assert.Nil(t, rec)

		var malformed *extractor.MalformedPageError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, extractor.BlockMoves, malformed.Block)

		var fieldErr *extractor.FieldParseError
		assert.ErrorAs(t, err, &fieldErr)
	})
}

func TestExtract_MoveRowWrongCellCount(t *testing.T) {
	short := `<tr><td class="cell-num">1</td><td class="cell-name"><a>Growl</a></td>` +
		`<td class="cell-icon"><a>Normal</a></td><td class="cell-num">—</td></tr>`
	p := page("Pikachu",
		dexBlock("25"),
		statsBlock(statRow("HP", "35", "7", "65")),
		movesBlock(short, moveRow("Spark", "20", "65", "100", "Electric", "Physical")),
	)

	res, err := newExtractor(t).ExtractDetailed(p)
	require.NoError(t, err)
	require.Len(t, res.Record.Moves, 1)
	require.Len(t, res.Skipped, 1)
	assert.ErrorIs(t, res.Skipped[0].Err, extractor.ErrCellCount)
}

func TestExtract_MissingStatsBlock(t *testing.T) {
	p := page("Pikachu",
		dexBlock("25"),
		movesBlock(moveRow("Thunder Shock", "1", "40", "100", "Electric", "Physical")),
	)

	rec, err := newExtractor(t).Extract(p)
	assert.Nil(t, rec)

	var malformed *extractor.MalformedPageError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, extractor.BlockStats, malformed.Block)
}

func TestExtract_StatRowWrongCellCountFailsPage(t *testing.T) {
	p := page("Pikachu",
		dexBlock("25"),
		statsBlock(statRow("HP", "35", "7", "65"), statRow("Attack", "55", "103")),
		movesBlock(),
	)

	_, err := newExtractor(t).Extract(p)

	var malformed *extractor.MalformedPageError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, extractor.BlockStats, malformed.Block)
	assert.ErrorIs(t, err, extractor.ErrCellCount)
}

func TestExtract_StatRowNonNumericFailsPage(t *testing.T) {
	p := page("Pikachu", dexBlock("25"), statsBlock(statRow("HP", "35", "?", "65")), movesBlock())

	_, err := newExtractor(t).Extract(p)

	var fieldErr *extractor.FieldParseError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "min", fieldErr.Field)
}

func TestExtract_EmptyStatTableIsAllowed(t *testing.T) {
	p := page("Missingno", dexBlock("1"), statsBlock(), movesBlock())

	rec, err := newExtractor(t).Extract(p)
	require.NoError(t, err)
	assert.Empty(t, rec.Attributes)
}

func TestExtract_Number(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{name: "non numeric", text: "abc"},
		{name: "zero", text: "0"},
		{name: "negative", text: "-4"},
		{name: "empty", text: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := page("X", dexBlock(tc.text), statsBlock(), movesBlock())

			_, err := newExtractor(t).Extract(p)

			var malformed *extractor.MalformedPageError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, extractor.BlockDexData, malformed.Block)
			var fieldErr *extractor.FieldParseError
			assert.ErrorAs(t, err, &fieldErr)
		})
	}

	t.Run("missing block", func(t *testing.T) {
		_, err := newExtractor(t).Extract(page("X", statsBlock(), movesBlock()))
		var malformed *extractor.MalformedPageError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, extractor.BlockDexData, malformed.Block)
	})
}

func TestExtract_MissingMovesBlock(t *testing.T) {
	p := page("Smeargle", dexBlock("235"), statsBlock(statRow("HP", "55", "220", "314")))

	t.Run("fails by default", func(t *testing.T) {
		_, err := newExtractor(t).Extract(p)
		var malformed *extractor.MalformedPageError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, extractor.BlockMoves, malformed.Block)
	})

	t.Run("empty list when configured", func(t *testing.T) {
		ext := extractor.New(extractor.Options{MissingMoves: extractor.MissingMovesEmpty})
		rec, err := ext.Extract(p)
		require.NoError(t, err)
		assert.Equal(t, 235, rec.Number)
		assert.Empty(t, rec.Moves)
	})
}

func TestExtract_MovesBlockWithoutTableAlwaysFails(t *testing.T) {
	noTable := `<div class="grid-col"><h3>Moves learnt by level up</h3><p>None.</p></div>`
	p := page("X", dexBlock("5"), statsBlock(), noTable)

	ext := extractor.New(extractor.Options{MissingMoves: extractor.MissingMovesEmpty})
	_, err := ext.Extract(p)

	var malformed *extractor.MalformedPageError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "no table", malformed.Reason)
}

func TestExtract_Idempotent(t *testing.T) {
	ext := newExtractor(t)
	p := pikachuPage()

	first, err := ext.Extract(p)
	require.NoError(t, err)
	second, err := ext.Extract(p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractPage_CarriesServedURL(t *testing.T) {
	ext := newExtractor(t)
	page := &plugin.PageData{
		URL:      "https://pokemondb.net/pokedex/25",
		FinalURL: "https://pokemondb.net/pokedex/pikachu",
		RawHTML:  string(pikachuPage()),
	}

	res, err := ext.ExtractPage(page)
	require.NoError(t, err)
	assert.Equal(t, "https://pokemondb.net/pokedex/pikachu", res.Record.SourceURL)

	rec, err := ext.Extract(pikachuPage())
	require.NoError(t, err)
	assert.Empty(t, rec.SourceURL)
}

func TestExtract_CustomHeadings(t *testing.T) {
	p := []byte(`<html><body><main id="main"><h1>Custom</h1>
<div><h2>Dex</h2><table><tr><th>No</th><td><strong>9</strong></td></tr></table></div>
<div><h2>Stats</h2><div><table><tr><th>HP</th><td class="cell-num">1</td><td class="cell-num">2</td><td class="cell-num">3</td></tr></table></div></div>
</main></body></html>`)

	ext := extractor.New(extractor.Options{
		Selectors:    extractor.Selectors{DexHeading: "Dex", StatsHeading: "Stats"},
		MissingMoves: extractor.MissingMovesEmpty,
	})
	rec, err := ext.Extract(p)
	require.NoError(t, err)
	assert.Equal(t, 9, rec.Number)
	assert.Equal(t, plugin.StatEntry{Start: 1, Min: 2, Max: 3}, rec.Attributes["HP"])
}

func TestParsePolicies(t *testing.T) {
	mm, err := extractor.ParseMissingMovesPolicy(" Empty ")
	require.NoError(t, err)
	assert.Equal(t, extractor.MissingMovesEmpty, mm)

	mm, err = extractor.ParseMissingMovesPolicy("")
	require.NoError(t, err)
	assert.Equal(t, extractor.MissingMovesFail, mm)

	_, err = extractor.ParseMissingMovesPolicy("ignore")
	assert.Error(t, err)

	br, err := extractor.ParseBadMoveRowPolicy("FAIL")
	require.NoError(t, err)
	assert.Equal(t, extractor.BadMoveRowFail, br)

	_, err = extractor.ParseBadMoveRowPolicy("drop")
	assert.Error(t, err)
}

func TestMalformedPageError_Message(t *testing.T) {
	err := &extractor.MalformedPageError{Block: "base stats", Reason: "no table"}
	assert.Equal(t, "malformed page: base stats: no table", err.Error())
	assert.False(t, errors.Is(err, extractor.ErrCellCount))
}
