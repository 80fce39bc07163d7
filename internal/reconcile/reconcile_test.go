package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardid/cardid-server/internal/domain"
)

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name      string
		breakdown string
		want      string
		ok        bool
	}{
		{"ordered", "Position 1: 4, Position 2: /, Position 3: 1, Position 4: 0, Position 5: 2", "4/102", true},
		{"out of order", "position 3: 2, position 1: 1, position 2: /", "1/2", true},
		{"case and spacing", "POSITION 1 : S, position 2: W, position 3:S, position 4: H, position 5: 0, position 6: 3, position 7: 9", "SWSH039", true},
		{"empty", "", "", false},
		{"no tokens", "the number is 4/102", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Reconstruct(tt.breakdown)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconcile_NoBreakdownIsPassThrough(t *testing.T) {
	q := domain.RawCardQuery{Name: "Charizard", PrintedNumberRaw: "4/102"}

	got, override, corrections := Reconcile(q, "")
	assert.Equal(t, q, got)
	assert.Nil(t, override)
	assert.Empty(t, corrections)
}

func TestReconcile_OverridesHallucinatedNumberAndSet(t *testing.T) {
	q := domain.RawCardQuery{
		Name:             "Charizard",
		PrintedNumberRaw: "4/109",
		SetTotalHint:     "109",
		SetNameHint:      "Ruby & Sapphire",
		YearHint:         "2003",
	}
	breakdown := "Position 1: 4, Position 2: /, Position 3: 1, Position 4: 0, Position 5: 2"

	got, override, corrections := Reconcile(q, breakdown)

	assert.Equal(t, "4/102", got.PrintedNumberRaw)
	assert.Equal(t, "102", got.SetTotalHint)
	assert.Equal(t, "Base Set", got.SetNameHint)
	assert.Equal(t, "1999", got.YearHint)

	// Input is never mutated.
	assert.Equal(t, "4/109", q.PrintedNumberRaw)

	require.NotNil(t, override)
	assert.True(t, override.HadMismatch)
	assert.True(t, override.DenominatorHit)
	assert.Equal(t, "4/109", override.StatedNumber)
	assert.Equal(t, "4/102", override.Reconstructed)
	assert.Equal(t, "Ruby & Sapphire", override.StatedSetName)
	assert.Equal(t, "Base Set", override.FinalSetName)
	assert.Equal(t, "1999", override.FinalYear)

	fields := make(map[string]domain.Correction)
	for _, c := range corrections {
		assert.Equal(t, domain.SourceOCR, c.Source)
		fields[c.Field] = c
	}
	assert.Len(t, fields, 4)
	assert.Equal(t, "4/102", fields["printed_number"].Corrected)
	assert.Equal(t, "102", fields["set_total"].Corrected)
	assert.Equal(t, "Base Set", fields["set_name"].Corrected)
	assert.Equal(t, "2003", fields["year"].Original)
}

func TestReconcile_UnknownDenominatorKeepsSet(t *testing.T) {
	q := domain.RawCardQuery{
		Name:             "Pikachu",
		PrintedNumberRaw: "25/198",
		SetNameHint:      "Scarlet & Violet",
		YearHint:         "2023",
	}

	got, override, corrections := Reconcile(q, "position 1: 2, position 2: 5, position 3: /, position 4: 1, position 5: 9, position 6: 8")

	require.NotNil(t, override)
	assert.False(t, override.HadMismatch)
	assert.False(t, override.DenominatorHit)
	assert.Equal(t, "Scarlet & Violet", got.SetNameHint)
	assert.Equal(t, "198", got.SetTotalHint)
	require.Len(t, corrections, 1)
	assert.Equal(t, "set_total", corrections[0].Field)
}

func TestLookupDenominator(t *testing.T) {
	set, ok := LookupDenominator(62)
	require.True(t, ok)
	assert.Equal(t, "Fossil", set.Name)
	assert.Equal(t, 1999, set.Year)
	assert.Equal(t, "WOTC", set.Era)

	_, ok = LookupDenominator(198)
	assert.False(t, ok)
}
