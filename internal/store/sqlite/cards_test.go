package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/errors"
)

func ids(cards []domain.ReferenceCard) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

func TestQueryByNameNumber(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	cards, err := s.QueryByNameNumber(ctx, "charizard", "4")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	c := cards[0]
	assert.Equal(t, "base1-4", c.ID)
	assert.Equal(t, "Base", c.Set.Name)
	assert.Equal(t, 102, c.Set.PrintedTotal)
	assert.Equal(t, "Mitsuhiro Arita", c.Artist)
	require.Len(t, c.Prices, 1)
	assert.Equal(t, 350.5, c.Prices[0].Market)

	// Empty number matches any number; whole-word suffixes match.
	cards, err = s.QueryByNameNumber(ctx, "Pikachu", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"base1-58", "base2-60", "swshp-SWSH039", "svp-85", "svp-86"}, ids(cards))

	// Numbers compare case-insensitively.
	cards, err = s.QueryByNameNumber(ctx, "Pikachu", "swsh039")
	require.NoError(t, err)
	assert.Equal(t, []string{"swshp-SWSH039"}, ids(cards))

	cards, err = s.QueryByNameNumber(ctx, "Mewtwo", "10")
	require.NoError(t, err)
	assert.Empty(t, cards)

	cards, err = s.QueryByNameNumber(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestQueryByNameNumberPrintedTotal(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	cards, err := s.QueryByNameNumberPrintedTotal(ctx, "Charizard", "4", 102)
	require.NoError(t, err)
	assert.Equal(t, []string{"base1-4"}, ids(cards))

	cards, err = s.QueryByNameNumberPrintedTotal(ctx, "Charizard", "4", 109)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestQueryByNameNumberSetName(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	cards, err := s.QueryByNameNumberSetName(ctx, "Pikachu", "60", "jungle")
	require.NoError(t, err)
	assert.Equal(t, []string{"base2-60"}, ids(cards))

	cards, err = s.QueryByNameNumberSetName(ctx, "Pikachu", "", "Black Star")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"swshp-SWSH039", "svp-85", "svp-86"}, ids(cards))
}

func TestQueryByNameNumberSetID(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	cards, err := s.QueryByNameNumberSetID(ctx, "Pikachu", "85", "svp")
	require.NoError(t, err)
	assert.Equal(t, []string{"svp-85"}, ids(cards))

	// Name is optional inside a partition.
	cards, err = s.QueryByNameNumberSetID(ctx, "", "86", "svp")
	require.NoError(t, err)
	assert.Equal(t, []string{"svp-86"}, ids(cards))
}

func TestQueryFuzzyNumber(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	m, err := s.QueryFuzzyNumber(ctx, "Pikachu", "59", "base2", 3)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "base2-60", m.Card.ID)
	assert.Equal(t, "60", m.MatchedNumber)

	// Without a set, the nearest number wins: 57 is one away from 58 and
	// three away from 60.
	m, err = s.QueryFuzzyNumber(ctx, "Pikachu", "57", "", 3)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "base1-58", m.Card.ID)

	m, err = s.QueryFuzzyNumber(ctx, "Pikachu", "20", "", 3)
	require.NoError(t, err)
	assert.Nil(t, m)

	// Exact numbers are not fuzzy matches.
	m, err = s.QueryFuzzyNumber(ctx, "Charizard", "4", "", 0)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestGetCard(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	c, err := s.GetCard(ctx, "svp-85")
	require.NoError(t, err)
	assert.Equal(t, "Pikachu", c.Name)
	assert.Equal(t, "svp", c.Set.ID)

	_, err = s.GetCard(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUpsertCards(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)
	ctx := context.Background()

	updated := domain.ReferenceCard{ID: "base1-4", Name: "Charizard", Number: "4", Set: baseSet, Rarity: "Holo Rare"}
	n, err := s.UpsertCards(ctx, []domain.ReferenceCard{updated})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, err := s.GetCard(ctx, "base1-4")
	require.NoError(t, err)
	assert.Equal(t, "Holo Rare", c.Rarity)
	assert.Empty(t, c.Prices)

	count, err := s.CountCards(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	_, err = s.UpsertCards(ctx, []domain.ReferenceCard{{ID: "x", Name: "No Set"}})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestForEachName(t *testing.T) {
	s := newTestStore(t)
	seedCatalog(t, s)

	var names []string
	err := s.ForEachName(context.Background(), func(name string) error {
		names = append(names, name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Blastoise", "Charizard", "Pikachu", "Pikachu ex"}, names)
}
