package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardid/cardid-server/internal/catalog"
	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/match"
)

func charizardCatalog() *fakeLocal {
	return &fakeLocal{cards: []domain.ReferenceCard{card("base1-4", "Charizard", "4", baseSet)}}
}

func TestResolve_ExactFraction(t *testing.T) {
	local := charizardCatalog()
	r := New(local)

	res := r.Resolve(context.Background(), domain.RawCardQuery{
		Name:             "Charizard",
		PrintedNumberRaw: "4/102",
		SetTotalHint:     "102",
	}, "")

	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Card)
	assert.Equal(t, "base1-4", res.Card.ID)
	assert.Equal(t, domain.ConfidenceHigh, res.Confidence)
	assert.Equal(t, domain.MethodPrintedTotal, res.Method)
	assert.NotNil(t, res.Corrections)
	assert.Empty(t, res.Corrections)
	assert.Equal(t, "fraction", res.Format)
	assert.Equal(t, []string{"4"}, res.Variants)
	assert.Nil(t, res.Override)
	assert.Equal(t, "printed_total:Charizard:4:102", local.Calls()[0])
}

func TestResolve_PromoPartitionFirst(t *testing.T) {
	local := &fakeLocal{cards: []domain.ReferenceCard{
		card("sv1-85", "Pikachu", "85", paldea),
		card("svp-85", "Pikachu", "85", promoSV),
	}}
	r := New(local)

	res := r.Resolve(context.Background(), domain.RawCardQuery{Name: "Pikachu", PrintedNumberRaw: "SVP EN 085"}, "")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "svp-85", res.Card.ID)
	assert.Equal(t, domain.MethodSetPartition, res.Method)
	assert.Equal(t, "promo_b", res.Format)
	assert.Equal(t, []string{"85", "085"}, res.Variants)
	assert.Equal(t, []string{"set_id:Pikachu:85:svp"}, local.Calls())
}

func TestResolve_BreakdownOverridesStatedNumber(t *testing.T) {
	local := charizardCatalog()
	r := New(local)

	res := r.Resolve(context.Background(), domain.RawCardQuery{
		Name:             "Charizard",
		PrintedNumberRaw: "4/109",
		SetTotalHint:     "109",
		SetNameHint:      "Ruby & Sapphire",
		YearHint:         "2003",
	}, "Position 1: 4, Position 2: /, Position 3: 1, Position 4: 0, Position 5: 2")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "base1-4", res.Card.ID)
	assert.Equal(t, "printed_total:Charizard:4:102", local.Calls()[0])

	require.NotNil(t, res.Override)
	assert.True(t, res.Override.HadMismatch)
	assert.True(t, res.Override.DenominatorHit)
	assert.Equal(t, "Base Set", res.Override.FinalSetName)

	assert.Contains(t, res.Corrections, domain.Correction{
		Field:     "printed_number",
		Original:  "4/109",
		Corrected: "4/102",
		Source:    domain.SourceOCR,
	})
}

func TestResolve_YearMismatchRejected(t *testing.T) {
	local := &fakeLocal{cards: []domain.ReferenceCard{card("sv3pt5-4", "Charizard", "4", mew151)}}
	r := New(local)

	res := r.Resolve(context.Background(), domain.RawCardQuery{
		Name:             "Charizard",
		PrintedNumberRaw: "4",
		YearHint:         "1999",
	}, "")

	assert.False(t, res.Success)
	assert.Nil(t, res.Card)
	assert.Equal(t, domain.MethodNone, res.Method)
	assert.Equal(t, domain.ConfidenceLow, res.Confidence)
	assert.Equal(t, "year mismatch: expected ~1999, found 2023", res.Error)
	require.NotNil(t, res.Match)
	assert.Equal(t, "sv3pt5-4", res.Match.Card.ID)
}

func TestResolve_DenominatorMismatch(t *testing.T) {
	q := domain.RawCardQuery{Name: "Charizard", PrintedNumberRaw: "4/110"}

	res := New(charizardCatalog()).Resolve(context.Background(), q, "")
	assert.False(t, res.Success)
	assert.Equal(t, "set mismatch: card shows /110 but matched set has 102 cards", res.Error)

	settings := match.DefaultSettings()
	settings.Thresholds.RejectDenominatorMismatch = false
	res = New(charizardCatalog(), WithSettings(settings)).Resolve(context.Background(), q, "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "below the 0.70 threshold")
}

func TestResolve_NoInput(t *testing.T) {
	local := charizardCatalog()
	r := New(local)

	res := r.Resolve(context.Background(), domain.RawCardQuery{Name: "unknown", PrintedNumberRaw: " "}, "")

	assert.False(t, res.Success)
	assert.Equal(t, reasonNoInput, res.Error)
	assert.NotNil(t, res.Corrections)
	assert.Equal(t, "none", res.Format)
	assert.Empty(t, local.Calls())
}

func TestResolve_NoMatch(t *testing.T) {
	r := New(charizardCatalog())

	res := r.Resolve(context.Background(), domain.RawCardQuery{Name: "Blastoise", PrintedNumberRaw: "2/102"}, "")

	assert.False(t, res.Success)
	assert.Equal(t, reasonNoMatch, res.Error)
	assert.Nil(t, res.Match)
}

func TestResolve_LocalErrorIsAMiss(t *testing.T) {
	local := charizardCatalog()
	local.err = errors.New("disk I/O error")

	res := New(local).Resolve(context.Background(), domain.RawCardQuery{Name: "Charizard", PrintedNumberRaw: "4/102"}, "")

	assert.False(t, res.Success)
	assert.Equal(t, reasonNoMatch, res.Error)
	assert.NotEmpty(t, local.Calls())
}

func TestResolve_RemoteFallback(t *testing.T) {
	skies := domain.CardSet{ID: "swsh7", Name: "Evolving Skies", PrintedTotal: 203, ReleaseDate: "2021/08/27"}
	local := &fakeLocal{}
	remote := &fakeRemote{respond: func(q catalog.Query) []domain.ReferenceCard {
		if q.PrintedTotal == 203 {
			return []domain.ReferenceCard{card("swsh7-215", "Umbreon VMAX", "215", skies)}
		}
		return nil
	}}
	r := New(local, WithRemote(remote))

	res := r.Resolve(context.Background(), domain.RawCardQuery{Name: "Umbreon VMAX", PrintedNumberRaw: "215/203"}, "")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "swsh7-215", res.Card.ID)
	assert.Equal(t, domain.MethodPrintedTotal, res.Method)
	assert.Equal(t, domain.ConfidenceMedium, res.Confidence)
	assert.Contains(t, res.Match.Warnings, "matched via remote catalog")

	assert.Equal(t, []string{"printed_total:Umbreon VMAX:215:203"}, local.Calls())
	queries := remote.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "215", queries[0].Number)
}

func TestResolve_RemoteTriesVariantsInOrder(t *testing.T) {
	oldPromo := domain.CardSet{ID: "old", Name: "Old Promos"}
	remote := &fakeRemote{respond: func(q catalog.Query) []domain.ReferenceCard {
		switch q.Number {
		case "085":
			return []domain.ReferenceCard{card("old-085", "Pikachu", "085", oldPromo)}
		case "85":
			return []domain.ReferenceCard{card("svp-85", "Pikachu", "85", promoSV)}
		}
		return nil
	}}

	res := New(&fakeLocal{}, WithRemote(remote)).Resolve(context.Background(),
		domain.RawCardQuery{Name: "Pikachu", PrintedNumberRaw: "SVP EN 085"}, "")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "svp-85", res.Card.ID)
	assert.Equal(t, domain.MethodSetPartition, res.Method)

	queries := remote.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "85", queries[0].Number)
	assert.Equal(t, "svp", queries[0].SetID)
	assert.Empty(t, queries[0].Numbers)
}

func TestResolve_RemoteOnlyAfterLocalMisses(t *testing.T) {
	local := charizardCatalog()
	remote := &fakeRemote{}

	res := New(local, WithRemote(remote)).Resolve(context.Background(),
		domain.RawCardQuery{Name: "Charizard", PrintedNumberRaw: "4/102"}, "")

	require.True(t, res.Success)
	assert.Empty(t, remote.Queries())
}

func TestResolve_FuzzyNumberRecovery(t *testing.T) {
	local := &fakeLocal{cards: []domain.ReferenceCard{card("sv1-25", "Pikachu", "25", paldea)}}

	res := New(local).Resolve(context.Background(), domain.RawCardQuery{Name: "Pikachu", PrintedNumberRaw: "26/198"}, "")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "sv1-25", res.Card.ID)
	assert.Equal(t, domain.MethodFuzzyNumber, res.Method)
	assert.Equal(t, domain.ConfidenceMedium, res.Confidence)
	assert.Contains(t, res.Corrections, domain.Correction{
		Field:     "card_number",
		Original:  "26/198",
		Corrected: "25/198",
		Source:    domain.SourceCatalog,
	})
	require.Len(t, res.Match.Warnings, 1)
	assert.Contains(t, res.Match.Warnings[0], "fuzzy")
}

func TestResolve_FuzzySkippedForVintageSets(t *testing.T) {
	local := charizardCatalog()

	res := New(local).Resolve(context.Background(), domain.RawCardQuery{Name: "Charizard", PrintedNumberRaw: "5/102"}, "")

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "below the 0.70 threshold")
	for _, call := range local.Calls() {
		assert.False(t, strings.HasPrefix(call, "fuzzy:"), call)
	}
}

func TestResolve_NameRecovery(t *testing.T) {
	r := New(charizardCatalog(), WithNameSuggester(fakeSuggester{"Charizrd": "Charizard"}))

	res := r.Resolve(context.Background(), domain.RawCardQuery{Name: "Charizrd", PrintedNumberRaw: "4/102"}, "")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "base1-4", res.Card.ID)
	assert.Equal(t, domain.ConfidenceHigh, res.Confidence)
	assert.Equal(t, []domain.Correction{{
		Field:     "card_name",
		Original:  "Charizrd",
		Corrected: "Charizard",
		Source:    domain.SourceIndex,
	}}, res.Corrections)
}

func TestResolve_NameRecoveryFailureIsAMiss(t *testing.T) {
	r := New(charizardCatalog(), WithNameSuggester(fakeSuggester{}))

	res := r.Resolve(context.Background(), domain.RawCardQuery{Name: "broken", PrintedNumberRaw: "4/102"}, "")

	assert.False(t, res.Success)
	assert.Equal(t, reasonNoMatch, res.Error)
}

func TestResolve_CachesResults(t *testing.T) {
	local := charizardCatalog()
	c := newMapCache()
	r := New(local, WithCache(c))
	q := domain.RawCardQuery{Name: "Charizard", PrintedNumberRaw: "4/102"}

	first := r.Resolve(context.Background(), q, "")
	calls := len(local.Calls())
	second := r.Resolve(context.Background(), domain.RawCardQuery{Name: " charizard ", PrintedNumberRaw: "4 / 102"}, "")

	assert.Equal(t, first, second)
	assert.Len(t, local.Calls(), calls)
	assert.Equal(t, 1, c.Len())

	r.Resolve(context.Background(), domain.RawCardQuery{Name: "Mewtwo"}, "")
	assert.Equal(t, 2, c.Len())
}

func TestResolve_CancelledContext(t *testing.T) {
	c := newMapCache()
	r := New(charizardCatalog(), WithCache(c))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.Resolve(ctx, domain.RawCardQuery{Name: "Charizard", PrintedNumberRaw: "4/102"}, "")

	assert.False(t, res.Success)
	assert.Equal(t, 0, c.Len())
}

func TestResolve_Concurrent(t *testing.T) {
	r := New(charizardCatalog(), WithCache(newMapCache()))
	q := domain.RawCardQuery{Name: "Charizard", PrintedNumberRaw: "4/102"}

	var wg sync.WaitGroup
	results := make([]domain.ResolutionResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Resolve(context.Background(), q, "")
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.True(t, res.Success)
		assert.Equal(t, "base1-4", res.Card.ID)
	}
}

func TestResolve_CancellationIsPerCaller(t *testing.T) {
	local := &blockingLocal{
		fakeLocal: charizardCatalog(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	r := New(local, WithCache(newMapCache()))
	q := domain.RawCardQuery{Name: "Charizard", PrintedNumberRaw: "4/102"}

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	doneA := make(chan domain.ResolutionResult, 1)
	go func() { doneA <- r.Resolve(ctxA, q, "") }()

	select {
	case <-local.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first caller never reached the catalog")
	}

	doneB := make(chan domain.ResolutionResult, 1)
	go func() { doneB <- r.Resolve(context.Background(), q, "") }()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case res := <-doneA:
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "interrupted")
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(local.release)
	select {
	case res := <-doneB:
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "base1-4", res.Card.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller did not return")
	}
}

func TestResolve_WaiterHonoursOwnContext(t *testing.T) {
	local := &blockingLocal{
		fakeLocal: charizardCatalog(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	defer close(local.release)
	r := New(local)
	q := domain.RawCardQuery{Name: "Charizard", PrintedNumberRaw: "4/102"}

	go r.Resolve(context.Background(), q, "")
	<-local.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := r.Resolve(ctx, q, "")

	assert.False(t, res.Success)
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}

func TestCatalogCorrections(t *testing.T) {
	c := card("base1-4", "Charizard", "4", baseSet)

	tests := []struct {
		name  string
		query domain.RawCardQuery
		want  []string
	}{
		{"agrees", domain.RawCardQuery{Name: "charizard", SetNameHint: "BASE", YearHint: "1999"}, nil},
		{"set differs", domain.RawCardQuery{Name: "Charizard", SetNameHint: "Jungle"}, []string{"set_name"}},
		{"name and year differ", domain.RawCardQuery{Name: "Charizard ex", YearHint: "2002"}, []string{"card_name", "year"}},
		{"placeholders ignored", domain.RawCardQuery{SetNameHint: "Not visible", YearHint: "unknown"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fields []string
			for _, corr := range catalogCorrections(tt.query, &c) {
				assert.Equal(t, domain.SourceCatalog, corr.Source)
				fields = append(fields, corr.Field)
			}
			assert.Equal(t, tt.want, fields)
		})
	}
}
