package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardid/cardid-server/internal/domain"
)

func newTestCache(t *testing.T, opts Options) *LookupCache {
	t.Helper()
	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Len(t, Key("x"), 64)
}

func TestResult_SuccessPersists(t *testing.T) {
	c := newTestCache(t, Options{FailureTTL: time.Second})

	card := &domain.ReferenceCard{ID: "base1-4", Name: "Charizard"}
	c.PutResult("k", domain.ResolutionResult{Success: true, Card: card, Confidence: domain.ConfidenceHigh})

	got, ok := c.GetResult("k")
	require.True(t, ok)
	assert.True(t, got.Success)
	require.NotNil(t, got.Card)
	assert.Equal(t, "base1-4", got.Card.ID)

	_, ok = c.GetResult("other")
	assert.False(t, ok)
}

func TestResult_FailureExpires(t *testing.T) {
	c := newTestCache(t, Options{FailureTTL: time.Second})

	c.PutResult("k", domain.Failed("no match", nil))
	_, ok := c.GetResult("k")
	require.True(t, ok)

	// Badger TTLs have one-second resolution.
	assert.Eventually(t, func() bool {
		_, ok := c.GetResult("k")
		return !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestSearch(t *testing.T) {
	c := newTestCache(t, Options{})

	_, ok := c.GetSearch(`name:"Pikachu"`)
	assert.False(t, ok)

	c.PutSearch(`name:"Pikachu"`, []domain.ReferenceCard{{ID: "svp-85"}})
	cards, ok := c.GetSearch(`name:"Pikachu"`)
	require.True(t, ok)
	assert.Equal(t, "svp-85", cards[0].ID)

	c.PutSearch(`name:"Nobody"`, nil)
	cards, ok = c.GetSearch(`name:"Nobody"`)
	assert.True(t, ok)
	assert.Empty(t, cards)
}

func TestSet_CachesFailures(t *testing.T) {
	c := newTestCache(t, Options{})

	c.PutSet("base1", &domain.CardSet{ID: "base1", PrintedTotal: 102})
	c.PutSet("nope", nil)

	set, found := c.GetSet("base1")
	require.True(t, found)
	require.NotNil(t, set)
	assert.Equal(t, 102, set.PrintedTotal)

	set, found = c.GetSet("nope")
	assert.True(t, found)
	assert.Nil(t, set)

	_, found = c.GetSet("never")
	assert.False(t, found)
}

func TestClear(t *testing.T) {
	c := newTestCache(t, Options{})
	c.PutResult("a", domain.Failed("x", nil))
	c.PutSet("b", nil)
	require.Equal(t, 2, c.Len())

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := newTestCache(t, Options{})

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := Key("card", string(rune('a'+i)))
			c.PutResult(key, domain.ResolutionResult{Success: true, Card: &domain.ReferenceCard{ID: key}})
			got, ok := c.GetResult(key)
			assert.True(t, ok)
			assert.Equal(t, key, got.Card.ID)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, c.Len())
}
