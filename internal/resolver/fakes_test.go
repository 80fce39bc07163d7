package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cardid/cardid-server/internal/cardname"
	"github.com/cardid/cardid-server/internal/cardnum"
	"github.com/cardid/cardid-server/internal/catalog"
	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/search"
)

// fakeLocal is an in-memory catalog.Local that records every query.
type fakeLocal struct {
	mu    sync.Mutex
	cards []domain.ReferenceCard
	calls []string
	err   error
}

func (f *fakeLocal) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeLocal) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeLocal) find(keep func(c domain.ReferenceCard) bool) ([]domain.ReferenceCard, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.ReferenceCard
	for _, c := range f.cards {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func nameMatches(query, card string) bool {
	q, c := cardname.Fold(query), cardname.Fold(card)
	return q == "" || q == c || strings.HasPrefix(c, q+" ") || strings.HasSuffix(c, " "+q)
}

func numberMatches(query, card string) bool {
	return query == "" || strings.EqualFold(query, card)
}

func (f *fakeLocal) QueryByNameNumber(_ context.Context, name, number string) ([]domain.ReferenceCard, error) {
	f.record("name_number:%s:%s", name, number)
	return f.find(func(c domain.ReferenceCard) bool {
		return nameMatches(name, c.Name) && numberMatches(number, c.Number)
	})
}

func (f *fakeLocal) QueryByNameNumberSetName(_ context.Context, name, number, setName string) ([]domain.ReferenceCard, error) {
	f.record("set_name:%s:%s:%s", name, number, setName)
	return f.find(func(c domain.ReferenceCard) bool {
		return nameMatches(name, c.Name) && numberMatches(number, c.Number) &&
			strings.Contains(cardname.Fold(c.Set.Name), cardname.Fold(setName))
	})
}

func (f *fakeLocal) QueryByNameNumberPrintedTotal(_ context.Context, name, number string, printedTotal int) ([]domain.ReferenceCard, error) {
	f.record("printed_total:%s:%s:%d", name, number, printedTotal)
	return f.find(func(c domain.ReferenceCard) bool {
		return nameMatches(name, c.Name) && numberMatches(number, c.Number) && c.Set.PrintedTotal == printedTotal
	})
}

func (f *fakeLocal) QueryByNameNumberSetID(_ context.Context, name, number, setID string) ([]domain.ReferenceCard, error) {
	f.record("set_id:%s:%s:%s", name, number, setID)
	return f.find(func(c domain.ReferenceCard) bool {
		return nameMatches(name, c.Name) && numberMatches(number, c.Number) && c.Set.ID == setID
	})
}

func (f *fakeLocal) QueryFuzzyNumber(_ context.Context, name, number, setID string, radius int) (*catalog.FuzzyMatch, error) {
	f.record("fuzzy:%s:%s:%s", name, number, setID)
	if f.err != nil {
		return nil, f.err
	}
	for _, n := range cardnum.Nearest(number, radius) {
		for _, v := range cardnum.Normalize(n.Number, cardnum.Classify(n.Number)) {
			for _, c := range f.cards {
				if nameMatches(name, c.Name) && strings.EqualFold(v, c.Number) && (setID == "" || c.Set.ID == setID) {
					return &catalog.FuzzyMatch{Card: c, MatchedNumber: c.Number}, nil
				}
			}
		}
	}
	return nil, nil
}

// blockingLocal holds printed-total queries until release is closed and
// signals entered on the first one.
type blockingLocal struct {
	*fakeLocal
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingLocal) QueryByNameNumberPrintedTotal(ctx context.Context, name, number string, printedTotal int) ([]domain.ReferenceCard, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.fakeLocal.QueryByNameNumberPrintedTotal(ctx, name, number, printedTotal)
}

// fakeRemote answers with respond and records every query.
type fakeRemote struct {
	mu      sync.Mutex
	queries []catalog.Query
	respond func(q catalog.Query) []domain.ReferenceCard
}

func (f *fakeRemote) Lookup(_ context.Context, q catalog.Query) []domain.ReferenceCard {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.respond == nil {
		return nil
	}
	return f.respond(q)
}

func (f *fakeRemote) Queries() []catalog.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Query(nil), f.queries...)
}

type fakeSuggester map[string]string

func (f fakeSuggester) Suggest(name string) (search.Suggestion, bool, error) {
	if name == "broken" {
		return search.Suggestion{}, false, errors.New("index closed")
	}
	s, ok := f[name]
	return search.Suggestion{Name: s, Score: 1}, ok, nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]domain.ResolutionResult
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]domain.ResolutionResult)}
}

func (m *mapCache) GetResult(key string) (domain.ResolutionResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[key]
	return r, ok
}

func (m *mapCache) PutResult(key string, r domain.ResolutionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = r
}

func (m *mapCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

var (
	baseSet = domain.CardSet{ID: "base1", Name: "Base", Series: "Base", PrintedTotal: 102, ReleaseDate: "1999/01/09"}
	promoSV = domain.CardSet{ID: "svp", Name: "Scarlet & Violet Black Star Promos", Series: "Scarlet & Violet", ReleaseDate: "2023/01/01"}
	mew151  = domain.CardSet{ID: "sv3pt5", Name: "151", Series: "Scarlet & Violet", PrintedTotal: 165, ReleaseDate: "2023/09/22"}
	paldea  = domain.CardSet{ID: "sv1", Name: "Scarlet & Violet", Series: "Scarlet & Violet", PrintedTotal: 198, ReleaseDate: "2023/03/31"}
)

func card(id, name, number string, set domain.CardSet) domain.ReferenceCard {
	return domain.ReferenceCard{ID: id, Name: name, Number: number, Set: set, Rarity: "Rare Holo"}
}
