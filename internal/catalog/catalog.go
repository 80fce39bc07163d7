// Package catalog defines the query contract the resolver uses against the
// reference card catalog: a local store that is always consulted first and an
// optional remote service used only as a fallback.
package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/cardid/cardid-server/internal/domain"
)

// Local is the authoritative local catalog. Empty results are not errors.
// Name matching is case-insensitive and accent-insensitive; an empty number
// matches any number.
type Local interface {
	QueryByNameNumber(ctx context.Context, name, number string) ([]domain.ReferenceCard, error)
	QueryByNameNumberSetName(ctx context.Context, name, number, setName string) ([]domain.ReferenceCard, error)
	QueryByNameNumberPrintedTotal(ctx context.Context, name, number string, printedTotal int) ([]domain.ReferenceCard, error)
	// QueryByNameNumberSetID restricts to a set or promo partition. An empty
	// name matches any name.
	QueryByNameNumberSetID(ctx context.Context, name, number, setID string) ([]domain.ReferenceCard, error)
	// QueryFuzzyNumber returns the card whose number is nearest to number, or
	// nil when none lies within radius.
	QueryFuzzyNumber(ctx context.Context, name, number, setID string, radius int) (*FuzzyMatch, error)
}

// Remote is the fallback lookup service. Implementations map timeouts and
// non-2xx responses to an empty result; callers never see transport errors.
type Remote interface {
	Lookup(ctx context.Context, q Query) []domain.ReferenceCard
}

// FuzzyMatch is the result of a nearest-number lookup.
type FuzzyMatch struct {
	Card          domain.ReferenceCard
	MatchedNumber string
}

// Query is the structured form of a remote search. Set fields are ANDed.
type Query struct {
	Name         string
	Number       string
	Numbers      []string // OR-ed alternatives; used instead of Number when set
	SetName      string
	SetID        string
	PrintedTotal int
}

// String renders q in the remote service's query syntax:
//
//	name:"Charizard" number:"4" set.printedTotal:102
func (q Query) String() string {
	var parts []string
	if v := clean(q.Name); v != "" {
		parts = append(parts, `name:"`+v+`"`)
	}
	switch {
	case len(q.Numbers) > 0:
		alts := make([]string, 0, len(q.Numbers))
		for _, n := range q.Numbers {
			if v := clean(n); v != "" {
				alts = append(alts, `number:"`+v+`"`)
			}
		}
		if len(alts) == 1 {
			parts = append(parts, alts[0])
		} else if len(alts) > 1 {
			parts = append(parts, "("+strings.Join(alts, " OR ")+")")
		}
	case clean(q.Number) != "":
		parts = append(parts, `number:"`+clean(q.Number)+`"`)
	}
	if v := clean(q.SetName); v != "" {
		parts = append(parts, `set.name:"`+v+`"`)
	}
	if v := clean(q.SetID); v != "" {
		parts = append(parts, "set.id:"+v)
	}
	if q.PrintedTotal > 0 {
		parts = append(parts, "set.printedTotal:"+strconv.Itoa(q.PrintedTotal))
	}
	return strings.Join(parts, " ")
}

// Empty reports whether q carries no predicate at all.
func (q Query) Empty() bool {
	return q.String() == ""
}

func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}
