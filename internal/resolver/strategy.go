package resolver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cardid/cardid-server/internal/cardnum"
	"github.com/cardid/cardid-server/internal/catalog"
	"github.com/cardid/cardid-server/internal/domain"
)

// Hit sources.
const (
	sourceLocal  = "local"
	sourceRemote = "remote"
)

// hit is the non-empty result of one strategy.
type hit struct {
	method domain.Method
	cards  []domain.ReferenceCard
	source string
	fuzzy  *catalog.FuzzyMatch
}

// catalogs bundles what strategies query. remote may be nil.
type catalogs struct {
	local  catalog.Local
	remote catalog.Remote
	logger *slog.Logger
	radius int // fuzzy neighbour radius
	// Fuzzy recovery is skipped for sets printed with at most this many cards.
	vintageMaxTotal int
}

// strategy is one step of the cascade.
type strategy interface {
	method() domain.Method
	applies(p *plan) bool
	attempt(ctx context.Context, c *catalogs, p *plan) *hit
}

// target is one local lookup: a number variant within an optional partition.
type target struct {
	number string
	setID  string
}

// lookup is a strategy that tries its local targets in order and, when all
// are empty, its remote queries in order. Both stop at the first non-empty
// result.
type lookup struct {
	m       domain.Method
	when    func(p *plan) bool
	targets func(p *plan) []target
	local   func(ctx context.Context, l catalog.Local, p *plan, t target) ([]domain.ReferenceCard, error)
	remote  func(p *plan) []catalog.Query
}

func (s *lookup) method() domain.Method { return s.m }

func (s *lookup) applies(p *plan) bool { return s.when(p) }

func (s *lookup) attempt(ctx context.Context, c *catalogs, p *plan) *hit {
	for _, t := range s.targets(p) {
		cards, err := s.local(ctx, c.local, p, t)
		if err != nil {
			c.logger.Error("local catalog query failed", "strategy", s.m, "variant", t.number, "error", err)
			continue
		}
		c.logger.Debug("strategy attempt", "strategy", s.m, "source", sourceLocal,
			"variant", t.number, "partition", t.setID, "results", len(cards))
		if len(cards) > 0 {
			return &hit{method: s.m, cards: cards, source: sourceLocal}
		}
	}

	if c.remote == nil || ctx.Err() != nil {
		return nil
	}
	for _, q := range s.remote(p) {
		cards := c.remote.Lookup(ctx, q)
		c.logger.Debug("strategy attempt", "strategy", s.m, "source", sourceRemote,
			"q", q.String(), "results", len(cards))
		if len(cards) > 0 {
			return &hit{method: s.m, cards: cards, source: sourceRemote}
		}
	}
	return nil
}

func numberTargets(p *plan) []target {
	out := make([]target, 0, len(p.variants))
	for _, v := range p.variants {
		out = append(out, target{number: v})
	}
	return out
}

// perVariant repeats base once per number variant, in normalizer order, so
// the first variant with results wins.
func perVariant(p *plan, base catalog.Query) []catalog.Query {
	out := make([]catalog.Query, 0, len(p.variants))
	for _, v := range p.variants {
		q := base
		q.Number = v
		out = append(out, q)
	}
	return out
}

func anyNumber(*plan) []target {
	return []target{{}}
}

func hasName(p *plan) bool { return p.name != "" }

func hasNameNumber(p *plan) bool { return p.name != "" && len(p.variants) > 0 }

// defaultStrategies returns the cascade, most specific first.
func defaultStrategies() []strategy {
	return []strategy{
		&lookup{
			m: domain.MethodPrintedTotal,
			when: func(p *plan) bool {
				return hasNameNumber(p) && p.total > 0 && p.format == cardnum.FormatFraction
			},
			targets: numberTargets,
			local: func(ctx context.Context, l catalog.Local, p *plan, t target) ([]domain.ReferenceCard, error) {
				return l.QueryByNameNumberPrintedTotal(ctx, p.name, t.number, p.total)
			},
			remote: func(p *plan) []catalog.Query {
				return perVariant(p, catalog.Query{Name: p.name, PrintedTotal: p.total})
			},
		},
		&lookup{
			m: domain.MethodSetPartition,
			when: func(p *plan) bool {
				return len(p.variants) > 0 && len(p.partitions) > 0
			},
			targets: func(p *plan) []target {
				out := make([]target, 0, len(p.partitions)*len(p.variants))
				for _, id := range p.partitions {
					for _, v := range p.variants {
						out = append(out, target{number: v, setID: id})
					}
				}
				return out
			},
			local: func(ctx context.Context, l catalog.Local, p *plan, t target) ([]domain.ReferenceCard, error) {
				return l.QueryByNameNumberSetID(ctx, p.name, t.number, t.setID)
			},
			remote: func(p *plan) []catalog.Query {
				out := make([]catalog.Query, 0, len(p.partitions)*len(p.variants))
				for _, id := range p.partitions {
					out = append(out, perVariant(p, catalog.Query{Name: p.name, SetID: id})...)
				}
				return out
			},
		},
		&lookup{
			m: domain.MethodNameNumberSet,
			when: func(p *plan) bool {
				return hasNameNumber(p) && p.setName != ""
			},
			targets: numberTargets,
			local: func(ctx context.Context, l catalog.Local, p *plan, t target) ([]domain.ReferenceCard, error) {
				return l.QueryByNameNumberSetName(ctx, p.name, t.number, p.setName)
			},
			remote: func(p *plan) []catalog.Query {
				return perVariant(p, catalog.Query{Name: p.name, SetName: p.setName})
			},
		},
		&lookup{
			m:       domain.MethodNameNumber,
			when:    hasNameNumber,
			targets: numberTargets,
			local: func(ctx context.Context, l catalog.Local, p *plan, t target) ([]domain.ReferenceCard, error) {
				return l.QueryByNameNumber(ctx, p.name, t.number)
			},
			remote: func(p *plan) []catalog.Query {
				return perVariant(p, catalog.Query{Name: p.name})
			},
		},
		&fuzzyNumber{},
		&lookup{
			m: domain.MethodNameSet,
			when: func(p *plan) bool {
				return hasName(p) && p.setName != ""
			},
			targets: anyNumber,
			local: func(ctx context.Context, l catalog.Local, p *plan, _ target) ([]domain.ReferenceCard, error) {
				return l.QueryByNameNumberSetName(ctx, p.name, "", p.setName)
			},
			remote: func(p *plan) []catalog.Query {
				return []catalog.Query{{Name: p.name, SetName: p.setName}}
			},
		},
		&lookup{
			m:       domain.MethodNameOnly,
			when:    hasName,
			targets: anyNumber,
			local: func(ctx context.Context, l catalog.Local, p *plan, _ target) ([]domain.ReferenceCard, error) {
				return l.QueryByNameNumber(ctx, p.name, "")
			},
			remote: func(p *plan) []catalog.Query {
				return []catalog.Query{{Name: p.name}}
			},
		},
	}
}

// fuzzyNumber recovers single-digit OCR misreads by searching the numbers
// around the stated one, nearest first, within the first known partition.
// Vintage sets are skipped: their small, dense numbering makes a neighbour
// almost always exist and almost always wrong.
type fuzzyNumber struct{}

func (fuzzyNumber) method() domain.Method { return domain.MethodFuzzyNumber }

func (fuzzyNumber) applies(p *plan) bool {
	return hasNameNumber(p)
}

func (f fuzzyNumber) attempt(ctx context.Context, c *catalogs, p *plan) *hit {
	if p.total > 0 && p.total <= c.vintageMaxTotal {
		c.logger.Debug("skipping fuzzy number search for vintage set", "printed_total", p.total)
		return nil
	}

	number := p.variants[0]
	setID := ""
	if len(p.partitions) > 0 {
		setID = p.partitions[0]
	}

	m, err := c.local.QueryFuzzyNumber(ctx, p.name, number, setID, c.radius)
	if err != nil {
		c.logger.Error("local catalog query failed", "strategy", f.method(), "variant", number, "error", err)
	}
	c.logger.Debug("strategy attempt", "strategy", f.method(), "source", sourceLocal,
		"variant", number, "partition", setID, "found", m != nil)
	if m != nil {
		return &hit{method: f.method(), cards: []domain.ReferenceCard{m.Card}, source: sourceLocal, fuzzy: m}
	}

	if c.remote == nil || ctx.Err() != nil {
		return nil
	}
	neighbours := cardnum.Nearest(number, c.radius)
	if len(neighbours) == 0 {
		return nil
	}
	numbers := make([]string, 0, len(neighbours))
	for _, n := range neighbours {
		numbers = append(numbers, n.Number)
	}
	cards := c.remote.Lookup(ctx, catalog.Query{Name: p.name, Numbers: numbers, SetID: setID})
	c.logger.Debug("strategy attempt", "strategy", f.method(), "source", sourceRemote, "results", len(cards))
	if m := nearestCard(cards, neighbours); m != nil {
		return &hit{method: f.method(), cards: []domain.ReferenceCard{m.Card}, source: sourceRemote, fuzzy: m}
	}
	return nil
}

// nearestCard picks the card whose number is the closest neighbour.
func nearestCard(cards []domain.ReferenceCard, neighbours []cardnum.Neighbour) *catalog.FuzzyMatch {
	for _, n := range neighbours {
		for _, v := range cardnum.Normalize(n.Number, cardnum.Classify(n.Number)) {
			for _, c := range cards {
				if strings.EqualFold(strings.TrimSpace(c.Number), v) {
					return &catalog.FuzzyMatch{Card: c, MatchedNumber: c.Number}
				}
			}
		}
	}
	return nil
}
