package resolver

import (
	"slices"
	"strings"

	"github.com/cardid/cardid-server/internal/cardname"
	"github.com/cardid/cardid-server/internal/cardnum"
	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/match"
)

// plan is the query-derived input shared by every strategy of one cascade
// run. It is computed once after reconciliation and never mutated.
type plan struct {
	query      domain.RawCardQuery // reconciled
	name       string              // sanitized subject name
	format     cardnum.Format
	variants   []string
	total      int // parsed set-total hint, 0 when absent
	setName    string
	partitions []string // known catalog partitions, most specific first
	subject    match.Subject
}

func newPlan(q domain.RawCardQuery) *plan {
	raw := cardname.Clean(q.PrintedNumberRaw)
	format := cardnum.Classify(raw)

	p := &plan{
		query:    q,
		name:     cardname.Sanitize(q.SubjectName()),
		format:   format,
		variants: cardnum.Normalize(raw, format),
		setName:  cardname.Clean(q.SetNameHint),
		total:    cardnum.ParseTotal(cardname.Clean(q.SetTotalHint)),
	}
	if p.total == 0 && format == cardnum.FormatFraction {
		if f, ok := cardnum.ParseFraction(raw); ok {
			p.total = f.Denominator
		}
	}

	add := func(id string) {
		if id != "" && !slices.Contains(p.partitions, id) {
			p.partitions = append(p.partitions, id)
		}
	}
	add(cardnum.PartitionForNumber(raw, format))
	if id, ok := cardnum.SetIDForCode(cardname.Clean(q.SetCodeHint)); ok {
		add(id)
	}
	if id, ok := cardnum.SetIDForName(p.setName); ok {
		add(id)
	}

	p.subject = match.NewSubject(q, p.variants)
	if p.subject.PrintedTotal == 0 && p.total > 0 {
		p.subject.PrintedTotal = p.total
	}
	return p
}

// empty reports a query with nothing to search by.
func (p *plan) empty() bool {
	return p.name == "" && len(p.variants) == 0
}

// withName returns a copy of p searching for name instead. Used by name
// recovery.
func (p *plan) withName(name string) *plan {
	q := p.query
	q.Name = name
	q.CharacterName = ""
	return newPlan(q)
}

// cacheKey identifies the normalized query tuple.
func cacheKey(q domain.RawCardQuery, breakdown string) []string {
	return []string{
		cardname.Fold(q.Name),
		cardname.Fold(q.CharacterName),
		cardname.Fold(q.SetNameHint),
		strings.ToUpper(strings.Join(strings.Fields(q.PrintedNumberRaw), "")),
		strings.TrimSpace(q.SetTotalHint),
		strings.TrimSpace(q.YearHint),
		cardname.Fold(q.RarityHint),
		strings.ToUpper(strings.TrimSpace(q.SetCodeHint)),
		strings.Join(strings.Fields(strings.ToLower(breakdown)), " "),
	}
}
