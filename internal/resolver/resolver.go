// Package resolver turns a noisy card description into at most one catalog
// card by running a cascade of lookup strategies, most specific first, and
// validating the best candidate.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cardid/cardid-server/internal/cache"
	"github.com/cardid/cardid-server/internal/cardname"
	"github.com/cardid/cardid-server/internal/catalog"
	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/match"
	"github.com/cardid/cardid-server/internal/reconcile"
	"github.com/cardid/cardid-server/internal/search"
)

// Failure reasons.
const (
	reasonNoInput = "insufficient card information: need a name or printed number"
	reasonNoMatch = "no matching card found in catalog"
)

// DefaultTimeout bounds one shared resolution, remote calls included.
const DefaultTimeout = time.Minute

// ResultCache memoizes whole resolutions by normalized query.
type ResultCache interface {
	GetResult(key string) (domain.ResolutionResult, bool)
	PutResult(key string, r domain.ResolutionResult)
}

// NameSuggester proposes a catalog spelling for a misread name.
type NameSuggester interface {
	Suggest(name string) (search.Suggestion, bool, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRemote enables the remote catalog fallback.
func WithRemote(r catalog.Remote) Option {
	return func(res *Resolver) { res.remote = r }
}

// WithCache memoizes results in c.
func WithCache(c ResultCache) Option {
	return func(res *Resolver) { res.cache = c }
}

// WithNameSuggester enables name recovery after a full miss.
func WithNameSuggester(s NameSuggester) Option {
	return func(res *Resolver) { res.suggester = s }
}

// WithSettings overrides the matching weights and thresholds.
func WithSettings(s match.Settings) Option {
	return func(res *Resolver) { res.settings = s }
}

// WithTimeout bounds each shared resolution. Non-positive values keep
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(res *Resolver) {
		if d > 0 {
			res.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(res *Resolver) {
		if l != nil {
			res.logger = l
		}
	}
}

// Resolver is safe for concurrent use.
type Resolver struct {
	local      catalog.Local
	remote     catalog.Remote
	cache      ResultCache
	suggester  NameSuggester
	settings   match.Settings
	scorer     *match.Scorer
	guard      *match.Guard
	strategies []strategy
	logger     *slog.Logger
	timeout    time.Duration
	flight     singleflight.Group
}

// New creates a resolver over the local catalog.
func New(local catalog.Local, opts ...Option) *Resolver {
	r := &Resolver{
		local:    local,
		settings: match.DefaultSettings(),
		logger:   logger.Nop(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.scorer = match.NewScorer(r.settings)
	r.guard = match.NewGuard(r.settings.Thresholds)
	r.strategies = defaultStrategies()
	return r
}

// Settings returns the active matching settings.
func (r *Resolver) Settings() match.Settings {
	return r.settings
}

// Resolve identifies q. breakdown is the optional positional OCR transcript
// of the printed number. Resolve never returns an error: every failure is
// reported through the result.
//
// Concurrent calls for the same normalized query share one resolution. The
// shared work does not inherit any caller's cancellation; each caller stops
// waiting when its own ctx is done.
func (r *Resolver) Resolve(ctx context.Context, q domain.RawCardQuery, breakdown string) domain.ResolutionResult {
	if err := ctx.Err(); err != nil {
		return interrupted(err)
	}

	key := cache.Key(cacheKey(q, breakdown)...)
	if r.cache != nil {
		if res, ok := r.cache.GetResult(key); ok {
			r.logger.Debug("resolution cache hit", "name", q.Name, "number", q.PrintedNumberRaw)
			return res
		}
	}

	ch := r.flight.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		res := r.resolve(shared, q, breakdown)
		if r.cache != nil && shared.Err() == nil {
			r.cache.PutResult(key, res)
		}
		return res, nil
	})

	select {
	case <-ctx.Done():
		r.logger.Info("resolution abandoned by caller", "name", q.Name, "error", ctx.Err())
		return interrupted(ctx.Err())
	case out := <-ch:
		return out.Val.(domain.ResolutionResult)
	}
}

// interrupted reports a resolution the caller gave up on.
func interrupted(err error) domain.ResolutionResult {
	return domain.Failed("resolution interrupted: "+err.Error(), nil)
}

func (r *Resolver) resolve(ctx context.Context, raw domain.RawCardQuery, breakdown string) domain.ResolutionResult {
	q, override, corrections := reconcile.Reconcile(raw, breakdown)
	if corrections == nil {
		corrections = []domain.Correction{}
	}

	p := newPlan(q)
	result := func(res domain.ResolutionResult) domain.ResolutionResult {
		res.Override = override
		res.Format = p.format.String()
		res.Variants = p.variants
		return res
	}

	if p.empty() {
		return result(domain.Failed(reasonNoInput, corrections))
	}

	h := r.cascade(ctx, p)
	if h == nil && r.suggester != nil && p.name != "" && ctx.Err() == nil {
		if rp, c := r.recoverName(p); rp != nil {
			if h = r.cascade(ctx, rp); h != nil {
				p = rp
				corrections = append(corrections, *c)
			}
		}
	}
	if h == nil {
		if err := ctx.Err(); err != nil {
			r.logger.Info("resolution interrupted", "name", p.name, "error", err)
		}
		return result(domain.Failed(reasonNoMatch, corrections))
	}

	top := r.best(p, h)

	if v := r.guard.Validate(&top, p.subject); !v.Accepted {
		r.logger.Info("candidate rejected", "method", h.method, "card", top.Card.ID, "reason", v.Reason)
		res := domain.Failed(v.Reason, corrections)
		res.Match = &top
		return result(res)
	}
	if !r.scorer.Accepts(top, p.subject) {
		reason := fmt.Sprintf("best candidate %s scored %.2f, below the %.2f threshold",
			top.Card.ID, top.Score, r.scorer.Threshold(p.subject))
		r.logger.Info("candidate rejected", "method", h.method, "card", top.Card.ID, "reason", reason)
		res := domain.Failed(reason, corrections)
		res.Match = &top
		return result(res)
	}

	if h.fuzzy != nil {
		corrections = append(corrections, domain.Correction{
			Field:     "card_number",
			Original:  p.query.PrintedNumberRaw,
			Corrected: top.Card.PrintedNumber(),
			Source:    domain.SourceCatalog,
		})
	}
	corrections = append(corrections, catalogCorrections(p.query, &top.Card)...)

	card := top.Card
	r.logger.Info("card resolved",
		"method", h.method,
		"source", h.source,
		"card", card.ID,
		"score", top.Score,
		"confidence", top.Confidence,
	)
	return result(domain.ResolutionResult{
		Success:     true,
		Card:        &card,
		Confidence:  top.Confidence,
		Method:      h.method,
		Corrections: corrections,
		Match:       &top,
	})
}

// cascade runs the strategies in order and returns the first hit.
func (r *Resolver) cascade(ctx context.Context, p *plan) *hit {
	c := &catalogs{
		local:           r.local,
		remote:          r.remote,
		logger:          r.logger,
		radius:          r.settings.Thresholds.FuzzyRadius,
		vintageMaxTotal: r.settings.Thresholds.VintageMaxTotal,
	}
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			return nil
		}
		if !s.applies(p) {
			continue
		}
		if h := s.attempt(ctx, c, p); h != nil {
			return h
		}
	}
	return nil
}

// best scores the hit and returns the top candidate with source warnings
// attached.
func (r *Resolver) best(p *plan, h *hit) domain.CandidateMatch {
	sub := p.subject
	if h.fuzzy != nil {
		// The recovered number stands in for the misread one.
		sub.Numbers = []string{strings.ToLower(h.fuzzy.MatchedNumber)}
	}
	top := r.scorer.Score(h.cards, sub)[0]

	if h.fuzzy != nil {
		top.AddWarning(fmt.Sprintf("number recovered by fuzzy match: %s read as %s",
			p.query.PrintedNumberRaw, h.fuzzy.MatchedNumber))
	}
	if h.source == sourceRemote {
		top.AddWarning("matched via remote catalog")
	}
	return top
}

// recoverName asks the suggester for a catalog spelling of the queried name.
func (r *Resolver) recoverName(p *plan) (*plan, *domain.Correction) {
	s, ok, err := r.suggester.Suggest(p.name)
	if err != nil {
		r.logger.Warn("name suggestion failed", "name", p.name, "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	r.logger.Info("retrying with suggested name", "name", p.name, "suggestion", s.Name, "score", s.Score)
	return p.withName(s.Name), &domain.Correction{
		Field:     "card_name",
		Original:  p.name,
		Corrected: s.Name,
		Source:    domain.SourceIndex,
	}
}

// catalogCorrections lists the stated fields the matched card contradicts.
func catalogCorrections(q domain.RawCardQuery, card *domain.ReferenceCard) []domain.Correction {
	var out []domain.Correction
	add := func(field, original, corrected string) {
		out = append(out, domain.Correction{
			Field:     field,
			Original:  original,
			Corrected: corrected,
			Source:    domain.SourceCatalog,
		})
	}

	if name := cardname.Clean(q.Name); name != "" && cardname.Fold(name) != cardname.Fold(card.Name) {
		add("card_name", name, card.Name)
	}
	if set := cardname.Clean(q.SetNameHint); set != "" && cardname.Fold(set) != cardname.Fold(card.Set.Name) {
		add("set_name", set, card.Set.Name)
	}
	if stated := q.Year(); stated > 0 && !cardname.IsPlaceholder(q.YearHint) {
		if year := card.Year(); year > 0 && year != stated {
			add("year", q.YearHint, card.YearString())
		}
	}
	return out
}
