package match

import (
	"slices"
	"sort"
	"strings"

	"github.com/cardid/cardid-server/internal/cardname"
	"github.com/cardid/cardid-server/internal/cardnum"
	"github.com/cardid/cardid-server/internal/domain"
)

// Subject is the query side of a comparison, folded once up front.
// Empty fields are features the query did not carry; they are excluded from
// scoring rather than counted against the candidate.
type Subject struct {
	Display      string   // name as supplied, for messages
	Names        []string // folded; character name first, then card title
	SetName      string   // folded
	Numbers      []string // normalized number variants, folded
	Rarity       string   // folded
	PrintedTotal int
	Year         int
}

// NewSubject prepares q for scoring. numbers are the normalizer's variants.
func NewSubject(q domain.RawCardQuery, numbers []string) Subject {
	s := Subject{
		Display:      cardname.Sanitize(q.SubjectName()),
		SetName:      cardname.Fold(cardname.Clean(q.SetNameHint)),
		Rarity:       cardname.Fold(cardname.Clean(q.RarityHint)),
		PrintedTotal: cardnum.ParseTotal(cardname.Clean(q.SetTotalHint)),
	}
	if !cardname.IsPlaceholder(q.YearHint) {
		s.Year = q.Year()
	}
	for _, n := range []string{q.CharacterName, q.Name} {
		if f := cardname.Fold(cardname.Sanitize(n)); f != "" && !slices.Contains(s.Names, f) {
			s.Names = append(s.Names, f)
		}
	}
	for _, n := range numbers {
		s.Numbers = append(s.Numbers, strings.ToLower(n))
	}
	return s
}

// HasDenominator reports whether the query carried a usable set total.
func (s Subject) HasDenominator() bool {
	return s.PrintedTotal > 0
}

// Scorer computes weighted feature similarity and a confidence tier.
type Scorer struct {
	weights    Weights
	thresholds Thresholds
}

// NewScorer creates a scorer from settings.
func NewScorer(settings Settings) *Scorer {
	return &Scorer{weights: settings.Weights, thresholds: settings.Thresholds}
}

// Score evaluates every card and returns them best first. Ties keep catalog
// order.
func (s *Scorer) Score(cards []domain.ReferenceCard, sub Subject) []domain.CandidateMatch {
	out := make([]domain.CandidateMatch, 0, len(cards))
	for _, card := range cards {
		out = append(out, s.Evaluate(card, sub))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Evaluate scores one card.
//
// The aggregate is the weighted mean of the features the query carried. A
// denominator that disagrees with the card's printed total subtracts a fixed
// penalty and forces the low tier regardless of the text features.
func (s *Scorer) Evaluate(card domain.ReferenceCard, sub Subject) domain.CandidateMatch {
	m := domain.CandidateMatch{Card: card}

	var sum, weight float64
	feature := func(sim, w float64) *float64 {
		sum += sim * w
		weight += w
		m.TotalFeatures++
		if sim >= s.thresholds.FeatureMatch {
			m.MatchedFeatures++
		}
		return &sim
	}

	if len(sub.Names) > 0 {
		cardName := cardname.Fold(card.Name)
		best := 0.0
		for _, n := range sub.Names {
			best = max(best, Similarity(n, cardName))
		}
		m.Scores.Name = feature(best, s.weights.Name)
	}
	if sub.SetName != "" {
		m.Scores.Set = feature(Similarity(sub.SetName, cardname.Fold(card.Set.Name)), s.weights.Set)
	}
	if len(sub.Numbers) > 0 {
		cardNumber := strings.ToLower(strings.TrimSpace(card.Number))
		best := 0.0
		for _, n := range sub.Numbers {
			best = max(best, Similarity(n, cardNumber))
		}
		m.Scores.Number = feature(best, s.weights.Number)
	}
	if sub.Rarity != "" {
		m.Scores.Rarity = feature(Similarity(sub.Rarity, cardname.Fold(card.Rarity)), s.weights.Rarity)
	}

	if weight > 0 {
		m.Score = sum / weight
	}

	if sub.HasDenominator() && card.Set.PrintedTotal > 0 {
		m.TotalFeatures++
		d := 0.0
		if card.Set.PrintedTotal == sub.PrintedTotal {
			d = 1
			m.MatchedFeatures++
		} else {
			m.DenominatorMismatch = true
			m.Score -= s.thresholds.DenominatorPenalty
		}
		m.Scores.Denominator = &d
	}

	m.Confidence = s.tier(m)
	return m
}

func (s *Scorer) tier(m domain.CandidateMatch) domain.Confidence {
	if m.DenominatorMismatch || m.TotalFeatures == 0 {
		return domain.ConfidenceLow
	}
	ratio := float64(m.MatchedFeatures) / float64(m.TotalFeatures)
	switch {
	case ratio >= s.thresholds.HighRatio:
		return domain.ConfidenceHigh
	case ratio >= s.thresholds.MediumRatio:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// Accepts reports whether m clears the acceptance threshold. A query with a
// denominator must clear the stricter bar.
func (s *Scorer) Accepts(m domain.CandidateMatch, sub Subject) bool {
	return m.Score >= s.Threshold(sub)
}

// Threshold returns the acceptance bar applied to sub.
func (s *Scorer) Threshold(sub Subject) float64 {
	if sub.HasDenominator() {
		return s.thresholds.AcceptWithDenominator
	}
	return s.thresholds.Accept
}
