package match

import (
	"fmt"
	"strings"

	"github.com/cardid/cardid-server/internal/cardname"
	"github.com/cardid/cardid-server/internal/domain"
)

// Verdict is the outcome of Guard.Validate.
type Verdict struct {
	Accepted bool
	Reason   string
}

func accept() Verdict { return Verdict{Accepted: true} }

func reject(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// Guard runs cross-checks after scoring. Hard rejects override the scorer;
// soft findings are attached to the candidate as warnings, which keeps it
// out of the high tier.
type Guard struct {
	thresholds Thresholds
}

// NewGuard creates a guard from thresholds.
func NewGuard(t Thresholds) *Guard {
	return &Guard{thresholds: t}
}

// Validate checks m against sub. It may append warnings to m.
func (g *Guard) Validate(m *domain.CandidateMatch, sub Subject) Verdict {
	card := &m.Card

	if sub.Year > 0 {
		if year := card.Year(); year > 0 {
			diff := abs(sub.Year - year)
			if diff > g.thresholds.YearTolerance {
				return reject("year mismatch: expected ~%d, found %d", sub.Year, year)
			}
			if diff > 0 {
				m.AddWarning(fmt.Sprintf("year differs: stated %d, set released %d", sub.Year, year))
			}
		}
	}

	if m.DenominatorMismatch && g.thresholds.RejectDenominatorMismatch {
		return reject("set mismatch: card shows /%d but matched set has %d cards", sub.PrintedTotal, card.Set.PrintedTotal)
	}

	if !g.namesOverlap(sub, card.Name) {
		return reject("name mismatch: expected %s, found %s", sub.Display, card.Name)
	}

	if m.Scores.Rarity != nil && *m.Scores.Rarity < g.thresholds.FeatureMatch {
		m.AddWarning(fmt.Sprintf("rarity differs: catalog lists %q", card.Rarity))
	}

	return accept()
}

// namesOverlap requires that one compacted name contains the other's leading
// NamePrefix characters. Queries without a name pass.
func (g *Guard) namesOverlap(sub Subject, candidate string) bool {
	c := cardname.Compact(candidate)
	if c == "" || len(sub.Names) == 0 {
		return true
	}
	for _, n := range sub.Names {
		q := cardname.Compact(n)
		if q == "" {
			return true
		}
		if strings.Contains(c, prefix(q, g.thresholds.NamePrefix)) || strings.Contains(q, prefix(c, g.thresholds.NamePrefix)) {
			return true
		}
	}
	return false
}

func prefix(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
