// Package reconcile corrects a card query from the positional OCR breakdown
// before any catalog lookup runs.
//
// The vision model transcribes individual characters of the printed number
// reliably ("position 1: 4, position 2: /, ...") but often hallucinates the
// consolidated value. The breakdown therefore wins over the stated number,
// and a known denominator wins over the stated set and year.
package reconcile

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cardid/cardid-server/internal/cardnum"
	"github.com/cardid/cardid-server/internal/domain"
)

var positionToken = regexp.MustCompile(`(?i)position\s*(\d+)\s*:\s*([^,]+)`)

// Reconcile applies breakdown to q and returns the corrected copy, the
// override record, and one correction per changed field.
// Without a usable breakdown it returns q untouched and a nil override.
func Reconcile(q domain.RawCardQuery, breakdown string) (domain.RawCardQuery, *domain.OCROverride, []domain.Correction) {
	reconstructed, ok := Reconstruct(breakdown)
	if !ok {
		return q, nil, nil
	}

	override := &domain.OCROverride{
		Breakdown:     strings.TrimSpace(breakdown),
		Reconstructed: reconstructed,
		StatedNumber:  q.PrintedNumberRaw,
		StatedTotal:   q.SetTotalHint,
		StatedSetName: q.SetNameHint,
		StatedYear:    q.YearHint,
	}
	var corrections []domain.Correction
	record := func(field, original, corrected string) {
		if strings.EqualFold(strings.TrimSpace(original), corrected) {
			return
		}
		corrections = append(corrections, domain.Correction{
			Field:     field,
			Original:  original,
			Corrected: corrected,
			Source:    domain.SourceOCR,
		})
	}

	override.HadMismatch = compactNumber(q.PrintedNumberRaw) != compactNumber(reconstructed)
	if override.HadMismatch {
		record("printed_number", q.PrintedNumberRaw, reconstructed)
	}
	q.PrintedNumberRaw = reconstructed

	if frac, ok := cardnum.ParseFraction(reconstructed); ok {
		total := strconv.Itoa(frac.Denominator)
		record("set_total", q.SetTotalHint, total)
		q.SetTotalHint = total

		if set, hit := LookupDenominator(frac.Denominator); hit {
			override.DenominatorHit = true
			year := strconv.Itoa(set.Year)
			record("set_name", q.SetNameHint, set.Name)
			record("year", q.YearHint, year)
			q.SetNameHint = set.Name
			q.YearHint = year
		}
	}

	override.FinalSetName = q.SetNameHint
	override.FinalYear = q.YearHint
	return q, override, corrections
}

// Reconstruct concatenates the breakdown's characters in position order.
// Returns false when breakdown holds no position tokens.
func Reconstruct(breakdown string) (string, bool) {
	matches := positionToken.FindAllStringSubmatch(breakdown, -1)
	if len(matches) == 0 {
		return "", false
	}

	type token struct {
		pos  int
		char string
	}
	tokens := make([]token, 0, len(matches))
	for _, m := range matches {
		pos, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		tokens = append(tokens, token{pos: pos, char: strings.TrimSpace(m[2])})
	}
	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].pos < tokens[j].pos })

	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.char)
	}
	out := compactNumber(b.String())
	if out == "" {
		return "", false
	}
	return out, true
}

func compactNumber(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
