package cardnum

import (
	"fmt"
	"regexp"
	"strings"
)

var promoParts = regexp.MustCompile(`^([A-Z]+)(\d+)$`)

// Normalize derives the ordered, de-duplicated list of strings the catalog's
// number field may hold for raw. The most likely form comes first.
//
// Each branch encodes how the catalog stores that format; reversing an order
// here silently turns every lookup for the format into a miss.
func Normalize(raw string, f Format) []string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}

	switch f {
	case FormatFraction:
		frac, ok := ParseFraction(s)
		if !ok {
			return numericVariants(digitRun.FindString(s))
		}
		return numericVariants(frac.Numerator)

	case FormatSingle:
		return numericVariants(digitRun.FindString(s))

	case FormatPromoA:
		m := promoParts.FindStringSubmatch(strings.ReplaceAll(s, " ", ""))
		if m == nil {
			return dedupe([]string{s})
		}
		// Catalog keeps the prefix for these promos.
		return dedupe([]string{m[1] + m[2], m[1] + trimZeros(m[2])})

	case FormatPromoB:
		// Catalog keeps only the digits for these promos.
		return numericVariants(digitRun.FindString(s))

	case FormatGalleryA, FormatGalleryB:
		token, _, _ := strings.Cut(s, "/")
		return dedupe([]string{strings.ReplaceAll(strings.TrimSpace(token), " ", "")})

	case FormatNone:
		return nil

	default:
		panic(fmt.Sprintf("cardnum: unhandled format %v", f))
	}
}

// Variants classifies and normalizes raw in one step.
func Variants(raw string) (Format, []string) {
	f := Classify(raw)
	return f, Normalize(raw, f)
}

// numericVariants returns the digits without leading zeros first, then as
// printed.
func numericVariants(digits string) []string {
	if digits == "" {
		return nil
	}
	return dedupe([]string{trimZeros(digits), digits})
}

func trimZeros(digits string) string {
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
