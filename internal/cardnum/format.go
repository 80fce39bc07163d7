// Package cardnum classifies printed card numbers and derives the query
// variants the catalog stores them under.
package cardnum

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Format is the closed set of printed-number layouts.
type Format int

// Formats. The zero value is FormatNone.
const (
	FormatNone     Format = iota
	FormatFraction        // 240/193
	FormatPromoA          // SWSH039: prefix kept in the catalog
	FormatPromoB          // SVP EN 085: catalog stores digits only
	FormatGalleryA        // TG10
	FormatGalleryB        // GG33
	FormatSingle          // 85
)

var formatNames = [...]string{
	FormatNone:     "none",
	FormatFraction: "fraction",
	FormatPromoA:   "promo_a",
	FormatPromoB:   "promo_b",
	FormatGalleryA: "gallery_a",
	FormatGalleryB: "gallery_b",
	FormatSingle:   "single",
}

// String returns the wire name of the format.
func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// ParseFormat converts a wire name back to a Format.
func ParseFormat(s string) (Format, bool) {
	for i, name := range formatNames {
		if name == s {
			return Format(i), true
		}
	}
	return FormatNone, false
}

// Formats lists every format in classification order.
func Formats() []Format {
	return []Format{FormatPromoA, FormatPromoB, FormatGalleryA, FormatGalleryB, FormatFraction, FormatSingle, FormatNone}
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	parsed, ok := ParseFormat(string(b))
	if !ok {
		return fmt.Errorf("unknown card number format %q", b)
	}
	*f = parsed
	return nil
}

var (
	promoAPattern   = regexp.MustCompile(`^(SWSH|HGSS|SM|XY|BW|DP|NP)\d+$`)
	promoBPattern   = regexp.MustCompile(`^SVP?\s*(EN\s*)?\d+$`)
	galleryAPattern = regexp.MustCompile(`^TG\d+`)
	galleryBPattern = regexp.MustCompile(`^GG\d+`)
	fractionPattern = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)
	digitsPattern   = regexp.MustCompile(`^\d+$`)
	digitRun        = regexp.MustCompile(`\d+`)
)

// Classify assigns exactly one Format to a raw printed number.
//
// Order matters: promo prefixes are checked before gallery prefixes, and both
// before the generic digit patterns, because their alphanumeric forms would
// otherwise collapse into FormatSingle. Promo prefixes may be split from
// their digits by OCR, so "SWSH 039" and "SV 085" still classify as promos.
func Classify(raw string) Format {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case s == "":
		return FormatNone
	case promoAPattern.MatchString(strings.Join(strings.Fields(s), "")):
		return FormatPromoA
	case promoBPattern.MatchString(s), strings.Contains(s, "SVP"):
		return FormatPromoB
	case galleryAPattern.MatchString(s):
		return FormatGalleryA
	case galleryBPattern.MatchString(s):
		return FormatGalleryB
	case fractionPattern.MatchString(s):
		return FormatFraction
	case digitsPattern.MatchString(s):
		return FormatSingle
	case digitRun.MatchString(s):
		return FormatSingle
	default:
		return FormatNone
	}
}

// Fraction is a parsed "numerator/denominator" printed number.
type Fraction struct {
	Numerator   string
	Denominator int
}

// ParseFraction parses "4/102" style numbers. Whitespace around the slash is
// tolerated.
func ParseFraction(raw string) (Fraction, bool) {
	m := fractionPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Fraction{}, false
	}
	total, err := strconv.Atoi(m[2])
	if err != nil || total <= 0 {
		return Fraction{}, false
	}
	return Fraction{Numerator: m[1], Denominator: total}, true
}

// ParseTotal extracts the numeric part of a set-total hint such as "102" or
// "TG30". Returns 0 when no number is present.
func ParseTotal(hint string) int {
	s := strings.TrimSpace(hint)
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
	})
	s = strings.TrimSpace(s)
	if !digitsPattern.MatchString(s) {
		return 0
	}
	total, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return total
}
