package cardnum

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var prefixedNumber = regexp.MustCompile(`^([A-Za-z]*)(\d+)$`)

// Expand returns number's neighbours within radius, in ascending order of the
// numeric body, preserving the alphabetic prefix and the body's zero padding.
// Non-positive bodies are skipped. A number without a numeric body expands to
// itself.
//
//	Expand("SM226", 2) // SM224 SM225 SM226 SM227 SM228
//	Expand("007", 1)   // 006 007 008
func Expand(number string, radius int) []string {
	s := strings.TrimSpace(number)
	m := prefixedNumber.FindStringSubmatch(s)
	if m == nil {
		return []string{number}
	}
	prefix, body := m[1], m[2]
	n, err := strconv.Atoi(body)
	if err != nil {
		return []string{number}
	}
	if radius < 0 {
		radius = 0
	}

	width := 0
	if len(body) > 1 && body[0] == '0' {
		width = len(body)
	}

	out := make([]string, 0, 2*radius+1)
	for v := n - radius; v <= n+radius; v++ {
		if v <= 0 {
			continue
		}
		out = append(out, prefix+pad(v, width))
	}
	return out
}

// Neighbour is a nearby number and its distance from the original.
type Neighbour struct {
	Number   string
	Distance int
}

// Nearest returns Expand's output without number itself, ordered by distance
// and then ascending. Used by fuzzy recovery, which prefers the closest
// plausible misread.
func Nearest(number string, radius int) []Neighbour {
	m := prefixedNumber.FindStringSubmatch(strings.TrimSpace(number))
	if m == nil {
		return nil
	}
	origin, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}

	var out []Neighbour
	for _, candidate := range Expand(number, radius) {
		cm := prefixedNumber.FindStringSubmatch(candidate)
		v, _ := strconv.Atoi(cm[2])
		d := v - origin
		if d < 0 {
			d = -d
		}
		if d == 0 {
			continue
		}
		out = append(out, Neighbour{Number: candidate, Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

func pad(v, width int) string {
	s := strconv.Itoa(v)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
