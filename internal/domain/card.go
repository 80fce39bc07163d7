// Package domain contains the core entities shared by the card identity resolver.
package domain

import (
	"strconv"
	"strings"
)

// CardSet describes the catalog set (expansion) a card was printed in.
type CardSet struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Series       string `json:"series,omitempty"`
	PrintedTotal int    `json:"printed_total,omitempty"`
	ReleaseDate  string `json:"release_date,omitempty"` // "1999/01/09"
}

// Year returns the release year of the set, or 0 when unknown.
func (s CardSet) Year() int {
	if len(s.ReleaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(s.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// CardImages holds artwork URLs for a card.
type CardImages struct {
	Small string `json:"small,omitempty"`
	Large string `json:"large,omitempty"`
}

// PriceRef points at a market price published by a marketplace.
type PriceRef struct {
	Source  string  `json:"source"`            // tcgplayer, cardmarket
	Variant string  `json:"variant,omitempty"` // holofoil, normal, reverseHolofoil, trend
	Market  float64 `json:"market,omitempty"`
	URL     string  `json:"url,omitempty"`
}

// ReferenceCard is a canonical catalog record.
// The catalog owns these; the resolver only reads them.
type ReferenceCard struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Number string     `json:"number"`
	Set    CardSet    `json:"set"`
	Rarity string     `json:"rarity,omitempty"`
	Artist string     `json:"artist,omitempty"`
	Images CardImages `json:"images"`
	Prices []PriceRef `json:"prices,omitempty"`
}

// Year returns the release year of the card's set.
func (c *ReferenceCard) Year() int {
	return c.Set.Year()
}

// PrintedNumber renders the number the way it is printed on the card, "4/102".
func (c *ReferenceCard) PrintedNumber() string {
	if c.Set.PrintedTotal <= 0 {
		return c.Number
	}
	return c.Number + "/" + strconv.Itoa(c.Set.PrintedTotal)
}

// YearString returns the four-digit release year, or "" when unknown.
func (c *ReferenceCard) YearString() string {
	if y := c.Year(); y > 0 {
		return strconv.Itoa(y)
	}
	return ""
}

// RawCardQuery is the untrusted card description produced by the vision model.
// It is treated as immutable; reconciliation returns a corrected copy.
type RawCardQuery struct {
	Name             string `json:"name,omitempty" doc:"Card name as read from the card"`
	CharacterName    string `json:"character_name,omitempty" doc:"Character or player featured on the card"`
	SetNameHint      string `json:"set_name,omitempty" doc:"Set name reported by the model"`
	PrintedNumberRaw string `json:"printed_number,omitempty" doc:"Printed number exactly as shown, e.g. 240/193 or SWSH039"`
	SetTotalHint     string `json:"set_total,omitempty" doc:"Denominator of the printed number, e.g. 193"`
	YearHint         string `json:"year,omitempty" doc:"Copyright or release year"`
	RarityHint       string `json:"rarity,omitempty" doc:"Rarity reported by the model"`
	SetCodeHint      string `json:"set_code,omitempty" doc:"Three letter set code, e.g. SVI"`
}

// SubjectName returns the name used for catalog queries.
// The featured character wins over the card title, which often carries
// suffixes such as "ex" or "VMAX" the model misreads.
func (q RawCardQuery) SubjectName() string {
	if n := strings.TrimSpace(q.CharacterName); n != "" {
		return n
	}
	return strings.TrimSpace(q.Name)
}

// Year parses the first four-digit run of YearHint. Returns 0 when absent.
func (q RawCardQuery) Year() int {
	s := q.YearHint
	run := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			run = 0
			continue
		}
		run++
		if run == 4 {
			y, _ := strconv.Atoi(s[i-3 : i+1])
			return y
		}
	}
	return 0
}
