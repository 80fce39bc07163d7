package pokemontcg

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/cardid/cardid-server/internal/domain"
)

// Raw API response types.

type rawCard struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Number     string         `json:"number"`
	Rarity     string         `json:"rarity"`
	Artist     string         `json:"artist"`
	Set        rawSet         `json:"set"`
	Images     rawImages      `json:"images"`
	TCGPlayer  *rawTCGPlayer  `json:"tcgplayer"`
	Cardmarket *rawCardmarket `json:"cardmarket"`
}

type rawSet struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Series       string `json:"series"`
	PrintedTotal int    `json:"printedTotal"`
	Total        int    `json:"total"`
	ReleaseDate  string `json:"releaseDate"`
}

type rawImages struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

type rawTCGPlayer struct {
	URL    string `json:"url"`
	Prices map[string]struct {
		Market float64 `json:"market"`
	} `json:"prices"`
}

type rawCardmarket struct {
	URL    string `json:"url"`
	Prices struct {
		TrendPrice float64 `json:"trendPrice"`
	} `json:"prices"`
}

type cardsResponse struct {
	Data       []rawCard `json:"data"`
	TotalCount int       `json:"totalCount"`
}

type setResponse struct {
	Data rawSet `json:"data"`
}

func (s rawSet) toDomain() domain.CardSet {
	total := s.PrintedTotal
	if total == 0 {
		total = s.Total
	}
	return domain.CardSet{
		ID:           s.ID,
		Name:         s.Name,
		Series:       s.Series,
		PrintedTotal: total,
		ReleaseDate:  s.ReleaseDate,
	}
}

func (c rawCard) toDomain() domain.ReferenceCard {
	card := domain.ReferenceCard{
		ID:     c.ID,
		Name:   c.Name,
		Number: c.Number,
		Set:    c.Set.toDomain(),
		Rarity: c.Rarity,
		Artist: c.Artist,
		Images: domain.CardImages{Small: c.Images.Small, Large: c.Images.Large},
	}

	if c.TCGPlayer != nil {
		variants := make([]string, 0, len(c.TCGPlayer.Prices))
		for v := range c.TCGPlayer.Prices {
			variants = append(variants, v)
		}
		sort.Strings(variants)
		for _, v := range variants {
			if p := c.TCGPlayer.Prices[v]; p.Market > 0 {
				card.Prices = append(card.Prices, domain.PriceRef{
					Source:  "tcgplayer",
					Variant: v,
					Market:  p.Market,
					URL:     c.TCGPlayer.URL,
				})
			}
		}
	}
	if c.Cardmarket != nil && c.Cardmarket.Prices.TrendPrice > 0 {
		card.Prices = append(card.Prices, domain.PriceRef{
			Source:  "cardmarket",
			Variant: "trend",
			Market:  c.Cardmarket.Prices.TrendPrice,
			URL:     c.Cardmarket.URL,
		})
	}

	return card
}

func toDomainCards(raw []rawCard) []domain.ReferenceCard {
	cards := make([]domain.ReferenceCard, 0, len(raw))
	for i := range raw {
		cards = append(cards, raw[i].toDomain())
	}
	return cards
}

// DecodeCards reads a catalog dump in the API's card shape, either the
// paged envelope {"data": [...]} or a bare array.
func DecodeCards(r io.Reader) ([]domain.ReferenceCard, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read cards: %w", err)
	}

	var raw []rawCard
	if err := json.Unmarshal(data, &raw); err != nil {
		var envelope cardsResponse
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("decode cards: %w", err)
		}
		raw = envelope.Data
	}
	return toDomainCards(raw), nil
}
