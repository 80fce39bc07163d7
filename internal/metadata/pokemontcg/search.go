package pokemontcg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/cardid/cardid-server/internal/catalog"
	"github.com/cardid/cardid-server/internal/domain"
)

var _ catalog.Remote = (*Client)(nil)

// SearchCards runs a raw query string against /cards.
func (c *Client) SearchCards(ctx context.Context, q string) ([]domain.ReferenceCard, error) {
	query := url.Values{}
	query.Set("q", q)
	query.Set("pageSize", strconv.Itoa(c.pageSize))
	query.Set("orderBy", "set.releaseDate")

	body, err := c.doRequest(ctx, "/cards", query)
	if err != nil {
		return nil, wrapError("search", q, err)
	}

	var resp cardsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("search", q, fmt.Errorf("parse response: %w", err))
	}
	return toDomainCards(resp.Data), nil
}

// Lookup implements catalog.Remote. Errors, timeouts and non-2xx responses
// are logged and reported as an empty result. Responses are memoized when a
// cache is configured; failures are memoized with the cache's short TTL
// unless the caller itself gave up.
func (c *Client) Lookup(ctx context.Context, q catalog.Query) []domain.ReferenceCard {
	qs := q.String()
	if qs == "" {
		return nil
	}
	if c.cache != nil {
		if cards, ok := c.cache.GetSearch(qs); ok {
			c.logger.Debug("pokemontcg cache hit", "q", qs, "results", len(cards))
			return cards
		}
	}

	cards, err := c.SearchCards(ctx, qs)
	if err != nil {
		c.logger.Warn("remote catalog lookup failed", "q", qs, "error", err)
		if ctx.Err() != nil {
			return nil
		}
	}
	if c.cache != nil {
		c.cache.PutSearch(qs, cards)
	}
	return cards
}

// GetSet fetches set metadata by id. Failed lookups are cached so repeated
// misses do not hit the API.
func (c *Client) GetSet(ctx context.Context, id string) (*domain.CardSet, error) {
	if id == "" {
		return nil, wrapError("getSet", id, ErrBadRequest)
	}
	if c.cache != nil {
		if set, ok := c.cache.GetSet(id); ok {
			if set == nil {
				return nil, wrapError("getSet", id, ErrNotFound)
			}
			return set, nil
		}
	}

	set, err := c.fetchSet(ctx, id)
	if err != nil {
		if c.cache != nil && ctx.Err() == nil {
			c.cache.PutSet(id, nil)
		}
		return nil, err
	}
	if c.cache != nil {
		c.cache.PutSet(id, set)
	}
	return set, nil
}

func (c *Client) fetchSet(ctx context.Context, id string) (*domain.CardSet, error) {
	body, err := c.doRequest(ctx, "/sets/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, wrapError("getSet", id, err)
	}

	var resp setResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("getSet", id, fmt.Errorf("parse response: %w", err))
	}
	if resp.Data.ID == "" {
		return nil, wrapError("getSet", id, ErrNotFound)
	}
	set := resp.Data.toDomain()
	return &set, nil
}
