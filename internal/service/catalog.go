package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cardid/cardid-server/internal/cardnum"
	"github.com/cardid/cardid-server/internal/domain"
	domainerrors "github.com/cardid/cardid-server/internal/errors"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/metadata/pokemontcg"
	"github.com/cardid/cardid-server/internal/search"
	"github.com/cardid/cardid-server/internal/watcher"
)

// CatalogStore is the read side of the local catalog.
type CatalogStore interface {
	search.NameSource
	GetCard(ctx context.Context, id string) (*domain.ReferenceCard, error)
	GetSet(ctx context.Context, id string) (*domain.CardSet, error)
	ListSets(ctx context.Context) ([]domain.CardSet, error)
	CountCards(ctx context.Context) (int, error)
}

// SetFetcher resolves set metadata the local catalog lacks.
type SetFetcher interface {
	GetSet(ctx context.Context, id string) (*domain.CardSet, error)
}

// NameIndexer is the name recovery index.
type NameIndexer interface {
	Rebuild(ctx context.Context, src search.NameSource) (int, error)
	DocumentCount() (uint64, error)
}

// Cache is the lookup cache as seen by catalog maintenance.
type Cache interface {
	Clear() error
	Len() int
}

// CatalogService serves catalog reads and keeps derived state (the name
// index and the lookup cache) in step with the catalog file.
type CatalogService struct {
	store  CatalogStore
	remote SetFetcher
	index  NameIndexer
	cache  Cache
	logger *slog.Logger
	radius int
}

// CatalogOptions holds the optional collaborators of a CatalogService.
type CatalogOptions struct {
	Remote SetFetcher  // nil disables remote set lookup
	Index  NameIndexer // nil disables reindexing
	Cache  Cache       // nil skips cache invalidation
	// FuzzyRadius is the default neighbour radius for Classify.
	FuzzyRadius int
	Logger      *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store CatalogStore, opts CatalogOptions) *CatalogService {
	radius := opts.FuzzyRadius
	if radius <= 0 {
		radius = 3
	}
	return &CatalogService{
		store:  store,
		remote: opts.Remote,
		index:  opts.Index,
		cache:  opts.Cache,
		logger: logger.OrNop(opts.Logger),
		radius: radius,
	}
}

// GetCard returns a catalog card.
func (s *CatalogService) GetCard(ctx context.Context, id string) (*domain.ReferenceCard, error) {
	return s.store.GetCard(ctx, strings.TrimSpace(id))
}

// ListSets returns every set in the local catalog.
func (s *CatalogService) ListSets(ctx context.Context) ([]domain.CardSet, error) {
	return s.store.ListSets(ctx)
}

// GetSet returns set metadata, asking the remote service when the local
// catalog does not know the set.
func (s *CatalogService) GetSet(ctx context.Context, id string) (*domain.CardSet, error) {
	id = strings.TrimSpace(id)
	set, err := s.store.GetSet(ctx, id)
	if err == nil {
		return set, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) || s.remote == nil {
		return nil, err
	}

	set, rerr := s.remote.GetSet(ctx, id)
	switch {
	case rerr == nil:
		s.logger.Debug("set resolved remotely", "set_id", id)
		return set, nil
	case errors.Is(rerr, pokemontcg.ErrNotFound), errors.Is(rerr, pokemontcg.ErrBadRequest):
		return nil, err
	default:
		s.logger.Warn("remote set lookup failed", "set_id", id, "error", rerr)
		return nil, domainerrors.Unavailable("remote catalog unavailable").WithCause(rerr)
	}
}

// NumberClassification describes how a printed number is read and searched.
type NumberClassification struct {
	Raw        string   `json:"raw"`
	Format     string   `json:"format"`
	Variants   []string `json:"variants"`
	Partition  string   `json:"partition,omitempty"`
	Total      int      `json:"printed_total,omitempty"`
	Neighbours []string `json:"neighbours"`
}

// Classify explains how raw would be looked up. radius <= 0 selects the
// configured fuzzy radius.
func (s *CatalogService) Classify(raw string, radius int) NumberClassification {
	if radius <= 0 {
		radius = s.radius
	}
	return Classify(raw, radius)
}

// Classify runs the number pipeline on raw without a catalog.
func Classify(raw string, radius int) NumberClassification {
	format, variants := cardnum.Variants(raw)
	out := NumberClassification{
		Raw:        raw,
		Format:     format.String(),
		Variants:   variants,
		Partition:  cardnum.PartitionForNumber(raw, format),
		Neighbours: []string{},
	}
	if out.Variants == nil {
		out.Variants = []string{}
	}
	if frac, ok := cardnum.ParseFraction(raw); ok {
		out.Total = frac.Denominator
	}
	if len(variants) > 0 {
		for _, n := range cardnum.Nearest(variants[0], radius) {
			out.Neighbours = append(out.Neighbours, n.Number)
		}
	}
	return out
}

// Reload rebuilds the name index from the catalog and drops cached
// resolutions, which may no longer hold.
func (s *CatalogService) Reload(ctx context.Context) (int, error) {
	names := 0
	if s.index != nil {
		n, err := s.index.Rebuild(ctx, s.store)
		if err != nil {
			return 0, fmt.Errorf("reload catalog: %w", err)
		}
		names = n
	}
	if s.cache != nil {
		if err := s.cache.Clear(); err != nil {
			return names, fmt.Errorf("reload catalog: %w", err)
		}
	}
	s.logger.Info("catalog reloaded", "names", names)
	return names, nil
}

// Follow reloads after every settled change to the catalog file until ctx is
// done or events closes.
func (s *CatalogService) Follow(ctx context.Context, events <-chan watcher.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case watcher.EventChanged:
				s.logger.Info("catalog file changed", "path", ev.Path, "size", ev.Size)
				if _, err := s.Reload(ctx); err != nil && ctx.Err() == nil {
					s.logger.Error("catalog reload failed", "error", err)
				}
			case watcher.EventRemoved:
				s.logger.Warn("catalog file removed; keeping current index", "path", ev.Path)
			}
		}
	}
}

// CountCards returns the number of cards in the local catalog.
func (s *CatalogService) CountCards(ctx context.Context) (int, error) {
	return s.store.CountCards(ctx)
}

// IndexedNames returns the size of the name index. ok is false when name
// recovery is disabled.
func (s *CatalogService) IndexedNames() (count uint64, ok bool, err error) {
	if s.index == nil {
		return 0, false, nil
	}
	count, err = s.index.DocumentCount()
	return count, true, err
}

// CacheEntries returns the number of live cache entries, or -1 without a cache.
func (s *CatalogService) CacheEntries() int {
	if s.cache == nil {
		return -1
	}
	return s.cache.Len()
}

// RemoteEnabled reports whether remote set lookups are configured.
func (s *CatalogService) RemoteEnabled() bool {
	return s.remote != nil
}
