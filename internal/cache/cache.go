// Package cache provides the Lookup Cache: an in-process badger database that
// memoizes resolution results and remote catalog responses.
//
// Successful resolutions live for the process lifetime. Failures expire after
// a short TTL so a transient remote outage is retried. Badger's MVCC
// transactions give per-key isolation; readers never block writers.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/logger"
)

// Key prefixes.
const (
	prefixResolve = "resolve:"
	prefixSearch  = "search:"
	prefixSet     = "set:"
)

// Defaults applied when Options leaves a TTL at zero.
const (
	DefaultFailureTTL = 5 * time.Minute
	DefaultSearchTTL  = 24 * time.Hour
)

// Options configures a LookupCache.
type Options struct {
	// Path to persist the cache. Empty keeps it in memory, which is the
	// normal mode: results are only valid for the running catalog.
	Path       string
	FailureTTL time.Duration
	SearchTTL  time.Duration
	Logger     *slog.Logger
}

// LookupCache memoizes resolutions and remote responses.
type LookupCache struct {
	db         *badger.DB
	logger     *slog.Logger
	failureTTL time.Duration
	searchTTL  time.Duration
}

// New opens the cache.
func New(opts Options) (*LookupCache, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		bopts = bopts.WithInMemory(true)
	}
	bopts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}

	c := &LookupCache{
		db:         db,
		logger:     logger.OrNop(opts.Logger),
		failureTTL: opts.FailureTTL,
		searchTTL:  opts.SearchTTL,
	}
	if c.failureTTL <= 0 {
		c.failureTTL = DefaultFailureTTL
	}
	if c.searchTTL <= 0 {
		c.searchTTL = DefaultSearchTTL
	}
	return c, nil
}

// Close releases the database.
func (c *LookupCache) Close() error {
	return c.db.Close()
}

// Clear drops every entry. Called after the catalog changes.
func (c *LookupCache) Clear() error {
	if err := c.db.DropAll(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	c.logger.Info("lookup cache cleared")
	return nil
}

// Len counts live entries.
func (c *LookupCache) Len() int {
	n := 0
	_ = c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n
}

// Key hashes parts into a fixed-length cache key. Parts are separated so that
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// GetResult returns a memoized resolution.
func (c *LookupCache) GetResult(key string) (domain.ResolutionResult, bool) {
	var r domain.ResolutionResult
	ok := c.get(prefixResolve+key, &r)
	return r, ok
}

// PutResult memoizes r. Failures expire after the failure TTL.
func (c *LookupCache) PutResult(key string, r domain.ResolutionResult) {
	var ttl time.Duration
	if !r.Success {
		ttl = c.failureTTL
	}
	c.set(prefixResolve+key, r, ttl)
}

// GetSearch returns a memoized remote search response for query.
func (c *LookupCache) GetSearch(query string) ([]domain.ReferenceCard, bool) {
	var cards []domain.ReferenceCard
	ok := c.get(prefixSearch+Key(query), &cards)
	return cards, ok
}

// PutSearch memoizes a remote search response. Empty responses are treated
// as failures and use the shorter TTL.
func (c *LookupCache) PutSearch(query string, cards []domain.ReferenceCard) {
	ttl := c.searchTTL
	if len(cards) == 0 {
		ttl = c.failureTTL
	}
	c.set(prefixSearch+Key(query), cards, ttl)
}

// GetSet returns a memoized set lookup. found reports a cache hit; a hit with
// a nil set is a cached failure.
func (c *LookupCache) GetSet(id string) (set *domain.CardSet, found bool) {
	found = c.get(prefixSet+id, &set)
	return set, found
}

// PutSet memoizes a set lookup. A nil set records a failure.
func (c *LookupCache) PutSet(id string, set *domain.CardSet) {
	var ttl time.Duration
	if set == nil {
		ttl = c.failureTTL
	}
	c.set(prefixSet+id, set, ttl)
}

// get reports whether key was present and decoded into dest.
func (c *LookupCache) get(key string, dest any) bool {
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false
	}
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	return true
}

// set stores value under key. A zero ttl never expires.
func (c *LookupCache) set(key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
