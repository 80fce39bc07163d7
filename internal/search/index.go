// Package search maintains a fuzzy index of catalog card names, used to
// recover names the vision model misspelled.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/cardid/cardid-server/internal/cardname"
	"github.com/cardid/cardid-server/internal/logger"
)

// NameSource enumerates catalog names. Implemented by the sqlite store.
type NameSource interface {
	ForEachName(ctx context.Context, fn func(name string) error) error
}

// NameIndex wraps a Bleve index of distinct card names.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index swaps during rebuild.
type NameIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the name index.
type Options struct {
	DataPath string       // Directory for index storage; empty keeps it in memory
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// This triggers an automatic rebuild on startup when the version doesn't match.
const mappingVersion = "1"

const batchSize = 500

// NewNameIndex creates or opens the name index.
// An existing index with an outdated mapping, or one that fails to open, is
// removed and recreated empty; callers follow up with Rebuild.
func NewNameIndex(opts Options) (*NameIndex, error) {
	log := logger.OrNop(opts.Logger)

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		return &NameIndex{index: index, logger: log}, nil
	}

	indexPath := filepath.Join(opts.DataPath, "names.bleve")
	versionPath := filepath.Join(opts.DataPath, "names.version")

	var index bleve.Index
	var err error

	if _, statErr := os.Stat(indexPath); statErr == nil {
		existingVersion, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil || string(existingVersion) != mappingVersion:
			log.Info("name index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
		default:
			index, err = bleve.Open(indexPath)
			if err != nil {
				log.Warn("failed to open existing index, will recreate",
					"path", indexPath,
					"error", err,
				)
				index = nil
			}
		}
		if index == nil {
			if removeErr := os.RemoveAll(indexPath); removeErr != nil {
				return nil, fmt.Errorf("remove old index: %w", removeErr)
			}
		}
	}

	if index == nil {
		if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); writeErr != nil {
			log.Warn("failed to write name index version file", "error", writeErr)
		}
		log.Info("created new name index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		log.Info("opened existing name index", "path", indexPath)
	}

	return &NameIndex{
		index:  index,
		path:   indexPath,
		logger: log,
	}, nil
}

// Close closes the index and releases resources.
func (n *NameIndex) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index.Close()
}

// DocumentCount returns the number of indexed names.
func (n *NameIndex) DocumentCount() (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.index.DocCount()
}

// Rebuild replaces the index contents with the names in src.
// The new index is built aside and swapped in, so Suggest keeps serving the
// old contents until the swap.
func (n *NameIndex) Rebuild(ctx context.Context, src NameSource) (int, error) {
	fresh, freshPath, err := n.newEmpty()
	if err != nil {
		return 0, err
	}

	count := 0
	batch := fresh.NewBatch()
	err = src.ForEachName(ctx, func(name string) error {
		key := cardname.Compact(name)
		if key == "" {
			return nil
		}
		doc := map[string]any{
			fieldKey:     key,
			fieldName:    cardname.Fold(name),
			fieldDisplay: name,
		}
		if err := batch.Index(cardname.Fold(name), doc); err != nil {
			return fmt.Errorf("batch index %q: %w", name, err)
		}
		count++
		if batch.Size() >= batchSize {
			if err := fresh.Batch(batch); err != nil {
				return fmt.Errorf("commit batch: %w", err)
			}
			batch = fresh.NewBatch()
		}
		return ctx.Err()
	})
	if err == nil && batch.Size() > 0 {
		err = fresh.Batch(batch)
	}
	if err != nil {
		fresh.Close()
		if freshPath != "" {
			os.RemoveAll(freshPath)
		}
		return 0, fmt.Errorf("rebuild name index: %w", err)
	}

	if err := n.swap(fresh, freshPath); err != nil {
		return 0, err
	}
	n.logger.Info("rebuilt name index", "names", count)
	return count, nil
}

// newEmpty creates an empty index next to the live one.
func (n *NameIndex) newEmpty() (bleve.Index, string, error) {
	if n.path == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, "", fmt.Errorf("create index: %w", err)
		}
		return index, "", nil
	}
	tmp := n.path + ".new"
	if err := os.RemoveAll(tmp); err != nil {
		return nil, "", fmt.Errorf("remove stale index: %w", err)
	}
	index, err := bleve.New(tmp, buildIndexMapping())
	if err != nil {
		return nil, "", fmt.Errorf("create index: %w", err)
	}
	return index, tmp, nil
}

// swap installs fresh as the live index.
func (n *NameIndex) swap(fresh bleve.Index, freshPath string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.index.Close(); err != nil {
		n.logger.Warn("close old name index", "error", err)
	}
	if freshPath == "" {
		n.index = fresh
		return nil
	}

	// Bleve indexes cannot be renamed while open.
	if err := fresh.Close(); err != nil {
		return fmt.Errorf("close new index: %w", err)
	}
	if err := os.RemoveAll(n.path); err != nil {
		return fmt.Errorf("remove old index: %w", err)
	}
	if err := os.Rename(freshPath, n.path); err != nil {
		return fmt.Errorf("install new index: %w", err)
	}
	index, err := bleve.Open(n.path)
	if err != nil {
		return fmt.Errorf("open new index: %w", err)
	}
	n.index = index
	return nil
}
