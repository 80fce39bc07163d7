package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cardid/cardid-server/internal/cardname"
	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/errors"
)

// UpsertCards inserts or replaces cards and their sets in one transaction.
// Returns the number of cards written.
func (s *Store) UpsertCards(ctx context.Context, cards []domain.ReferenceCard) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	setStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sets (id, name, name_key, series, printed_total, release_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			name_key = excluded.name_key,
			series = excluded.series,
			printed_total = excluded.printed_total,
			release_date = excluded.release_date`)
	if err != nil {
		return 0, fmt.Errorf("prepare set upsert: %w", err)
	}
	defer setStmt.Close()

	cardStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (
			id, set_id, name, name_key, number, number_key,
			rarity, artist, image_small, image_large, prices
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			set_id = excluded.set_id,
			name = excluded.name,
			name_key = excluded.name_key,
			number = excluded.number,
			number_key = excluded.number_key,
			rarity = excluded.rarity,
			artist = excluded.artist,
			image_small = excluded.image_small,
			image_large = excluded.image_large,
			prices = excluded.prices`)
	if err != nil {
		return 0, fmt.Errorf("prepare card upsert: %w", err)
	}
	defer cardStmt.Close()

	seenSets := make(map[string]struct{})
	written := 0
	for i := range cards {
		c := &cards[i]
		if c.ID == "" || c.Set.ID == "" || c.Name == "" {
			return written, errors.Validationf("card %d: id, name and set id are required", i)
		}

		if _, ok := seenSets[c.Set.ID]; !ok {
			_, err := setStmt.ExecContext(ctx,
				c.Set.ID,
				c.Set.Name,
				cardname.Fold(c.Set.Name),
				nullString(c.Set.Series),
				c.Set.PrintedTotal,
				nullString(c.Set.ReleaseDate),
			)
			if err != nil {
				return written, fmt.Errorf("upsert set %s: %w", c.Set.ID, err)
			}
			seenSets[c.Set.ID] = struct{}{}
		}

		var prices []byte
		if len(c.Prices) > 0 {
			if prices, err = json.Marshal(c.Prices); err != nil {
				return written, fmt.Errorf("encode prices for %s: %w", c.ID, err)
			}
		}

		_, err := cardStmt.ExecContext(ctx,
			c.ID,
			c.Set.ID,
			c.Name,
			cardname.Fold(c.Name),
			c.Number,
			numberKey(c.Number),
			nullString(c.Rarity),
			nullString(c.Artist),
			nullString(c.Images.Small),
			nullString(c.Images.Large),
			nullString(string(prices)),
		)
		if err != nil {
			return written, fmt.Errorf("upsert card %s: %w", c.ID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("catalog cards upserted", "count", written, "sets", len(seenSets))
	return written, nil
}
