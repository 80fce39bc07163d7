package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/errors"
)

const setColumns = `id, name, series, printed_total, release_date`

func scanSet(scanner interface{ Scan(dest ...any) error }) (domain.CardSet, error) {
	var (
		set         domain.CardSet
		series      sql.NullString
		releaseDate sql.NullString
	)
	if err := scanner.Scan(&set.ID, &set.Name, &series, &set.PrintedTotal, &releaseDate); err != nil {
		return set, err
	}
	set.Series = series.String
	set.ReleaseDate = releaseDate.String
	return set, nil
}

// GetSet retrieves a set by id.
func (s *Store) GetSet(ctx context.Context, id string) (*domain.CardSet, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+setColumns+" FROM sets WHERE id = ?", id)
	set, err := scanSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("set %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get set: %w", err)
	}
	return &set, nil
}

// ListSets returns every set, oldest first.
func (s *Store) ListSets(ctx context.Context) ([]domain.CardSet, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+setColumns+" FROM sets ORDER BY release_date, id")
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	defer rows.Close()

	var sets []domain.CardSet
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan set: %w", err)
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}
