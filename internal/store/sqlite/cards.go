package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cardid/cardid-server/internal/cardname"
	"github.com/cardid/cardid-server/internal/cardnum"
	"github.com/cardid/cardid-server/internal/catalog"
	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/errors"
)

// queryLimit bounds every catalog lookup. Name-only lookups for popular
// characters return hundreds of prints; the scorer only needs the head.
const queryLimit = 50

// cardColumns is the ordered list of columns selected in card queries.
// Must match the scan order in scanCard.
const cardColumns = `c.id, c.name, c.number, c.rarity, c.artist, c.image_small, c.image_large, c.prices,
	s.id, s.name, s.series, s.printed_total, s.release_date`

const cardFrom = ` FROM cards c JOIN sets s ON s.id = c.set_id`

const cardOrder = ` ORDER BY s.release_date, c.id LIMIT ?`

var _ catalog.Local = (*Store)(nil)

// scanCard scans a sql.Row (or sql.Rows via its Scan method) into a domain.ReferenceCard.
func scanCard(scanner interface{ Scan(dest ...any) error }) (domain.ReferenceCard, error) {
	var c domain.ReferenceCard

	var (
		rarity      sql.NullString
		artist      sql.NullString
		imageSmall  sql.NullString
		imageLarge  sql.NullString
		prices      sql.NullString
		series      sql.NullString
		releaseDate sql.NullString
	)

	err := scanner.Scan(
		&c.ID,
		&c.Name,
		&c.Number,
		&rarity,
		&artist,
		&imageSmall,
		&imageLarge,
		&prices,
		&c.Set.ID,
		&c.Set.Name,
		&series,
		&c.Set.PrintedTotal,
		&releaseDate,
	)
	if err != nil {
		return c, err
	}

	c.Rarity = rarity.String
	c.Artist = artist.String
	c.Images.Small = imageSmall.String
	c.Images.Large = imageLarge.String
	c.Set.Series = series.String
	c.Set.ReleaseDate = releaseDate.String

	if prices.Valid && prices.String != "" {
		if err := json.Unmarshal([]byte(prices.String), &c.Prices); err != nil {
			return c, fmt.Errorf("decode prices for %s: %w", c.ID, err)
		}
	}

	return c, nil
}

// filter accumulates WHERE clauses and their arguments.
type filter struct {
	clauses []string
	args    []any
}

func (f *filter) add(clause string, args ...any) {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, args...)
}

// name matches the folded name exactly or as a whole word at either end, so
// "Pikachu" finds "Pikachu V" and "Ash's Pikachu".
func (f *filter) name(name string) {
	key := cardname.Fold(name)
	if key == "" {
		return
	}
	like := escapeLike(key)
	f.add(`(c.name_key = ? OR c.name_key LIKE ? ESCAPE '\' OR c.name_key LIKE ? ESCAPE '\')`,
		key, like+" %", "% "+like)
}

func (f *filter) number(number string) {
	if key := numberKey(number); key != "" {
		f.add("c.number_key = ?", key)
	}
}

func (f *filter) sql() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

func (s *Store) queryCards(ctx context.Context, f filter) ([]domain.ReferenceCard, error) {
	query := "SELECT " + cardColumns + cardFrom + f.sql() + cardOrder
	rows, err := s.db.QueryContext(ctx, query, append(f.args, queryLimit)...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.ReferenceCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// QueryByNameNumber finds cards by name, optionally restricted to a number.
func (s *Store) QueryByNameNumber(ctx context.Context, name, number string) ([]domain.ReferenceCard, error) {
	var f filter
	f.name(name)
	f.number(number)
	if len(f.clauses) == 0 {
		return nil, nil
	}
	return s.queryCards(ctx, f)
}

// QueryByNameNumberSetName finds cards by name and number within sets whose
// name contains setName.
func (s *Store) QueryByNameNumberSetName(ctx context.Context, name, number, setName string) ([]domain.ReferenceCard, error) {
	key := cardname.Fold(setName)
	if key == "" {
		return s.QueryByNameNumber(ctx, name, number)
	}
	var f filter
	f.name(name)
	f.number(number)
	f.add("(s.name_key = ? OR instr(s.name_key, ?) > 0)", key, key)
	return s.queryCards(ctx, f)
}

// QueryByNameNumberPrintedTotal finds cards by name and number within sets
// printed with exactly printedTotal cards.
func (s *Store) QueryByNameNumberPrintedTotal(ctx context.Context, name, number string, printedTotal int) ([]domain.ReferenceCard, error) {
	var f filter
	f.name(name)
	f.number(number)
	f.add("s.printed_total = ?", printedTotal)
	return s.queryCards(ctx, f)
}

// QueryByNameNumberSetID finds cards within a single set or promo partition.
func (s *Store) QueryByNameNumberSetID(ctx context.Context, name, number, setID string) ([]domain.ReferenceCard, error) {
	var f filter
	f.name(name)
	f.number(number)
	f.add("c.set_id = ?", setID)
	return s.queryCards(ctx, f)
}

// QueryFuzzyNumber finds the card named name whose number is nearest to
// number within radius, optionally inside setID. The exact number itself is
// not considered; the caller has already tried it.
func (s *Store) QueryFuzzyNumber(ctx context.Context, name, number, setID string, radius int) (*catalog.FuzzyMatch, error) {
	neighbours := cardnum.Nearest(number, radius)
	if len(neighbours) == 0 {
		return nil, nil
	}

	var f filter
	f.name(name)
	if setID != "" {
		f.add("c.set_id = ?", setID)
	}
	if len(f.clauses) == 0 {
		return nil, nil
	}

	keys := make([]any, 0, len(neighbours)*2)
	placeholders := make([]string, 0, cap(keys))
	for _, n := range neighbours {
		for _, v := range cardnum.Normalize(n.Number, cardnum.Classify(n.Number)) {
			keys = append(keys, numberKey(v))
			placeholders = append(placeholders, "?")
		}
	}
	f.add("c.number_key IN ("+strings.Join(placeholders, ", ")+")", keys...)

	cards, err := s.queryCards(ctx, f)
	if err != nil {
		return nil, err
	}

	byNumber := make(map[string]domain.ReferenceCard, len(cards))
	for _, c := range cards {
		k := numberKey(c.Number)
		if _, ok := byNumber[k]; !ok {
			byNumber[k] = c
		}
	}
	for _, n := range neighbours {
		for _, v := range cardnum.Normalize(n.Number, cardnum.Classify(n.Number)) {
			if c, ok := byNumber[numberKey(v)]; ok {
				return &catalog.FuzzyMatch{Card: c, MatchedNumber: c.Number}, nil
			}
		}
	}
	return nil, nil
}

// GetCard returns a card by catalog id.
func (s *Store) GetCard(ctx context.Context, id string) (*domain.ReferenceCard, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+cardColumns+cardFrom+" WHERE c.id = ?", id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("card %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return &c, nil
}

// CountCards returns the number of cards in the catalog.
func (s *Store) CountCards(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards").Scan(&n); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}

// ForEachName calls fn once per distinct card name, in name order.
// Used to rebuild the name recovery index.
func (s *Store) ForEachName(ctx context.Context, fn func(name string) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT name FROM cards ORDER BY name")
	if err != nil {
		return fmt.Errorf("list names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan name: %w", err)
		}
		if err := fn(name); err != nil {
			return err
		}
	}
	return rows.Err()
}

func numberKey(number string) string {
	return strings.ToLower(strings.TrimSpace(number))
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
