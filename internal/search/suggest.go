package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/cardid/cardid-server/internal/cardname"
)

// maxFuzziness is the largest edit distance Bleve supports for fuzzy terms.
const maxFuzziness = 2

// Suggestion is a catalog spelling close to a queried name.
type Suggestion struct {
	Name  string  // catalog spelling
	Score float64 // Bleve relevance, for logging only
}

// Suggest returns the catalog name closest to name, or false when nothing
// lies within two edits or the closest name is name itself.
func (n *NameIndex) Suggest(name string) (Suggestion, bool, error) {
	key := cardname.Compact(name)
	if len(key) < 3 {
		return Suggestion{}, false, nil
	}

	keyQuery := bleve.NewFuzzyQuery(key)
	keyQuery.SetField(fieldKey)
	keyQuery.SetFuzziness(fuzziness(key))
	keyQuery.SetBoost(2)

	nameQuery := bleve.NewMatchQuery(cardname.Fold(name))
	nameQuery.SetField(fieldName)
	nameQuery.SetFuzziness(1)
	nameQuery.SetOperator(query.MatchQueryOperatorAnd)

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(keyQuery, nameQuery), 1, 0, false)
	req.Fields = []string{fieldDisplay}

	n.mu.RLock()
	res, err := n.index.Search(req)
	n.mu.RUnlock()
	if err != nil {
		return Suggestion{}, false, fmt.Errorf("suggest %q: %w", name, err)
	}
	if len(res.Hits) == 0 {
		return Suggestion{}, false, nil
	}

	hit := res.Hits[0]
	display, _ := hit.Fields[fieldDisplay].(string)
	if display == "" || cardname.Compact(display) == key {
		return Suggestion{}, false, nil
	}
	return Suggestion{Name: display, Score: hit.Score}, true, nil
}

// fuzziness allows one edit for short names, where two edits would match
// almost anything.
func fuzziness(key string) int {
	if len(key) <= 5 {
		return 1
	}
	return maxFuzziness
}
