package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names in the name index.
const (
	fieldKey     = "key"     // compacted name, one term
	fieldName    = "name"    // folded name, tokenized
	fieldDisplay = "display" // catalog spelling, stored only
)

// buildIndexMapping creates the mapping for card name documents.
//
// key is indexed as a single keyword so fuzzy queries compare whole names
// regardless of spacing and punctuation ("mr mime" vs "Mr. Mime"). name is
// tokenized with the simple analyzer (no stemming: card names are proper
// nouns) so a misread word inside a longer name can still match.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = simple.Name

	docMapping := bleve.NewDocumentMapping()

	keyFieldMapping := bleve.NewTextFieldMapping()
	keyFieldMapping.Analyzer = keyword.Name
	keyFieldMapping.Store = false
	docMapping.AddFieldMappingsAt(fieldKey, keyFieldMapping)

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = simple.Name
	nameFieldMapping.Store = false
	docMapping.AddFieldMappingsAt(fieldName, nameFieldMapping)

	displayFieldMapping := bleve.NewTextFieldMapping()
	displayFieldMapping.Index = false
	displayFieldMapping.Store = true
	docMapping.AddFieldMappingsAt(fieldDisplay, displayFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
