package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/de"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for search documents.
//
// German is the default analyzer: the catalog is German audio dramas and the
// stemmer has to handle titles like "Der Fluch des Rubins". Identifiers and
// the type discriminator use the keyword analyzer for exact matching.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = de.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Name is the primary search target; term vectors enable highlighting.
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = de.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	artistFieldMapping := bleve.NewTextFieldMapping()
	artistFieldMapping.Analyzer = de.AnalyzerName
	artistFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("artist", artistFieldMapping)

	seriesFieldMapping := bleve.NewTextFieldMapping()
	seriesFieldMapping.Analyzer = de.AnalyzerName
	seriesFieldMapping.Store = true
	seriesFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("series_name", seriesFieldMapping)

	// Descriptions are searchable but not stored, they can get long.
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = de.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	typeFieldMapping := bleve.NewTextFieldMapping()
	typeFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("type", typeFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	upcFieldMapping := bleve.NewTextFieldMapping()
	upcFieldMapping.Analyzer = keyword.Name
	upcFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("upc", upcFieldMapping)

	durationFieldMapping := bleve.NewNumericFieldMapping()
	durationFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("duration", durationFieldMapping)

	yearFieldMapping := bleve.NewNumericFieldMapping()
	yearFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("release_year", yearFieldMapping)

	itemCountFieldMapping := bleve.NewNumericFieldMapping()
	itemCountFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("item_count", itemCountFieldMapping)

	playedFieldMapping := bleve.NewBooleanFieldMapping()
	playedFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("played", playedFieldMapping)

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
