package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping maps item documents: free text on name, type and
// description; exact keywords on status and owner; numeric registration time.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()

	name := bleve.NewTextFieldMapping()
	name.Analyzer = en.AnalyzerName
	name.Store = true
	name.IncludeTermVectors = true
	doc.AddFieldMappingsAt("name", name)

	itemType := bleve.NewTextFieldMapping()
	itemType.Analyzer = en.AnalyzerName
	itemType.Store = true
	doc.AddFieldMappingsAt("item_type", itemType)

	// Descriptions can be long; searchable but not stored.
	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = en.AnalyzerName
	desc.Store = false
	doc.AddFieldMappingsAt("description", desc)

	for _, field := range []string{"tag_id", "status", "owner_uuid", "image"} {
		kw := bleve.NewTextFieldMapping()
		kw.Analyzer = keyword.Name
		kw.Store = true
		doc.AddFieldMappingsAt(field, kw)
	}

	registered := bleve.NewNumericFieldMapping()
	registered.Store = true
	doc.AddFieldMappingsAt("registered_at", registered)

	indexMapping.AddDocumentMapping("_default", doc)
	return indexMapping
}
