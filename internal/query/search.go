package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/mvp-joe/ariadne/internal/semantic"
)

// DefaultSearchLimit caps result sets when the caller passes no limit.
const DefaultSearchLimit = 20

// Search is a workspace-symbol style fuzzy lookup over the snapshot's
// definitions, backed by an in-memory bleve index.
type Search struct {
	index bleve.Index
	query *Index
}

// NewSearch builds the in-memory search index for one snapshot.
func NewSearch(ctx context.Context, q *Index) (*Search, error) {
	index, err := bleve.NewMemOnly(buildSymbolMapping())
	if err != nil {
		return nil, fmt.Errorf("query: creating search index: %w", err)
	}

	const batchSize = 1000
	batch := index.NewBatch()
	for _, sym := range q.Table().Symbols() {
		if err := ctx.Err(); err != nil {
			index.Close()
			return nil, err
		}
		def := q.Table().DefinitionOf(sym.ID)
		file := q.Table().FileOf(sym.ID)
		if def == nil || file == nil {
			continue
		}

		doc := map[string]any{
			"name": def.Name,
			"path": def.QualifiedPath(),
			"kind": def.Kind.String(),
			"file": file.Path,
		}
		if err := batch.Index(strconv.Itoa(int(sym.ID)), doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("query: indexing symbol %d: %w", sym.ID, err)
		}
		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				index.Close()
				return nil, fmt.Errorf("query: flushing search batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			index.Close()
			return nil, fmt.Errorf("query: flushing search batch: %w", err)
		}
	}

	return &Search{index: index, query: q}, nil
}

func buildSymbolMapping() *mapping.IndexMappingImpl {
	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = "standard"

	pathMapping := bleve.NewTextFieldMapping()
	pathMapping.Analyzer = "standard"

	kindMapping := bleve.NewTextFieldMapping()
	kindMapping.Analyzer = "keyword"

	fileMapping := bleve.NewTextFieldMapping()
	fileMapping.Analyzer = "standard"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", nameMapping)
	docMapping.AddFieldMappingsAt("path", pathMapping)
	docMapping.AddFieldMappingsAt("kind", kindMapping)
	docMapping.AddFieldMappingsAt("file", fileMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Find matches symbols by name or qualified path: exact terms, name
// prefixes, and small-edit-distance typos all hit.
func (s *Search) Find(ctx context.Context, term string, limit int) ([]Symbol, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	nameMatch := bleve.NewMatchQuery(term)
	nameMatch.SetField("name")
	nameMatch.SetBoost(3)

	nameFuzzy := bleve.NewMatchQuery(term)
	nameFuzzy.SetField("name")
	nameFuzzy.SetFuzziness(1)

	// Prefix queries run against raw index terms, which the standard
	// analyzer lowercases.
	namePrefix := bleve.NewPrefixQuery(strings.ToLower(term))
	namePrefix.SetField("name")

	pathMatch := bleve.NewMatchQuery(term)
	pathMatch.SetField("path")

	request := bleve.NewSearchRequestOptions(
		bleve.NewDisjunctionQuery(nameMatch, nameFuzzy, namePrefix, pathMatch),
		limit, 0, false,
	)

	result, err := s.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("query: search failed: %w", err)
	}

	out := make([]Symbol, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		if sym, ok := s.query.Symbol(semantic.GlobalID(id)); ok {
			out = append(out, sym)
		}
	}
	return out, nil
}

// Close releases the in-memory index.
func (s *Search) Close() error {
	return s.index.Close()
}
