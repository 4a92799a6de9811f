package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/tagreturn/tagreturn-server/internal/domain"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Params configures a search.
type Params struct {
	Query  string
	Status domain.ItemStatus // empty matches every status
	Owner  string            // empty matches every owner
	Limit  int
	Offset int
}

// Result is a page of hits.
type Result struct {
	Query string `json:"query"`
	Total uint64 `json:"total"`
	Hits  []Hit  `json:"hits"`
}

// Hit is a matching item. Hits never carry the owner.
type Hit struct {
	TagID     string            `json:"tag_id"`
	Name      string            `json:"item_name"`
	ItemType  string            `json:"item_type"`
	Status    domain.ItemStatus `json:"status"`
	ImageURL  string            `json:"item_image,omitempty"`
	Score     float64           `json:"score"`
	Highlight string            `json:"highlight,omitempty"`
}

// Search runs a query against the item index.
func (s *SearchIndex) Search(ctx context.Context, params Params) (*Result, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	req := bleve.NewSearchRequestOptions(buildQuery(params), limit, max(params.Offset, 0), false)
	req.Fields = []string{"tag_id", "name", "item_type", "status", "image"}
	if strings.TrimSpace(params.Query) != "" {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("name")
	} else {
		req.SortBy([]string{"-registered_at"})
	}

	s.mu.RLock()
	res, err := s.index.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := &Result{Query: params.Query, Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		hit := Hit{TagID: h.ID, Score: h.Score}
		if v, ok := h.Fields["name"].(string); ok {
			hit.Name = v
		}
		if v, ok := h.Fields["item_type"].(string); ok {
			hit.ItemType = v
		}
		if v, ok := h.Fields["status"].(string); ok {
			hit.Status = domain.ItemStatus(v)
		}
		if v, ok := h.Fields["image"].(string); ok {
			hit.ImageURL = v
		}
		if frags := h.Fragments["name"]; len(frags) > 0 {
			hit.Highlight = frags[0]
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

func buildQuery(params Params) query.Query {
	var must []query.Query

	if text := strings.TrimSpace(params.Query); text != "" {
		name := bleve.NewMatchQuery(text)
		name.SetField("name")
		name.SetFuzziness(1)
		name.SetBoost(3)

		itemType := bleve.NewMatchQuery(text)
		itemType.SetField("item_type")
		itemType.SetBoost(2)

		desc := bleve.NewMatchQuery(text)
		desc.SetField("description")

		must = append(must, bleve.NewDisjunctionQuery(name, itemType, desc))
	}

	if params.Status != "" {
		q := bleve.NewTermQuery(string(params.Status))
		q.SetField("status")
		must = append(must, q)
	}
	if params.Owner != "" {
		q := bleve.NewTermQuery(params.Owner)
		q.SetField("owner_uuid")
		must = append(must, q)
	}

	switch len(must) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return must[0]
	default:
		return bleve.NewConjunctionQuery(must...)
	}
}
