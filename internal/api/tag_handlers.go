package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tagreturn/tagreturn-server/internal/search"
	"github.com/tagreturn/tagreturn-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "lookupTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{tag_id}",
		Summary:     "Look up tag",
		Description: "Public scan lookup. Reports whether a tag exists and is owned, with the item's public details. Owner identity is never returned.",
		Tags:        []string{"Tags"},
	}, s.handleLookupTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchLost",
		Method:      http.MethodGet,
		Path:        "/api/v1/lost",
		Summary:     "Search lost items",
		Description: "Full-text search over items currently reported lost",
		Tags:        []string{"Tags"},
	}, s.handleSearchLost)
}

// TagLookupOutput wraps a tag lookup for Huma.
type TagLookupOutput struct {
	Body *service.TagLookup
}

// SearchLostInput holds the search query parameters.
type SearchLostInput struct {
	Query  string `query:"q" doc:"Search text; empty lists every lost item"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Hits to skip"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body *search.Result
}

func (s *Server) handleLookupTag(ctx context.Context, input *TagPathInput) (*TagLookupOutput, error) {
	lookup, err := s.services.Tags.Lookup(ctx, input.TagID)
	if err != nil {
		return nil, handleError(err)
	}
	return &TagLookupOutput{Body: lookup}, nil
}

func (s *Server) handleSearchLost(ctx context.Context, input *SearchLostInput) (*SearchOutput, error) {
	res, err := s.services.Registry.SearchLost(ctx, input.Query, input.Limit, input.Offset)
	if err != nil {
		return nil, handleError(err)
	}
	return &SearchOutput{Body: res}, nil
}
