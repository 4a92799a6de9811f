package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/service"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/me",
		Summary:     "Get profile",
		Description: "Returns the signed-in user with dashboard counters and registered items",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProfile)
}

func (s *Server) registerItemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "registerItem",
		Method:        http.MethodPost,
		Path:          "/api/v1/items",
		Summary:       "Register item",
		Description:   "Claims an unowned tag and records the item it is attached to",
		Tags:          []string{"Items"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleRegisterItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "listItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "List items",
		Description: "Returns the signed-in user's items, oldest registration first",
		Tags:        []string{"Items"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListItems)

	huma.Register(s.api, huma.Operation{
		OperationID: "getItem",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{tag_id}",
		Summary:     "Get item",
		Tags:        []string{"Items"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateItemStatus",
		Method:      http.MethodPut,
		Path:        "/api/v1/items/{tag_id}/status",
		Summary:     "Update item status",
		Description: "Marks an item registered (0), lost (1) or found (2). Found is terminal.",
		Tags:        []string{"Items"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateItemStatus)

	huma.Register(s.api, huma.Operation{
		OperationID:  "setItemImage",
		Method:       http.MethodPut,
		Path:         "/api/v1/items/{tag_id}/image",
		Summary:      "Upload item photo",
		Description:  "Replaces the item's photo. The request body is the raw JPEG, PNG, GIF or WebP image.",
		Tags:         []string{"Items"},
		Security:     []map[string][]string{{"bearer": {}}},
		MaxBodyBytes: MaxUploadSize,
	}, s.handleSetItemImage)
}

// === DTOs ===

// ProfileOutput wraps the profile for Huma.
type ProfileOutput struct {
	Body *service.Profile
}

// RegisterItemInput wraps the register request for Huma.
type RegisterItemInput struct {
	Body service.RegisterItemRequest
}

// ItemOutput wraps an item for Huma.
type ItemOutput struct {
	Body *domain.Item
}

// ListItemsResponse contains the user's items.
type ListItemsResponse struct {
	Items []domain.Item `json:"items"`
	Total int           `json:"total"`
}

// ListItemsOutput wraps the list response for Huma.
type ListItemsOutput struct {
	Body ListItemsResponse
}

// TagPathInput identifies an item by its tag.
type TagPathInput struct {
	TagID string `path:"tag_id" doc:"Tag identifier"`
}

// UpdateStatusRequest is the request body for a status change.
type UpdateStatusRequest struct {
	Status domain.ItemStatus `json:"status" doc:"0 registered, 1 lost, 2 found"`
}

// UpdateStatusInput wraps the status request for Huma.
type UpdateStatusInput struct {
	TagID string `path:"tag_id" doc:"Tag identifier"`
	Body  UpdateStatusRequest
}

// StatusChangeOutput wraps a status change for Huma.
type StatusChangeOutput struct {
	Body *service.StatusChange
}

// SetItemImageInput carries the raw image bytes.
type SetItemImageInput struct {
	TagID   string `path:"tag_id" doc:"Tag identifier"`
	RawBody []byte `contentType:"application/octet-stream"`
}

// === Handlers ===

func (s *Server) handleGetProfile(ctx context.Context, _ *struct{}) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.Users.Profile(ctx, userID)
	if err != nil {
		return nil, handleError(err)
	}
	return &ProfileOutput{Body: profile}, nil
}

func (s *Server) handleRegisterItem(ctx context.Context, input *RegisterItemInput) (*ItemOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	item, err := s.services.Registry.RegisterItem(ctx, userID, input.Body)
	if err != nil {
		return nil, handleError(err)
	}
	return &ItemOutput{Body: item}, nil
}

func (s *Server) handleListItems(ctx context.Context, _ *struct{}) (*ListItemsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.services.Registry.ListItems(ctx, userID)
	if err != nil {
		return nil, handleError(err)
	}
	return &ListItemsOutput{Body: ListItemsResponse{Items: items, Total: len(items)}}, nil
}

func (s *Server) handleGetItem(ctx context.Context, input *TagPathInput) (*ItemOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	item, err := s.services.Registry.GetItem(ctx, userID, input.TagID)
	if err != nil {
		return nil, handleError(err)
	}
	return &ItemOutput{Body: item}, nil
}

func (s *Server) handleUpdateItemStatus(ctx context.Context, input *UpdateStatusInput) (*StatusChangeOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	change, err := s.services.Registry.UpdateItemStatus(ctx, userID, input.TagID, input.Body.Status)
	if err != nil {
		return nil, handleError(err)
	}
	return &StatusChangeOutput{Body: change}, nil
}

func (s *Server) handleSetItemImage(ctx context.Context, input *SetItemImageInput) (*ItemOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("Image body is required")
	}

	item, err := s.services.Registry.SetItemImage(ctx, userID, input.TagID, input.RawBody)
	if err != nil {
		return nil, handleError(err)
	}
	return &ItemOutput{Body: item}, nil
}
