package search

import (
	"github.com/tagreturn/tagreturn-server/internal/domain"
)

// ItemDocument is the indexed projection of an item.
type ItemDocument struct {
	TagID        string
	Name         string
	ItemType     string
	Description  string
	Status       domain.ItemStatus
	OwnerUUID    string
	ImageURL     string
	RegisteredAt int64
}

// DocumentFromItem projects an item for indexing.
func DocumentFromItem(item *domain.Item) *ItemDocument {
	return &ItemDocument{
		TagID:        item.TagID,
		Name:         item.Name,
		ItemType:     item.Type,
		Description:  item.Description,
		Status:       item.Status,
		OwnerUUID:    item.OwnerUUID,
		ImageURL:     item.ImageURL,
		RegisteredAt: item.RegisteredAt.Unix(),
	}
}

// toMap keys fields by their mapping names.
func (d *ItemDocument) toMap() map[string]any {
	return map[string]any{
		"tag_id":        d.TagID,
		"name":          d.Name,
		"item_type":     d.ItemType,
		"description":   d.Description,
		"status":        string(d.Status),
		"owner_uuid":    d.OwnerUUID,
		"image":         d.ImageURL,
		"registered_at": float64(d.RegisteredAt),
	}
}
