package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
)

// CreateItem inserts a new item keyed by its tag id.
func (s *Badger) CreateItem(ctx context.Context, item *domain.Item) error {
	if item.TagID == "" {
		return ErrInvalidInput.WithMessage("tag id is required")
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}
	if err := s.Items.Create(ctx, item.TagID, item); err != nil {
		return fmt.Errorf("create item %s: %w", item.TagID, err)
	}
	return nil
}

// GetItem retrieves an item by tag id.
func (s *Badger) GetItem(ctx context.Context, tagID string) (*domain.Item, error) {
	return s.Items.Get(ctx, tagID)
}

// SetItemStatus overwrites the lifecycle status of an item.
func (s *Badger) SetItemStatus(ctx context.Context, tagID string, status domain.ItemStatus) (bool, error) {
	_, err := s.Items.Mutate(ctx, tagID, func(i *domain.Item) error {
		i.Status = status
		i.UpdatedAt = time.Now().UTC()
		return nil
	})
	if errors.Is(err, ErrItemNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("set status on item %s: %w", tagID, err)
	}
	return true, nil
}

// ApplySubscriptionUpdate merges subscription fields into an item.
func (s *Badger) ApplySubscriptionUpdate(ctx context.Context, tagID string, update domain.SubscriptionUpdate) (*domain.Item, error) {
	item, err := s.Items.Mutate(ctx, tagID, func(i *domain.Item) error {
		update.ApplyTo(i)
		i.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply subscription update on item %s: %w", tagID, err)
	}
	return item, nil
}

// SetItemImage records the image location and placeholder of an item.
func (s *Badger) SetItemImage(ctx context.Context, tagID, imageURL, blurHash string) (*domain.Item, error) {
	item, err := s.Items.Mutate(ctx, tagID, func(i *domain.Item) error {
		i.ImageURL = imageURL
		i.BlurHash = blurHash
		i.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set image on item %s: %w", tagID, err)
	}
	return item, nil
}

// ListExpiredSubscriptions returns active items whose end date precedes now.
func (s *Badger) ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]*domain.Item, error) {
	active, err := s.Items.ListByLookup(ctx, "substatus", string(domain.SubscriptionActive))
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}

	expired := active[:0]
	for _, item := range active {
		if item.IsExpired(now) {
			expired = append(expired, item)
		}
	}
	return expired, nil
}

// ListItemsByOwner returns a user's items ordered by registration date.
func (s *Badger) ListItemsByOwner(ctx context.Context, uuid string) ([]*domain.Item, error) {
	items, err := s.Items.ListByLookup(ctx, "owner", uuid)
	if err != nil {
		return nil, fmt.Errorf("list items for %s: %w", uuid, err)
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].RegisteredAt.Before(items[b].RegisteredAt)
	})
	return items, nil
}

// ListItems returns every item.
func (s *Badger) ListItems(ctx context.Context) ([]*domain.Item, error) {
	return s.Items.Collect(ctx)
}
