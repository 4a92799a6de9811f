// Package store defines the persistence interface for the TagReturn registry
// and its Badger implementation.
//
// Three logical collections live behind it: tags, items and users. Each
// method is atomic for the single document it touches; nothing here spans
// documents. Callers coordinate multi-document sequences themselves.
package store

import (
	"context"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	Close() error

	// Tags
	CreateTag(ctx context.Context, tag *domain.Tag) error
	GetTag(ctx context.Context, id string) (*domain.Tag, error)
	// ClaimTag marks an existing tag owned by uuid. It reports false when
	// the tag does not exist and does not look at prior ownership.
	ClaimTag(ctx context.Context, tagID, uuid string) (bool, error)
	CountTags(ctx context.Context) (int, error)

	// Items
	CreateItem(ctx context.Context, item *domain.Item) error
	GetItem(ctx context.Context, tagID string) (*domain.Item, error)
	// SetItemStatus overwrites the lifecycle status. It reports false when
	// the item does not exist.
	SetItemStatus(ctx context.Context, tagID string, status domain.ItemStatus) (bool, error)
	// ApplySubscriptionUpdate merges the non-nil fields of update into the
	// item and returns the resulting record.
	ApplySubscriptionUpdate(ctx context.Context, tagID string, update domain.SubscriptionUpdate) (*domain.Item, error)
	SetItemImage(ctx context.Context, tagID, imageURL, blurHash string) (*domain.Item, error)
	ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]*domain.Item, error)
	ListItemsByOwner(ctx context.Context, uuid string) ([]*domain.Item, error)
	ListItems(ctx context.Context) ([]*domain.Item, error)

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, uuid string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, uuid, passwordHash string) error
	// ReplaceUserItems persists the whole embedded items map.
	ReplaceUserItems(ctx context.Context, uuid string, items map[string]domain.Item) error
	// PutUserItem replaces one embedded entry outright.
	PutUserItem(ctx context.Context, uuid, tagID string, item domain.Item) error
	// UpdateUserItem runs fn against one existing embedded entry inside a
	// single-document read-modify-write.
	UpdateUserItem(ctx context.Context, uuid, tagID string, fn func(*domain.Item)) error

	// Password resets
	CreatePasswordReset(ctx context.Context, reset *domain.PasswordReset) error
	// ConsumePasswordReset deletes the reset and returns it. Missing or
	// expired resets yield ErrResetNotFound.
	ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordReset, error)
	DeleteExpiredPasswordResets(ctx context.Context, now time.Time) (int, error)
}

// Compile-time check.
var _ Store = (*Badger)(nil)
