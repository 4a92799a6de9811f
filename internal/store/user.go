package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
)

// CreateUser stores a new account. Email uniqueness is case-insensitive.
func (s *Badger) CreateUser(ctx context.Context, user *domain.User) error {
	if user.UUID == "" {
		return ErrInvalidInput.WithMessage("user uuid is required")
	}
	if user.Items == nil {
		user.Items = map[string]domain.Item{}
	}
	err := s.Users.Create(ctx, user.UUID, user)
	if errors.Is(err, ErrAlreadyExists) {
		return ErrEmailTaken
	}
	return err
}

// GetUser retrieves a user by uuid.
func (s *Badger) GetUser(ctx context.Context, uuid string) (*domain.User, error) {
	return s.Users.Get(ctx, uuid)
}

// GetUserByEmail retrieves a user by email address (case-insensitive).
func (s *Badger) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.Users.GetByIndex(ctx, "email", email)
}

// UpdatePassword replaces the stored password hash.
func (s *Badger) UpdatePassword(ctx context.Context, uuid, passwordHash string) error {
	_, err := s.Users.Mutate(ctx, uuid, func(u *domain.User) error {
		u.PasswordHash = passwordHash
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
	return err
}

// ReplaceUserItems overwrites the user's entire embedded items map.
func (s *Badger) ReplaceUserItems(ctx context.Context, uuid string, items map[string]domain.Item) error {
	_, err := s.Users.Mutate(ctx, uuid, func(u *domain.User) error {
		u.Items = maps.Clone(items)
		if u.Items == nil {
			u.Items = map[string]domain.Item{}
		}
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace items of user %s: %w", uuid, err)
	}
	return nil
}

// PutUserItem replaces (or adds) one embedded entry.
func (s *Badger) PutUserItem(ctx context.Context, uuid, tagID string, item domain.Item) error {
	_, err := s.Users.Mutate(ctx, uuid, func(u *domain.User) error {
		if u.Items == nil {
			u.Items = map[string]domain.Item{}
		}
		u.Items[tagID] = item
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return fmt.Errorf("put item %s on user %s: %w", tagID, uuid, err)
	}
	return nil
}

// UpdateUserItem mutates one existing embedded entry.
// Returns ErrItemNotFound when the user has no entry for tagID.
func (s *Badger) UpdateUserItem(ctx context.Context, uuid, tagID string, fn func(*domain.Item)) error {
	_, err := s.Users.Mutate(ctx, uuid, func(u *domain.User) error {
		item, ok := u.Items[tagID]
		if !ok {
			return ErrItemNotFound
		}
		fn(&item)
		u.Items[tagID] = item
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return fmt.Errorf("update item %s on user %s: %w", tagID, uuid, err)
	}
	return nil
}
