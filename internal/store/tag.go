package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/tagreturn/tagreturn-server/internal/domain"
)

// CreateTag provisions a new, unowned tag.
func (s *Badger) CreateTag(ctx context.Context, tag *domain.Tag) error {
	if tag.ID == "" {
		return ErrInvalidInput.WithMessage("tag id is required")
	}
	if err := s.Tags.Create(ctx, tag.ID, tag); err != nil {
		return fmt.Errorf("create tag %s: %w", tag.ID, err)
	}
	return nil
}

// GetTag retrieves a tag by its identifier.
func (s *Badger) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	return s.Tags.Get(ctx, id)
}

// ClaimTag sets ownership on an existing tag in one transaction.
func (s *Badger) ClaimTag(ctx context.Context, tagID, uuid string) (bool, error) {
	_, err := s.Tags.Mutate(ctx, tagID, func(t *domain.Tag) error {
		t.Claim(uuid)
		return nil
	})
	if errors.Is(err, ErrTagNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim tag %s: %w", tagID, err)
	}
	return true, nil
}

// CountTags returns the number of provisioned tags.
func (s *Badger) CountTags(ctx context.Context) (int, error) {
	return s.countPrefix(ctx, tagPrefix)
}
