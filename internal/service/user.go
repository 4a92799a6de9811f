package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	domainerrors "github.com/tagreturn/tagreturn-server/internal/errors"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

// Profile is the dashboard view of an account.
type Profile struct {
	User     *domain.User             `json:"user"`
	Counters domain.DashboardCounters `json:"counters"`
	Items    []domain.Item            `json:"items"`
}

// UserService serves account reads.
type UserService struct {
	store store.Store
}

// NewUserService creates a new user service.
func NewUserService(store store.Store) *UserService {
	return &UserService{store: store}
}

// Profile loads a user with counters derived from their items.
func (s *UserService) Profile(ctx context.Context, uuid string) (*Profile, error) {
	user, err := s.store.GetUser(ctx, uuid)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, domainerrors.NotFoundf("user %s not found", uuid)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", uuid, err)
	}

	items := sortedItems(user.Items)
	pub := publicUser(user)
	pub.Items = nil

	return &Profile{
		User:     pub,
		Counters: user.Counters(),
		Items:    items,
	}, nil
}
