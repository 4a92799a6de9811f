package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	domainerrors "github.com/tagreturn/tagreturn-server/internal/errors"
	"github.com/tagreturn/tagreturn-server/internal/mail"
	"github.com/tagreturn/tagreturn-server/internal/media/images"
	"github.com/tagreturn/tagreturn-server/internal/metrics"
	"github.com/tagreturn/tagreturn-server/internal/search"
	"github.com/tagreturn/tagreturn-server/internal/sse"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

// ItemIndex is the search capability the registry keeps up to date.
type ItemIndex interface {
	IndexItem(item *domain.Item) error
	Search(ctx context.Context, params search.Params) (*search.Result, error)
}

// RegistryService registers items against tags and manages their lifecycle.
type RegistryService struct {
	store      store.Store
	reconciler *Reconciler
	images     *images.Processor
	index      ItemIndex
	events     Emitter
	mailer     Mailer
	logger     *slog.Logger
}

// NewRegistryService creates a new registry service.
func NewRegistryService(
	store store.Store,
	reconciler *Reconciler,
	images *images.Processor,
	index ItemIndex,
	events Emitter,
	mailer Mailer,
	logger *slog.Logger,
) *RegistryService {
	return &RegistryService{
		store:      store,
		reconciler: reconciler,
		images:     images,
		index:      index,
		events:     events,
		mailer:     mailer,
		logger:     logger,
	}
}

// RegisterItemRequest describes the belonging attached to a tag.
type RegisterItemRequest struct {
	TagID       string `json:"tag_id" validate:"required,tagid"`
	Type        string `json:"item_type" validate:"required,max=64"`
	Name        string `json:"item_name" validate:"required,max=128"`
	Description string `json:"item_description,omitempty" validate:"max=2000"`
}

// StatusChange reports the outcome of a status update.
type StatusChange struct {
	TagID     string            `json:"tag_id"`
	OldStatus domain.ItemStatus `json:"old_status"`
	NewStatus domain.ItemStatus `json:"new_status"`
}

// RegisterItem claims a tag for uuid and records the item in the item
// store and in the user's embedded items.
func (s *RegistryService) RegisterItem(ctx context.Context, uuid string, req RegisterItemRequest) (*domain.Item, error) {
	req.TagID = strings.TrimSpace(req.TagID)
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	unlock := s.reconciler.lock(uuid, req.TagID)
	defer unlock()

	tag, err := s.store.GetTag(ctx, req.TagID)
	if errors.Is(err, store.ErrTagNotFound) {
		return nil, domainerrors.TagNotFoundf("tag %s does not exist", req.TagID)
	}
	if err != nil {
		return nil, fmt.Errorf("load tag %s: %w", req.TagID, err)
	}
	if tag.IsOwned {
		return nil, domainerrors.TagAlreadyOwnedf("tag %s is already registered", req.TagID)
	}

	user, err := s.store.GetUser(ctx, uuid)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, domainerrors.NotFoundf("user %s not found", uuid)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", uuid, err)
	}

	claimed, err := s.store.ClaimTag(ctx, req.TagID, uuid)
	if err != nil {
		return nil, fmt.Errorf("claim tag %s: %w", req.TagID, err)
	}
	if !claimed {
		return nil, domainerrors.Internal(fmt.Sprintf("tag %s disappeared while claiming", req.TagID))
	}

	now := time.Now().UTC()
	item := &domain.Item{
		TagID:        req.TagID,
		Type:         req.Type,
		Name:         req.Name,
		Description:  req.Description,
		OwnerUUID:    uuid,
		RegisteredAt: now,
		Status:       domain.StatusRegistered,
		UpdatedAt:    now,
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Wrapf(err, domainerrors.CodeConflict, "item %s already exists", req.TagID)
		}
		return nil, fmt.Errorf("create item %s: %w", req.TagID, err)
	}

	items := user.ItemsSnapshot()
	items[item.TagID] = *item
	if err := s.store.ReplaceUserItems(ctx, uuid, items); err != nil {
		metrics.ReconcilePartialFailure(metrics.DirectionStatus)
		s.logger.Error("Registered item missing from user copy",
			"uuid", uuid, "tag_id", item.TagID, "error", err)
		return item, domainerrors.PartialWrite("item registered but not added to user", err)
	}

	metrics.ItemRegistered()
	s.indexItem(item)
	s.events.Emit(sse.NewItemRegisteredEvent(item))

	s.logger.Info("Item registered",
		"uuid", uuid,
		"tag_id", item.TagID,
		"item_type", item.Type,
	)
	return item, nil
}

// UpdateItemStatus moves one of the user's items to a new lifecycle status.
func (s *RegistryService) UpdateItemStatus(ctx context.Context, uuid, tagID string, status domain.ItemStatus) (*StatusChange, error) {
	from, err := s.reconciler.updateStatus(ctx, uuid, tagID, status)
	if err != nil && !errors.Is(err, domainerrors.ErrPartialWrite) {
		return nil, err
	}

	change := &StatusChange{TagID: tagID, OldStatus: from, NewStatus: status}

	// Whatever landed in the item store is what search should show.
	if item, getErr := s.store.GetItem(ctx, tagID); getErr == nil {
		s.indexItem(item)
	}
	if err != nil {
		return change, err
	}

	if from != status {
		s.events.Emit(sse.NewStatusChangedEvent(uuid, tagID, from, status))
		s.notifyStatus(ctx, uuid, tagID, status)
	}
	return change, nil
}

func (s *RegistryService) notifyStatus(ctx context.Context, uuid, tagID string, status domain.ItemStatus) {
	user, err := s.store.GetUser(ctx, uuid)
	if err != nil {
		s.logger.Warn("Skipping status email", "uuid", uuid, "error", err)
		return
	}
	s.mailer.SendAsync(mail.TemplateItemStatus, user.Email, map[string]any{
		"Name":     user.FullName,
		"ItemName": user.Items[tagID].Name,
		"TagID":    tagID,
		"Status":   status.Label(),
	})
}

// SetItemImage stores a new picture for one of the user's items.
func (s *RegistryService) SetItemImage(ctx context.Context, uuid, tagID string, data []byte) (*domain.Item, error) {
	item, err := s.ownedItem(ctx, uuid, tagID)
	if err != nil {
		return nil, err
	}

	stored, err := s.images.Process(images.KindItem, tagID, data)
	if errors.Is(err, images.ErrInvalidImage) {
		return nil, domainerrors.Validation(err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("store image for %s: %w", tagID, err)
	}

	unlock := s.reconciler.lock(uuid, tagID)
	defer unlock()

	updated, err := s.store.SetItemImage(ctx, tagID, stored.URL, stored.BlurHash)
	if err != nil {
		return nil, fmt.Errorf("set image on %s: %w", tagID, err)
	}

	if item.ImageURL != "" && item.ImageURL != stored.URL {
		if err := s.images.Storage().DeleteByURL(item.ImageURL); err != nil && !errors.Is(err, images.ErrNotFound) {
			s.logger.Warn("Failed to delete replaced image", "url", item.ImageURL, "error", err)
		}
	}

	err = s.store.UpdateUserItem(ctx, uuid, tagID, func(entry *domain.Item) {
		entry.ImageURL = updated.ImageURL
		entry.BlurHash = updated.BlurHash
	})
	if err != nil {
		metrics.ReconcilePartialFailure(metrics.DirectionStatus)
		return updated, domainerrors.PartialWrite("image stored but user copy not updated", err)
	}

	s.indexItem(updated)
	s.events.Emit(sse.NewItemImageChangedEvent(updated))
	return updated, nil
}

// ListItems returns the user's items, oldest registration first.
func (s *RegistryService) ListItems(ctx context.Context, uuid string) ([]domain.Item, error) {
	user, err := s.store.GetUser(ctx, uuid)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, domainerrors.NotFoundf("user %s not found", uuid)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", uuid, err)
	}
	return sortedItems(user.Items), nil
}

// GetItem returns one of the user's items from their embedded copy.
func (s *RegistryService) GetItem(ctx context.Context, uuid, tagID string) (*domain.Item, error) {
	user, err := s.store.GetUser(ctx, uuid)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, domainerrors.NotFoundf("user %s not found", uuid)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", uuid, err)
	}
	item, ok := user.Items[tagID]
	if !ok {
		return nil, domainerrors.NotFoundf("item %s not found for user", tagID)
	}
	return &item, nil
}

// SearchLost searches items currently reported lost.
func (s *RegistryService) SearchLost(ctx context.Context, query string, limit, offset int) (*search.Result, error) {
	return s.index.Search(ctx, search.Params{
		Query:  query,
		Status: domain.StatusLost,
		Limit:  limit,
		Offset: offset,
	})
}

// ownedItem loads the canonical record and checks it belongs to uuid.
// Another user's item is reported as not found.
func (s *RegistryService) ownedItem(ctx context.Context, uuid, tagID string) (*domain.Item, error) {
	item, err := s.store.GetItem(ctx, tagID)
	if errors.Is(err, store.ErrItemNotFound) {
		return nil, domainerrors.NotFoundf("item %s not found", tagID)
	}
	if err != nil {
		return nil, fmt.Errorf("load item %s: %w", tagID, err)
	}
	if item.OwnerUUID != uuid {
		return nil, domainerrors.NotFoundf("item %s not found", tagID)
	}
	return item, nil
}

func (s *RegistryService) indexItem(item *domain.Item) {
	if err := s.index.IndexItem(item); err != nil {
		s.logger.Warn("Failed to index item", "tag_id", item.TagID, "error", err)
	}
}

func sortedItems(m map[string]domain.Item) []domain.Item {
	items := make([]domain.Item, 0, len(m))
	for _, item := range m {
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.Item) int {
		if c := a.RegisteredAt.Compare(b.RegisteredAt); c != 0 {
			return c
		}
		return strings.Compare(a.TagID, b.TagID)
	})
	return items
}
