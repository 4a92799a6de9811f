package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	domainerrors "github.com/tagreturn/tagreturn-server/internal/errors"
	"github.com/tagreturn/tagreturn-server/internal/sse"
	"github.com/tagreturn/tagreturn-server/internal/store"
	"github.com/tagreturn/tagreturn-server/internal/tagimport"
)

// TagService answers public tag lookups and provisions tags.
type TagService struct {
	store    store.Store
	importer *tagimport.Importer
	events   Emitter
	logger   *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, importer *tagimport.Importer, events Emitter, logger *slog.Logger) *TagService {
	return &TagService{
		store:    store,
		importer: importer,
		events:   events,
		logger:   logger,
	}
}

// TagLookup is what a finder sees after scanning a tag. The owner's
// identity is never exposed.
type TagLookup struct {
	TagID   string     `json:"tag_id"`
	Name    string     `json:"tag_name"`
	IsOwned bool       `json:"is_owned"`
	Item    *FoundItem `json:"item,omitempty"`
}

// FoundItem is the public part of a registered item.
type FoundItem struct {
	Name     string            `json:"item_name"`
	Type     string            `json:"item_type"`
	Status   domain.ItemStatus `json:"status"`
	ImageURL string            `json:"item_image,omitempty"`
	BlurHash string            `json:"blur_hash,omitempty"`
}

// Lookup reports whether a tag exists and, once claimed, what it is on.
func (s *TagService) Lookup(ctx context.Context, tagID string) (*TagLookup, error) {
	tag, err := s.store.GetTag(ctx, tagID)
	if errors.Is(err, store.ErrTagNotFound) {
		return nil, domainerrors.TagNotFoundf("tag %s does not exist", tagID)
	}
	if err != nil {
		return nil, fmt.Errorf("load tag %s: %w", tagID, err)
	}

	out := &TagLookup{TagID: tag.ID, Name: tag.Name, IsOwned: tag.IsOwned}
	if !tag.IsOwned {
		return out, nil
	}

	item, err := s.store.GetItem(ctx, tagID)
	switch {
	case err == nil:
		out.Item = &FoundItem{
			Name:     item.Name,
			Type:     item.Type,
			Status:   item.Status,
			ImageURL: item.ImageURL,
			BlurHash: item.BlurHash,
		}
	case errors.Is(err, store.ErrItemNotFound):
		// Claimed, item write still pending or failed.
	default:
		return nil, fmt.Errorf("load item %s: %w", tagID, err)
	}
	return out, nil
}

// Import provisions the tags in a manifest read from r. source names the
// manifest in logs and events.
func (s *TagService) Import(ctx context.Context, r io.Reader, format tagimport.Format, source string) (tagimport.Result, error) {
	tags, err := tagimport.Parse(r, format)
	if err != nil {
		return tagimport.Result{}, domainerrors.Validationf("invalid tag manifest: %v", err)
	}

	res, err := s.importer.Import(ctx, tags)
	if err != nil {
		return res, err
	}
	s.Announce(source, res)
	return res, nil
}

// Announce publishes the outcome of an import to admin clients.
func (s *TagService) Announce(source string, res tagimport.Result) {
	s.events.Emit(sse.NewTagsImportedEvent(sse.TagsImportedData{
		Source:  source,
		Created: res.Created,
		Skipped: res.Skipped,
	}))
}
