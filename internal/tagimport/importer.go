package tagimport

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

// TagCreator is the store capability the importer needs.
type TagCreator interface {
	CreateTag(ctx context.Context, tag *domain.Tag) error
}

// Result summarises an import.
type Result struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Failed  []string `json:"failed,omitempty"`
}

// Importer provisions tags. Existing tags are left untouched, so an
// import never changes ownership.
type Importer struct {
	store  TagCreator
	logger *slog.Logger
}

// NewImporter creates an importer.
func NewImporter(store TagCreator, logger *slog.Logger) *Importer {
	return &Importer{store: store, logger: logger}
}

// Import creates every tag that does not exist yet. Individual failures
// are recorded in the result; only context cancellation aborts.
func (im *Importer) Import(ctx context.Context, tags []domain.Tag) (Result, error) {
	var res Result
	for i := range tags {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		tag := tags[i]
		tag.IsOwned = false
		tag.OwnerUUID = ""

		err := im.store.CreateTag(ctx, &tag)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, store.ErrAlreadyExists):
			res.Skipped++
		default:
			im.logger.Warn("Failed to import tag", "tag_id", tag.ID, "error", err)
			res.Failed = append(res.Failed, tag.ID)
		}
	}

	im.logger.Info("Tag import finished",
		"created", res.Created,
		"skipped", res.Skipped,
		"failed", len(res.Failed),
	)
	return res, nil
}

// ImportFile parses and imports a manifest file.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	tags, err := ParseFile(path)
	if err != nil {
		return Result{}, err
	}
	return im.Import(ctx, tags)
}
