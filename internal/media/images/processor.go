package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
)

// MaxUploadSize caps accepted image uploads.
const MaxUploadSize = 8 << 20

// ErrInvalidImage marks uploads rejected before anything is stored.
var ErrInvalidImage = errors.New("invalid image")

// Stored describes a saved image.
type Stored struct {
	URL      string
	BlurHash string
}

// Processor validates uploads, stores them and computes placeholders.
type Processor struct {
	storage *Storage
	logger  *slog.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(storage *Storage, logger *slog.Logger) *Processor {
	return &Processor{storage: storage, logger: logger}
}

// Storage returns the underlying blob store.
func (p *Processor) Storage() *Storage {
	return p.storage
}

// Process stores an uploaded image for (kind, id).
// A failed BlurHash leaves the placeholder empty and is not an error.
func (p *Processor) Process(kind, id string, data []byte) (*Stored, error) {
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrInvalidImage, MaxUploadSize)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: not a supported format", ErrInvalidImage)
	}

	url, err := p.storage.Save(kind, id, data)
	if err != nil {
		return nil, err
	}

	hash, err := ComputeBlurHash(data)
	if err != nil {
		p.logger.Warn("Failed to compute blurhash", "kind", kind, "id", id, "error", err)
	}

	p.logger.Debug("Stored image", "url", url, "size", len(data))
	return &Stored{URL: url, BlurHash: hash}, nil
}
