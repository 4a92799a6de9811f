package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/tagreturn/tagreturn-server/internal/domain"
)

// Key prefixes of the three collections plus password resets.
const (
	tagPrefix   = "tag:"
	itemPrefix  = "item:"
	userPrefix  = "user:"
	resetPrefix = "reset:"
)

// Badger is the embedded key-value implementation of Store.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger

	Tags   *Entity[domain.Tag]
	Items  *Entity[domain.Item]
	Users  *Entity[domain.User]
	Resets *Entity[domain.PasswordReset]
}

// New opens (or creates) a Badger database at path.
func New(path string, logger *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Badger{db: db, logger: logger}

	s.Tags = NewEntity[domain.Tag](s, tagPrefix).WithNotFound(ErrTagNotFound)

	s.Items = NewEntity[domain.Item](s, itemPrefix).
		WithNotFound(ErrItemNotFound).
		WithLookup("owner", func(i *domain.Item) []string {
			return []string{i.OwnerUUID}
		}).
		WithLookup("substatus", func(i *domain.Item) []string {
			return []string{string(i.SubscriptionStatus)}
		})

	s.Users = NewEntity[domain.User](s, userPrefix).
		WithNotFound(ErrUserNotFound).
		WithIndexTransform("email",
			func(u *domain.User) []string {
				return []string{normalizeEmail(u.Email)}
			},
			normalizeEmail,
		)

	s.Resets = NewEntity[domain.PasswordReset](s, resetPrefix).WithNotFound(ErrResetNotFound)

	if logger != nil {
		logger.Info("Badger database opened", "path", path)
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Badger) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// countPrefix counts primary records under prefix, skipping index keys.
func (s *Badger) countPrefix(ctx context.Context, prefix string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if isIndexKey(prefix, it.Item().Key()) {
				continue
			}
			count++
		}
		return nil
	})
	return count, err
}

// normalizeEmail lowercases and trims an address for case-insensitive lookups.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	return data, nil
}
