package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tagreturn/tagreturn-server/internal/domain"
)

// CreatePasswordReset stores a pending reset keyed by its token hash.
func (s *Badger) CreatePasswordReset(ctx context.Context, reset *domain.PasswordReset) error {
	return s.Resets.Create(ctx, reset.TokenHash, reset)
}

// ConsumePasswordReset atomically reads and deletes a reset.
func (s *Badger) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordReset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var reset *domain.PasswordReset
	err := s.db.Update(func(txn *badger.Txn) error {
		r, err := s.Resets.read(txn, tokenHash)
		if err != nil {
			return err
		}
		if err := s.Resets.deleteTxn(txn, tokenHash); err != nil {
			return err
		}
		reset = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if reset.IsExpired(now) {
		return nil, ErrResetNotFound
	}
	return reset, nil
}

// DeleteExpiredPasswordResets removes resets past their expiry.
func (s *Badger) DeleteExpiredPasswordResets(ctx context.Context, now time.Time) (int, error) {
	resets, err := s.Resets.Collect(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, r := range resets {
		if !r.IsExpired(now) {
			continue
		}
		if err := s.Resets.Delete(ctx, r.TokenHash); err != nil {
			return deleted, fmt.Errorf("delete reset: %w", err)
		}
		deleted++
	}
	return deleted, nil
}
