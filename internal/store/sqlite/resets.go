package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

// CreatePasswordReset stores a pending reset keyed by its token hash.
func (s *Store) CreatePasswordReset(ctx context.Context, r *domain.PasswordReset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token_hash, user_uuid, expires_at, created_at)
		VALUES (?, ?, ?, ?)`,
		r.TokenHash, r.UserUUID, formatTime(r.ExpiresAt), formatTime(r.CreatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// ConsumePasswordReset deletes the reset and returns it if still valid.
func (s *Store) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordReset, error) {
	var (
		r         domain.PasswordReset
		expiresAt string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM password_resets WHERE token_hash = ?
		RETURNING token_hash, user_uuid, expires_at, created_at`, tokenHash).
		Scan(&r.TokenHash, &r.UserUUID, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrResetNotFound
	}
	if err != nil {
		return nil, err
	}

	if r.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.IsExpired(now) {
		return nil, store.ErrResetNotFound
	}
	return &r, nil
}

// DeleteExpiredPasswordResets removes resets past their expiry.
func (s *Store) DeleteExpiredPasswordResets(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
