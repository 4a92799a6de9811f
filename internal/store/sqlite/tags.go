package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

const tagColumns = `id, name, created_at, is_owned, owner_uuid`

func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var (
		t         domain.Tag
		createdAt string
		isOwned   int
		owner     sql.NullString
	)

	if err := scanner.Scan(&t.ID, &t.Name, &createdAt, &isOwned, &owner); err != nil {
		return nil, err
	}

	var err error
	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.IsOwned = isOwned != 0
	t.OwnerUUID = owner.String

	return &t, nil
}

// CreateTag inserts a new tag.
// Returns store.ErrAlreadyExists on a duplicate id.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	if t.ID == "" {
		return store.ErrInvalidInput.WithMessage("tag id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, created_at, is_owned, owner_uuid)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		formatTime(t.CreatedAt),
		boolToInt(t.IsOwned),
		nullString(t.OwnerUUID),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// GetTag retrieves a tag by id.
func (s *Store) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTagNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ClaimTag sets ownership on an existing tag in a single statement.
func (s *Store) ClaimTag(ctx context.Context, tagID, uuid string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tags SET is_owned = 1, owner_uuid = ? WHERE id = ?`, uuid, tagID)
	if err != nil {
		return false, err
	}
	if err := expectOne(res, store.ErrTagNotFound); err != nil {
		if errors.Is(err, store.ErrTagNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CountTags returns the number of provisioned tags.
func (s *Store) CountTags(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&n)
	return n, err
}
