package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

// itemColumns must match the scan order in scanItem.
const itemColumns = `tag_id, item_type, name, description, image_url, blur_hash,
	owner_uuid, registered_at, status, subscription_status, tier,
	subscription_code, subscription_end, email, updated_at`

func scanItem(scanner interface{ Scan(dest ...any) error }) (*domain.Item, error) {
	var (
		i            domain.Item
		imageURL     sql.NullString
		blurHash     sql.NullString
		registeredAt string
		status       string
		subStatus    sql.NullString
		tier         sql.NullString
		subCode      sql.NullString
		subEnd       sql.NullString
		email        sql.NullString
		updatedAt    string
	)

	err := scanner.Scan(
		&i.TagID,
		&i.Type,
		&i.Name,
		&i.Description,
		&imageURL,
		&blurHash,
		&i.OwnerUUID,
		&registeredAt,
		&status,
		&subStatus,
		&tier,
		&subCode,
		&subEnd,
		&email,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	i.RegisteredAt, err = parseTime(registeredAt)
	if err != nil {
		return nil, err
	}
	i.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	i.SubscriptionEnd, err = parseNullableTime(subEnd)
	if err != nil {
		return nil, err
	}

	i.Status = domain.ItemStatus(status)
	i.SubscriptionStatus = domain.SubscriptionStatus(subStatus.String)
	i.ImageURL = imageURL.String
	i.BlurHash = blurHash.String
	i.Tier = tier.String
	i.SubscriptionCode = subCode.String
	i.Email = email.String

	return &i, nil
}

// CreateItem inserts a new item.
func (s *Store) CreateItem(ctx context.Context, i *domain.Item) error {
	if i.TagID == "" {
		return store.ErrInvalidInput.WithMessage("tag id is required")
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.TagID,
		i.Type,
		i.Name,
		i.Description,
		nullString(i.ImageURL),
		nullString(i.BlurHash),
		i.OwnerUUID,
		formatTime(i.RegisteredAt),
		string(i.Status),
		nullString(string(i.SubscriptionStatus)),
		nullString(i.Tier),
		nullString(i.SubscriptionCode),
		nullTimeString(i.SubscriptionEnd),
		nullString(i.Email),
		formatTime(i.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// GetItem retrieves an item by tag id.
func (s *Store) GetItem(ctx context.Context, tagID string) (*domain.Item, error) {
	return getItem(ctx, s.db, tagID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItem(ctx context.Context, q queryer, tagID string) (*domain.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE tag_id = ?`, tagID)

	i, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return i, nil
}

// SetItemStatus overwrites the lifecycle status.
func (s *Store) SetItemStatus(ctx context.Context, tagID string, status domain.ItemStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = ? WHERE tag_id = ?`,
		string(status), formatTime(time.Now()), tagID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ApplySubscriptionUpdate merges the non-nil fields and returns the result.
// COALESCE keeps stored values where the update carries NULL.
func (s *Store) ApplySubscriptionUpdate(ctx context.Context, tagID string, u domain.SubscriptionUpdate) (*domain.Item, error) {
	var status, tier, code, email sql.NullString
	if u.Status != nil {
		status = sql.NullString{String: string(*u.Status), Valid: true}
	}
	if u.Tier != nil {
		tier = sql.NullString{String: *u.Tier, Valid: true}
	}
	if u.Code != nil {
		code = sql.NullString{String: *u.Code, Valid: true}
	}
	if u.Email != nil {
		email = sql.NullString{String: *u.Email, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE items SET
			subscription_status = COALESCE(?, subscription_status),
			tier                = COALESCE(?, tier),
			subscription_code   = COALESCE(?, subscription_code),
			subscription_end    = CASE WHEN ? THEN NULL ELSE COALESCE(?, subscription_end) END,
			email               = COALESCE(?, email),
			updated_at          = ?
		WHERE tag_id = ?`,
		status, tier, code, u.ClearEnd, nullTimeString(u.End), email, formatTime(time.Now()), tagID)
	if err != nil {
		return nil, fmt.Errorf("apply subscription update on item %s: %w", tagID, err)
	}
	if err := expectOne(res, store.ErrItemNotFound); err != nil {
		return nil, err
	}

	item, err := getItem(ctx, tx, tagID)
	if err != nil {
		return nil, err
	}
	return item, tx.Commit()
}

// SetItemImage records the image location and placeholder of an item.
func (s *Store) SetItemImage(ctx context.Context, tagID, imageURL, blurHash string) (*domain.Item, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET image_url = ?, blur_hash = ?, updated_at = ? WHERE tag_id = ?`,
		nullString(imageURL), nullString(blurHash), formatTime(time.Now()), tagID)
	if err != nil {
		return nil, err
	}
	if err := expectOne(res, store.ErrItemNotFound); err != nil {
		return nil, err
	}
	return s.GetItem(ctx, tagID)
}

// ListExpiredSubscriptions returns active items whose end date precedes now.
// Stored timestamps sort lexically, so the comparison runs in SQL.
func (s *Store) ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]*domain.Item, error) {
	return s.queryItems(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE subscription_status = ? AND subscription_end IS NOT NULL AND subscription_end < ?
		ORDER BY subscription_end`,
		string(domain.SubscriptionActive), formatTime(now))
}

// ListItemsByOwner returns a user's items ordered by registration date.
func (s *Store) ListItemsByOwner(ctx context.Context, uuid string) ([]*domain.Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE owner_uuid = ? ORDER BY registered_at`, uuid)
}

// ListItems returns every item.
func (s *Store) ListItems(ctx context.Context) ([]*domain.Item, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY tag_id`)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
