package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

// userColumns must match the scan order in scanUser.
const userColumns = `uuid, email, full_name, date_of_birth, address, id_no,
	profile_picture, phone_number, gender, valid_id_type, id_card_image,
	password_hash, role, items_json, created_at, updated_at`

func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var (
		u         domain.User
		optional  [9]sql.NullString
		role      string
		itemsJSON string
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&u.UUID,
		&u.Email,
		&u.FullName,
		&optional[0],
		&optional[1],
		&optional[2],
		&optional[3],
		&optional[4],
		&optional[5],
		&optional[6],
		&optional[7],
		&optional[8],
		&role,
		&itemsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.DateOfBirth = optional[0].String
	u.Address = optional[1].String
	u.IDNo = optional[2].String
	u.ProfilePicture = optional[3].String
	u.PhoneNumber = optional[4].String
	u.Gender = optional[5].String
	u.ValidIDType = optional[6].String
	u.IDCardImage = optional[7].String
	u.PasswordHash = optional[8].String
	u.Role = domain.Role(role)

	if u.Items, err = decodeItems(itemsJSON); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func decodeItems(raw string) (map[string]domain.Item, error) {
	items := map[string]domain.Item{}
	if raw == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode items_json: %w", err)
	}
	return items, nil
}

func encodeItems(items map[string]domain.Item) (string, error) {
	if items == nil {
		items = map[string]domain.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode items_json: %w", err)
	}
	return string(data), nil
}

// CreateUser inserts a new user. A duplicate email (any case) yields
// store.ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.UUID == "" {
		return store.ErrInvalidInput.WithMessage("user uuid is required")
	}
	itemsJSON, err := encodeItems(u.Items)
	if err != nil {
		return err
	}
	if u.Items == nil {
		u.Items = map[string]domain.Item{}
	}

	s.rmw.Lock()
	defer s.rmw.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`, email_lower)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UUID,
		u.Email,
		u.FullName,
		nullString(u.DateOfBirth),
		nullString(u.Address),
		nullString(u.IDNo),
		nullString(u.ProfilePicture),
		nullString(u.PhoneNumber),
		nullString(u.Gender),
		nullString(u.ValidIDType),
		nullString(u.IDCardImage),
		nullString(u.PasswordHash),
		string(u.Role),
		itemsJSON,
		formatTime(u.CreatedAt),
		formatTime(u.UpdatedAt),
		strings.ToLower(strings.TrimSpace(u.Email)),
	)
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "email_lower") {
			return store.ErrEmailTaken
		}
		return store.ErrAlreadyExists
	}
	return err
}

// GetUser retrieves a user by uuid.
func (s *Store) GetUser(ctx context.Context, uuid string) (*domain.User, error) {
	return s.getUser(ctx, `uuid = ?`, uuid)
}

// GetUserByEmail retrieves a user by email address (case-insensitive).
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUser(ctx, `email_lower = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(ctx context.Context, uuid, passwordHash string) error {
	s.rmw.Lock()
	defer s.rmw.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE uuid = ?`,
		passwordHash, formatTime(time.Now()), uuid)
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrUserNotFound)
}

// ReplaceUserItems overwrites the whole items_json document.
func (s *Store) ReplaceUserItems(ctx context.Context, uuid string, items map[string]domain.Item) error {
	itemsJSON, err := encodeItems(items)
	if err != nil {
		return err
	}

	s.rmw.Lock()
	defer s.rmw.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET items_json = ?, updated_at = ? WHERE uuid = ?`,
		itemsJSON, formatTime(time.Now()), uuid)
	if err != nil {
		return fmt.Errorf("replace items of user %s: %w", uuid, err)
	}
	return expectOne(res, store.ErrUserNotFound)
}

// PutUserItem replaces (or adds) one embedded entry.
func (s *Store) PutUserItem(ctx context.Context, uuid, tagID string, item domain.Item) error {
	return s.mutateItems(ctx, uuid, func(items map[string]domain.Item) error {
		items[tagID] = item
		return nil
	})
}

// UpdateUserItem mutates one existing embedded entry.
func (s *Store) UpdateUserItem(ctx context.Context, uuid, tagID string, fn func(*domain.Item)) error {
	return s.mutateItems(ctx, uuid, func(items map[string]domain.Item) error {
		item, ok := items[tagID]
		if !ok {
			return store.ErrItemNotFound
		}
		fn(&item)
		items[tagID] = item
		return nil
	})
}

// mutateItems is a read-modify-write of items_json inside one transaction.
func (s *Store) mutateItems(ctx context.Context, uuid string, fn func(map[string]domain.Item) error) error {
	s.rmw.Lock()
	defer s.rmw.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT items_json FROM users WHERE uuid = ?`, uuid).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrUserNotFound
	}
	if err != nil {
		return err
	}

	items, err := decodeItems(raw)
	if err != nil {
		return err
	}
	if err := fn(items); err != nil {
		return err
	}

	encoded, err := encodeItems(items)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET items_json = ?, updated_at = ? WHERE uuid = ?`,
		encoded, formatTime(time.Now()), uuid); err != nil {
		return err
	}
	return tx.Commit()
}
