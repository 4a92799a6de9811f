package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	for _, table := range []string{"tags", "items", "users", "password_resets"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTag(ctx, &domain.Tag{ID: "T1", Name: "Laptop", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if err := s.CreateTag(ctx, &domain.Tag{ID: "T1"}); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	claimed, err := s.ClaimTag(ctx, "T1", "U1")
	if err != nil || !claimed {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	claimed, err = s.ClaimTag(ctx, "nope", "U1")
	if err != nil || claimed {
		t.Fatalf("claim of missing tag should report false, got %v %v", claimed, err)
	}

	tag, err := s.GetTag(ctx, "T1")
	if err != nil {
		t.Fatalf("get tag: %v", err)
	}
	if !tag.IsOwned || tag.OwnerUUID != "U1" {
		t.Errorf("unexpected tag %+v", tag)
	}

	if _, err := s.GetTag(ctx, "nope"); !errors.Is(err, store.ErrTagNotFound) {
		t.Errorf("expected ErrTagNotFound, got %v", err)
	}
}

func TestItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	item := &domain.Item{
		TagID:        "T1",
		Name:         "Backpack",
		OwnerUUID:    "U1",
		RegisteredAt: now,
		Status:       domain.StatusRegistered,
	}
	if err := s.CreateItem(ctx, item); err != nil {
		t.Fatalf("create item: %v", err)
	}

	if ok, err := s.SetItemStatus(ctx, "T1", domain.StatusLost); err != nil || !ok {
		t.Fatalf("set status: %v %v", ok, err)
	}
	if ok, err := s.SetItemStatus(ctx, "T2", domain.StatusLost); err != nil || ok {
		t.Fatalf("set status on missing item: %v %v", ok, err)
	}

	active := domain.SubscriptionActive
	tier := "Gold"
	end := now.Add(-time.Hour)
	got, err := s.ApplySubscriptionUpdate(ctx, "T1", domain.SubscriptionUpdate{Status: &active, Tier: &tier, End: &end})
	if err != nil {
		t.Fatalf("apply update: %v", err)
	}
	if got.Status != domain.StatusLost || got.Tier != "Gold" || got.Name != "Backpack" {
		t.Errorf("unexpected merge result %+v", got)
	}

	// A second partial update must keep earlier fields.
	code := "SUB_123"
	got, err = s.ApplySubscriptionUpdate(ctx, "T1", domain.SubscriptionUpdate{Code: &code})
	if err != nil {
		t.Fatalf("apply update: %v", err)
	}
	if got.Tier != "Gold" || got.SubscriptionCode != "SUB_123" || got.SubscriptionStatus != domain.SubscriptionActive {
		t.Errorf("partial update clobbered fields: %+v", got)
	}

	if _, err := s.ApplySubscriptionUpdate(ctx, "T9", domain.SubscriptionUpdate{Code: &code}); !errors.Is(err, store.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}

	expired, err := s.ListExpiredSubscriptions(ctx, now)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].TagID != "T1" {
		t.Errorf("expected T1 expired, got %d items", len(expired))
	}

	expired, err = s.ListExpiredSubscriptions(ctx, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 0 {
		t.Errorf("end date is after the cutoff, got %d items", len(expired))
	}

	got, err = s.ApplySubscriptionUpdate(ctx, "T1", domain.SubscriptionUpdate{ClearEnd: true})
	if err != nil {
		t.Fatalf("clear end: %v", err)
	}
	if got.SubscriptionEnd != nil || got.SubscriptionStatus != domain.SubscriptionActive {
		t.Errorf("expected end cleared and status kept, got %+v", got)
	}
	expired, err = s.ListExpiredSubscriptions(ctx, now)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 0 {
		t.Errorf("cleared end date still listed as expired: %d items", len(expired))
	}
}

func TestUsers_EmbeddedItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	u := &domain.User{UUID: "U1", Email: "Ada@Example.com", FullName: "Ada", Role: domain.RoleMember, CreatedAt: now, UpdatedAt: now}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	dup := &domain.User{UUID: "U2", Email: "ada@example.com", CreatedAt: now, UpdatedAt: now}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if err := s.PutUserItem(ctx, "U1", "T1", domain.Item{TagID: "T1", Name: "Bag", Status: domain.StatusRegistered}); err != nil {
		t.Fatalf("put item: %v", err)
	}
	err := s.UpdateUserItem(ctx, "U1", "T1", func(i *domain.Item) { i.SubscriptionStatus = domain.SubscriptionInactive })
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if err := s.UpdateUserItem(ctx, "U1", "T2", func(*domain.Item) {}); !errors.Is(err, store.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.Items["T1"].SubscriptionStatus != domain.SubscriptionInactive || got.Items["T1"].Name != "Bag" {
		t.Errorf("unexpected embedded item %+v", got.Items["T1"])
	}

	if err := s.ReplaceUserItems(ctx, "U9", nil); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUsers_ConcurrentPutsKeepAllEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	if err := s.CreateUser(ctx, &domain.User{UUID: "U1", Email: "u@example.com", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	tags := []string{"A", "B", "C", "D", "E", "F"}
	var wg sync.WaitGroup
	for _, tag := range tags {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.PutUserItem(ctx, "U1", tag, domain.Item{TagID: tag}); err != nil {
				t.Errorf("put %s: %v", tag, err)
			}
		}()
	}
	wg.Wait()

	u, err := s.GetUser(ctx, "U1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if len(u.Items) != len(tags) {
		t.Errorf("expected %d entries, got %d", len(tags), len(u.Items))
	}
}

func TestPasswordResets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.CreatePasswordReset(ctx, &domain.PasswordReset{TokenHash: "h", UserUUID: "U1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}); err != nil {
		t.Fatalf("create reset: %v", err)
	}

	r, err := s.ConsumePasswordReset(ctx, "h", now)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if r.UserUUID != "U1" {
		t.Errorf("unexpected reset %+v", r)
	}
	if _, err := s.ConsumePasswordReset(ctx, "h", now); !errors.Is(err, store.ErrResetNotFound) {
		t.Errorf("second consume should fail, got %v", err)
	}

	if err := s.CreatePasswordReset(ctx, &domain.PasswordReset{TokenHash: "old", ExpiresAt: now.Add(-time.Minute), CreatedAt: now}); err != nil {
		t.Fatalf("create reset: %v", err)
	}
	n, err := s.DeleteExpiredPasswordResets(ctx, now)
	if err != nil || n != 1 {
		t.Errorf("expected 1 deleted, got %d %v", n, err)
	}
}
