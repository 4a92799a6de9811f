package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/keylock"
	"github.com/tagreturn/tagreturn-server/internal/logger"
	"github.com/tagreturn/tagreturn-server/internal/media/images"
	"github.com/tagreturn/tagreturn-server/internal/search"
	"github.com/tagreturn/tagreturn-server/internal/sse"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(event sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type sentMail struct {
	Template string
	To       string
	Data     map[string]any
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (r *recordingMailer) SendAsync(name, to string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, _ := data.(map[string]any)
	r.sent = append(r.sent, sentMail{Template: name, To: to, Data: m})
}

func (r *recordingMailer) last() (sentMail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return sentMail{}, false
	}
	return r.sent[len(r.sent)-1], true
}

// faultyStore fails selected writes so partial reconciliation can be observed.
type faultyStore struct {
	store.Store
	setStatusErr    error
	replaceItemsErr error
	putUserItemErr  error
}

func (f *faultyStore) SetItemStatus(ctx context.Context, tagID string, status domain.ItemStatus) (bool, error) {
	if f.setStatusErr != nil {
		return false, f.setStatusErr
	}
	return f.Store.SetItemStatus(ctx, tagID, status)
}

func (f *faultyStore) ReplaceUserItems(ctx context.Context, uuid string, items map[string]domain.Item) error {
	if f.replaceItemsErr != nil {
		return f.replaceItemsErr
	}
	return f.Store.ReplaceUserItems(ctx, uuid, items)
}

func (f *faultyStore) PutUserItem(ctx context.Context, uuid, tagID string, item domain.Item) error {
	if f.putUserItemErr != nil {
		return f.putUserItemErr
	}
	return f.Store.PutUserItem(ctx, uuid, tagID, item)
}

type testEnv struct {
	store      store.Store
	reconciler *Reconciler
	registry   *RegistryService
	index      *search.SearchIndex
	events     *recordingEmitter
	mailer     *recordingMailer
}

func setupStore(t *testing.T) *store.Badger {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupEnv(t *testing.T, st store.Store) *testEnv {
	t.Helper()
	log := logger.Discard()

	idx, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir(), Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	blobs, err := images.NewStorage(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		store:      st,
		reconciler: NewReconciler(st, keylock.New(), log),
		index:      idx,
		events:     &recordingEmitter{},
		mailer:     &recordingMailer{},
	}
	env.registry = NewRegistryService(st, env.reconciler, images.NewProcessor(blobs, log),
		idx, env.events, env.mailer, log)
	return env
}

// seedUser creates a user and an unowned tag.
func seedUser(t *testing.T, st store.Store, uuid, email string, tagIDs ...string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, st.CreateUser(ctx, &domain.User{
		UUID:      uuid,
		FullName:  "Test " + uuid,
		Email:     email,
		Role:      domain.RoleMember,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	for _, tagID := range tagIDs {
		require.NoError(t, st.CreateTag(ctx, &domain.Tag{ID: tagID, Name: "tag " + tagID, CreatedAt: now}))
	}
}

func registerItem(t *testing.T, env *testEnv, uuid, tagID string) *domain.Item {
	t.Helper()
	item, err := env.registry.RegisterItem(context.Background(), uuid, RegisterItemRequest{
		TagID: tagID,
		Type:  "bag",
		Name:  "Blue backpack",
	})
	require.NoError(t, err)
	return item
}
