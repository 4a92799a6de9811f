package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/logger"
	"github.com/tagreturn/tagreturn-server/internal/sse"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

func activeUntil(t *testing.T, env *testEnv, tagID string, end time.Time) {
	t.Helper()
	active := domain.SubscriptionActive
	_, err := env.reconciler.ApplySubscription(context.Background(), tagID, domain.SubscriptionUpdate{Status: &active, End: &end})
	require.NoError(t, err)
}

func TestSweep_DemotesOnlyExpired(t *testing.T) {
	st := setupStore(t)
	env := setupEnv(t, st)
	ctx := context.Background()
	seedUser(t, st, "U1", "u1@example.com", "OLD", "NEW")
	registerItem(t, env, "U1", "OLD")
	registerItem(t, env, "U1", "NEW")

	now := time.Now().UTC()
	activeUntil(t, env, "OLD", now.Add(-24*time.Hour))
	activeUntil(t, env, "NEW", now.Add(24*time.Hour))

	sweep := NewSweepService(st, env.reconciler, env.events, logger.Discard())
	res, err := sweep.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Demoted)
	assert.Zero(t, res.Failed)

	old, err := st.GetItem(ctx, "OLD")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionInactive, old.SubscriptionStatus)

	fresh, err := st.GetItem(ctx, "NEW")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, fresh.SubscriptionStatus)

	user, err := st.GetUser(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionInactive, user.Items["OLD"].SubscriptionStatus)
	assert.Equal(t, domain.SubscriptionActive, user.Items["NEW"].SubscriptionStatus)

	types := env.events.types()
	assert.Contains(t, types, sse.EventItemSubscriptionChanged)
	assert.Equal(t, sse.EventSweepCompleted, types[len(types)-1])

	// A second pass finds nothing left to do.
	res, err = sweep.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)
	assert.Zero(t, res.Demoted)
}

type failingUserUpdate struct {
	store.Store
	failTag string
}

func (f *failingUserUpdate) UpdateUserItem(ctx context.Context, uuid, tagID string, fn func(*domain.Item)) error {
	if tagID == f.failTag {
		return errors.New("user write failed")
	}
	return f.Store.UpdateUserItem(ctx, uuid, tagID, fn)
}

func TestSweep_FailuresDoNotAbortPass(t *testing.T) {
	base := setupStore(t)
	seedEnv := setupEnv(t, base)
	seedUser(t, base, "U1", "u1@example.com", "A", "B")
	registerItem(t, seedEnv, "U1", "A")
	registerItem(t, seedEnv, "U1", "B")

	past := time.Now().UTC().Add(-time.Hour)
	activeUntil(t, seedEnv, "A", past)
	activeUntil(t, seedEnv, "B", past)

	faulty := &failingUserUpdate{Store: base, failTag: "A"}
	env := setupEnv(t, faulty)
	sweep := NewSweepService(faulty, env.reconciler, env.events, logger.Discard())

	res, err := sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Demoted)
	assert.Equal(t, 1, res.Failed)

	b, err := base.GetItem(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionInactive, b.SubscriptionStatus)
}

func TestSweep_PurgesExpiredResets(t *testing.T) {
	st := setupStore(t)
	env := setupEnv(t, st)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, st.CreatePasswordReset(ctx, &domain.PasswordReset{
		TokenHash: "stale", UserUUID: "U1", ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Hour),
	}))

	res, err := NewSweepService(st, env.reconciler, env.events, logger.Discard()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ResetsExpired)
}
