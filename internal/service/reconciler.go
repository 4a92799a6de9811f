package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	domainerrors "github.com/tagreturn/tagreturn-server/internal/errors"
	"github.com/tagreturn/tagreturn-server/internal/keylock"
	"github.com/tagreturn/tagreturn-server/internal/metrics"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

// Reconciler keeps the canonical item record and the owner's embedded copy
// converged. Every multi-document sequence holds the locks of both the
// owning user and the tag, so status updates, webhooks and the sweep never
// interleave on the same item.
//
// The two writes are best effort: both are attempted, a failure of either
// is reported as PARTIAL_WRITE, and neither is rolled back.
type Reconciler struct {
	store  store.Store
	locks  *keylock.Locker
	logger *slog.Logger
	now    func() time.Time
}

// NewReconciler creates a reconciler.
func NewReconciler(store store.Store, locks *keylock.Locker, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		locks:  locks,
		logger: logger,
		now:    time.Now,
	}
}

func userLockKey(uuid string) string  { return "user:" + uuid }
func itemLockKey(tagID string) string { return "item:" + tagID }

// lock serializes work on one (user, tag) pair.
func (r *Reconciler) lock(uuid, tagID string) (unlock func()) {
	return r.locks.Lock(userLockKey(uuid), itemLockKey(tagID))
}

// UpdateItemStatusFull moves an item to status in both copies.
//
// The user's embedded map gates the operation: a tag absent from it is not
// found for that user. The whole map is written back, then the item record.
func (r *Reconciler) UpdateItemStatusFull(ctx context.Context, uuid, tagID string, status domain.ItemStatus) error {
	_, err := r.updateStatus(ctx, uuid, tagID, status)
	return err
}

// updateStatus is UpdateItemStatusFull returning the previous status.
func (r *Reconciler) updateStatus(ctx context.Context, uuid, tagID string, status domain.ItemStatus) (domain.ItemStatus, error) {
	if !status.Valid() {
		return "", domainerrors.Validationf("unknown item status %q", status)
	}

	unlock := r.lock(uuid, tagID)
	defer unlock()

	user, err := r.store.GetUser(ctx, uuid)
	if errors.Is(err, store.ErrUserNotFound) {
		return "", domainerrors.NotFoundf("user %s not found", uuid)
	}
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", uuid, err)
	}

	items := user.ItemsSnapshot()
	entry, ok := items[tagID]
	if !ok {
		return "", domainerrors.NotFoundf("item %s not found for user", tagID)
	}

	from := entry.Status
	if !domain.CanTransition(from, status) {
		return from, domainerrors.InvalidTransitionf("cannot move item %s from %s to %s",
			tagID, from.Label(), status.Label())
	}

	entry.Status = status
	entry.UpdatedAt = r.now().UTC()
	items[tagID] = entry

	userErr := r.store.ReplaceUserItems(ctx, uuid, items)
	if userErr != nil {
		userErr = fmt.Errorf("user copy: %w", userErr)
	}

	found, itemErr := r.store.SetItemStatus(ctx, tagID, status)
	if itemErr == nil && !found {
		itemErr = store.ErrItemNotFound
	}
	if itemErr != nil {
		itemErr = fmt.Errorf("item record: %w", itemErr)
	}

	if userErr != nil || itemErr != nil {
		metrics.ReconcilePartialFailure(metrics.DirectionStatus)
		r.logger.Error("Status reconciliation left copies diverged",
			"uuid", uuid,
			"tag_id", tagID,
			"status", status,
			"user_error", userErr,
			"item_error", itemErr,
		)
		return from, domainerrors.PartialWrite("status update partially applied", userErr, itemErr)
	}

	return from, nil
}

// ApplySubscription merges update into the item record, then replaces the
// owner's embedded entry with the resulting full record. Fields that only
// existed on the embedded copy do not survive the replace.
//
// On a partial write the updated item record is returned with the error.
func (r *Reconciler) ApplySubscription(ctx context.Context, tagID string, update domain.SubscriptionUpdate) (*domain.Item, error) {
	// Ownership never changes once claimed, so the owner read outside the
	// lock stays valid.
	current, err := r.store.GetItem(ctx, tagID)
	if errors.Is(err, store.ErrItemNotFound) {
		return nil, domainerrors.NotFoundf("item %s not found", tagID)
	}
	if err != nil {
		return nil, fmt.Errorf("load item %s: %w", tagID, err)
	}

	unlock := r.lock(current.OwnerUUID, tagID)
	defer unlock()

	item, err := r.store.ApplySubscriptionUpdate(ctx, tagID, update)
	if err != nil {
		return nil, fmt.Errorf("apply subscription update to %s: %w", tagID, err)
	}

	if err := r.store.PutUserItem(ctx, item.OwnerUUID, tagID, *item); err != nil {
		metrics.ReconcilePartialFailure(metrics.DirectionSubscription)
		r.logger.Error("Subscription reconciliation left copies diverged",
			"uuid", item.OwnerUUID,
			"tag_id", tagID,
			"error", err,
		)
		return item, domainerrors.PartialWrite("subscription update partially applied",
			fmt.Errorf("user copy: %w", err))
	}

	return item, nil
}

// DemoteExpired marks an expired active subscription inactive in both
// copies. It returns nil without writing when the item is no longer
// expired by the time the lock is held.
func (r *Reconciler) DemoteExpired(ctx context.Context, uuid, tagID string, now time.Time) (*domain.Item, error) {
	unlock := r.lock(uuid, tagID)
	defer unlock()

	current, err := r.store.GetItem(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("load item %s: %w", tagID, err)
	}
	if !current.IsExpired(now) {
		return nil, nil
	}

	inactive := domain.SubscriptionInactive
	item, err := r.store.ApplySubscriptionUpdate(ctx, tagID, domain.SubscriptionUpdate{Status: &inactive})
	if err != nil {
		return nil, fmt.Errorf("demote item %s: %w", tagID, err)
	}

	err = r.store.UpdateUserItem(ctx, item.OwnerUUID, tagID, func(entry *domain.Item) {
		entry.SubscriptionStatus = domain.SubscriptionInactive
	})
	if err != nil {
		metrics.ReconcilePartialFailure(metrics.DirectionSubscription)
		return item, domainerrors.PartialWrite("expiry demotion partially applied",
			fmt.Errorf("user copy: %w", err))
	}
	return item, nil
}
