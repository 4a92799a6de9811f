package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/metrics"
	"github.com/tagreturn/tagreturn-server/internal/sse"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

// SweepResult summarises one expiry sweep pass.
type SweepResult struct {
	Scanned       int           `json:"scanned"`
	Demoted       int           `json:"demoted"`
	Failed        int           `json:"failed"`
	ResetsExpired int           `json:"resets_expired"`
	Duration      time.Duration `json:"duration_ns"`
}

// SweepService demotes expired subscriptions to inactive.
type SweepService struct {
	store      store.Store
	reconciler *Reconciler
	events     Emitter
	logger     *slog.Logger
	now        func() time.Time

	// mu keeps passes from overlapping when the timer and an on-demand
	// run coincide.
	mu sync.Mutex
}

// NewSweepService creates a new sweep service.
func NewSweepService(store store.Store, reconciler *Reconciler, events Emitter, logger *slog.Logger) *SweepService {
	return &SweepService{
		store:      store,
		reconciler: reconciler,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// Run performs one pass. Each expired active item is set inactive in the
// item store and in its owner's copy. A failing item is logged and counted;
// only listing errors and cancellation end the pass early.
func (s *SweepService) Run(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	now := start.UTC()
	var res SweepResult

	expired, err := s.store.ListExpiredSubscriptions(ctx, now)
	if err != nil {
		return res, fmt.Errorf("list expired subscriptions: %w", err)
	}
	res.Scanned = len(expired)

	for _, item := range expired {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		updated, err := s.reconciler.DemoteExpired(ctx, item.OwnerUUID, item.TagID, now)
		if err != nil {
			res.Failed++
			s.logger.Error("Failed to demote expired subscription",
				"tag_id", item.TagID,
				"uuid", item.OwnerUUID,
				"error", err,
			)
		}
		if updated == nil {
			continue
		}
		if err == nil {
			res.Demoted++
		}
		s.events.Emit(sse.NewSubscriptionChangedEvent(updated))
	}

	if n, err := s.store.DeleteExpiredPasswordResets(ctx, now); err != nil {
		s.logger.Warn("Failed to purge expired password resets", "error", err)
	} else {
		res.ResetsExpired = n
	}

	res.Duration = s.now().Sub(start)
	metrics.SweepCompleted(res.Demoted, res.Duration.Seconds())

	s.events.Emit(sse.NewSweepCompletedEvent(sse.SweepCompletedData{
		Scanned:  res.Scanned,
		Demoted:  res.Demoted,
		Failed:   res.Failed,
		Duration: res.Duration.Milliseconds(),
	}))

	if res.Demoted > 0 || res.Failed > 0 {
		s.logger.Info("Expiry sweep finished",
			"scanned", res.Scanned,
			"demoted", res.Demoted,
			"failed", res.Failed,
			"duration", res.Duration,
		)
	}
	return res, nil
}
