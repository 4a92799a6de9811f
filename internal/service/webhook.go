package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	domainerrors "github.com/tagreturn/tagreturn-server/internal/errors"
	"github.com/tagreturn/tagreturn-server/internal/mail"
	"github.com/tagreturn/tagreturn-server/internal/metrics"
	"github.com/tagreturn/tagreturn-server/internal/paystack"
	"github.com/tagreturn/tagreturn-server/internal/sse"
	"github.com/tagreturn/tagreturn-server/internal/webhook"
)

// processTimeout bounds the detached processing of one delivery.
const processTimeout = 30 * time.Second

// SubscriptionLookup resolves a customer's active subscription code.
// *paystack.Client implements it.
type SubscriptionLookup interface {
	GetSubscriptionCodeByEmail(ctx context.Context, email string) (string, error)
}

// WebhookService accepts payment provider deliveries and applies them to
// item subscriptions.
//
// Deliveries are acknowledged as soon as they verify and parse; the
// subscription update runs afterwards on its own goroutine. Redelivery is
// safe because every update is a plain field overwrite.
type WebhookService struct {
	secret     string
	reconciler *Reconciler
	lookup     SubscriptionLookup
	events     Emitter
	mailer     Mailer
	logger     *slog.Logger
	now        func() time.Time

	closeMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
}

// NewWebhookService creates a new webhook service. An empty secret rejects
// every delivery.
func NewWebhookService(
	secret string,
	reconciler *Reconciler,
	lookup SubscriptionLookup,
	events Emitter,
	mailer Mailer,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		secret:     secret,
		reconciler: reconciler,
		lookup:     lookup,
		events:     events,
		mailer:     mailer,
		logger:     logger,
		now:        time.Now,
	}
}

// Verify reports whether signature is the provider's signature of body.
func (s *WebhookService) Verify(body []byte, signature string) bool {
	return webhook.VerifySignature(s.secret, body, signature)
}

// HandlePaymentWebhook verifies and parses a delivery and schedules its
// processing. It returns INVALID_SIGNATURE or MALFORMED_EVENT without
// touching any state.
func (s *WebhookService) HandlePaymentWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.Verify(body, signature) {
		metrics.WebhookEvent(webhook.KindOther.String(), metrics.OutcomeRejected)
		s.logger.Warn("Rejected webhook with invalid signature", "size", len(body))
		return domainerrors.InvalidSignature("webhook signature does not match")
	}

	ev, err := webhook.Parse(body)
	if err != nil {
		metrics.WebhookEvent(webhook.KindOther.String(), metrics.OutcomeRejected)
		s.logger.Warn("Dropped malformed webhook", "error", err)
		return err
	}

	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		metrics.WebhookEvent(ev.Kind.String(), metrics.OutcomeRejected)
		s.logger.Warn("Refused webhook during shutdown", "event", ev.String())
		return domainerrors.Internal("webhook processor is shutting down")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), processTimeout)
		defer cancel()

		if err := s.Process(ctx, ev); err != nil {
			s.logger.Error("Webhook processing failed", "event", ev.String(), "error", err)
		}
	}()
	return nil
}

// Wait blocks until every scheduled delivery has been processed.
func (s *WebhookService) Wait() {
	s.wg.Wait()
}

// Close stops scheduling new deliveries and waits for the ones in flight.
// Deliveries that arrive afterwards fail so the provider redelivers them.
func (s *WebhookService) Close() {
	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()
	s.wg.Wait()
}

// Process applies one event. Unknown kinds and events without a resolvable
// tag are logged and dropped.
func (s *WebhookService) Process(ctx context.Context, ev *webhook.Event) error {
	kind := ev.Kind.String()

	if ev.Kind == webhook.KindOther {
		metrics.WebhookEvent(kind, metrics.OutcomeIgnored)
		s.logger.Debug("Ignoring webhook event", "event", ev.Name)
		return nil
	}

	tagID, ok := webhook.ExtractTagID(ev)
	if !ok {
		metrics.WebhookEvent(kind, metrics.OutcomeNoTag)
		s.logger.Warn("Dropped webhook without tag id", "event", ev.String())
		return nil
	}

	update, err := s.subscriptionUpdate(ctx, ev)
	if err != nil {
		metrics.WebhookEvent(kind, metrics.OutcomeFailed)
		return err
	}

	item, err := s.reconciler.ApplySubscription(ctx, tagID, update)
	if item == nil {
		metrics.WebhookEvent(kind, metrics.OutcomeFailed)
		return fmt.Errorf("apply %s to %s: %w", kind, tagID, err)
	}

	metrics.WebhookEvent(kind, metrics.OutcomeApplied)
	s.events.Emit(sse.NewSubscriptionChangedEvent(item))
	s.logger.Info("Subscription updated",
		"event", kind,
		"tag_id", tagID,
		"subscription_status", item.Subscription(),
		"tier", item.Tier,
	)

	s.confirm(ev, item)
	return err
}

// subscriptionUpdate computes the fields an event overwrites.
func (s *WebhookService) subscriptionUpdate(ctx context.Context, ev *webhook.Event) (domain.SubscriptionUpdate, error) {
	var update domain.SubscriptionUpdate
	now := s.now().UTC()

	switch ev.Kind {
	case webhook.KindChargeSuccess:
		if email := webhook.NormalizeEmail(ev.Data.Customer.Email); email != "" {
			update.Email = &email
		}

		if ev.Data.Plan.Present() {
			status := domain.SubscriptionActive
			tier := ev.Data.Plan.Name
			if tier == "" {
				tier = ev.Data.Plan.PlanCode
			}
			update.Status = &status
			update.Tier = &tier
			// A recurring charge opens a new period with no end date.
			update.ClearEnd = true

			code, err := s.lookup.GetSubscriptionCodeByEmail(ctx, ev.Data.Customer.Email)
			switch {
			case err == nil:
				update.Code = &code
			case errors.Is(err, paystack.ErrNotFound):
				s.logger.Warn("No active subscription for customer", "event", ev.String())
			default:
				// The charge still applies; the code arrives with the next charge.
				s.logger.Warn("Subscription code lookup failed", "event", ev.String(), "error", err)
			}
		} else {
			status := domain.SubscriptionOneTime
			tier := domain.TierForAmount(ev.Data.Amount)
			update.Status = &status
			update.Tier = &tier
		}

	case webhook.KindSubscriptionNotRenew:
		end, ok := ev.Data.NextPaymentDay()
		if !ok {
			end = now
		}
		update.End = &end

	case webhook.KindSubscriptionDisable:
		status := domain.SubscriptionCancelled
		update.Status = &status
		update.End = &now

	case webhook.KindOther:
		return update, fmt.Errorf("no subscription update for event %q", ev.Name)
	}

	return update, nil
}

// confirm sends the best-effort confirmation email.
func (s *WebhookService) confirm(ev *webhook.Event, item *domain.Item) {
	to := webhook.NormalizeEmail(ev.Data.Customer.Email)
	if to == "" {
		to = item.Email
	}

	var end string
	if item.SubscriptionEnd != nil {
		end = item.SubscriptionEnd.Format(time.DateOnly)
	}

	s.mailer.SendAsync(mail.TemplateSubscription, to, map[string]any{
		"TagID":  item.TagID,
		"Tier":   item.Tier,
		"Status": string(item.Subscription()),
		"End":    end,
	})
}
