package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	domainerrors "github.com/tagreturn/tagreturn-server/internal/errors"
	"github.com/tagreturn/tagreturn-server/internal/logger"
	"github.com/tagreturn/tagreturn-server/internal/mail"
	"github.com/tagreturn/tagreturn-server/internal/paystack"
	"github.com/tagreturn/tagreturn-server/internal/webhook"
)

const testSecret = "sk_test_secret"

type stubLookup struct {
	code  string
	err   error
	calls []string
}

func (s *stubLookup) GetSubscriptionCodeByEmail(_ context.Context, email string) (string, error) {
	s.calls = append(s.calls, email)
	return s.code, s.err
}

func sign(secret string, body []byte) string {
	return webhook.Sign(secret, body)
}

func chargeBody(t *testing.T, tagID string, amount int64, plan any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": "charge.success",
		"data": map[string]any{
			"reference": "ref-1",
			"amount":    amount,
			"customer":  map[string]any{"email": "Ada+" + tagID + "@Example.com"},
			"plan":      plan,
			"metadata": map[string]any{
				"custom_fields": []map[string]any{
					{"display_name": "Tag", "variable_name": "tag_id", "value": tagID},
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func setupWebhook(t *testing.T) (*WebhookService, *testEnv, *stubLookup) {
	t.Helper()
	st := setupStore(t)
	env := setupEnv(t, st)
	seedUser(t, st, "U1", "ada@example.com", "T1", "42")
	registerItem(t, env, "U1", "T1")
	registerItem(t, env, "U1", "42")

	lookup := &stubLookup{code: "SUB_abc"}
	svc := NewWebhookService(testSecret, env.reconciler, lookup, env.events, env.mailer, logger.Discard())
	return svc, env, lookup
}

func TestHandlePaymentWebhook_RecurringCharge(t *testing.T) {
	svc, env, lookup := setupWebhook(t)
	ctx := context.Background()

	body := chargeBody(t, "T1", 500000, map[string]any{"name": "Gold", "plan_code": "PLN_1"})
	require.NoError(t, svc.HandlePaymentWebhook(ctx, body, sign(testSecret, body)))
	svc.Wait()

	item, err := env.store.GetItem(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, item.SubscriptionStatus)
	assert.Equal(t, "Gold", item.Tier)
	assert.Equal(t, "SUB_abc", item.SubscriptionCode)
	assert.Equal(t, "ada@example.com", item.Email)

	user, err := env.store.GetUser(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, user.Items["T1"].SubscriptionStatus)
	assert.Equal(t, "Gold", user.Items["T1"].Tier)

	// The provider lookup gets the address as the customer used it.
	assert.Equal(t, []string{"Ada+T1@Example.com"}, lookup.calls)

	sent, ok := env.mailer.last()
	require.True(t, ok)
	assert.Equal(t, mail.TemplateSubscription, sent.Template)
	assert.Equal(t, "ada@example.com", sent.To)
}

func TestProcess_OneTimeTiers(t *testing.T) {
	svc, env, _ := setupWebhook(t)
	ctx := context.Background()

	tests := []struct {
		amount int64
		tier   string
	}{
		{25000, "Basic"},
		{30000, "Standard"},
		{100000, "Premium"},
		{150000, "Passport"},
		{77700, "super standard"},
	}
	for _, tt := range tests {
		ev, err := webhook.Parse(chargeBody(t, "T1", tt.amount, nil))
		require.NoError(t, err)
		require.NoError(t, svc.Process(ctx, ev))

		item, err := env.store.GetItem(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionOneTime, item.SubscriptionStatus)
		assert.Equal(t, tt.tier, item.Tier, "amount %d", tt.amount)
	}
}

func TestProcess_Idempotent(t *testing.T) {
	svc, env, _ := setupWebhook(t)
	ctx := context.Background()

	ev, err := webhook.Parse(chargeBody(t, "T1", 500000, map[string]any{"name": "Gold"}))
	require.NoError(t, err)

	require.NoError(t, svc.Process(ctx, ev))
	first, err := env.store.GetUser(ctx, "U1")
	require.NoError(t, err)

	require.NoError(t, svc.Process(ctx, ev))
	second, err := env.store.GetUser(ctx, "U1")
	require.NoError(t, err)

	a, b := first.Items["T1"], second.Items["T1"]
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, a, b)
}

func TestProcess_NotRenewUsesEmailTag(t *testing.T) {
	svc, env, _ := setupWebhook(t)
	ctx := context.Background()

	body := []byte(`{"event":"subscription.not_renew","data":{
		"customer":{"email":"ada+42@example.com"},
		"next_payment_date":"2026-03-01T00:00:00.000Z"}}`)
	ev, err := webhook.Parse(body)
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, ev))

	item, err := env.store.GetItem(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, item.SubscriptionEnd)
	assert.Equal(t, "2026-03-01", item.SubscriptionEnd.Format(time.DateOnly))

	user, err := env.store.GetUser(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, user.Items["42"].SubscriptionEnd)
}

func TestProcess_NotRenewWithoutDateUsesNow(t *testing.T) {
	svc, env, _ := setupWebhook(t)
	fixed := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	ev, err := webhook.Parse([]byte(`{"event":"subscription.not_renew","data":{"customer":{"email":"ada+42@example.com"}}}`))
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), ev))

	item, err := env.store.GetItem(context.Background(), "42")
	require.NoError(t, err)
	require.NotNil(t, item.SubscriptionEnd)
	assert.True(t, fixed.Equal(*item.SubscriptionEnd))
}

func TestProcess_Disable(t *testing.T) {
	svc, env, _ := setupWebhook(t)
	ctx := context.Background()

	body := []byte(`{"event":"subscription.disable","data":{"customer":{"email":"ada@example.com"},
		"metadata":{"custom_fields":[{"variable_name":"tag_id","value":"T1"}]}}}`)
	ev, err := webhook.Parse(body)
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, ev))

	item, err := env.store.GetItem(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, item.SubscriptionStatus)
	assert.NotNil(t, item.SubscriptionEnd)
}

func TestProcess_ChargeAfterDisableSurvivesSweep(t *testing.T) {
	svc, env, _ := setupWebhook(t)
	ctx := context.Background()
	disabledAt := time.Now().UTC().Add(-72 * time.Hour)
	svc.now = func() time.Time { return disabledAt }

	disable := []byte(`{"event":"subscription.disable","data":{"customer":{"email":"ada@example.com"},
		"metadata":{"custom_fields":[{"variable_name":"tag_id","value":"T1"}]}}}`)
	ev, err := webhook.Parse(disable)
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, ev))

	ev, err = webhook.Parse(chargeBody(t, "T1", 500000, map[string]any{"name": "Gold", "plan_code": "PLN_1"}))
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, ev))

	res, err := NewSweepService(env.store, env.reconciler, env.events, logger.Discard()).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Demoted)

	item, err := env.store.GetItem(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, item.SubscriptionStatus)
	assert.Nil(t, item.SubscriptionEnd)

	user, err := env.store.GetUser(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, user.Items["T1"].SubscriptionStatus)
	assert.Nil(t, user.Items["T1"].SubscriptionEnd)
}

func TestProcess_DropsUnresolvable(t *testing.T) {
	svc, env, _ := setupWebhook(t)
	ctx := context.Background()

	for _, body := range []string{
		`{"event":"transfer.success","data":{}}`,
		`{"event":"charge.success","data":{"amount":25000,"metadata":{}}}`,
		`{"event":"subscription.not_renew","data":{"customer":{"email":"ada@example.com"}}}`,
	} {
		ev, err := webhook.Parse([]byte(body))
		require.NoError(t, err)
		assert.NoError(t, svc.Process(ctx, ev), body)
	}

	item, err := env.store.GetItem(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionNone, item.Subscription())
	assert.Empty(t, env.mailer.sent)
}

func TestProcess_LookupFailureStillApplies(t *testing.T) {
	svc, env, lookup := setupWebhook(t)
	lookup.code = ""
	lookup.err = &paystack.Error{Op: "get_customer", Key: "ada", Err: paystack.ErrNotFound}
	ctx := context.Background()

	ev, err := webhook.Parse(chargeBody(t, "T1", 500000, map[string]any{"name": "Gold"}))
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, ev))

	item, err := env.store.GetItem(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, item.SubscriptionStatus)
	assert.Empty(t, item.SubscriptionCode)
}

func TestProcess_UnknownTag(t *testing.T) {
	svc, _, _ := setupWebhook(t)

	ev, err := webhook.Parse(chargeBody(t, "T999", 25000, nil))
	require.NoError(t, err)
	err = svc.Process(context.Background(), ev)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestHandlePaymentWebhook_Rejects(t *testing.T) {
	svc, env, _ := setupWebhook(t)
	ctx := context.Background()

	body := chargeBody(t, "T1", 25000, nil)
	sig := sign(testSecret, body)

	tampered := chargeBody(t, "T1", 150000, nil)
	err := svc.HandlePaymentWebhook(ctx, tampered, sig)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidSignature)

	err = svc.HandlePaymentWebhook(ctx, body, "")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidSignature)

	garbage := []byte("{not json")
	err = svc.HandlePaymentWebhook(ctx, garbage, sign(testSecret, garbage))
	assert.ErrorIs(t, err, domainerrors.ErrMalformedEvent)

	svc.Wait()
	item, err := env.store.GetItem(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionNone, item.Subscription())

	unsigned := NewWebhookService("", env.reconciler, &stubLookup{}, env.events, env.mailer, logger.Discard())
	err = unsigned.HandlePaymentWebhook(ctx, body, sig)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidSignature))
}

func TestHandlePaymentWebhook_RefusedAfterClose(t *testing.T) {
	svc, env, _ := setupWebhook(t)
	ctx := context.Background()
	body := chargeBody(t, "T1", 500000, map[string]any{"name": "Gold"})
	sig := sign(testSecret, body)

	// Deliveries racing Close are either scheduled and drained or refused.
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.HandlePaymentWebhook(ctx, body, sig)
			if err != nil {
				assert.ErrorIs(t, err, domainerrors.ErrInternal)
			}
		}()
	}
	svc.Close()
	wg.Wait()

	second := chargeBody(t, "42", 150000, nil)
	err := svc.HandlePaymentWebhook(ctx, second, sign(testSecret, second))
	assert.ErrorIs(t, err, domainerrors.ErrInternal)
	svc.Wait()

	item, err := env.store.GetItem(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionNone, item.Subscription())
}

func TestEndToEnd_RegisterLoseAndSubscribe(t *testing.T) {
	st := setupStore(t)
	env := setupEnv(t, st)
	ctx := context.Background()
	seedUser(t, st, "U1", "ada@example.com", "T1")

	item := registerItem(t, env, "U1", "T1")
	assert.Equal(t, domain.StatusRegistered, item.Status)

	_, err := env.registry.UpdateItemStatus(ctx, "U1", "T1", domain.StatusLost)
	require.NoError(t, err)

	svc := NewWebhookService(testSecret, env.reconciler, &stubLookup{code: "SUB_1"}, env.events, env.mailer, logger.Discard())
	body := chargeBody(t, "T1", 500000, map[string]any{"name": "Gold"})
	require.NoError(t, svc.HandlePaymentWebhook(ctx, body, sign(testSecret, body)))
	svc.Wait()

	canonical, err := st.GetItem(ctx, "T1")
	require.NoError(t, err)
	user, err := st.GetUser(ctx, "U1")
	require.NoError(t, err)
	copyItem := user.Items["T1"]

	assert.Equal(t, domain.StatusLost, canonical.Status)
	assert.Equal(t, domain.SubscriptionActive, canonical.SubscriptionStatus)
	assert.Equal(t, "Gold", canonical.Tier)
	assert.Equal(t, "U1", copyItem.OwnerUUID)
	assert.Equal(t, canonical.Status, copyItem.Status)
	assert.Equal(t, canonical.SubscriptionStatus, copyItem.SubscriptionStatus)
	assert.Equal(t, canonical.Tier, copyItem.Tier)
}
