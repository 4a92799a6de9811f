package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookEvent(t *testing.T) {
	before := testutil.ToFloat64(webhookEvents.WithLabelValues("charge.success", OutcomeApplied))
	WebhookEvent("charge.success", OutcomeApplied)
	WebhookEvent("charge.success", OutcomeApplied)
	after := testutil.ToFloat64(webhookEvents.WithLabelValues("charge.success", OutcomeApplied))
	assert.Equal(t, before+2, after)
}

func TestSweepCompleted(t *testing.T) {
	before := testutil.ToFloat64(sweepDemoted)
	SweepCompleted(3, 0.25)
	assert.Equal(t, before+3, testutil.ToFloat64(sweepDemoted))
}

func TestHandler_ExposesRegistryMetrics(t *testing.T) {
	ReconcilePartialFailure(DirectionStatus)
	ItemRegistered()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tagreturn_reconcile_partial_failures_total{direction="status"}`)
	assert.Contains(t, string(body), "tagreturn_items_registered_total")
}
