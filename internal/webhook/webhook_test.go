package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/tagreturn/tagreturn-server/internal/errors"
)

const testSecret = "sk_test_secret"

func sign(secret string, body []byte) string {
	return Sign(secret, body)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{}}`)
	sig := sign(testSecret, body)

	assert.True(t, VerifySignature(testSecret, body, sig))

	tampered := []byte(`{"event":"charge.success","data":{"amount":1}}`)
	assert.False(t, VerifySignature(testSecret, tampered, sig), "tampered body")
	assert.False(t, VerifySignature("other", body, sig), "wrong secret")
	assert.False(t, VerifySignature("", body, sig), "missing secret fails closed")
	assert.False(t, VerifySignature(testSecret, body, ""), "missing header")
	assert.False(t, VerifySignature(testSecret, body, "zz"+sig[2:]), "non-hex header")
}

func TestParse(t *testing.T) {
	tests := []struct {
		body string
		kind Kind
	}{
		{`{"event":"charge.success","data":{}}`, KindChargeSuccess},
		{`{"event":"subscription.not_renew","data":{}}`, KindSubscriptionNotRenew},
		{`{"event":"subscription.disable","data":{}}`, KindSubscriptionDisable},
		{`{"event":"transfer.success","data":{}}`, KindOther},
	}
	for _, tt := range tests {
		ev, err := Parse([]byte(tt.body))
		require.NoError(t, err)
		assert.Equal(t, tt.kind, ev.Kind, tt.body)
	}

	_, err := Parse([]byte(`{not json`))
	assert.ErrorIs(t, err, domainerrors.ErrMalformedEvent)

	_, err = Parse([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, domainerrors.ErrMalformedEvent)
}

func TestParse_PlanShapes(t *testing.T) {
	withPlan, err := Parse([]byte(`{"event":"charge.success","data":{"plan":{"name":"Gold","plan_code":"PLN_1"}}}`))
	require.NoError(t, err)
	assert.True(t, withPlan.Data.Plan.Present())
	assert.Equal(t, "Gold", withPlan.Data.Plan.Name)

	for _, plan := range []string{`{}`, `""`, `null`} {
		ev, err := Parse([]byte(`{"event":"charge.success","data":{"plan":` + plan + `}}`))
		require.NoError(t, err, plan)
		assert.False(t, ev.Data.Plan.Present(), plan)
	}
}

func TestExtractTagID(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name:   "custom field string",
			body:   `{"event":"charge.success","data":{"metadata":{"custom_fields":[{"variable_name":"phone","value":"1"},{"variable_name":"tag_id","value":"T1"}]}}}`,
			want:   "T1",
			wantOK: true,
		},
		{
			name:   "custom field number",
			body:   `{"event":"subscription.disable","data":{"metadata":{"custom_fields":[{"variable_name":"tag_id","value":1042}]}}}`,
			want:   "1042",
			wantOK: true,
		},
		{
			name: "metadata as empty string",
			body: `{"event":"charge.success","data":{"metadata":""}}`,
		},
		{
			name: "no tag field",
			body: `{"event":"charge.success","data":{"metadata":{"custom_fields":[]}}}`,
		},
		{
			name:   "not_renew reads email",
			body:   `{"event":"subscription.not_renew","data":{"customer":{"email":"ada+1042@example.com"},"metadata":{"custom_fields":[{"variable_name":"tag_id","value":"ignored"}]}}}`,
			want:   "1042",
			wantOK: true,
		},
		{
			name: "not_renew without digits",
			body: `{"event":"subscription.not_renew","data":{"customer":{"email":"ada+abc@example.com"}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Parse([]byte(tt.body))
			require.NoError(t, err)
			got, ok := ExtractTagID(ev)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("Ada+1042@Example.com"))
	assert.Equal(t, "ada@example.com", NormalizeEmail(" ada@example.com "))
	assert.Equal(t, "not-an-email", NormalizeEmail("Not-An-Email"))
}

func TestNextPaymentDay(t *testing.T) {
	d := Data{NextPaymentDate: "2026-05-01T09:30:00.000Z"}
	got, ok := d.NextPaymentDay()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), got)

	_, ok = Data{}.NextPaymentDay()
	assert.False(t, ok)
	_, ok = Data{NextPaymentDate: "soon-ish!!"}.NextPaymentDay()
	assert.False(t, ok)
}
