// Package webhook verifies and decodes Paystack webhook deliveries.
//
// The package is pure: it performs no I/O. service.WebhookService applies
// decoded events to the registry.
package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"

	domainerrors "github.com/tagreturn/tagreturn-server/internal/errors"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw body.
const SignatureHeader = "X-Paystack-Signature"

// Kind is the decoded event type.
type Kind int

const (
	KindOther Kind = iota
	KindChargeSuccess
	KindSubscriptionNotRenew
	KindSubscriptionDisable
)

var kindNames = map[string]Kind{
	"charge.success":         KindChargeSuccess,
	"subscription.not_renew": KindSubscriptionNotRenew,
	"subscription.disable":   KindSubscriptionDisable,
}

// KindOf maps a provider event name to its Kind.
func KindOf(name string) Kind {
	if k, ok := kindNames[name]; ok {
		return k
	}
	return KindOther
}

func (k Kind) String() string {
	switch k {
	case KindChargeSuccess:
		return "charge.success"
	case KindSubscriptionNotRenew:
		return "subscription.not_renew"
	case KindSubscriptionDisable:
		return "subscription.disable"
	default:
		return "other"
	}
}

// Event is a decoded delivery.
type Event struct {
	// Name is the provider's event string, kept for logging unknown kinds.
	Name string `json:"event"`
	Kind Kind   `json:"-"`
	Data Data   `json:"data"`
}

// Data is the subset of the event payload the registry reads.
type Data struct {
	Reference        string          `json:"reference"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	Customer         Customer        `json:"customer"`
	Plan             Plan            `json:"plan"`
	Metadata         json.RawMessage `json:"metadata"`
	SubscriptionCode string          `json:"subscription_code"`
	NextPaymentDate  string          `json:"next_payment_date"`
}

// Customer identifies the payer.
type Customer struct {
	Email        string `json:"email"`
	CustomerCode string `json:"customer_code"`
}

// Plan is the recurring plan attached to a charge. One-time charges carry
// an empty object, an empty string or null.
type Plan struct {
	Name     string `json:"name"`
	PlanCode string `json:"plan_code"`
	Interval string `json:"interval"`
}

// UnmarshalJSON accepts an object, null or a string.
func (p *Plan) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || b[0] != '{' {
		*p = Plan{}
		return nil
	}
	type plain Plan
	return json.Unmarshal(b, (*plain)(p))
}

// Present reports whether the charge belongs to a recurring plan.
func (p Plan) Present() bool {
	return p.Name != "" || p.PlanCode != ""
}

type customField struct {
	DisplayName  string          `json:"display_name"`
	VariableName string          `json:"variable_name"`
	Value        json.RawMessage `json:"value"`
}

type metadata struct {
	CustomFields []customField `json:"custom_fields"`
}

// VerifySignature reports whether signature is the hex HMAC-SHA512 of
// body under secret. A missing secret or signature never verifies.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

// Sign returns the signature VerifySignature expects for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Parse decodes a delivery body.
func Parse(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, domainerrors.MalformedEvent("invalid event payload", err)
	}
	if ev.Name == "" {
		return nil, domainerrors.MalformedEvent("event type is missing", nil)
	}
	ev.Kind = KindOf(ev.Name)
	return &ev, nil
}

var emailTagPattern = regexp.MustCompile(`\+(\d+)@`)

// ExtractTagID resolves the tag an event refers to.
//
// Non-renewal notices carry no metadata, so the tag id is recovered from
// the digits between '+' and '@' in the customer's email. Every other kind
// reads the "tag_id" custom field.
func ExtractTagID(ev *Event) (string, bool) {
	if ev.Kind == KindSubscriptionNotRenew {
		m := emailTagPattern.FindStringSubmatch(ev.Data.Customer.Email)
		if m == nil {
			return "", false
		}
		return m[1], true
	}

	if len(ev.Data.Metadata) == 0 || ev.Data.Metadata[0] != '{' {
		return "", false
	}
	var md metadata
	if err := json.Unmarshal(ev.Data.Metadata, &md); err != nil {
		return "", false
	}
	for _, f := range md.CustomFields {
		if f.VariableName != "tag_id" {
			continue
		}
		if v := rawScalar(f.Value); v != "" {
			return v, true
		}
	}
	return "", false
}

// rawScalar renders a JSON string or number as text.
func rawScalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

var folder = cases.Fold()

// NormalizeEmail drops any "+routing" suffix from the local part and
// case-folds the address.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return folder.String(email)
	}
	local, _, _ = strings.Cut(local, "+")
	return folder.String(local + "@" + domain)
}

// NextPaymentDay parses the calendar date of a non-renewal notice.
// The time of day is discarded; ok is false when the field is absent or
// unreadable.
func (d Data) NextPaymentDay() (time.Time, bool) {
	s := strings.TrimSpace(d.NextPaymentDate)
	if len(s) < len(time.DateOnly) {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// String is used in log lines.
func (ev *Event) String() string {
	return fmt.Sprintf("%s(ref=%s)", ev.Name, ev.Data.Reference)
}
