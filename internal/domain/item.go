package domain

import (
	"fmt"
	"time"
)

// ItemStatus is the lifecycle state of a registered item.
// The digit encoding is kept on the wire for existing clients.
type ItemStatus string

const (
	// StatusRegistered is the initial state: the item is with its owner.
	StatusRegistered ItemStatus = "0"
	// StatusLost means the owner reported the item lost.
	StatusLost ItemStatus = "1"
	// StatusFound means someone reported the item found.
	StatusFound ItemStatus = "2"
)

// ParseItemStatus validates a wire value.
func ParseItemStatus(s string) (ItemStatus, error) {
	st := ItemStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown item status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the three known states.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusRegistered, StatusLost, StatusFound:
		return true
	}
	return false
}

// Label returns a human-readable name.
func (s ItemStatus) Label() string {
	switch s {
	case StatusRegistered:
		return "registered"
	case StatusLost:
		return "lost"
	case StatusFound:
		return "found"
	default:
		return "unknown"
	}
}

// CanTransition reports whether an item may move from one status to another.
// Only 0→1, 0→2 and 1→2 exist; re-applying the current status is allowed
// so repeated requests stay idempotent. Found is terminal.
func CanTransition(from, to ItemStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	switch from {
	case StatusRegistered:
		return to == StatusLost || to == StatusFound
	case StatusLost:
		return to == StatusFound
	default:
		return false
	}
}

// SubscriptionStatus is the recovery-service subscription state of an item.
type SubscriptionStatus string

const (
	SubscriptionNone      SubscriptionStatus = "none"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionOneTime   SubscriptionStatus = "one-time"
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Item is the canonical record of a registered belonging. TagID doubles as
// the item identifier.
type Item struct {
	TagID        string     `json:"tag_id"`
	Type         string     `json:"item_type"`
	Name         string     `json:"item_name"`
	Description  string     `json:"item_description"`
	ImageURL     string     `json:"item_image,omitempty"`
	BlurHash     string     `json:"blur_hash,omitempty"`
	OwnerUUID    string     `json:"uuid"`
	RegisteredAt time.Time  `json:"registered_date"`
	Status       ItemStatus `json:"status"`

	// Subscription fields are absent on records that never saw a payment.
	SubscriptionStatus SubscriptionStatus `json:"subscription_status,omitempty"`
	Tier               string             `json:"tier,omitempty"`
	SubscriptionCode   string             `json:"subscription_code,omitempty"`
	SubscriptionEnd    *time.Time         `json:"subscription_end,omitempty"`
	Email              string             `json:"email,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Subscription returns the subscription state, treating a missing value as none.
func (i *Item) Subscription() SubscriptionStatus {
	if i.SubscriptionStatus == "" {
		return SubscriptionNone
	}
	return i.SubscriptionStatus
}

// IsExpired reports whether an active subscription's end date has passed.
func (i *Item) IsExpired(now time.Time) bool {
	return i.SubscriptionStatus == SubscriptionActive &&
		i.SubscriptionEnd != nil &&
		i.SubscriptionEnd.Before(now)
}

// SubscriptionUpdate is a partial set of subscription fields. Nil fields are
// left untouched when applied.
type SubscriptionUpdate struct {
	Status *SubscriptionStatus `json:"subscription_status,omitempty"`
	Tier   *string             `json:"tier,omitempty"`
	Code   *string             `json:"subscription_code,omitempty"`
	End    *time.Time          `json:"subscription_end,omitempty"`
	Email  *string             `json:"email,omitempty"`

	// ClearEnd removes any recorded end date. It wins over End.
	ClearEnd bool `json:"clear_subscription_end,omitempty"`
}

// IsEmpty reports whether the update carries no fields.
func (u SubscriptionUpdate) IsEmpty() bool {
	return u.Status == nil && u.Tier == nil && u.Code == nil && u.End == nil && u.Email == nil && !u.ClearEnd
}

// ApplyTo overwrites the non-nil fields on item.
func (u SubscriptionUpdate) ApplyTo(item *Item) {
	if u.Status != nil {
		item.SubscriptionStatus = *u.Status
	}
	if u.Tier != nil {
		item.Tier = *u.Tier
	}
	if u.Code != nil {
		item.SubscriptionCode = *u.Code
	}
	switch {
	case u.ClearEnd:
		item.SubscriptionEnd = nil
	case u.End != nil:
		end := u.End.UTC()
		item.SubscriptionEnd = &end
	}
	if u.Email != nil {
		item.Email = *u.Email
	}
}

// One-time plan tiers keyed by major currency units.
var tierByAmount = map[int64]string{
	250:  "Basic",
	300:  "Standard",
	1000: "Premium",
	1500: "Passport",
}

// TierFallback names any one-time payment outside the tier table.
const TierFallback = "super standard"

// TierForAmount maps a one-time payment in minor units to a plan tier.
func TierForAmount(amountMinor int64) string {
	if amountMinor%100 == 0 {
		if tier, ok := tierByAmount[amountMinor/100]; ok {
			return tier
		}
	}
	return TierFallback
}
