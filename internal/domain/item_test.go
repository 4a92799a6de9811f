package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierForAmount(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{25000, "Basic"},
		{30000, "Standard"},
		{100000, "Premium"},
		{150000, "Passport"},
		{77700, "super standard"},
		{25050, "super standard"},
		{0, "super standard"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForAmount(tt.amount), "amount %d", tt.amount)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ItemStatus
		want     bool
	}{
		{StatusRegistered, StatusLost, true},
		{StatusRegistered, StatusFound, true},
		{StatusLost, StatusFound, true},
		{StatusRegistered, StatusRegistered, true},
		{StatusLost, StatusLost, true},
		{StatusFound, StatusFound, true},
		{StatusLost, StatusRegistered, false},
		{StatusFound, StatusRegistered, false},
		{StatusFound, StatusLost, false},
		{StatusRegistered, ItemStatus("3"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestParseItemStatus(t *testing.T) {
	st, err := ParseItemStatus("1")
	require.NoError(t, err)
	assert.Equal(t, StatusLost, st)
	assert.Equal(t, "lost", st.Label())

	_, err = ParseItemStatus("lost")
	assert.Error(t, err)
}

func TestItemStatus_WireEncodingKeepsDigits(t *testing.T) {
	data, err := json.Marshal(Item{TagID: "T1", Status: StatusFound})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"2"`)
	assert.NotContains(t, string(data), "subscription_status")
}

func TestItem_TolerantOfMissingSubscription(t *testing.T) {
	var item Item
	require.NoError(t, json.Unmarshal([]byte(`{"tag_id":"T1","uuid":"U1","status":"0"}`), &item))

	assert.Equal(t, SubscriptionNone, item.Subscription())
	assert.Nil(t, item.SubscriptionEnd)
	assert.False(t, item.IsExpired(time.Now()))
}

func TestItem_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	active := Item{SubscriptionStatus: SubscriptionActive, SubscriptionEnd: &yesterday}
	assert.True(t, active.IsExpired(now))

	active.SubscriptionEnd = &tomorrow
	assert.False(t, active.IsExpired(now))

	cancelled := Item{SubscriptionStatus: SubscriptionCancelled, SubscriptionEnd: &yesterday}
	assert.False(t, cancelled.IsExpired(now))
}

func TestSubscriptionUpdate_ApplyTo(t *testing.T) {
	end := time.Date(2026, 5, 1, 0, 0, 0, 0, time.FixedZone("WAT", 3600))
	status := SubscriptionActive
	tier := "Gold"

	item := Item{TagID: "T1", Tier: "Basic", SubscriptionCode: "SUB_old", Email: "a@example.com"}
	SubscriptionUpdate{Status: &status, Tier: &tier, End: &end}.ApplyTo(&item)

	assert.Equal(t, SubscriptionActive, item.SubscriptionStatus)
	assert.Equal(t, "Gold", item.Tier)
	assert.Equal(t, "SUB_old", item.SubscriptionCode, "nil fields are untouched")
	assert.Equal(t, "a@example.com", item.Email)
	require.NotNil(t, item.SubscriptionEnd)
	assert.True(t, item.SubscriptionEnd.Equal(end))
	assert.Equal(t, time.UTC, item.SubscriptionEnd.Location())
}

func TestSubscriptionUpdate_IsEmpty(t *testing.T) {
	assert.True(t, SubscriptionUpdate{}.IsEmpty())

	email := "x@example.com"
	assert.False(t, SubscriptionUpdate{Email: &email}.IsEmpty())
	assert.False(t, SubscriptionUpdate{ClearEnd: true}.IsEmpty())
}

func TestSubscriptionUpdate_ClearEnd(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	item := &Item{SubscriptionStatus: SubscriptionCancelled, SubscriptionEnd: &past}

	status := SubscriptionActive
	later := time.Now().Add(time.Hour)
	SubscriptionUpdate{Status: &status, End: &later, ClearEnd: true}.ApplyTo(item)

	assert.Equal(t, SubscriptionActive, item.SubscriptionStatus)
	assert.Nil(t, item.SubscriptionEnd)
}
