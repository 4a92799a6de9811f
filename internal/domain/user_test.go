package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_Counters(t *testing.T) {
	u := &User{Items: map[string]Item{
		"T1": {Status: StatusRegistered},
		"T2": {Status: StatusLost},
		"T3": {Status: StatusLost},
		"T4": {Status: StatusFound},
	}}

	assert.Equal(t, DashboardCounters{RegisteredItems: 4, LostItems: 2, FoundItems: 1}, u.Counters())
	assert.Equal(t, DashboardCounters{}, (&User{}).Counters())
}

func TestUser_ItemsSnapshotIsIndependent(t *testing.T) {
	u := &User{Items: map[string]Item{"T1": {Status: StatusRegistered}}}

	snap := u.ItemsSnapshot()
	snap["T1"] = Item{Status: StatusLost}
	snap["T2"] = Item{}

	assert.Equal(t, StatusRegistered, u.Items["T1"].Status)
	assert.Len(t, u.Items, 1)
	assert.NotNil(t, (&User{}).ItemsSnapshot())
}

func TestUser_IsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleMember}).IsAdmin())
}

func TestTag_Claim(t *testing.T) {
	tag := Tag{ID: "T1"}
	tag.Claim("U1")

	assert.True(t, tag.IsOwned)
	assert.Equal(t, "U1", tag.OwnerUUID)
}

func TestPasswordReset_IsExpired(t *testing.T) {
	now := time.Now()
	r := PasswordReset{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, r.IsExpired(now))
	assert.True(t, r.IsExpired(now.Add(time.Minute)))
}
