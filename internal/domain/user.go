package domain

import (
	"maps"
	"time"
)

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleAdmin may run sweeps and import tags.
	RoleAdmin Role = "admin"
	// RoleMember registers and manages their own items.
	RoleMember Role = "member"
)

// User is an account together with its embedded copies of owned items.
// Items values are copies of Item records, not references; the Item store
// remains the system of record and reconciliation keeps the two converged.
type User struct {
	UUID           string          `json:"uuid"`
	FullName       string          `json:"full_name"`
	Email          string          `json:"email_address"`
	DateOfBirth    string          `json:"date_of_birth,omitempty"`
	Address        string          `json:"address,omitempty"`
	IDNo           string          `json:"id_no,omitempty"`
	ProfilePicture string          `json:"profile_picture,omitempty"`
	PhoneNumber    string          `json:"phone_number,omitempty"`
	Gender         string          `json:"gender,omitempty"`
	ValidIDType    string          `json:"valid_id_type,omitempty"`
	IDCardImage    string          `json:"id_card_image,omitempty"`
	PasswordHash   string          `json:"password_hash,omitempty"`
	Role           Role            `json:"role"`
	Items          map[string]Item `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ItemsSnapshot returns a shallow copy of the items map, never nil.
func (u *User) ItemsSnapshot() map[string]Item {
	if u.Items == nil {
		return map[string]Item{}
	}
	return maps.Clone(u.Items)
}

// DashboardCounters summarises a user's items by lifecycle status.
type DashboardCounters struct {
	RegisteredItems int `json:"registered_items"`
	LostItems       int `json:"lost_items"`
	FoundItems      int `json:"found_items"`
}

// Counters derives dashboard counters from the embedded items.
// RegisteredItems counts every owned item regardless of status.
func (u *User) Counters() DashboardCounters {
	var c DashboardCounters
	for _, item := range u.Items {
		c.RegisteredItems++
		switch item.Status {
		case StatusLost:
			c.LostItems++
		case StatusFound:
			c.FoundItems++
		}
	}
	return c
}

// PasswordReset is a pending password reset. Only the hash of the emailed
// token is stored.
type PasswordReset struct {
	TokenHash string    `json:"token_hash"`
	UserUUID  string    `json:"uuid"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether the reset can no longer be used.
func (r *PasswordReset) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
