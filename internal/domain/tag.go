package domain

import "time"

// Tag is a physical identifier that a single user can claim.
// IsOwned is true exactly when OwnerUUID is set; ownership never reverts.
type Tag struct {
	ID        string    `json:"tag1"`
	Name      string    `json:"tag_name"`
	CreatedAt time.Time `json:"date"`
	IsOwned   bool      `json:"is_owned"`
	OwnerUUID string    `json:"uuid,omitempty"`
}

// Claim marks the tag as owned by uuid.
func (t *Tag) Claim(uuid string) {
	t.IsOwned = true
	t.OwnerUUID = uuid
}
