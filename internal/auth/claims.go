package auth

import (
	"time"

	"github.com/tagreturn/tagreturn-server/internal/domain"
)

// Claims are the decrypted contents of an access token.
type Claims struct {
	UserUUID string      `json:"uuid"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// IsAdmin reports whether the token was issued to an administrator.
func (c *Claims) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}
