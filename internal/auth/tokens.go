package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/id"
)

const (
	tokenIssuer   = "tagreturn-server"
	tokenAudience = "tagreturn-client"

	resetTokenLength = 32
)

// ErrTokenExpired is returned by VerifyAccessToken for expired tokens.
var ErrTokenExpired = errors.New("token expired")

// TokenService issues and verifies PASETO v4.local access tokens.
type TokenService struct {
	key      paseto.V4SymmetricKey
	duration time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service from a 32-byte symmetric key.
func NewTokenService(key []byte, duration time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be %d bytes, got %d", keyLength, len(key))
	}
	k, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("create PASETO key: %w", err)
	}
	return &TokenService{key: k, duration: duration, now: time.Now}, nil
}

// GenerateAccessToken returns an encrypted token for user and its expiry.
func (s *TokenService) GenerateAccessToken(user *domain.User) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.duration)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(user.UUID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)

	jti, err := id.Generate("tok")
	if err != nil {
		return "", time.Time{}, err
	}
	token.SetJti(jti)

	//nolint:errcheck // Set only fails on unmarshalable values
	_ = token.Set("uuid", user.UUID)
	//nolint:errcheck // Set only fails on unmarshalable values
	_ = token.Set("email", user.Email)
	//nolint:errcheck // Set only fails on unmarshalable values
	_ = token.Set("role", user.Role)

	return token.V4Encrypt(s.key, nil), expires, nil
}

// VerifyAccessToken decrypts tokenString and validates its claims.
func (s *TokenService) VerifyAccessToken(tokenString string) (*Claims, error) {
	now := s.now()

	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(now))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.UserUUID == "" {
		return nil, errors.New("invalid token: missing subject")
	}
	return &claims, nil
}

// Duration returns the access token lifetime.
func (s *TokenService) Duration() time.Duration {
	return s.duration
}

// NewResetToken returns a random password reset token and the hash to store.
func NewResetToken() (token, hash string, err error) {
	token, err = id.Secret(resetTokenLength)
	if err != nil {
		return "", "", err
	}
	return token, HashResetToken(token), nil
}

// HashResetToken returns the storage form of a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
