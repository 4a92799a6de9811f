// Package id generates identifiers used across the registry.
//
// User identifiers are UUID v4 strings. Opaque secrets (password reset
// tokens, token ids) are NanoIDs, optionally prefixed.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "tok-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Secret returns an unprefixed NanoID of the given length.
// Used for values handed to users out of band, such as reset tokens.
func Secret(length int) (string, error) {
	s, err := gonanoid.New(length)
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return s, nil
}

// NewUserID returns a random UUID v4 string.
func NewUserID() string {
	return uuid.NewString()
}

// IsUserID reports whether s parses as a UUID.
func IsUserID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
