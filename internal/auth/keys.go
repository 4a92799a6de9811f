package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// keyLength is the PASETO v4 symmetric key size in bytes.
const keyLength = 32

const keyFileName = "paseto.key"

// LoadOrGenerateKey returns the token key stored hex-encoded in dir,
// creating and persisting a new random key on first start.
func LoadOrGenerateKey(dir string) ([]byte, error) {
	path := filepath.Join(dir, keyFileName)

	//#nosec G304 -- path is derived from the configured data directory
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		key, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if len(key) != keyLength {
			return nil, fmt.Errorf("%s: expected %d bytes, got %d", path, keyLength, len(key))
		}
		return key, nil
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate token key: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("save token key: %w", err)
	}
	return key, nil
}
