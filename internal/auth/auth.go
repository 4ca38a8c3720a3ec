// Package auth validates API keys and maps them to cabinets.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/nmorel/lexidraft/internal/cabinet"
)

// Authenticator validates API keys and extracts cabinet information
type Authenticator struct {
	cabinets map[string]*cabinet.Cabinet // keyhash -> cabinet
}

// NewAuthenticator creates a new authenticator with cabinet mappings
func NewAuthenticator(cabinets []*cabinet.Cabinet) *Authenticator {
	auth := &Authenticator{
		cabinets: make(map[string]*cabinet.Cabinet),
	}

	// Build keyhash -> cabinet mapping
	for _, c := range cabinets {
		for _, key := range c.APIKeys {
			auth.cabinets[key.KeyHash] = c
		}
	}

	return auth
}

// ValidateAPIKey validates an API key and returns the associated cabinet
func (a *Authenticator) ValidateAPIKey(apiKey string) (*cabinet.Cabinet, error) {
	// Hash the provided key
	hash := sha256.Sum256([]byte(apiKey))
	keyHash := hex.EncodeToString(hash[:])

	// Look up cabinet by hash
	c, ok := a.cabinets[keyHash]
	if !ok {
		return nil, fmt.Errorf("invalid API key")
	}

	// Constant-time comparison to prevent timing attacks
	for _, key := range c.APIKeys {
		if subtle.ConstantTimeCompare([]byte(keyHash), []byte(key.KeyHash)) == 1 {
			return c, nil
		}
	}

	return nil, fmt.Errorf("invalid API key")
}

// ExtractAPIKey extracts the API key from the Authorization header
func ExtractAPIKey(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	// Support "Bearer <key>" format
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return parts[1], nil
}

// HashAPIKey creates a SHA-256 hash of an API key for storage
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
