package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/xepoctpat/H3X-sub004/pkg/audit"
)

var (
	ErrAPIKeyNotFound    = errors.New("API key not found")
	ErrAPIKeyExpired     = errors.New("API key has expired")
	ErrAPIKeyRevoked     = errors.New("API key has been revoked")
	ErrAPIKeyWrongEnv    = errors.New("API key environment mismatch")
	ErrInvalidPermission = errors.New("invalid permission")
	ErrEmptyKeyName      = errors.New("key name cannot be empty")
	ErrEmptyPermissions  = errors.New("permissions cannot be empty")
)

// Valid API key permissions. "read" covers lattice and status queries,
// "act" additionally allows submitting actions, "admin" implies both and
// unlocks classified audit entries.
var validPermissions = map[string]bool{
	"read":  true,
	"act":   true,
	"admin": true,
}

// Clearance maps the key's permission set to the audit level it may read.
func (k *APIKey) Clearance() audit.SecurityLevel {
	clearance := audit.LevelPublic
	for _, perm := range k.Permissions {
		switch perm {
		case "admin":
			return audit.LevelClassified
		case "act":
			if clearance < audit.LevelRestricted {
				clearance = audit.LevelRestricted
			}
		}
	}
	return clearance
}

// ValidateKey validates an API key and returns the associated APIKey metadata
func (s *APIKeyStore) ValidateKey(keyString string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if keyString == "" {
		return nil, ErrInvalidToken
	}

	// Extract prefix to narrow search
	if !strings.HasPrefix(keyString, "flx_") {
		return nil, ErrInvalidToken
	}

	// Hash the provided key using HMAC
	keyHash := s.hashAPIKey(keyString)

	keyID, exists := s.hashToKey[keyHash]
	if !exists {
		return nil, ErrAPIKeyNotFound
	}

	apiKey, exists := s.keys[keyID]
	if !exists {
		return nil, ErrAPIKeyNotFound
	}

	if apiKey.Revoked {
		return nil, ErrAPIKeyRevoked
	}

	if !apiKey.ExpiresAt.IsZero() && time.Now().After(apiKey.ExpiresAt) {
		return nil, ErrAPIKeyExpired
	}

	return apiKey, nil
}

// ValidateKeyForEnv validates an API key and checks it matches the required environment.
// serverEnv should be "live" or "test", typically derived from FLUPS_ENV.
// If serverEnv is empty, no environment check is performed.
func (s *APIKeyStore) ValidateKeyForEnv(keyString, serverEnv string) (*APIKey, error) {
	apiKey, err := s.ValidateKey(keyString)
	if err != nil {
		return nil, err
	}

	if serverEnv != "" && apiKey.Environment != "" {
		if apiKey.Environment != serverEnv {
			return nil, ErrAPIKeyWrongEnv
		}
	}

	return apiKey, nil
}

// HasPermission checks if an API key has a specific permission
func (s *APIKeyStore) HasPermission(apiKey *APIKey, permission string) bool {
	if apiKey == nil {
		return false
	}

	for _, perm := range apiKey.Permissions {
		if perm == permission || perm == "admin" {
			return true
		}
	}

	return false
}

// validateCreateKeyInput validates the inputs for CreateKey
func validateCreateKeyInput(operatorID, name string, permissions []string) error {
	if operatorID == "" {
		return ErrEmptyOperatorID
	}
	if name == "" {
		return ErrEmptyKeyName
	}
	if len(permissions) == 0 {
		return ErrEmptyPermissions
	}

	for _, perm := range permissions {
		if !validPermissions[perm] {
			return ErrInvalidPermission
		}
	}

	return nil
}
