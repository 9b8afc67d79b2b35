package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"os"
)

const (
	KeyPrefixProduction = "flx_live_"
	KeyPrefixTest       = "flx_test_"
	KeyRandomLength     = 32 // bytes of random data
)

// generateAPIKey generates a new API key string and returns the key and its prefix.
// Uses flx_test_ prefix when FLUPS_ENV != "production", otherwise flx_live_.
func generateAPIKey() (string, string, error) {
	return generateAPIKeyWithEnv("")
}

// generateAPIKeyWithEnv generates a new API key with explicit environment.
// env can be "live", "test", or "" (auto-detect from FLUPS_ENV).
func generateAPIKeyWithEnv(env string) (string, string, error) {
	randomBytes := make([]byte, KeyRandomLength)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", "", err
	}

	// Encode to base64 (URL-safe)
	randomPart := base64.RawURLEncoding.EncodeToString(randomBytes)

	var prefix string
	switch env {
	case "live":
		prefix = KeyPrefixProduction
	case "test":
		prefix = KeyPrefixTest
	default:
		// Auto-detect from environment
		prefix = KeyPrefixTest
		if os.Getenv("FLUPS_ENV") == "production" {
			prefix = KeyPrefixProduction
		}
	}
	keyString := prefix + randomPart

	return keyString, prefix, nil
}

// hashAPIKey creates an HMAC-SHA256 hash of the key using the store's secret.
// HMAC requires knowledge of the server secret to compute valid hashes, so a
// leaked hash table alone cannot be reversed into usable keys.
func (s *APIKeyStore) hashAPIKey(keyString string) string {
	mac := hmac.New(sha256.New, s.hmacSecret)
	mac.Write([]byte(keyString))
	return hex.EncodeToString(mac.Sum(nil))
}

// compareKeyHash compares a key against a stored hash in constant time
// to prevent timing attacks during validation
func (s *APIKeyStore) compareKeyHash(keyString, storedHash string) bool {
	computedHash := s.hashAPIKey(keyString)
	return subtle.ConstantTimeCompare([]byte(computedHash), []byte(storedHash)) == 1
}

// generateID generates a unique ID for key metadata
func generateID() string {
	randomBytes := make([]byte, 16)
	rand.Read(randomBytes)
	return base64.RawURLEncoding.EncodeToString(randomBytes)
}
