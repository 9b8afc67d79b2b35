package auth

import (
	"context"
)

// TokenValidator abstracts token validation so the API middleware does not
// depend on the concrete JWT implementation.
type TokenValidator interface {
	// ValidateToken validates a token and returns claims.
	// Returns error if token is invalid, expired, or malformed.
	ValidateToken(ctx context.Context, token string) (*Claims, error)

	// Name returns the validator name for logging/debugging
	Name() string
}
