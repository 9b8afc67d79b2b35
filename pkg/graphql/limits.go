package graphql

import "fmt"

// LimitConfig caps list query results
type LimitConfig struct {
	DefaultLimit int // Default limit when no limit specified
	MaxLimit     int // Maximum allowed limit
}

// DefaultLimits returns the limit configuration used when none is supplied
func DefaultLimits() *LimitConfig {
	return &LimitConfig{
		DefaultLimit: 100,
		MaxLimit:     1000,
	}
}

// ValidateLimitConfig validates the limit configuration
func ValidateLimitConfig(config *LimitConfig) error {
	if config.MaxLimit <= 0 {
		return fmt.Errorf("max limit must be greater than 0, got %d", config.MaxLimit)
	}
	if config.DefaultLimit > config.MaxLimit {
		return fmt.Errorf("default limit (%d) cannot exceed max limit (%d)", config.DefaultLimit, config.MaxLimit)
	}
	if config.DefaultLimit <= 0 {
		return fmt.Errorf("default limit must be greater than 0, got %d", config.DefaultLimit)
	}
	return nil
}

// applyLimit applies default and max limit constraints to a limit value
func applyLimit(requestedLimit int, config *LimitConfig) int {
	// If no limit specified or negative, use default
	if requestedLimit < 0 {
		return config.DefaultLimit
	}

	// If limit is 0, return 0 (empty results)
	if requestedLimit == 0 {
		return 0
	}

	// Cap at max limit
	if requestedLimit > config.MaxLimit {
		return config.MaxLimit
	}

	return requestedLimit
}

// limitArg pulls the optional limit argument out of resolver params,
// returning -1 (use default) when absent
func limitArg(args map[string]any) int {
	if raw, ok := args["limit"]; ok {
		if limit, ok := raw.(int); ok {
			return limit
		}
	}
	return -1
}
