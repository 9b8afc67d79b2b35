package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the config against its struct tags plus a few
// cross-field rules and returns a message naming every violation.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			messages := make([]string, 0, len(verrs))
			for _, verr := range verrs {
				messages = append(messages, formatValidationError(verr))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(messages, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Engine.MaxPatches > c.Engine.MaxNodes {
		return fmt.Errorf("invalid config: max_patches (%d) exceeds max_nodes (%d)",
			c.Engine.MaxPatches, c.Engine.MaxNodes)
	}
	return nil
}

// formatValidationError converts a validator tag failure into a
// readable message keyed on the offending field path.
func formatValidationError(verr validator.FieldError) string {
	field := strings.TrimPrefix(verr.Namespace(), "Config.")
	switch verr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, verr.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, verr.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, verr.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, verr.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, verr.Tag())
	}
}
