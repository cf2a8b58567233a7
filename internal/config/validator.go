package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "channels[0].id")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidStrategies returns the list of valid conflict resolution strategies
func ValidStrategies() []string {
	return []string{"voting", "authority", "consensus", "automatic"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found. Clampable values (negative limits, zero intervals) are not
// errors; Normalize fixes those at construction time.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateChannels()...)
	errors = append(errors, c.validateConflict()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateChannels validates the channel list
func (c *Config) validateChannels() []ValidationError {
	var errors []ValidationError

	seen := make(map[string]bool)
	for i, ch := range c.Channels {
		field := fmt.Sprintf("channels[%d]", i)

		if ch.ID == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".id",
				Value:   ch.ID,
				Message: "channel id is required",
			})
			continue
		}
		if seen[ch.ID] {
			errors = append(errors, ValidationError{
				Field:   field + ".id",
				Value:   ch.ID,
				Message: "duplicate channel id",
			})
		}
		seen[ch.ID] = true

		if err := ch.Validate(); err != nil {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   ch.ID,
				Message: err.Error(),
			})
		}
	}

	return errors
}

// validateConflict validates the conflict engine config
func (c *Config) validateConflict() []ValidationError {
	var errors []ValidationError

	if s := string(c.Conflict.DefaultStrategy); s != "" && !slices.Contains(ValidStrategies(), s) {
		errors = append(errors, ValidationError{
			Field:   "conflict.default_strategy",
			Value:   s,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidStrategies(), ", ")),
		})
	}
	if f := c.Conflict.ConsensusFraction; f < 0 || f > 1 {
		errors = append(errors, ValidationError{
			Field:   "conflict.consensus_fraction",
			Value:   f,
			Message: "must be between 0 and 1",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
