package channel

import (
	"github.com/bloomworks/livebus/internal/errors"
	"github.com/bloomworks/livebus/internal/message"
)

// Defaults applied by Normalize when a config field is unset or out of range.
const (
	DefaultMaxHistory      = 100
	DefaultMaxSubscription = 50
	DefaultRatePerSecond   = 10
)

// Config describes one channel. It is supplied by the config loader at
// startup and treated as immutable once the channel is constructed.
type Config struct {
	// ID uniquely identifies the channel within the registry.
	ID string `mapstructure:"id" json:"id"`

	// Name is the human-readable display name.
	Name string `mapstructure:"name" json:"name"`

	// Category groups related channels for registry lookups.
	Category string `mapstructure:"category" json:"category"`

	// DefaultPriority is assigned to messages built through the channel's
	// NewMessage helper.
	DefaultPriority message.Priority `mapstructure:"default_priority" json:"default_priority"`

	// MaxHistory bounds the history buffer. Oldest entries are evicted first.
	MaxHistory int `mapstructure:"max_history" json:"max_history"`

	// MaxSubscriptions bounds the total subscriber count across all tiers.
	MaxSubscriptions int `mapstructure:"max_subscriptions" json:"max_subscriptions"`

	// RatePerSecond bounds messages admitted per source per second.
	RatePerSecond int `mapstructure:"rate_per_second" json:"rate_per_second"`

	// Filter holds the channel's message admission rules.
	Filter FilterRules `mapstructure:"filter" json:"filter"`

	// BlockedSubscribers lists subscriber ids refused at Subscribe time.
	BlockedSubscribers []string `mapstructure:"blocked_subscribers" json:"blocked_subscribers,omitempty"`
}

// Normalize clamps out-of-range values to usable minimums and fills in
// defaults for unset fields. It returns the normalized copy.
func (c Config) Normalize() Config {
	if c.MaxHistory < 1 {
		c.MaxHistory = DefaultMaxHistory
	}
	if c.MaxSubscriptions < 1 {
		c.MaxSubscriptions = 1
	}
	if c.RatePerSecond < 1 {
		c.RatePerSecond = DefaultRatePerSecond
	}
	if !c.DefaultPriority.Valid() {
		c.DefaultPriority = message.PriorityMedium
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	return c
}

// Validate reports configuration problems that cannot be fixed by clamping.
func (c Config) Validate() error {
	if c.ID == "" {
		return errors.NewValidationError("channel id is required").WithField("id")
	}
	for _, t := range c.Filter.AllowedTypes {
		if !message.ValidateType(t) {
			return errors.NewValidationError("unknown message type in allow list").
				WithField("filter.allowed_types").WithValue(string(t))
		}
	}
	for _, t := range c.Filter.BlockedTypes {
		if !message.ValidateType(t) {
			return errors.NewValidationError("unknown message type in block list").
				WithField("filter.blocked_types").WithValue(string(t))
		}
	}
	for _, s := range c.Filter.AllowedScopes {
		if !message.ValidateScope(s) {
			return errors.NewValidationError("unknown scope in allow list").
				WithField("filter.allowed_scopes").WithValue(string(s))
		}
	}
	return nil
}
