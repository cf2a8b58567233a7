package hub

import (
	"time"

	"github.com/bloomworks/livebus/internal/logging"
)

// hubConfig holds optional configuration for a Hub.
type hubConfig struct {
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a Hub.
type Option func(*hubConfig)

// WithLogger sets the logger shared by the hub and its components.
// If nil or omitted, a no-op logger is used.
func WithLogger(l *logging.Logger) Option {
	return func(c *hubConfig) { c.logger = l }
}

// WithClock overrides the hub clock used for health checks.
func WithClock(now func() time.Time) Option {
	return func(c *hubConfig) { c.now = now }
}
