package channel

import (
	"sync/atomic"
	"time"
)

// Metrics is a point-in-time snapshot of a channel's counters.
type Metrics struct {
	// Raised counts every Raise call on an active channel, accepted or not.
	Raised int64 `json:"raised"`

	// Invalid counts messages dropped by basic validation or expiry.
	Invalid int64 `json:"invalid"`

	// RateLimited counts messages dropped by per-source admission control.
	RateLimited int64 `json:"rate_limited"`

	// Unauthorized counts messages dropped because their source is blocked.
	Unauthorized int64 `json:"unauthorized"`

	// Filtered counts messages dropped by the channel's filter rules.
	Filtered int64 `json:"filtered"`

	// Delivered counts successful subscriber notifications.
	Delivered int64 `json:"delivered"`

	// DeliveryErrors counts subscriber notifications that panicked.
	DeliveryErrors int64 `json:"delivery_errors"`

	// HistorySize is the current history buffer occupancy.
	HistorySize int `json:"history_size"`

	// Subscribers is the current subscriber count across all tiers.
	Subscribers int `json:"subscribers"`

	// LastActivity is the time of the most recent accepted message, or the
	// zero time if nothing has been accepted yet.
	LastActivity time.Time `json:"last_activity"`
}

// counters holds the channel's live atomic counters. Delivery counters are
// incremented outside the channel mutex, so all fields are atomic.
type counters struct {
	raised         atomic.Int64
	invalid        atomic.Int64
	rateLimited    atomic.Int64
	unauthorized   atomic.Int64
	filtered       atomic.Int64
	delivered      atomic.Int64
	deliveryErrors atomic.Int64
	lastActivity   atomic.Int64 // unix nanoseconds, 0 = never
}

func (c *counters) touch(now time.Time) {
	c.lastActivity.Store(now.UnixNano())
}

func (c *counters) snapshot() Metrics {
	m := Metrics{
		Raised:         c.raised.Load(),
		Invalid:        c.invalid.Load(),
		RateLimited:    c.rateLimited.Load(),
		Unauthorized:   c.unauthorized.Load(),
		Filtered:       c.filtered.Load(),
		Delivered:      c.delivered.Load(),
		DeliveryErrors: c.deliveryErrors.Load(),
	}
	if ns := c.lastActivity.Load(); ns != 0 {
		m.LastActivity = time.Unix(0, ns)
	}
	return m
}
