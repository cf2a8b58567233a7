// Package channel implements the typed pub/sub endpoint at the heart of
// the live bus. A Channel validates, rate-limits, caches, and broadcasts
// messages to priority-tiered subscribers. All per-message failures are
// dropped and counted rather than surfaced to the producer, so a broken
// consumer can never take a producer down with it.
package channel

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bloomworks/livebus/internal/logging"
	"github.com/bloomworks/livebus/internal/message"
	"github.com/bloomworks/livebus/internal/ratelimit"
)

// Channel is a named pub/sub endpoint for one category of messages.
// It is safe for concurrent use; each Raise runs a single critical section
// over the channel's history, rate limiter, and subscriber registry, with
// subscriber notification happening outside the lock on a snapshot.
type Channel struct {
	cfg    Config
	logger *logging.Logger

	mu      sync.Mutex
	subs    *subscriberRegistry
	history *historyBuffer
	limiter *ratelimit.Limiter

	metrics counters
	active  atomic.Bool

	// now is overridable in tests for deterministic rate-limit windows.
	now func() time.Time
}

// New constructs a channel from the given config. The config is normalized
// before use; callers that need strict validation should call
// Config.Validate first. A nil logger falls back to a no-op logger.
func New(cfg Config, logger *logging.Logger) *Channel {
	cfg = cfg.Normalize()
	if logger == nil {
		logger = logging.NopLogger()
	}

	ch := &Channel{
		cfg:     cfg,
		logger:  logger.WithChannel(cfg.ID),
		subs:    newSubscriberRegistry(),
		history: newHistoryBuffer(cfg.MaxHistory),
		limiter: ratelimit.New(cfg.RatePerSecond),
		now:     time.Now,
	}
	ch.active.Store(true)
	return ch
}

// ID returns the channel id.
func (c *Channel) ID() string { return c.cfg.ID }

// Name returns the display name.
func (c *Channel) Name() string { return c.cfg.Name }

// Category returns the channel category.
func (c *Channel) Category() string { return c.cfg.Category }

// Config returns the normalized configuration the channel was built from.
func (c *Channel) Config() Config { return c.cfg }

// Active reports whether the channel currently accepts messages.
func (c *Channel) Active() bool { return c.active.Load() }

// Activate re-enables message acceptance.
func (c *Channel) Activate() { c.active.Store(true) }

// Deactivate soft-disables the channel: subsequent Raise calls become
// no-ops, while history and subscribers are retained. Deliveries already
// in flight complete normally.
func (c *Channel) Deactivate() { c.active.Store(false) }

// NewMessage builds a message with the channel's default priority applied.
func (c *Channel) NewMessage(t message.Type, title, description string) *message.Message {
	msg := message.New(t, title, description)
	msg.Priority = c.cfg.DefaultPriority
	return msg
}

// Subscribe registers the subscriber in the given tier. It returns false
// if the subscriber is nil or has an empty id, the tier is unknown, the
// subscriber is blocked, the channel is at its subscription limit, or the
// id is already registered in that tier. It never panics.
func (c *Channel) Subscribe(sub Subscriber, tier message.Priority) bool {
	if sub == nil || sub.ID() == "" || !tier.Valid() {
		return false
	}
	for _, blocked := range c.cfg.BlockedSubscribers {
		if blocked == sub.ID() {
			c.logger.Debug("subscriber blocked", "subscriber_id", sub.ID())
			return false
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subs.countAll() >= c.cfg.MaxSubscriptions {
		c.logger.Debug("subscription limit reached",
			"subscriber_id", sub.ID(), "limit", c.cfg.MaxSubscriptions)
		return false
	}
	if !c.subs.add(sub, tier) {
		return false
	}

	c.logger.Debug("subscriber added", "subscriber_id", sub.ID(), "tier", tier.String())
	return true
}

// Unsubscribe removes the id from every tier. It returns false if the id
// was never subscribed; unsubscribing an unknown id is a harmless no-op.
func (c *Channel) Unsubscribe(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.subs.remove(id) {
		return false
	}
	c.logger.Debug("subscriber removed", "subscriber_id", id)
	return true
}

// SubscriberCount returns the current subscriber count across all tiers.
func (c *Channel) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs.countAll()
}

// Raise admits the message through the validation, rate-limit, and filter
// pipeline, caches it in history, and broadcasts it to subscribers.
// Rejections increment a counter and drop the message silently; producers
// never receive an error from this path. Raising on a deactivated channel
// is a no-op.
func (c *Channel) Raise(msg *message.Message) {
	if !c.active.Load() {
		return
	}

	now := c.now()

	c.mu.Lock()
	c.metrics.raised.Add(1)

	if msg == nil || msg.Validate() != nil || msg.IsExpired(now) {
		c.metrics.invalid.Add(1)
		c.mu.Unlock()
		return
	}
	if !c.limiter.Allow(msg.Source, now) {
		c.metrics.rateLimited.Add(1)
		c.mu.Unlock()
		c.logger.Debug("message rate limited", "source", msg.Source, "message_id", msg.ID)
		return
	}
	if !c.cfg.Filter.AllowsSource(msg.Source) {
		c.metrics.unauthorized.Add(1)
		c.mu.Unlock()
		c.logger.Debug("message from unauthorized source", "source", msg.Source)
		return
	}
	if !c.cfg.Filter.Allows(msg) {
		c.metrics.filtered.Add(1)
		c.mu.Unlock()
		return
	}

	c.history.push(msg)
	c.metrics.touch(now)
	targets := c.deliveryPlan(msg.Priority)
	c.mu.Unlock()

	for _, sub := range targets {
		c.deliver(sub, msg)
	}
}

// deliveryPlan snapshots the subscribers to notify, in delivery order.
// Immediate messages reach the Immediate and High tiers first, then the
// remaining tiers in rank order; everything else is delivered in plain
// registration order. The caller must hold the mutex.
func (c *Channel) deliveryPlan(priority message.Priority) []Subscriber {
	if priority != message.PriorityImmediate {
		return c.subs.orderSnapshot()
	}

	var targets []Subscriber
	targets = append(targets, c.subs.tierSnapshot(message.PriorityImmediate)...)
	targets = append(targets, c.subs.tierSnapshot(message.PriorityHigh)...)
	for _, tier := range message.Tiers() {
		if tier == message.PriorityImmediate || tier == message.PriorityHigh {
			continue
		}
		targets = append(targets, c.subs.tierSnapshot(tier)...)
	}
	return targets
}

// deliver notifies one subscriber, recovering panics so a failing consumer
// cannot block delivery to the rest.
func (c *Channel) deliver(sub Subscriber, msg *message.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.deliveryErrors.Add(1)
			c.logger.Error("subscriber panicked during delivery",
				"subscriber_id", sub.ID(),
				"message_id", msg.ID,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	sub.OnMessage(msg)
	c.metrics.delivered.Add(1)
}

// History returns a snapshot of the history buffer in arrival order.
// A non-zero since limits the snapshot to messages with a timestamp at or
// after since. The snapshot never aliases the live buffer.
func (c *Channel) History(since time.Time) []*message.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.snapshot(since)
}

// PruneExpired removes expired messages from the history buffer and
// returns how many were dropped.
func (c *Channel) PruneExpired(now time.Time) int {
	c.mu.Lock()
	removed := c.history.pruneExpired(now)
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("pruned expired history entries", "removed", removed)
	}
	return removed
}

// Metrics returns a point-in-time snapshot of the channel's counters.
func (c *Channel) Metrics() Metrics {
	m := c.metrics.snapshot()

	c.mu.Lock()
	m.HistorySize = c.history.size()
	m.Subscribers = c.subs.countAll()
	c.mu.Unlock()

	return m
}

// ResetRateLimiter clears all per-source rate-limit state. Intended for
// operational recovery and tests.
func (c *Channel) ResetRateLimiter() {
	c.limiter.Reset()
}
