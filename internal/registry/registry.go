// Package registry maintains the process-wide catalog of channels.
// Registration happens at startup or config reload; lookups happen on
// every raise, so the registry favors read concurrency.
package registry

import (
	"sync"
	"time"

	"github.com/bloomworks/livebus/internal/channel"
	"github.com/bloomworks/livebus/internal/errors"
	"github.com/bloomworks/livebus/internal/logging"
)

// DefaultStaleness is the health-check threshold used when none is
// configured. A channel with no accepted traffic for this long is flagged
// unhealthy.
const DefaultStaleness = 15 * time.Minute

// Health is one channel's health-check result. Flagging is observational;
// the registry never remediates on its own.
type Health struct {
	ChannelID    string    `json:"channel_id"`
	Active       bool      `json:"active"`
	Healthy      bool      `json:"healthy"`
	LastActivity time.Time `json:"last_activity"`
	Subscribers  int       `json:"subscribers"`
	HistorySize  int       `json:"history_size"`
}

type entry struct {
	ch           *channel.Channel
	registeredAt time.Time
}

// Registry is the process-wide catalog of named channels. It is safe for
// concurrent use; mutation is expected to be rare relative to lookups.
type Registry struct {
	mu        sync.RWMutex
	channels  map[string]*entry
	order     []string
	staleness time.Duration
	logger    *logging.Logger

	// now is overridable in tests.
	now func() time.Time
}

// New creates an empty registry. A non-positive staleness falls back to
// DefaultStaleness; a nil logger falls back to a no-op logger.
func New(staleness time.Duration, logger *logging.Logger) *Registry {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Registry{
		channels:  make(map[string]*entry),
		staleness: staleness,
		logger:    logger,
		now:       time.Now,
	}
}

// Register validates the config, constructs a channel, and stores it.
// A duplicate id is a misconfiguration and is surfaced to the caller.
func (r *Registry) Register(cfg channel.Config) (*channel.Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[cfg.ID]; exists {
		return nil, errors.NewChannelError("register failed", errors.ErrDuplicateChannel).
			WithChannelID(cfg.ID)
	}

	ch := channel.New(cfg, r.logger)
	r.channels[cfg.ID] = &entry{ch: ch, registeredAt: r.now()}
	r.order = append(r.order, cfg.ID)

	r.logger.Info("channel registered", "channel_id", cfg.ID, "category", cfg.Category)
	return ch, nil
}

// Unregister retires a channel, removing it from the catalog entirely.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[id]; !exists {
		return errors.NewChannelError("unregister failed", errors.ErrChannelNotFound).
			WithChannelID(id)
	}

	delete(r.channels, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.logger.Info("channel unregistered", "channel_id", id)
	return nil
}

// Get returns the channel with the given id, or false if not registered.
func (r *Registry) Get(id string) (*channel.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.channels[id]
	if !ok {
		return nil, false
	}
	return e.ch, true
}

// ByCategory returns all channels in the given category, in registration
// order.
func (r *Registry) ByCategory(category string) []*channel.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*channel.Channel
	for _, id := range r.order {
		if e := r.channels[id]; e.ch.Category() == category {
			out = append(out, e.ch)
		}
	}
	return out
}

// All returns every registered channel in registration order.
func (r *Registry) All() []*channel.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*channel.Channel, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.channels[id].ch)
	}
	return out
}

// Count returns the number of registered channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Activate re-enables message acceptance on the channel.
func (r *Registry) Activate(id string) error {
	ch, ok := r.Get(id)
	if !ok {
		return errors.NewChannelError("activate failed", errors.ErrChannelNotFound).
			WithChannelID(id)
	}
	ch.Activate()
	r.logger.Info("channel activated", "channel_id", id)
	return nil
}

// Deactivate soft-disables the channel. History and subscribers are kept;
// subsequent raises become no-ops until Activate.
func (r *Registry) Deactivate(id string) error {
	ch, ok := r.Get(id)
	if !ok {
		return errors.NewChannelError("deactivate failed", errors.ErrChannelNotFound).
			WithChannelID(id)
	}
	ch.Deactivate()
	r.logger.Info("channel deactivated", "channel_id", id)
	return nil
}

// HealthCheck reports per-channel health as of now, in registration order.
// A channel is unhealthy when its last accepted message (or, failing any
// traffic, its registration) is older than the staleness threshold.
func (r *Registry) HealthCheck(now time.Time) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, 0, len(r.order))
	for _, id := range r.order {
		e := r.channels[id]
		m := e.ch.Metrics()

		baseline := m.LastActivity
		if baseline.IsZero() {
			baseline = e.registeredAt
		}

		out = append(out, Health{
			ChannelID:    id,
			Active:       e.ch.Active(),
			Healthy:      now.Sub(baseline) <= r.staleness,
			LastActivity: m.LastActivity,
			Subscribers:  m.Subscribers,
			HistorySize:  m.HistorySize,
		})
	}
	return out
}

// PruneExpired sweeps expired messages out of every channel's history and
// returns the total number removed.
func (r *Registry) PruneExpired(now time.Time) int {
	total := 0
	for _, ch := range r.All() {
		total += ch.PruneExpired(now)
	}
	if total > 0 {
		r.logger.Debug("pruned expired messages", "removed", total)
	}
	return total
}
