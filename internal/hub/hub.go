package hub

import (
	"context"
	"sync"
	"time"

	"github.com/bloomworks/livebus/internal/channel"
	"github.com/bloomworks/livebus/internal/config"
	"github.com/bloomworks/livebus/internal/conflict"
	"github.com/bloomworks/livebus/internal/coordinator"
	"github.com/bloomworks/livebus/internal/errors"
	"github.com/bloomworks/livebus/internal/logging"
	"github.com/bloomworks/livebus/internal/message"
	"github.com/bloomworks/livebus/internal/registry"
)

// Reserved channel ids created by the hub when the loaded config does not
// define them.
const (
	SyncChannelID     = "system.sync"
	ConflictChannelID = "system.conflicts"
)

// EventCategory marks channels whose traffic feeds the global coordinator.
const EventCategory = "events"

// Hub wires the registry, coordinator, and conflict engine together from a
// loaded config. It owns the lifecycle of the background tick, sweep, and
// prune loops.
type Hub struct {
	mu      sync.RWMutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	cfg    *config.Config
	logger *logging.Logger

	registry *registry.Registry
	coord    *coordinator.Coordinator
	engine   *conflict.Engine

	now func() time.Time
}

// New builds a Hub from the given config. Configured channels are registered
// first; the system sync and conflict channels are created afterward unless
// the config already defines them. The coordinator is subscribed to every
// channel in the event category.
func New(cfg *config.Config, opts ...Option) (*Hub, error) {
	if cfg == nil {
		return nil, errors.NewValidationError("hub: config is required")
	}

	hc := &hubConfig{}
	for _, opt := range opts {
		opt(hc)
	}

	logger := hc.logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	now := hc.now
	if now == nil {
		now = time.Now
	}

	reg := registry.New(cfg.Registry.Staleness, logger)
	for _, chCfg := range cfg.Channels {
		if _, err := reg.Register(chCfg); err != nil {
			return nil, err
		}
	}

	syncCh, err := ensureChannel(reg, channel.Config{
		ID:              SyncChannelID,
		Name:            "Global Synchronization",
		Category:        "system",
		DefaultPriority: message.PriorityLow,
		RatePerSecond:   100,
	})
	if err != nil {
		return nil, err
	}
	conflictCh, err := ensureChannel(reg, channel.Config{
		ID:            ConflictChannelID,
		Name:          "Conflict Notices",
		Category:      "system",
		RatePerSecond: 100,
	})
	if err != nil {
		return nil, err
	}

	coord := coordinator.New(cfg.Coordinator, syncCh, logger)
	engine := conflict.New(cfg.Conflict.Config, conflictCh, logger)
	h := &Hub{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		coord:    coord,
		engine:   engine,
		now:      now,
	}

	// Contribution traffic reaches the coordinator through ordinary
	// subscriptions, same as any other consumer.
	for _, ch := range reg.ByCategory(EventCategory) {
		ch.Subscribe(coord, message.PriorityHigh)
	}

	return h, nil
}

// ensureChannel registers cfg unless a channel with its id already exists.
func ensureChannel(reg *registry.Registry, cfg channel.Config) (*channel.Channel, error) {
	if ch, ok := reg.Get(cfg.ID); ok {
		return ch, nil
	}
	return reg.Register(cfg)
}

// Registry returns the channel registry.
func (h *Hub) Registry() *registry.Registry { return h.registry }

// Coordinator returns the global event coordinator.
func (h *Hub) Coordinator() *coordinator.Coordinator { return h.coord }

// Engine returns the conflict resolution engine.
func (h *Hub) Engine() *conflict.Engine { return h.engine }

// Channel looks up a registered channel by id.
func (h *Hub) Channel(id string) (*channel.Channel, bool) {
	return h.registry.Get(id)
}

// Raise publishes msg on the named channel. Per-message admission failures
// are counted in channel metrics, not returned here; the only error is an
// unknown channel id.
func (h *Hub) Raise(channelID string, msg *message.Message) error {
	ch, ok := h.registry.Get(channelID)
	if !ok {
		return errors.NewChannelError("raise failed", errors.ErrChannelNotFound).
			WithChannelID(channelID)
	}
	ch.Raise(msg)
	return nil
}

// Health reports per-channel health using the hub clock.
func (h *Hub) Health() []registry.Health {
	return h.registry.HealthCheck(h.now())
}

// Start launches the background loops: coordinator ticks, conflict sweeps,
// and history pruning. Returns an error if the hub is already started.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return errors.New("hub: already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.started = true

	h.wg.Add(3)
	go h.loop(ctx, h.cfg.Coordinator.TickInterval, h.tick)
	go h.loop(ctx, h.cfg.Conflict.SweepInterval, func(now time.Time) {
		h.engine.Sweep(now)
	})
	go h.loop(ctx, h.cfg.Registry.PruneInterval, func(now time.Time) {
		h.registry.PruneExpired(now)
	})

	h.logger.Info("hub started",
		"channels", h.registry.Count(),
		"tick_interval", h.cfg.Coordinator.TickInterval)
	return nil
}

// Stop cancels the background loops and waits for them to exit. It is
// idempotent.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return nil
	}

	h.cancel()
	h.wg.Wait()
	h.started = false

	h.logger.Info("hub stopped")
	return nil
}

// Running returns whether the hub is currently started.
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started
}

func (h *Hub) loop(ctx context.Context, interval time.Duration, fn func(time.Time)) {
	defer h.wg.Done()

	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fn(now)
		}
	}
}

// tick advances the coordinator and then scans its state for regional
// divergence worth handing to the conflict engine.
func (h *Hub) tick(now time.Time) {
	if !h.coord.Tick(now) {
		return
	}
	h.detectDivergence()
}

// detectDivergence turns each tracked event's regional progress into a
// conflict candidate. The engine applies its own tolerance; events whose
// regions agree produce no record, and events with an open record are
// skipped until it resolves.
func (h *Hub) detectDivergence() {
	for _, state := range h.coord.States() {
		if len(state.RegionalProgress) < 2 {
			continue
		}
		if h.engine.HasOpen(state.EventID) {
			continue
		}
		reports := make([]conflict.Report, 0, len(state.RegionalProgress))
		for region, progress := range state.RegionalProgress {
			reports = append(reports, conflict.Report{
				Region:    region,
				Source:    region,
				Value:     progress,
				Timestamp: state.LastUpdate,
			})
		}
		h.engine.Detect(conflict.Candidate{
			EventID: state.EventID,
			Reports: reports,
		})
	}
}
