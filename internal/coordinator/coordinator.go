// Package coordinator maintains per-event global state across regions,
// runs the periodic synchronization tick, and computes phase transitions
// from configured durations. It consumes channel traffic for regional
// contributions and emits synchronization summaries back through a
// dedicated channel.
package coordinator

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bloomworks/livebus/internal/channel"
	"github.com/bloomworks/livebus/internal/errors"
	"github.com/bloomworks/livebus/internal/logging"
	"github.com/bloomworks/livebus/internal/message"
)

// Defaults applied by Config.Normalize.
const (
	DefaultTickInterval      = 60 * time.Second
	DefaultMaxEvents         = 10
	DefaultCapacityThreshold = 100000
)

// SourceID is the producer id the coordinator stamps on messages it raises.
const SourceID = "global-coordinator"

// Config holds the coordinator's tuning knobs.
type Config struct {
	// TickInterval is how often the synchronization tick runs.
	TickInterval time.Duration `mapstructure:"tick_interval" json:"tick_interval"`

	// MaxEvents bounds how many global events may be tracked at once.
	MaxEvents int `mapstructure:"max_events" json:"max_events"`

	// RegionOffsets maps region names to their UTC offset in hours.
	// When non-empty, contributions from unlisted regions are rejected.
	RegionOffsets map[string]int `mapstructure:"region_offsets" json:"region_offsets"`

	// EnableGlobalSync controls whether ticks broadcast a synchronization
	// summary on the sync channel.
	EnableGlobalSync bool `mapstructure:"enable_global_sync" json:"enable_global_sync"`

	// CapacityThreshold is the aggregate participant count above which
	// the coordinator sheds new non-crisis registrations.
	CapacityThreshold int64 `mapstructure:"capacity_threshold" json:"capacity_threshold"`
}

// Normalize fills unset fields with defaults and returns the copy.
func (c Config) Normalize() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.MaxEvents < 1 {
		c.MaxEvents = DefaultMaxEvents
	}
	if c.CapacityThreshold < 1 {
		c.CapacityThreshold = DefaultCapacityThreshold
	}
	return c
}

// contribution is a regional delta queued from channel traffic, applied on
// the next tick.
type contribution struct {
	eventID      string
	region       string
	delta        float64
	participants int64
}

// Coordinator tracks global events and reconciles regional contributions.
// It is safe for concurrent use. The tick runs on its own schedule, never
// from inside a Raise call; overlapping ticks are skipped, not queued.
type Coordinator struct {
	cfg    Config
	logger *logging.Logger
	sync   *channel.Channel

	mu      sync.Mutex
	events  map[string]*trackedEvent
	order   []string
	pending []contribution

	shedding atomic.Bool
	ticking  atomic.Bool

	// now is overridable in tests.
	now func() time.Time
}

// New creates a coordinator. syncCh is the channel synchronization
// summaries are raised on; it may be nil when global sync is disabled.
// A nil logger falls back to a no-op logger.
func New(cfg Config, syncCh *channel.Channel, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Coordinator{
		cfg:    cfg.Normalize(),
		logger: logger,
		sync:   syncCh,
		events: make(map[string]*trackedEvent),
		now:    time.Now,
	}
}

// Track starts coordinating a global event under the given schedule.
// Crisis events bypass the load-shedding gate; everything else is refused
// while the coordinator is shedding or at its event limit.
func (c *Coordinator) Track(eventID string, schedule Schedule, crisis bool) error {
	if eventID == "" {
		return errors.NewValidationError("event id is required").WithField("event_id")
	}
	if c.shedding.Load() && !crisis {
		return errors.NewCoordinatorError("track refused", errors.ErrLoadShedding).
			WithEventID(eventID).WithRetryable(true)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.events[eventID]; exists {
		return errors.NewAlreadyExistsError("event", eventID)
	}
	if len(c.events) >= c.cfg.MaxEvents {
		return errors.NewCoordinatorError("track refused", errors.ErrEventLimit).
			WithEventID(eventID)
	}

	c.events[eventID] = &trackedEvent{
		id:       eventID,
		schedule: schedule,
		crisis:   crisis,
		regional: make(map[string]float64),
	}
	c.order = append(c.order, eventID)

	c.logger.Info("event tracked",
		"event_id", eventID,
		"crisis", crisis,
		"phase", schedule.PhaseAt(c.now()).String())
	return nil
}

// Untrack stops coordinating the event immediately.
func (c *Coordinator) Untrack(eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.events[eventID]; !exists {
		return errors.NewCoordinatorError("untrack failed", errors.ErrEventNotFound).
			WithEventID(eventID)
	}
	c.removeLocked(eventID)
	c.logger.Info("event untracked", "event_id", eventID)
	return nil
}

// removeLocked deletes the event from the map and order list.
// The caller must hold the mutex.
func (c *Coordinator) removeLocked(eventID string) {
	delete(c.events, eventID)
	for i, id := range c.order {
		if id == eventID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// State returns a snapshot of one tracked event.
func (c *Coordinator) State(eventID string) (GlobalEventState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.events[eventID]
	if !exists {
		return GlobalEventState{}, errors.NewCoordinatorError("state lookup failed", errors.ErrEventNotFound).
			WithEventID(eventID)
	}
	return e.snapshot(c.now()), nil
}

// States returns snapshots of all tracked events in tracking order.
func (c *Coordinator) States() []GlobalEventState {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]GlobalEventState, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.events[id].snapshot(now))
	}
	return out
}

// ApplyContribution atomically increases an event's regional and global
// progress and participant count. Contributions are rejected outside the
// event's active window (Registration through Judging) and from unknown
// regions when a region table is configured.
func (c *Coordinator) ApplyContribution(eventID, region string, delta float64, participants int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(eventID, region, delta, participants)
}

// applyLocked performs the contribution checks and mutation.
// The caller must hold the mutex.
func (c *Coordinator) applyLocked(eventID, region string, delta float64, participants int64) error {
	e, exists := c.events[eventID]
	if !exists {
		return errors.NewCoordinatorError("contribution refused", errors.ErrEventNotFound).
			WithEventID(eventID).WithRegion(region)
	}

	now := c.now()
	if phase := e.schedule.PhaseAt(now); !phase.Accepting() {
		return errors.NewCoordinatorError(
			fmt.Sprintf("contribution refused in phase %s", phase), errors.ErrEventInactive).
			WithEventID(eventID).WithRegion(region)
	}
	if len(c.cfg.RegionOffsets) > 0 {
		if _, known := c.cfg.RegionOffsets[region]; !known {
			return errors.NewCoordinatorError("contribution refused", errors.ErrUnknownRegion).
				WithEventID(eventID).WithRegion(region)
		}
	}
	if delta < 0 {
		return errors.NewValidationError("contribution delta must be non-negative").
			WithField("delta").WithValue(delta)
	}

	e.regional[region] += delta
	e.progress += delta
	if participants > 0 {
		e.participants += participants
	}
	e.lastUpdate = now
	return nil
}

// CorrectParticipants applies an explicit participant-count correction,
// the only path allowed to decrease the count. The count never drops
// below zero.
func (c *Coordinator) CorrectParticipants(eventID string, delta int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.events[eventID]
	if !exists {
		return errors.NewCoordinatorError("correction failed", errors.ErrEventNotFound).
			WithEventID(eventID)
	}
	e.participants += delta
	if e.participants < 0 {
		e.participants = 0
	}
	e.lastUpdate = c.now()

	c.logger.Info("participant count corrected", "event_id", eventID, "delta", delta)
	return nil
}

// ID implements channel.Subscriber.
func (c *Coordinator) ID() string { return SourceID }

// OnMessage implements channel.Subscriber. Messages carrying an event_id
// payload are queued as regional contributions and applied on the next
// tick; everything else is ignored. Queuing keeps the raise path free of
// coordinator work.
func (c *Coordinator) OnMessage(msg *message.Message) {
	eventID := msg.PayloadString("event_id", "")
	if eventID == "" {
		return
	}

	contrib := contribution{
		eventID:      eventID,
		region:       msg.PayloadString("region", ""),
		delta:        msg.PayloadFloat("progress_delta", 0),
		participants: int64(msg.PayloadFloat("participants", 0)),
	}

	c.mu.Lock()
	c.pending = append(c.pending, contrib)
	c.mu.Unlock()
}

// Tick runs one synchronization pass: queued contributions are applied,
// phases are recomputed, completed events are retired, the load-shedding
// gate is re-evaluated, and (when enabled) a synchronization summary is
// broadcast. If the previous tick is still running the call returns false
// and the overdue tick is skipped.
func (c *Coordinator) Tick(now time.Time) bool {
	if !c.ticking.CompareAndSwap(false, true) {
		c.logger.Warn("tick skipped, previous tick still running")
		return false
	}
	defer c.ticking.Store(false)

	c.mu.Lock()

	pending := c.pending
	c.pending = nil
	for _, contrib := range pending {
		if err := c.applyLocked(contrib.eventID, contrib.region, contrib.delta, contrib.participants); err != nil {
			c.logger.Debug("queued contribution dropped",
				"event_id", contrib.eventID,
				"region", contrib.region,
				"error", err.Error())
		}
	}

	var (
		totalParticipants int64
		totalProgress     float64
		retired           []string
		phases            = make(map[string]string, len(c.events))
	)
	for _, id := range c.order {
		e := c.events[id]
		phase := e.schedule.PhaseAt(now)
		if phase == PhaseCompleted {
			retired = append(retired, id)
			continue
		}
		phases[id] = phase.String()
		totalParticipants += e.participants
		totalProgress += e.progress
	}
	for _, id := range retired {
		c.removeLocked(id)
	}
	tracked := len(c.events)

	c.mu.Unlock()

	for _, id := range retired {
		c.logger.Info("event completed and retired", "event_id", id)
	}

	c.updateShedding(totalParticipants)

	if c.cfg.EnableGlobalSync && c.sync != nil {
		c.broadcastSync(tracked, totalParticipants, totalProgress, phases)
	}
	return true
}

// updateShedding flips the load-shedding gate based on aggregate load.
// State changes are announced on the sync channel so operators see them
// without tailing logs.
func (c *Coordinator) updateShedding(totalParticipants int64) {
	shed := totalParticipants > c.cfg.CapacityThreshold
	if shed == c.shedding.Swap(shed) {
		return
	}

	if shed {
		c.logger.Warn("load shedding engaged",
			"participants", totalParticipants,
			"threshold", c.cfg.CapacityThreshold)
	} else {
		c.logger.Info("load shedding released", "participants", totalParticipants)
	}

	if c.sync == nil {
		return
	}
	title := "registrations suspended under load"
	priority := message.PriorityHigh
	if !shed {
		title = "registrations resumed"
		priority = message.PriorityMedium
	}
	msg := message.New(message.TypeSystem, title, "")
	msg.Source = SourceID
	msg.Scope = message.ScopeSystem
	msg.Priority = priority
	msg.SetPayload("shedding", shed)
	msg.SetPayload("participants", totalParticipants)
	c.sync.Raise(msg)
}

// LoadBalanceCheck re-evaluates the load-shedding gate outside the tick
// and reports whether shedding is active.
func (c *Coordinator) LoadBalanceCheck() bool {
	c.mu.Lock()
	var total int64
	for _, e := range c.events {
		total += e.participants
	}
	c.mu.Unlock()

	c.updateShedding(total)
	return c.shedding.Load()
}

// Shedding reports whether new non-crisis registrations are refused.
func (c *Coordinator) Shedding() bool {
	return c.shedding.Load()
}

// broadcastSync raises a synchronization summary on the sync channel.
func (c *Coordinator) broadcastSync(tracked int, participants int64, progress float64, phases map[string]string) {
	msg := message.New(message.TypeSynchronization, "global state sync", "periodic coordinator state summary")
	msg.Source = SourceID
	msg.Scope = message.ScopeSystem
	msg.Priority = message.PriorityLow
	msg.SetPayload("tracked_events", tracked)
	msg.SetPayload("total_participants", participants)
	msg.SetPayload("total_progress", progress)
	msg.SetPayload("phases", phases)

	c.sync.Raise(msg)
}

// LocalTime translates an instant into a region's local wall clock using
// the configured UTC offset table.
func (c *Coordinator) LocalTime(region string, now time.Time) (time.Time, error) {
	offset, known := c.cfg.RegionOffsets[region]
	if !known {
		return time.Time{}, errors.NewCoordinatorError("local time lookup failed", errors.ErrUnknownRegion).
			WithRegion(region)
	}
	zone := time.FixedZone(region, offset*3600)
	return now.In(zone), nil
}

// EventCount returns the number of currently tracked events.
func (c *Coordinator) EventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
