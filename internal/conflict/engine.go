// Package conflict detects and resolves contradictory global-state
// updates. Conflicts arise when regional reports for the same event
// diverge beyond tolerance or when two coordinators claim authority over
// the same event window; each carries a wall-clock resolution deadline
// after which automatic resolution is forced.
package conflict

import (
	"fmt"
	"slices"
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
	DefaultTolerance         = 10.0
	DefaultResolutionTimeout = 5 * time.Minute
	DefaultConsensusFraction = 0.66
)

// SourceID is the producer id the engine stamps on conflict messages.
const SourceID = "conflict-engine"

// Config holds the engine's tuning knobs.
type Config struct {
	// Tolerance is the maximum spread between regional report values
	// before they count as a divergence conflict.
	Tolerance float64 `mapstructure:"tolerance" json:"tolerance"`

	// DefaultStrategy is used by resolution sweeps when no explicit
	// strategy was requested.
	DefaultStrategy Strategy `mapstructure:"default_strategy" json:"default_strategy"`

	// ResolutionTimeout bounds how long a conflict may stay unresolved
	// before automatic resolution is forced.
	ResolutionTimeout time.Duration `mapstructure:"resolution_timeout" json:"resolution_timeout"`

	// ConsensusFraction is the agreement share required by the consensus
	// strategy.
	ConsensusFraction float64 `mapstructure:"consensus_fraction" json:"consensus_fraction"`

	// AuthoritativeSource is the source id trusted by the authority
	// strategy.
	AuthoritativeSource string `mapstructure:"authoritative_source" json:"authoritative_source"`
}

// Normalize fills unset fields with defaults and returns the copy.
func (c Config) Normalize() Config {
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if !c.DefaultStrategy.Valid() {
		c.DefaultStrategy = StrategyAutomatic
	}
	if c.ResolutionTimeout <= 0 {
		c.ResolutionTimeout = DefaultResolutionTimeout
	}
	if c.ConsensusFraction <= 0 || c.ConsensusFraction > 1 {
		c.ConsensusFraction = DefaultConsensusFraction
	}
	return c
}

// Candidate is a potential conflict handed to Detect: the regional
// reports observed for one event, plus any competing authority claims.
type Candidate struct {
	EventID         string
	Reports         []Report
	AuthorityClaims []string
}

// Engine detects conflicts and drives them to resolution. It is safe for
// concurrent use. Deadlines are wall-clock; resolution is polled via
// Sweep rather than interrupted.
type Engine struct {
	cfg        Config
	logger     *logging.Logger
	conflictCh *channel.Channel

	mu      sync.Mutex
	records map[string]*Record
	order   []string

	idCounter atomic.Uint64

	// now is overridable in tests.
	now func() time.Time
}

// New creates an engine. conflictCh is the dedicated channel conflicts are
// surfaced on; it may be nil. A nil logger falls back to a no-op logger.
func New(cfg Config, conflictCh *channel.Channel, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Engine{
		cfg:        cfg.Normalize(),
		logger:     logger,
		conflictCh: conflictCh,
		records:    make(map[string]*Record),
		now:        time.Now,
	}
}

// Detect examines the candidate and returns a new conflict record, or nil
// when the reports agree. Detected conflicts are stored and surfaced on
// the conflict channel with their severity-mapped priority.
func (e *Engine) Detect(candidate Candidate) *Record {
	now := e.now()

	record := e.divergenceConflict(candidate, now)
	if record == nil {
		record = e.authorityConflict(candidate, now)
	}
	if record == nil {
		return nil
	}

	e.mu.Lock()
	e.records[record.ID] = record
	e.order = append(e.order, record.ID)
	snapshot := record.clone()
	e.mu.Unlock()

	e.logger.Warn("conflict detected",
		"conflict_id", record.ID,
		"type", record.Type,
		"severity", record.Severity.String(),
		"event_id", candidate.EventID)
	e.surface(snapshot)
	return &snapshot
}

// divergenceConflict checks whether regional reports disagree beyond
// tolerance. Severity scales with how far past tolerance the spread is.
func (e *Engine) divergenceConflict(candidate Candidate, now time.Time) *Record {
	if len(candidate.Reports) < 2 {
		return nil
	}

	min, max := candidate.Reports[0].Value, candidate.Reports[0].Value
	regions := make([]string, 0, len(candidate.Reports))
	for _, report := range candidate.Reports {
		if report.Value < min {
			min = report.Value
		}
		if report.Value > max {
			max = report.Value
		}
		regions = append(regions, report.Region)
	}

	spread := max - min
	if spread <= e.cfg.Tolerance {
		return nil
	}

	severity := SeverityMedium
	switch {
	case spread > 4*e.cfg.Tolerance:
		severity = SeverityCritical
	case spread > 2*e.cfg.Tolerance:
		severity = SeverityHigh
	}

	return &Record{
		ID:       e.generateID(),
		Type:     "regional_divergence",
		Severity: severity,
		Description: fmt.Sprintf("regional reports diverge by %.2f (tolerance %.2f)",
			spread, e.cfg.Tolerance),
		DetectedAt: now,
		Deadline:   now.Add(e.cfg.ResolutionTimeout),
		EventIDs:   []string{candidate.EventID},
		Regions:    regions,
		Reports:    append([]Report(nil), candidate.Reports...),
		State:      StateDetected,
	}
}

// authorityConflict checks for competing coordinator authority claims.
func (e *Engine) authorityConflict(candidate Candidate, now time.Time) *Record {
	unique := make(map[string]bool)
	for _, claim := range candidate.AuthorityClaims {
		unique[claim] = true
	}
	if len(unique) < 2 {
		return nil
	}

	return &Record{
		ID:       e.generateID(),
		Type:     "authority_claim",
		Severity: SeverityHigh,
		Description: fmt.Sprintf("%d coordinators claim authority over the same event window",
			len(unique)),
		DetectedAt: now,
		Deadline:   now.Add(e.cfg.ResolutionTimeout),
		EventIDs:   []string{candidate.EventID},
		Reports:    append([]Report(nil), candidate.Reports...),
		State:      StateDetected,
	}
}

// Resolve applies the given strategy to the conflict. A failed consensus
// or authority attempt leaves the record Active for a later attempt or
// the timeout sweep; a resolved conflict is never reopened.
func (e *Engine) Resolve(conflictID string, strategy Strategy) error {
	if !strategy.Valid() {
		strategy = e.cfg.DefaultStrategy
	}

	e.mu.Lock()
	record, exists := e.records[conflictID]
	if !exists {
		e.mu.Unlock()
		return errors.NewConflictError("resolve failed", errors.ErrConflictNotFound).
			WithConflictID(conflictID)
	}
	if record.State == StateResolved {
		e.mu.Unlock()
		return errors.NewConflictError("resolve failed", errors.ErrConflictResolved).
			WithConflictID(conflictID)
	}

	value, err := e.applyStrategy(record, strategy)
	if err != nil {
		record.State = StateActive
		e.mu.Unlock()
		return errors.NewConflictError("resolution attempt failed", err).
			WithConflictID(conflictID).WithStrategy(string(strategy))
	}

	e.resolveLocked(record, strategy, value, false)
	snapshot := record.clone()
	e.mu.Unlock()

	e.surface(snapshot)
	return nil
}

// applyStrategy computes the winning value. The caller must hold the mutex.
func (e *Engine) applyStrategy(record *Record, strategy Strategy) (float64, error) {
	switch strategy {
	case StrategyVoting:
		return voteValue(record.Reports), nil
	case StrategyAuthority:
		for _, report := range record.Reports {
			if report.Source == e.cfg.AuthoritativeSource && e.cfg.AuthoritativeSource != "" {
				return report.Value, nil
			}
		}
		return 0, errors.ErrNoAuthority
	case StrategyConsensus:
		value, share := consensusValue(record.Reports)
		if share < e.cfg.ConsensusFraction {
			return 0, errors.ErrNoQuorum
		}
		return value, nil
	default:
		return automaticValue(record.Reports), nil
	}
}

// resolveLocked marks the record resolved. The caller must hold the mutex.
func (e *Engine) resolveLocked(record *Record, strategy Strategy, value float64, forced bool) {
	record.State = StateResolved
	record.Strategy = strategy
	record.ResolvedValue = value
	record.ResolvedAt = e.now()
	record.Forced = forced

	e.logger.Info("conflict resolved",
		"conflict_id", record.ID,
		"strategy", string(strategy),
		"forced", forced,
		"value", value)
}

// voteValue returns the value with the most corroborating reports.
// Ties go to the group with the most recent report.
func voteValue(reports []Report) float64 {
	counts := make(map[float64]int)
	latest := make(map[float64]time.Time)
	for _, report := range reports {
		counts[report.Value]++
		if report.Timestamp.After(latest[report.Value]) {
			latest[report.Value] = report.Timestamp
		}
	}

	var (
		winner float64
		best   int
		when   time.Time
	)
	for value, count := range counts {
		if count > best || (count == best && latest[value].After(when)) {
			winner, best, when = value, count, latest[value]
		}
	}
	return winner
}

// consensusValue returns the most corroborated value and the fraction of
// reports agreeing with it.
func consensusValue(reports []Report) (float64, float64) {
	if len(reports) == 0 {
		return 0, 0
	}
	winner := voteValue(reports)
	agree := 0
	for _, report := range reports {
		if report.Value == winner {
			agree++
		}
	}
	return winner, float64(agree) / float64(len(reports))
}

// automaticValue tie-breaks deterministically: highest severity wins; on
// equal severity, the most recent timestamp wins.
func automaticValue(reports []Report) float64 {
	if len(reports) == 0 {
		return 0
	}
	best := reports[0]
	for _, report := range reports[1:] {
		if report.Severity > best.Severity {
			best = report
			continue
		}
		if report.Severity == best.Severity && report.Timestamp.After(best.Timestamp) {
			best = report
		}
	}
	return best.Value
}

// Sweep forces automatic resolution on every unresolved conflict whose
// deadline has passed, regardless of configured strategy. It returns how
// many conflicts were force-resolved.
func (e *Engine) Sweep(now time.Time) int {
	e.mu.Lock()
	var forced []Record
	for _, id := range e.order {
		record := e.records[id]
		if record.State == StateResolved || now.Before(record.Deadline) {
			continue
		}
		e.resolveLocked(record, StrategyAutomatic, automaticValue(record.Reports), true)
		forced = append(forced, record.clone())
	}
	e.mu.Unlock()

	for _, record := range forced {
		e.logger.Warn("conflict resolution timed out, automatic resolution forced",
			"conflict_id", record.ID)
		e.surface(record)
	}
	return len(forced)
}

// Record returns a snapshot of one conflict.
func (e *Engine) Record(conflictID string) (Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	record, exists := e.records[conflictID]
	if !exists {
		return Record{}, errors.NewConflictError("lookup failed", errors.ErrConflictNotFound).
			WithConflictID(conflictID)
	}
	return record.clone(), nil
}

// Records returns snapshots of all conflicts in detection order.
func (e *Engine) Records() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Record, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.records[id].clone())
	}
	return out
}

// HasOpen reports whether any unresolved conflict references the event.
// Callers that detect on a schedule use this to avoid re-reporting the
// same divergence every cycle.
func (e *Engine) HasOpen(eventID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, record := range e.records {
		if record.State == StateResolved {
			continue
		}
		if slices.Contains(record.EventIDs, eventID) {
			return true
		}
	}
	return false
}

// ActiveCount returns the number of conflicts not yet resolved.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for _, record := range e.records {
		if record.State != StateResolved {
			count++
		}
	}
	return count
}

// surface raises the conflict on the conflict channel with its
// severity-mapped priority.
func (e *Engine) surface(record Record) {
	if e.conflictCh == nil {
		return
	}

	msg := message.New(message.TypeConflict, fmt.Sprintf("conflict %s", record.State), record.Description)
	msg.Source = SourceID
	msg.Scope = message.ScopeSystem
	msg.Priority = record.Severity.MessagePriority()
	msg.SetPayload("conflict_id", record.ID)
	msg.SetPayload("conflict_type", record.Type)
	msg.SetPayload("severity", record.Severity.String())
	msg.SetPayload("state", record.State.String())
	msg.SetPayload("event_ids", record.EventIDs)
	msg.SetPayload("regions", record.Regions)
	if record.State == StateResolved {
		msg.SetPayload("strategy", string(record.Strategy))
		msg.SetPayload("forced", record.Forced)
		msg.SetPayload("resolved_value", record.ResolvedValue)
	}

	e.conflictCh.Raise(msg)
}

// generateID creates a unique conflict id.
func (e *Engine) generateID() string {
	return fmt.Sprintf("conflict-%d-%d", e.now().UnixNano(), e.idCounter.Add(1))
}
