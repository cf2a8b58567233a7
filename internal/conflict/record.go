package conflict

import (
	"time"

	"github.com/bloomworks/livebus/internal/message"
)

// Severity ranks how badly a conflict threatens shared state.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MessagePriority maps a conflict severity onto the priority used when the
// conflict is surfaced on the conflict channel. The mapping is fixed:
// Critical conflicts interrupt everything.
func (s Severity) MessagePriority() message.Priority {
	switch s {
	case SeverityCritical:
		return message.PriorityImmediate
	case SeverityHigh:
		return message.PriorityHigh
	case SeverityMedium:
		return message.PriorityMedium
	default:
		return message.PriorityLow
	}
}

// State is a conflict's resolution state. Transitions run strictly
// Detected -> Active -> Resolved; a resolved conflict is never reopened.
type State int

const (
	StateDetected State = iota
	StateActive
	StateResolved
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDetected:
		return "detected"
	case StateActive:
		return "active"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Strategy selects how a conflict's competing reports are reconciled.
type Strategy string

const (
	// StrategyVoting accepts the value with the most corroborating reports.
	StrategyVoting Strategy = "voting"
	// StrategyAuthority accepts the designated authoritative source's value.
	StrategyAuthority Strategy = "authority"
	// StrategyConsensus requires agreement above a configured fraction.
	StrategyConsensus Strategy = "consensus"
	// StrategyAutomatic tie-breaks by severity, then recency.
	StrategyAutomatic Strategy = "automatic"
)

// Valid reports whether the strategy is one of the defined strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyVoting, StrategyAuthority, StrategyConsensus, StrategyAutomatic:
		return true
	}
	return false
}

// Report is one regional account of the contested value.
type Report struct {
	Region    string    `json:"region"`
	Source    string    `json:"source"`
	Value     float64   `json:"value"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is one detected conflict and its resolution bookkeeping.
type Record struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	DetectedAt  time.Time `json:"detected_at"`
	Deadline    time.Time `json:"deadline"`

	EventIDs []string `json:"event_ids"`
	Regions  []string `json:"regions"`
	Reports  []Report `json:"reports"`

	State         State     `json:"state"`
	Strategy      Strategy  `json:"strategy,omitempty"`
	Forced        bool      `json:"forced"`
	ResolvedAt    time.Time `json:"resolved_at,omitempty"`
	ResolvedValue float64   `json:"resolved_value"`
}

// clone copies the record so callers never alias engine-owned state.
func (r *Record) clone() Record {
	out := *r
	out.EventIDs = append([]string(nil), r.EventIDs...)
	out.Regions = append([]string(nil), r.Regions...)
	out.Reports = append([]Report(nil), r.Reports...)
	return out
}
