// Package message defines the event envelope exchanged between producers
// and channel subscribers. A Message is immutable in its identity fields
// (id, type, timestamp) once created; payload and tags may be populated by
// the producer before the message is raised.
package message

import "time"

// Type identifies the kind of live event a message describes.
type Type string

const (
	// TypeCompetition announces competition lifecycle traffic.
	TypeCompetition Type = "competition"

	// TypeSeasonal announces seasonal content rotations.
	TypeSeasonal Type = "seasonal"

	// TypeChallenge announces community challenge progress.
	TypeChallenge Type = "challenge"

	// TypeCommunity carries community-wide announcements.
	TypeCommunity Type = "community"

	// TypeReward announces reward grants and unlocks.
	TypeReward Type = "reward"

	// TypeMaintenance announces scheduled downtime windows.
	TypeMaintenance Type = "maintenance"

	// TypeSynchronization carries coordinator state summaries.
	TypeSynchronization Type = "synchronization"

	// TypeConflict surfaces detected global-state conflicts.
	TypeConflict Type = "conflict"

	// TypeCrisis marks urgent events that bypass load shedding.
	TypeCrisis Type = "crisis"

	// TypeSystem carries internal operational traffic.
	TypeSystem Type = "system"
)

// Valid message types for validation.
var validTypes = map[Type]bool{
	TypeCompetition:     true,
	TypeSeasonal:        true,
	TypeChallenge:       true,
	TypeCommunity:       true,
	TypeReward:          true,
	TypeMaintenance:     true,
	TypeSynchronization: true,
	TypeConflict:        true,
	TypeCrisis:          true,
	TypeSystem:          true,
}

// ValidateType returns true if the given type is a known message type.
func ValidateType(t Type) bool {
	return validTypes[t]
}

// Priority is the ranked delivery class of a message. Lower values rank
// higher: Immediate is delivered before Background.
type Priority int

const (
	// PriorityImmediate is delivered ahead of all other tiers.
	PriorityImmediate Priority = iota
	// PriorityCritical is for urgent, non-preempting traffic.
	PriorityCritical
	// PriorityHigh is for time-sensitive traffic.
	PriorityHigh
	// PriorityMedium is the default tier.
	PriorityMedium
	// PriorityLow is for informational traffic.
	PriorityLow
	// PriorityBackground is delivered last.
	PriorityBackground
)

// Tiers returns all priorities from Immediate to Background in rank order.
func Tiers() []Priority {
	return []Priority{
		PriorityImmediate,
		PriorityCritical,
		PriorityHigh,
		PriorityMedium,
		PriorityLow,
		PriorityBackground,
	}
}

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityImmediate:
		return "immediate"
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityBackground:
		return "background"
	default:
		return "unknown"
	}
}

// Valid returns true if the priority is a defined tier.
func (p Priority) Valid() bool {
	return p >= PriorityImmediate && p <= PriorityBackground
}

// Scope describes the audience partition a message targets.
type Scope string

const (
	// ScopeAll targets every audience.
	ScopeAll Scope = "all"
	// ScopeGlobal targets all regions of a globally shared event.
	ScopeGlobal Scope = "global"
	// ScopeRegional targets a single region.
	ScopeRegional Scope = "regional"
	// ScopeLocal targets a single shard or server.
	ScopeLocal Scope = "local"
	// ScopeCommunity targets an opt-in community group.
	ScopeCommunity Scope = "community"
	// ScopePersonal targets a single player.
	ScopePersonal Scope = "personal"
	// ScopeSystem targets operational consumers only.
	ScopeSystem Scope = "system"
)

// Valid scope values for validation.
var validScopes = map[Scope]bool{
	ScopeAll:       true,
	ScopeGlobal:    true,
	ScopeRegional:  true,
	ScopeLocal:     true,
	ScopeCommunity: true,
	ScopePersonal:  true,
	ScopeSystem:    true,
}

// ValidateScope returns true if the given scope is a known scope.
func ValidateScope(s Scope) bool {
	return validScopes[s]
}

// DefaultTTL is the lifetime assigned to messages at creation.
const DefaultTTL = 24 * time.Hour
