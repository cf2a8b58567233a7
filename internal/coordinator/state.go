package coordinator

import "time"

// GlobalEventState is a snapshot of one tracked event's shared state
// across regions. Total participant count only decreases via explicit
// correction; normal contribution flow is accumulate-only.
type GlobalEventState struct {
	EventID           string             `json:"event_id"`
	Phase             Phase              `json:"phase"`
	GlobalProgress    float64            `json:"global_progress"`
	TotalParticipants int64              `json:"total_participants"`
	LastUpdate        time.Time          `json:"last_update"`
	RegionalProgress  map[string]float64 `json:"regional_progress"`
	Crisis            bool               `json:"crisis"`
}

// trackedEvent is the coordinator's live record for one event. Access is
// serialized by the coordinator mutex.
type trackedEvent struct {
	id           string
	schedule     Schedule
	crisis       bool
	progress     float64
	participants int64
	lastUpdate   time.Time
	regional     map[string]float64
}

// snapshot copies the live record into an externally safe view.
func (e *trackedEvent) snapshot(now time.Time) GlobalEventState {
	regional := make(map[string]float64, len(e.regional))
	for region, progress := range e.regional {
		regional[region] = progress
	}
	return GlobalEventState{
		EventID:           e.id,
		Phase:             e.schedule.PhaseAt(now),
		GlobalProgress:    e.progress,
		TotalParticipants: e.participants,
		LastUpdate:        e.lastUpdate,
		RegionalProgress:  regional,
		Crisis:            e.crisis,
	}
}
