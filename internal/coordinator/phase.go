package coordinator

import "time"

// Phase is a stage in a global event's lifecycle. Phases advance strictly
// in order and are computed purely from the clock and the event schedule;
// the coordinator never stores a phase it could recompute.
type Phase int

const (
	// PhasePreRegistration precedes the registration window.
	PhasePreRegistration Phase = iota
	// PhaseRegistration is the sign-up window before the event starts.
	PhaseRegistration
	// PhaseSubmission is the active play window after the event starts.
	PhaseSubmission
	// PhaseJudging follows the submission deadline.
	PhaseJudging
	// PhaseResults follows judging completion until the event ends.
	PhaseResults
	// PhaseCompleted is terminal; the event is retired on the next tick.
	PhaseCompleted
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhasePreRegistration:
		return "pre_registration"
	case PhaseRegistration:
		return "registration"
	case PhaseSubmission:
		return "submission"
	case PhaseJudging:
		return "judging"
	case PhaseResults:
		return "results"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Accepting reports whether the phase accepts contributions. Registration,
// Submission, and Judging are the event's active window.
func (p Phase) Accepting() bool {
	return p >= PhaseRegistration && p <= PhaseJudging
}

// Schedule holds the configured durations that define an event's phase
// boundaries relative to its start time.
type Schedule struct {
	// StartTime is when the event opens for submissions. Registration
	// opens RegistrationPeriod before it.
	StartTime time.Time `mapstructure:"start_time" json:"start_time"`

	// RegistrationPeriod is how long before StartTime registration opens.
	RegistrationPeriod time.Duration `mapstructure:"registration_period" json:"registration_period"`

	// SubmissionPeriod is how long after StartTime submissions are taken.
	SubmissionPeriod time.Duration `mapstructure:"submission_period" json:"submission_period"`

	// JudgingPeriod is how long judging runs after the submission deadline.
	JudgingPeriod time.Duration `mapstructure:"judging_period" json:"judging_period"`

	// EndTime is when the event completes, regardless of earlier phases.
	EndTime time.Time `mapstructure:"end_time" json:"end_time"`
}

// RegistrationOpens returns when the registration window begins.
func (s Schedule) RegistrationOpens() time.Time {
	return s.StartTime.Add(-s.RegistrationPeriod)
}

// SubmissionDeadline returns when the submission window closes.
func (s Schedule) SubmissionDeadline() time.Time {
	return s.StartTime.Add(s.SubmissionPeriod)
}

// JudgingCompletion returns when the judging window closes.
func (s Schedule) JudgingCompletion() time.Time {
	return s.SubmissionDeadline().Add(s.JudgingPeriod)
}

// PhaseAt returns the phase the schedule is in at the given instant: the
// first phase whose upper bound exceeds now, defaulting to Completed once
// now passes EndTime.
func (s Schedule) PhaseAt(now time.Time) Phase {
	if now.After(s.EndTime) {
		return PhaseCompleted
	}
	switch {
	case now.Before(s.RegistrationOpens()):
		return PhasePreRegistration
	case now.Before(s.StartTime):
		return PhaseRegistration
	case now.Before(s.SubmissionDeadline()):
		return PhaseSubmission
	case now.Before(s.JudgingCompletion()):
		return PhaseJudging
	default:
		return PhaseResults
	}
}
