package coordinator

import (
	"testing"
	"time"
)

func testSchedule(start time.Time) Schedule {
	return Schedule{
		StartTime:          start,
		RegistrationPeriod: 7 * 24 * time.Hour,
		SubmissionPeriod:   14 * 24 * time.Hour,
		JudgingPeriod:      7 * 24 * time.Hour,
		EndTime:            start.Add(35 * 24 * time.Hour),
	}
}

func TestSchedule_PhaseAt(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	s := testSchedule(start)

	day := 24 * time.Hour
	tests := []struct {
		name   string
		offset time.Duration
		want   Phase
	}{
		{"eight days before start", -8 * day, PhasePreRegistration},
		{"one day before start", -1 * day, PhaseRegistration},
		{"ten days in", 10 * day, PhaseSubmission},
		{"twenty days in", 20 * day, PhaseJudging},
		{"thirty days in", 30 * day, PhaseResults},
		{"forty days in", 40 * day, PhaseCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.PhaseAt(start.Add(tt.offset)); got != tt.want {
				t.Errorf("PhaseAt(T%+dh) = %s, want %s",
					int(tt.offset.Hours()), got, tt.want)
			}
		})
	}
}

func TestSchedule_PhaseBoundaries(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	s := testSchedule(start)

	// Exactly at a boundary the next phase has begun.
	if got := s.PhaseAt(s.RegistrationOpens()); got != PhaseRegistration {
		t.Errorf("at registration open = %s, want registration", got)
	}
	if got := s.PhaseAt(start); got != PhaseSubmission {
		t.Errorf("at start = %s, want submission", got)
	}
	if got := s.PhaseAt(s.SubmissionDeadline()); got != PhaseJudging {
		t.Errorf("at submission deadline = %s, want judging", got)
	}
	if got := s.PhaseAt(s.JudgingCompletion()); got != PhaseResults {
		t.Errorf("at judging completion = %s, want results", got)
	}
	// EndTime itself is still Results; Completed requires now > endTime.
	if got := s.PhaseAt(s.EndTime); got != PhaseResults {
		t.Errorf("at end time = %s, want results", got)
	}
	if got := s.PhaseAt(s.EndTime.Add(time.Nanosecond)); got != PhaseCompleted {
		t.Errorf("past end time = %s, want completed", got)
	}
}

func TestPhase_Accepting(t *testing.T) {
	accepting := map[Phase]bool{
		PhasePreRegistration: false,
		PhaseRegistration:    true,
		PhaseSubmission:      true,
		PhaseJudging:         true,
		PhaseResults:         false,
		PhaseCompleted:       false,
	}
	for phase, want := range accepting {
		if got := phase.Accepting(); got != want {
			t.Errorf("%s.Accepting() = %v, want %v", phase, got, want)
		}
	}
}

func TestPhase_String(t *testing.T) {
	if PhaseRegistration.String() != "registration" {
		t.Errorf("unexpected name %q", PhaseRegistration.String())
	}
	if Phase(99).String() != "unknown" {
		t.Errorf("out-of-range phase should read unknown, got %q", Phase(99).String())
	}
}
