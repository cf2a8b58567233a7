package coordinator

import (
	"testing"
	"time"

	"github.com/bloomworks/livebus/internal/channel"
	"github.com/bloomworks/livebus/internal/errors"
	"github.com/bloomworks/livebus/internal/message"
)

// newTestCoordinator returns a coordinator pinned to a fixed clock with an
// event mid-submission.
func newTestCoordinator(t *testing.T, cfg Config) (*Coordinator, time.Time) {
	t.Helper()
	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	c := New(cfg, nil, nil)
	c.now = func() time.Time { return now }
	return c, now
}

func activeSchedule(now time.Time) Schedule {
	// Started ten days ago: mid-submission.
	return testSchedule(now.Add(-10 * 24 * time.Hour))
}

func TestCoordinator_Track(t *testing.T) {
	t.Run("tracks event", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{})
		if err := c.Track("evt-1", activeSchedule(now), false); err != nil {
			t.Fatalf("Track failed: %v", err)
		}
		if c.EventCount() != 1 {
			t.Errorf("EventCount = %d, want 1", c.EventCount())
		}
	})

	t.Run("empty id rejected", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{})
		if err := c.Track("", activeSchedule(now), false); err == nil {
			t.Error("expected error for empty event id")
		}
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{})
		c.Track("evt-1", activeSchedule(now), false)
		var exists *errors.AlreadyExistsError
		if err := c.Track("evt-1", activeSchedule(now), false); !errors.As(err, &exists) {
			t.Errorf("expected AlreadyExistsError, got %v", err)
		}
	})

	t.Run("event limit enforced", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{MaxEvents: 1})
		c.Track("evt-1", activeSchedule(now), false)
		if err := c.Track("evt-2", activeSchedule(now), false); !errors.Is(err, errors.ErrEventLimit) {
			t.Errorf("expected ErrEventLimit, got %v", err)
		}
	})

	t.Run("shedding refuses non-crisis but admits crisis", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{})
		c.shedding.Store(true)

		if err := c.Track("evt-1", activeSchedule(now), false); !errors.Is(err, errors.ErrLoadShedding) {
			t.Errorf("expected ErrLoadShedding, got %v", err)
		}
		if err := c.Track("crisis-1", activeSchedule(now), true); err != nil {
			t.Errorf("crisis event should bypass load shedding, got %v", err)
		}
	})
}

func TestCoordinator_ApplyContribution(t *testing.T) {
	t.Run("accumulates regional and global progress", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{})
		c.Track("evt-1", activeSchedule(now), false)

		c.ApplyContribution("evt-1", "eu-west", 100, 5)
		c.ApplyContribution("evt-1", "eu-west", 50, 2)
		c.ApplyContribution("evt-1", "us-east", 25, 1)

		state, err := c.State("evt-1")
		if err != nil {
			t.Fatalf("State failed: %v", err)
		}
		if state.GlobalProgress != 175 {
			t.Errorf("GlobalProgress = %v, want 175", state.GlobalProgress)
		}
		if state.RegionalProgress["eu-west"] != 150 {
			t.Errorf("eu-west progress = %v, want 150", state.RegionalProgress["eu-west"])
		}
		if state.TotalParticipants != 8 {
			t.Errorf("TotalParticipants = %d, want 8", state.TotalParticipants)
		}
	})

	t.Run("unknown event rejected", func(t *testing.T) {
		c, _ := newTestCoordinator(t, Config{})
		if err := c.ApplyContribution("missing", "eu-west", 1, 0); !errors.Is(err, errors.ErrEventNotFound) {
			t.Errorf("expected ErrEventNotFound, got %v", err)
		}
	})

	t.Run("rejected outside active window", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{})
		// Ends before registration would even open relative to now.
		done := testSchedule(now.Add(-60 * 24 * time.Hour))
		c.Track("evt-done", done, false)

		err := c.ApplyContribution("evt-done", "eu-west", 1, 0)
		if !errors.Is(err, errors.ErrEventInactive) {
			t.Errorf("expected ErrEventInactive, got %v", err)
		}
	})

	t.Run("registration window accepts contributions", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{})
		// Starts in two days: mid-registration.
		c.Track("evt-reg", testSchedule(now.Add(2*24*time.Hour)), false)
		if err := c.ApplyContribution("evt-reg", "eu-west", 1, 1); err != nil {
			t.Errorf("registration-phase contribution should be accepted, got %v", err)
		}
	})

	t.Run("unknown region rejected when table configured", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{RegionOffsets: map[string]int{"eu-west": 1}})
		c.Track("evt-1", activeSchedule(now), false)

		if err := c.ApplyContribution("evt-1", "atlantis", 1, 0); !errors.Is(err, errors.ErrUnknownRegion) {
			t.Errorf("expected ErrUnknownRegion, got %v", err)
		}
		if err := c.ApplyContribution("evt-1", "eu-west", 1, 0); err != nil {
			t.Errorf("known region should be accepted, got %v", err)
		}
	})

	t.Run("negative delta rejected", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{})
		c.Track("evt-1", activeSchedule(now), false)
		if err := c.ApplyContribution("evt-1", "eu-west", -5, 0); err == nil {
			t.Error("expected error for negative delta")
		}
	})
}

func TestCoordinator_CorrectParticipants(t *testing.T) {
	c, now := newTestCoordinator(t, Config{})
	c.Track("evt-1", activeSchedule(now), false)
	c.ApplyContribution("evt-1", "eu-west", 0, 10)

	if err := c.CorrectParticipants("evt-1", -4); err != nil {
		t.Fatalf("CorrectParticipants failed: %v", err)
	}
	state, _ := c.State("evt-1")
	if state.TotalParticipants != 6 {
		t.Errorf("TotalParticipants = %d, want 6", state.TotalParticipants)
	}

	// Corrections never drive the count negative.
	c.CorrectParticipants("evt-1", -100)
	state, _ = c.State("evt-1")
	if state.TotalParticipants != 0 {
		t.Errorf("TotalParticipants = %d, want 0", state.TotalParticipants)
	}
}

func TestCoordinator_OnMessageQueuesContribution(t *testing.T) {
	c, now := newTestCoordinator(t, Config{})
	c.Track("evt-1", activeSchedule(now), false)

	msg := message.New(message.TypeChallenge, "harvest tally", "")
	msg.Source = "region-gateway"
	msg.SetPayload("event_id", "evt-1")
	msg.SetPayload("region", "eu-west")
	msg.SetPayload("progress_delta", 42.0)
	msg.SetPayload("participants", 3.0)
	c.OnMessage(msg)

	// Queued, not yet applied.
	state, _ := c.State("evt-1")
	if state.GlobalProgress != 0 {
		t.Errorf("contribution applied before tick, progress = %v", state.GlobalProgress)
	}

	c.Tick(now)

	state, _ = c.State("evt-1")
	if state.GlobalProgress != 42 {
		t.Errorf("GlobalProgress = %v after tick, want 42", state.GlobalProgress)
	}
	if state.TotalParticipants != 3 {
		t.Errorf("TotalParticipants = %d, want 3", state.TotalParticipants)
	}

	// Messages without an event id are ignored.
	c.OnMessage(message.New(message.TypeCommunity, "chatter", ""))
	c.Tick(now)
	state, _ = c.State("evt-1")
	if state.GlobalProgress != 42 {
		t.Errorf("unrelated message changed progress to %v", state.GlobalProgress)
	}
}

func TestCoordinator_Tick(t *testing.T) {
	t.Run("retires completed events", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{})
		c.Track("evt-old", testSchedule(now.Add(-60*24*time.Hour)), false)
		c.Track("evt-live", activeSchedule(now), false)

		if !c.Tick(now) {
			t.Fatal("Tick should run")
		}
		if c.EventCount() != 1 {
			t.Errorf("EventCount = %d after tick, want 1", c.EventCount())
		}
		if _, err := c.State("evt-old"); !errors.Is(err, errors.ErrEventNotFound) {
			t.Errorf("completed event should be retired, got %v", err)
		}
	})

	t.Run("overlapping tick is skipped", func(t *testing.T) {
		c, now := newTestCoordinator(t, Config{})
		c.ticking.Store(true)
		if c.Tick(now) {
			t.Error("Tick should be skipped while previous tick runs")
		}
		c.ticking.Store(false)
		if !c.Tick(now) {
			t.Error("Tick should run once the previous tick finishes")
		}
	})

	t.Run("broadcasts synchronization summary", func(t *testing.T) {
		syncCh := channel.New(channel.Config{ID: "system.sync"}, nil)
		var got *message.Message
		syncCh.Subscribe(channel.NewSubscriberFunc("probe", func(m *message.Message) {
			got = m
		}), message.PriorityMedium)

		now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
		c := New(Config{EnableGlobalSync: true}, syncCh, nil)
		c.now = func() time.Time { return now }
		c.Track("evt-1", activeSchedule(now), false)
		c.ApplyContribution("evt-1", "eu-west", 10, 4)

		c.Tick(now)

		if got == nil {
			t.Fatal("expected a synchronization message on the sync channel")
		}
		if got.Type != message.TypeSynchronization {
			t.Errorf("Type = %s, want synchronization", got.Type)
		}
		if got.Source != SourceID {
			t.Errorf("Source = %q, want %q", got.Source, SourceID)
		}
		if got.PayloadFloat("total_participants", -1) != 4 {
			t.Errorf("total_participants payload = %v, want 4",
				got.GetPayload("total_participants", nil))
		}
	})
}

func TestCoordinator_LoadBalanceCheck(t *testing.T) {
	c, now := newTestCoordinator(t, Config{CapacityThreshold: 10})
	c.Track("evt-1", activeSchedule(now), false)
	c.ApplyContribution("evt-1", "eu-west", 0, 20)

	if !c.LoadBalanceCheck() {
		t.Error("LoadBalanceCheck should engage shedding above threshold")
	}
	if err := c.Track("evt-2", activeSchedule(now), false); !errors.Is(err, errors.ErrLoadShedding) {
		t.Errorf("expected ErrLoadShedding while over capacity, got %v", err)
	}

	c.CorrectParticipants("evt-1", -20)
	if c.LoadBalanceCheck() {
		t.Error("LoadBalanceCheck should release shedding below threshold")
	}
}

func TestCoordinator_SheddingAnnouncedOnSyncChannel(t *testing.T) {
	syncCh := channel.New(channel.Config{ID: "system.sync"}, nil)
	var got []*message.Message
	syncCh.Subscribe(channel.NewSubscriberFunc("probe", func(m *message.Message) {
		got = append(got, m)
	}), message.PriorityMedium)

	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	c := New(Config{CapacityThreshold: 10}, syncCh, nil)
	c.now = func() time.Time { return now }
	c.Track("evt-1", activeSchedule(now), false)
	c.ApplyContribution("evt-1", "eu-west", 0, 20)

	c.LoadBalanceCheck()
	if len(got) != 1 {
		t.Fatalf("sync messages = %d, want 1 after shedding engages", len(got))
	}
	if got[0].Type != message.TypeSystem {
		t.Errorf("Type = %s, want system", got[0].Type)
	}
	if got[0].Priority != message.PriorityHigh {
		t.Errorf("Priority = %s, want high", got[0].Priority)
	}
	if got[0].GetPayload("shedding", false) != true {
		t.Error("shedding payload should be true")
	}

	// No repeat announcement while the state is unchanged.
	c.LoadBalanceCheck()
	if len(got) != 1 {
		t.Fatalf("sync messages = %d, want 1 while state is stable", len(got))
	}

	c.CorrectParticipants("evt-1", -20)
	c.LoadBalanceCheck()
	if len(got) != 2 {
		t.Fatalf("sync messages = %d, want 2 after shedding releases", len(got))
	}
	if got[1].GetPayload("shedding", true) != false {
		t.Error("shedding payload should be false on release")
	}
}

func TestCoordinator_LocalTime(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{RegionOffsets: map[string]int{
		"eu-west":    1,
		"asia-east":  8,
		"us-pacific": -8,
	}})

	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)

	local, err := c.LocalTime("asia-east", now)
	if err != nil {
		t.Fatalf("LocalTime failed: %v", err)
	}
	if local.Hour() != 20 {
		t.Errorf("asia-east local hour = %d, want 20", local.Hour())
	}

	local, _ = c.LocalTime("us-pacific", now)
	if local.Hour() != 4 {
		t.Errorf("us-pacific local hour = %d, want 4", local.Hour())
	}

	if _, err := c.LocalTime("atlantis", now); !errors.Is(err, errors.ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
}
