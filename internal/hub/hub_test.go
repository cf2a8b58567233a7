package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bloomworks/livebus/internal/channel"
	"github.com/bloomworks/livebus/internal/config"
	"github.com/bloomworks/livebus/internal/coordinator"
	"github.com/bloomworks/livebus/internal/errors"
	"github.com/bloomworks/livebus/internal/message"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Channels = []channel.Config{
		{ID: "events.competition", Category: EventCategory},
		{ID: "social.announcements", Category: "social"},
	}
	return cfg
}

// activeSchedule returns a schedule that is mid-submission right now.
func activeSchedule() coordinator.Schedule {
	start := time.Now().Add(-10 * 24 * time.Hour)
	return coordinator.Schedule{
		StartTime:          start,
		RegistrationPeriod: 7 * 24 * time.Hour,
		SubmissionPeriod:   14 * 24 * time.Hour,
		JudgingPeriod:      7 * 24 * time.Hour,
		EndTime:            start.Add(35 * 24 * time.Hour),
	}
}

type probe struct {
	id string

	mu       sync.Mutex
	received []*message.Message
}

func (p *probe) ID() string { return p.id }

func (p *probe) OnMessage(msg *message.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, msg)
}

func (p *probe) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.received)
}

func TestNew(t *testing.T) {
	t.Run("nil config rejected", func(t *testing.T) {
		if _, err := New(nil); err == nil {
			t.Fatal("expected error for nil config")
		}
	})

	t.Run("registers configured and system channels", func(t *testing.T) {
		h, err := New(testConfig())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		if got := h.Registry().Count(); got != 4 {
			t.Errorf("Count = %d, want 4", got)
		}
		for _, id := range []string{"events.competition", "social.announcements", SyncChannelID, ConflictChannelID} {
			if _, ok := h.Channel(id); !ok {
				t.Errorf("channel %q not registered", id)
			}
		}
	})

	t.Run("coordinator subscribes to event channels only", func(t *testing.T) {
		h, err := New(testConfig())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		events, _ := h.Channel("events.competition")
		if got := events.SubscriberCount(); got != 1 {
			t.Errorf("event channel subscribers = %d, want 1", got)
		}
		social, _ := h.Channel("social.announcements")
		if got := social.SubscriberCount(); got != 0 {
			t.Errorf("social channel subscribers = %d, want 0", got)
		}
	})

	t.Run("config may define a system channel itself", func(t *testing.T) {
		cfg := testConfig()
		cfg.Channels = append(cfg.Channels, channel.Config{
			ID:       SyncChannelID,
			Name:     "Custom Sync",
			Category: "system",
		})

		h, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		ch, ok := h.Channel(SyncChannelID)
		if !ok {
			t.Fatal("sync channel missing")
		}
		if ch.Name() != "Custom Sync" {
			t.Errorf("Name = %q, want the configured name", ch.Name())
		}
	})

	t.Run("bad channel config rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.Channels = append(cfg.Channels, channel.Config{ID: "events.competition"})

		if _, err := New(cfg); !errors.Is(err, errors.ErrDuplicateChannel) {
			t.Errorf("expected ErrDuplicateChannel, got %v", err)
		}
	})
}

func TestHub_StartStop(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if h.Running() {
		t.Error("hub running before Start")
	}
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !h.Running() {
		t.Error("hub not running after Start")
	}
	if err := h.Start(context.Background()); err == nil {
		t.Error("expected error on second Start")
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if h.Running() {
		t.Error("hub still running after Stop")
	}
	if err := h.Stop(); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
}

func TestHub_Raise(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	sub := &probe{id: "listener"}
	ch, _ := h.Channel("social.announcements")
	ch.Subscribe(sub, message.PriorityMedium)

	msg := message.New(message.TypeCommunity, "Festival opens", "")
	msg.Source = "game-server"
	if err := h.Raise("social.announcements", msg); err != nil {
		t.Fatalf("Raise failed: %v", err)
	}
	if sub.count() != 1 {
		t.Errorf("subscriber received %d messages, want 1", sub.count())
	}

	if err := h.Raise("no.such.channel", msg); !errors.Is(err, errors.ErrChannelNotFound) {
		t.Errorf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestHub_EventTrafficReachesCoordinator(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := h.Coordinator().Track("evt-1", activeSchedule(), false); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	msg := message.New(message.TypeChallenge, "harvest tally", "")
	msg.Source = "region-gateway"
	msg.SetPayload("event_id", "evt-1")
	msg.SetPayload("region", "eu-west")
	msg.SetPayload("progress_delta", 42.0)
	if err := h.Raise("events.competition", msg); err != nil {
		t.Fatalf("Raise failed: %v", err)
	}

	h.tick(time.Now())

	state, err := h.Coordinator().State("evt-1")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state.GlobalProgress != 42.0 {
		t.Errorf("GlobalProgress = %v, want 42", state.GlobalProgress)
	}
}

func TestHub_DetectDivergence(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	coord := h.Coordinator()
	if err := coord.Track("evt-1", activeSchedule(), false); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	// Default tolerance is 10; a 95 point spread is well past it.
	coord.ApplyContribution("evt-1", "us-east", 100, 0)
	coord.ApplyContribution("evt-1", "eu-west", 5, 0)

	h.detectDivergence()
	if got := len(h.Engine().Records()); got != 1 {
		t.Fatalf("records = %d, want 1", got)
	}

	// An open conflict suppresses re-detection of the same event.
	h.detectDivergence()
	if got := len(h.Engine().Records()); got != 1 {
		t.Errorf("records after second scan = %d, want 1", got)
	}
}

func TestHub_DetectDivergence_AgreementIsQuiet(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	coord := h.Coordinator()
	coord.Track("evt-1", activeSchedule(), false)
	coord.ApplyContribution("evt-1", "us-east", 50, 0)
	coord.ApplyContribution("evt-1", "eu-west", 52, 0)

	h.detectDivergence()
	if got := len(h.Engine().Records()); got != 0 {
		t.Errorf("records = %d, want 0 for agreeing regions", got)
	}
}

func TestHub_Health(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	health := h.Health()
	if len(health) != h.Registry().Count() {
		t.Fatalf("health entries = %d, want %d", len(health), h.Registry().Count())
	}
	for _, entry := range health {
		if !entry.Healthy {
			t.Errorf("channel %q unhealthy right after registration", entry.ChannelID)
		}
	}
}
