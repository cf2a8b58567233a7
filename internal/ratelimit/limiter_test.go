package ratelimit

import (
	"testing"
	"time"
)

func TestAllow_AdmitsUpToLimit(t *testing.T) {
	l := New(3)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if !l.Allow("gateway-1", now) {
			t.Fatalf("Message %d should be admitted within the limit", i+1)
		}
	}
	if l.Allow("gateway-1", now) {
		t.Error("Message beyond the per-second limit should be rejected")
	}
}

func TestAllow_WindowRollover(t *testing.T) {
	l := New(2)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	l.Allow("gateway-1", now)
	l.Allow("gateway-1", now)
	if l.Allow("gateway-1", now.Add(500*time.Millisecond)) {
		t.Error("Third message inside the window should be rejected")
	}

	if !l.Allow("gateway-1", now.Add(time.Second)) {
		t.Error("Message after window rollover should be admitted")
	}
}

func TestAllow_IndependentSources(t *testing.T) {
	l := New(1)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	if !l.Allow("gateway-1", now) {
		t.Error("First source should be admitted")
	}
	if !l.Allow("gateway-2", now) {
		t.Error("Second source should have its own window")
	}
	if l.Allow("gateway-1", now) {
		t.Error("First source should be at its limit")
	}
}

func TestNew_ClampsLimit(t *testing.T) {
	l := New(-5)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	if !l.Allow("gateway-1", now) {
		t.Error("Clamped limiter should still admit one message per window")
	}
	if l.Allow("gateway-1", now) {
		t.Error("Clamped limiter should reject the second message")
	}
}

func TestReset(t *testing.T) {
	l := New(1)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	l.Allow("gateway-1", now)
	if l.Allow("gateway-1", now) {
		t.Error("Source should be at its limit before reset")
	}

	l.Reset()
	if l.Sources() != 0 {
		t.Errorf("Expected no tracked sources after reset, got %d", l.Sources())
	}
	if !l.Allow("gateway-1", now) {
		t.Error("Source should be admitted after reset")
	}
}
