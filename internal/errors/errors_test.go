package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// ChannelError Tests
// -----------------------------------------------------------------------------

func TestNewChannelError(t *testing.T) {
	cause := ErrDuplicateChannel
	err := NewChannelError("register failed", cause)

	if err.Severity() != SeverityError {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityError)
	}
	if err.IsRetryable() {
		t.Error("IsRetryable() = true, want false")
	}
	if !err.IsUserFacing() {
		t.Error("IsUserFacing() = false, want true")
	}
	if !errors.Is(err, ErrDuplicateChannel) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
}

func TestChannelError_WithChannelID(t *testing.T) {
	err := NewChannelError("register failed", ErrDuplicateChannel).
		WithChannelID("events.competition")

	want := "channel error [channel=events.competition]: register failed: channel id already registered"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestChannelError_As(t *testing.T) {
	var err error = NewChannelError("boom", nil)
	wrapped := fmt.Errorf("outer: %w", err)

	var chErr *ChannelError
	if !errors.As(wrapped, &chErr) {
		t.Error("errors.As should find the ChannelError through wrapping")
	}
}

// -----------------------------------------------------------------------------
// CoordinatorError Tests
// -----------------------------------------------------------------------------

func TestCoordinatorError_Context(t *testing.T) {
	err := NewCoordinatorError("contribution rejected", ErrEventInactive).
		WithEventID("spring-buildoff").
		WithRegion("eu-west")

	msg := err.Error()
	for _, part := range []string{"event=spring-buildoff", "region=eu-west", "contribution rejected"} {
		if !contains(msg, part) {
			t.Errorf("Error() = %q, missing %q", msg, part)
		}
	}
	if !errors.Is(err, ErrEventInactive) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
}

func TestCoordinatorError_WithRetryable(t *testing.T) {
	err := NewCoordinatorError("sync failed", nil).WithRetryable(true)
	if !IsRetryable(err) {
		t.Error("IsRetryable should reflect the builder override")
	}
}

// -----------------------------------------------------------------------------
// ConflictError Tests
// -----------------------------------------------------------------------------

func TestConflictError(t *testing.T) {
	err := NewConflictError("resolution stalled", ErrNoQuorum).
		WithConflictID("cfl-1").
		WithStrategy("consensus")

	if err.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityWarning)
	}
	if !err.IsRetryable() {
		t.Error("Conflict errors should default to retryable")
	}

	msg := err.Error()
	for _, part := range []string{"conflict=cfl-1", "strategy=consensus"} {
		if !contains(msg, part) {
			t.Errorf("Error() = %q, missing %q", msg, part)
		}
	}
}

// -----------------------------------------------------------------------------
// Semantic Error Tests
// -----------------------------------------------------------------------------

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("channel", "events.seasonal")

	want := `channel "events.seasonal" not found`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var nf *NotFoundError
	if !errors.As(err.WithCause(ErrChannelNotFound), &nf) {
		t.Error("errors.As should match NotFoundError")
	}
	if !errors.Is(err, ErrChannelNotFound) {
		t.Error("errors.Is should match the attached cause")
	}
}

func TestAlreadyExistsError(t *testing.T) {
	err := NewAlreadyExistsError("channel", "events.competition")

	want := `channel "events.competition" already exists`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("must be positive").
		WithField("max_subscriptions").
		WithValue(-5)

	want := "validation failed for max_subscriptions (got: -5): must be positive"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestClassification_PlainError(t *testing.T) {
	err := errors.New("plain")

	if IsRetryable(err) {
		t.Error("Plain errors should not be retryable")
	}
	if IsUserFacing(err) {
		t.Error("Plain errors should not be user facing")
	}
	if GetSeverity(err) != SeverityError {
		t.Errorf("GetSeverity = %v, want %v", GetSeverity(err), SeverityError)
	}
}

// -----------------------------------------------------------------------------
// Wrapping Tests
// -----------------------------------------------------------------------------

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	err := Wrap(ErrRateLimited, "raise dropped")
	if !errors.Is(err, ErrRateLimited) {
		t.Error("Wrapped error should match the sentinel")
	}
	if err.Error() != "raise dropped: rate limit exceeded" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "channel %s", "x") != nil {
		t.Error("Wrapf(nil) should return nil")
	}

	err := Wrapf(ErrChannelNotFound, "channel %s", "events.reward")
	if err.Error() != "channel events.reward: channel not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
