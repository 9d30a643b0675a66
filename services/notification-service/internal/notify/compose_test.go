package notify

import (
	"strings"
	"testing"
)

func TestComposeBooked(t *testing.T) {
	msg, ok := Compose(EventBooked, "Cut Loose", "Europe/Berlin", "Alex", AppointmentEvent{
		StartsAt: "2026-09-07T08:00:00Z",
	})
	if !ok {
		t.Fatal("expected a message")
	}
	if !strings.Contains(msg.Subject, "confirmed") {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Hi Alex") {
		t.Fatalf("expected greeting in body %q", msg.Body)
	}
	// 08:00 UTC is 10:00 in Berlin during DST.
	if !strings.Contains(msg.Body, "10:00") {
		t.Fatalf("expected local time in body %q", msg.Body)
	}
}

func TestComposeCancelledWithReason(t *testing.T) {
	msg, ok := Compose(EventCancelled, "Cut Loose", "UTC", "", AppointmentEvent{
		StartsAt: "2026-09-07T08:00:00Z",
		Reason:   "staff illness",
	})
	if !ok {
		t.Fatal("expected a message")
	}
	if !strings.Contains(msg.Body, "staff illness") {
		t.Fatalf("expected reason in body %q", msg.Body)
	}
	if !strings.HasPrefix(msg.Body, "Hi,") {
		t.Fatalf("expected plain greeting, got %q", msg.Body)
	}
}

func TestComposeUnknownEvent(t *testing.T) {
	if _, ok := Compose("booking.appointment.archived.v1", "x", "UTC", "", AppointmentEvent{}); ok {
		t.Fatal("expected no message for unknown event type")
	}
}

func TestComposeBadTimezoneFallsBackToUTC(t *testing.T) {
	msg, ok := Compose(EventRescheduled, "Cut Loose", "Mars/Olympus", "Alex", AppointmentEvent{
		StartsAt: "2026-09-07T08:00:00Z",
	})
	if !ok {
		t.Fatal("expected a message")
	}
	if !strings.Contains(msg.Body, "08:00 UTC") {
		t.Fatalf("expected UTC fallback in body %q", msg.Body)
	}
}
