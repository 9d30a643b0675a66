package notify

import (
	"fmt"
	"strings"
	"time"
)

// AppointmentEvent is the lifecycle payload published by the booking
// service's outbox.
type AppointmentEvent struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	ServiceID     string `json:"service_id"`
	StaffID       string `json:"staff_id"`
	CustomerID    string `json:"customer_id"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

type Message struct {
	Subject string
	Body    string
}

const (
	EventBooked      = "booking.appointment.booked.v1"
	EventCancelled   = "booking.appointment.cancelled.v1"
	EventRescheduled = "booking.appointment.rescheduled.v1"
)

// Compose renders the customer-facing message for one lifecycle event.
// The appointment time is shown in the business timezone.
func Compose(eventType, businessName, timezone, customerName string, evt AppointmentEvent) (Message, bool) {
	when := localTime(evt.StartsAt, timezone)
	greeting := "Hi"
	if name := strings.TrimSpace(customerName); name != "" {
		greeting = "Hi " + name
	}
	if businessName == "" {
		businessName = "your provider"
	}

	switch eventType {
	case EventBooked:
		return Message{
			Subject: fmt.Sprintf("Appointment confirmed with %s", businessName),
			Body:    fmt.Sprintf("%s, your appointment with %s is confirmed for %s.", greeting, businessName, when),
		}, true
	case EventCancelled:
		body := fmt.Sprintf("%s, your appointment with %s on %s has been cancelled.", greeting, businessName, when)
		if reason := strings.TrimSpace(evt.Reason); reason != "" {
			body += " Reason: " + reason + "."
		}
		return Message{
			Subject: fmt.Sprintf("Appointment cancelled with %s", businessName),
			Body:    body,
		}, true
	case EventRescheduled:
		return Message{
			Subject: fmt.Sprintf("Appointment rescheduled with %s", businessName),
			Body:    fmt.Sprintf("%s, your appointment with %s has been moved to %s.", greeting, businessName, when),
		}, true
	}
	return Message{}, false
}

func localTime(raw, timezone string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Mon, 2 Jan 2006 at 15:04 MST")
}
