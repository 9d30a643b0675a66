package outbox

import (
	"context"
	"encoding/json"
	"time"

	"bookwell/services/booking-service/internal/model"
)

// Recorder turns lifecycle transitions into outbox events. It implements
// the booking service's Events port.
type Recorder struct {
	repo *Repository
}

func NewRecorder(repo *Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) AppointmentBooked(ctx context.Context, appt model.Appointment) error {
	return r.record(ctx, TopicAppointmentBooked, appt, nil)
}

func (r *Recorder) AppointmentCancelled(ctx context.Context, appt model.Appointment) error {
	extra := map[string]any{"reason": appt.CancelReason}
	if appt.CancelledAt != nil {
		extra["cancelled_at"] = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	return r.record(ctx, TopicAppointmentCancelled, appt, extra)
}

func (r *Recorder) AppointmentRescheduled(ctx context.Context, appt model.Appointment) error {
	return r.record(ctx, TopicAppointmentRescheduled, appt, nil)
}

func (r *Recorder) record(ctx context.Context, topic string, appt model.Appointment, extra map[string]any) error {
	body := map[string]any{
		"appointment_id": appt.ID,
		"business_id":    appt.BusinessID,
		"service_id":     appt.ServiceID,
		"staff_id":       appt.StaffID,
		"customer_id":    appt.CustomerID,
		"starts_at":      appt.StartsAt.UTC().Format(time.RFC3339),
		"ends_at":        appt.EndsAt.UTC().Format(time.RFC3339),
		"status":         string(appt.Status),
	}
	for k, v := range extra {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return r.repo.Insert(ctx, Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     topic,
		Payload:       payload,
	})
}
