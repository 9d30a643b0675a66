package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (one event kind per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	TopicAppointmentBooked      = "booking.appointment.booked.v1"
	TopicAppointmentCancelled   = "booking.appointment.cancelled.v1"
	TopicAppointmentRescheduled = "booking.appointment.rescheduled.v1"
)
