package model

import "time"

// Status is the persisted appointment lifecycle state. "reschedule" is an
// action, not a state: it overwrites the slot and lands back on confirmed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID           string
	BusinessID   string
	ServiceID    string
	StaffID      string
	CustomerID   string
	StartsAt     time.Time
	EndsAt       time.Time
	Status       Status
	PublicToken  string
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
}

type Customer struct {
	ID         string
	BusinessID string
	IdentityID string
	Email      string
	Name       string
	Phone      string
	CreatedAt  time.Time
}

type Business struct {
	ID       string
	Slug     string
	Name     string
	Timezone string
}

type Service struct {
	ID           string
	BusinessID   string
	Name         string
	DurationMins int
}

type Staff struct {
	ID         string
	BusinessID string
	Name       string
	IsActive   bool
}
