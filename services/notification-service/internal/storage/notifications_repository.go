package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"bookwell/libs/db"
)

type Notification struct {
	BusinessID    string
	AppointmentID string
	EventType     string
	Channel       string
	Recipient     string
	Subject       string
	Body          string
	Status        string
	Error         string
}

type CustomerContact struct {
	Name  string
	Email string
	Phone string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	var sentAt *time.Time
	if n.Status == "sent" {
		now := time.Now().UTC()
		sentAt = &now
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(business_id, appointment_id, event_type, channel, recipient, subject, body, status, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, n.BusinessID, n.AppointmentID, n.EventType, n.Channel, n.Recipient, n.Subject, n.Body, n.Status, n.Error, sentAt)
	return err
}

// GetCustomerContact reads the contact fields straight from the booking
// schema. The services share one database, so there is no cross-service
// call on the notification path.
func (r *Repository) GetCustomerContact(ctx context.Context, customerID string) (CustomerContact, bool, error) {
	var c CustomerContact
	err := r.pool.QueryRow(ctx, `
		SELECT name, COALESCE(email, ''), COALESCE(phone, '')
		FROM customers
		WHERE id = $1
	`, customerID).Scan(&c.Name, &c.Email, &c.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CustomerContact{}, false, nil
		}
		return CustomerContact{}, false, err
	}
	return c, true, nil
}

func (r *Repository) GetBusinessDisplay(ctx context.Context, businessID string) (name, timezone string, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT name, timezone
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(&name, &timezone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "UTC", nil
	}
	return name, timezone, err
}
