package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"bookwell/libs/db"
	"bookwell/services/booking-service/internal/booking"
	"bookwell/services/booking-service/internal/model"
)

const appointmentColumns = `
	id::text, business_id::text, service_id::text, staff_id::text, customer_id::text,
	starts_at, ends_at, status, public_token, cancelled_at, COALESCE(cancel_reason, ''), created_at`

type AppointmentRepository struct {
	q db.Querier
}

func NewAppointmentRepository(q db.Querier) *AppointmentRepository {
	return &AppointmentRepository{q: q}
}

// Create inserts the appointment row. The appointments_no_overlap
// exclusion constraint is the single enforcement point against double
// booking; a violation comes back as booking.ErrConflict.
func (r *AppointmentRepository) Create(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO appointments
			(business_id, service_id, staff_id, customer_id, starts_at, ends_at, status, public_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+appointmentColumns,
		appt.BusinessID, appt.ServiceID, appt.StaffID, appt.CustomerID,
		appt.StartsAt, appt.EndsAt, string(appt.Status), appt.PublicToken)

	created, err := scanAppointment(row)
	if err != nil {
		if isOverlap(err) {
			return model.Appointment{}, booking.ErrConflict
		}
		return model.Appointment{}, storeErr("insert appointment", err)
	}
	return created, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, businessID, id string) (model.Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND business_id = $2
	`, id, businessID)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, booking.ErrNotFound
		}
		return model.Appointment{}, storeErr("get appointment", err)
	}
	return appt, nil
}

func (r *AppointmentRepository) GetByToken(ctx context.Context, token string) (model.Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE public_token = $1
	`, token)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, booking.ErrNotFound
		}
		return model.Appointment{}, storeErr("get appointment by token", err)
	}
	return appt, nil
}

// Confirm moves a pending appointment to confirmed. The WHERE guard makes
// concurrent confirms race-safe: the loser matches no row.
func (r *AppointmentRepository) Confirm(ctx context.Context, id string) (model.Appointment, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'confirmed'
		WHERE id = $1 AND status = 'pending'
		RETURNING `+appointmentColumns, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, booking.ErrInvalidState
		}
		return model.Appointment{}, storeErr("confirm appointment", err)
	}
	return appt, nil
}

func (r *AppointmentRepository) Cancel(ctx context.Context, id, reason string) (model.Appointment, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			cancel_reason = $2
		WHERE id = $1 AND status <> 'cancelled'
		RETURNING `+appointmentColumns, id, reason)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, booking.ErrInvalidState
		}
		return model.Appointment{}, storeErr("cancel appointment", err)
	}
	return appt, nil
}

// Reschedule overwrites the slot in place and resets status to confirmed.
// Same conflict rule as Create: the exclusion constraint decides.
func (r *AppointmentRepository) Reschedule(ctx context.Context, id string, startsAt, endsAt time.Time) (model.Appointment, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE appointments
		SET starts_at = $2,
			ends_at = $3,
			status = 'confirmed'
		WHERE id = $1 AND status <> 'cancelled'
		RETURNING `+appointmentColumns, id, startsAt, endsAt)
	appt, err := scanAppointment(row)
	if err != nil {
		if isOverlap(err) {
			return model.Appointment{}, booking.ErrConflict
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, booking.ErrInvalidState
		}
		return model.Appointment{}, storeErr("reschedule appointment", err)
	}
	return appt, nil
}

func (r *AppointmentRepository) ListByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
		ORDER BY starts_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, storeErr("list appointments", err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, storeErr("scan appointment", err)
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, storeErr("list appointments", rows.Err())
	}
	return appts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var appt model.Appointment
	var status string
	var cancelledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.ServiceID,
		&appt.StaffID,
		&appt.CustomerID,
		&appt.StartsAt,
		&appt.EndsAt,
		&status,
		&appt.PublicToken,
		&cancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	appt.CancelledAt = cancelledAt
	return appt, nil
}

// isOverlap matches violations of the appointments_no_overlap guard:
// 23P01 from a gist exclusion constraint, 23505 when it is declared as a
// unique range index instead.
func isOverlap(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23P01" || (pgErr.Code == "23505" && pgErr.ConstraintName == "appointments_no_overlap")
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, booking.ErrDataStore)
}
