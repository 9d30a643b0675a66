package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"bookwell/libs/db"
)

// IdempotencyRecord is the stored outcome of a keyed booking attempt.
// A record with StatusCode 0 is claimed but not yet finalized.
type IdempotencyRecord struct {
	BusinessID      string
	IdempotencyKey  string
	AppointmentID   string
	StatusCode      int
	ResponsePayload []byte
}

type IdempotencyRepository struct {
	pool db.Querier
}

func NewIdempotencyRepository(pool db.Querier) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

func (r *IdempotencyRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Lock claims the key inside tx, blocking concurrent requests with the
// same key until their transaction settles. The returned record carries a
// non-zero StatusCode whenever an earlier attempt finished, including one
// that committed while this request was waiting on the claim insert, so
// callers must decide replay-vs-book on the record alone.
func (r *IdempotencyRepository) Lock(ctx context.Context, tx pgx.Tx, businessID, key string) (IdempotencyRecord, error) {
	rec, err := r.selectForUpdate(ctx, tx, businessID, key)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (business_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (business_id, idempotency_key) DO NOTHING
	`, businessID, key)
	if err != nil {
		return IdempotencyRecord{}, err
	}

	return r.selectForUpdate(ctx, tx, businessID, key)
}

func (r *IdempotencyRepository) Finalize(ctx context.Context, tx pgx.Tx, businessID, key, appointmentID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE business_id = $1 AND idempotency_key = $2
	`, businessID, key, appointmentID, statusCode, response)
	return err
}

func (r *IdempotencyRepository) selectForUpdate(ctx context.Context, tx pgx.Tx, businessID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT business_id::text,
			idempotency_key,
			COALESCE(appointment_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE business_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, businessID, key).Scan(
		&rec.BusinessID,
		&rec.IdempotencyKey,
		&rec.AppointmentID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
