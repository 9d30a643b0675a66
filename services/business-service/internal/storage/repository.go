package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bookwell/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

type Business struct {
	ID        string
	Slug      string
	Name      string
	Timezone  string
	OwnerID   string
	CreatedAt time.Time
}

func (r *Repository) CreateBusiness(ctx context.Context, slug, name, timezone, ownerID string) (Business, error) {
	var b Business
	err := r.pool.QueryRow(ctx, `
		INSERT INTO businesses (slug, name, timezone, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, slug, name, timezone, owner_id, created_at
	`, slug, name, timezone, ownerID).Scan(&b.ID, &b.Slug, &b.Name, &b.Timezone, &b.OwnerID, &b.CreatedAt)
	return b, err
}

func (r *Repository) GetBusiness(ctx context.Context, businessID string) (Business, error) {
	var b Business
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, slug, name, timezone, owner_id, created_at
		FROM businesses
		WHERE id = $1 AND deleted_at IS NULL
	`, businessID).Scan(&b.ID, &b.Slug, &b.Name, &b.Timezone, &b.OwnerID, &b.CreatedAt)
	return b, err
}

func (r *Repository) UpdateBusiness(ctx context.Context, businessID, name, timezone string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE businesses
		SET name = $2, timezone = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, businessID, name, timezone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SoftDeleteBusiness hides the tenant from every read path. Historical
// appointments keep their rows; the directory simply stops resolving.
func (r *Repository) SoftDeleteBusiness(ctx context.Context, businessID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE businesses
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type Service struct {
	ID           string
	BusinessID   string
	Name         string
	Description  string
	DurationMins int
	PriceCents   int
	CreatedAt    time.Time
}

func (r *Repository) CreateService(ctx context.Context, businessID, name, description string, durationMinutes, priceCents int) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, business_id, name, description, duration_minutes, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, businessID, name, description, durationMinutes, priceCents)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) ListServices(ctx context.Context, businessID string, limit int) ([]Service, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, description, duration_minutes, price_cents, created_at
		FROM services
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Description, &s.DurationMins, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

type Staff struct {
	ID         string
	BusinessID string
	Name       string
	IdentityID string
	IsActive   bool
}

// CreateStaff inserts the staff member and seeds a Mon-Fri 09:00-17:00
// schedule so new hires are bookable without a separate setup call.
func (r *Repository) CreateStaff(ctx context.Context, businessID, name, identityID string) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	if _, err := tx.Exec(ctx, `
		INSERT INTO staff (id, business_id, name, identity_id)
		VALUES ($1, $2, $3, NULLIF($4, ''))
	`, id, businessID, name, identityID); err != nil {
		return "", err
	}

	for wd := 1; wd <= 5; wd++ {
		if _, err := tx.Exec(ctx, `
			INSERT INTO working_hours (business_id, staff_id, weekday, start_time, end_time)
			VALUES ($1, $2, $3, '09:00', '17:00')
		`, businessID, id, wd); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) ListStaff(ctx context.Context, businessID string, limit int) ([]Staff, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, COALESCE(identity_id, ''), is_active
		FROM staff
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		var s Staff
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.IdentityID, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// SetStaffActive toggles bookability without deleting history. Inactive
// staff fail validation at booking time.
func (r *Repository) SetStaffActive(ctx context.Context, businessID, staffID string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staff
		SET is_active = $3, updated_at = now()
		WHERE id = $1 AND business_id = $2
	`, staffID, businessID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type WorkingWindow struct {
	Weekday   int
	StartTime string
	EndTime   string
}

func (r *Repository) ListWorkingHours(ctx context.Context, businessID, staffID string) ([]WorkingWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_time::text, end_time::text
		FROM working_hours
		WHERE business_id = $1 AND staff_id = $2
		ORDER BY weekday ASC, start_time ASC
	`, businessID, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkingWindow
	for rows.Next() {
		var w WorkingWindow
		if err := rows.Scan(&w.Weekday, &w.StartTime, &w.EndTime); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// SetWorkingHours replaces one weekday's windows wholesale. An empty
// windows slice marks the day closed.
func (r *Repository) SetWorkingHours(ctx context.Context, businessID, staffID string, weekday int, windows []WorkingWindow) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM staff WHERE id = $1 AND business_id = $2
		)
	`, staffID, businessID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM working_hours
		WHERE business_id = $1 AND staff_id = $2 AND weekday = $3
	`, businessID, staffID, weekday); err != nil {
		return err
	}
	for _, w := range windows {
		if _, err := tx.Exec(ctx, `
			INSERT INTO working_hours (business_id, staff_id, weekday, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5)
		`, businessID, staffID, weekday, w.StartTime, w.EndTime); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

type TimeOff struct {
	ID       string
	StaffID  string
	StartsAt time.Time
	EndsAt   time.Time
	Reason   string
}

func (r *Repository) CreateTimeOff(ctx context.Context, businessID, staffID string, startsAt, endsAt time.Time, reason string) (string, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM staff WHERE id = $1 AND business_id = $2
		)
	`, staffID, businessID).Scan(&exists); err != nil {
		return "", err
	}
	if !exists {
		return "", pgx.ErrNoRows
	}

	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO time_off (id, business_id, staff_id, starts_at, ends_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, businessID, staffID, startsAt, endsAt, reason)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) ListTimeOff(ctx context.Context, businessID, staffID string, from, to time.Time, limit int) ([]TimeOff, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, staff_id::text, starts_at, ends_at, reason
		FROM time_off
		WHERE business_id = $1
			AND staff_id = $2
			AND ends_at > $3
			AND starts_at < $4
		ORDER BY starts_at ASC
		LIMIT $5
	`, businessID, staffID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimeOff
	for rows.Next() {
		var t TimeOff
		if err := rows.Scan(&t.ID, &t.StaffID, &t.StartsAt, &t.EndsAt, &t.Reason); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) DeleteTimeOff(ctx context.Context, businessID, timeOffID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM time_off
		WHERE business_id = $1 AND id = $2
	`, businessID, timeOffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
