package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"bookwell/libs/db"
	"bookwell/services/booking-service/internal/booking"
	"bookwell/services/booking-service/internal/model"
)

// DirectoryRepository reads the tenant tables owned by business-service.
// Soft-deleted businesses are invisible here: every scheduling operation
// treats them as not found.
type DirectoryRepository struct {
	q db.Querier
}

func NewDirectoryRepository(q db.Querier) *DirectoryRepository {
	return &DirectoryRepository{q: q}
}

func (r *DirectoryRepository) GetBusiness(ctx context.Context, businessID string) (model.Business, error) {
	var b model.Business
	err := r.q.QueryRow(ctx, `
		SELECT id::text, slug, name, timezone
		FROM businesses
		WHERE id = $1 AND deleted_at IS NULL
	`, businessID).Scan(&b.ID, &b.Slug, &b.Name, &b.Timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Business{}, booking.ErrNotFound
		}
		return model.Business{}, storeErr("get business", err)
	}
	return b, nil
}

func (r *DirectoryRepository) GetService(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	var s model.Service
	err := r.q.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes
		FROM services
		WHERE id = $1 AND business_id = $2
	`, serviceID, businessID).Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMins)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Service{}, booking.ErrNotFound
		}
		return model.Service{}, storeErr("get service", err)
	}
	return s, nil
}

func (r *DirectoryRepository) GetStaff(ctx context.Context, businessID, staffID string) (model.Staff, error) {
	var s model.Staff
	err := r.q.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, is_active
		FROM staff
		WHERE id = $1 AND business_id = $2
	`, staffID, businessID).Scan(&s.ID, &s.BusinessID, &s.Name, &s.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Staff{}, booking.ErrNotFound
		}
		return model.Staff{}, storeErr("get staff", err)
	}
	return s, nil
}
