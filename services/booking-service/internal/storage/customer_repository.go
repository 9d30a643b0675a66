package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"bookwell/libs/db"
	"bookwell/services/booking-service/internal/model"
)

const customerColumns = `id::text, business_id::text, COALESCE(identity_id, ''), COALESCE(email, ''), name, COALESCE(phone, ''), created_at`

type CustomerRepository struct {
	q db.Querier
}

func NewCustomerRepository(q db.Querier) *CustomerRepository {
	return &CustomerRepository{q: q}
}

func (r *CustomerRepository) FindByIdentity(ctx context.Context, businessID, identityID string) (model.Customer, bool, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE business_id = $1 AND identity_id = $2
		ORDER BY created_at ASC
		LIMIT 1
	`, businessID, identityID)
	return scanCustomer(row, "find customer by identity")
}

func (r *CustomerRepository) FindByEmail(ctx context.Context, businessID, email string) (model.Customer, bool, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE business_id = $1 AND lower(email) = lower($2)
		ORDER BY created_at ASC
		LIMIT 1
	`, businessID, email)
	return scanCustomer(row, "find customer by email")
}

func (r *CustomerRepository) Insert(ctx context.Context, c model.Customer) (model.Customer, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO customers (business_id, identity_id, email, name, phone)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, NULLIF($5, ''))
		RETURNING `+customerColumns,
		c.BusinessID, c.IdentityID, c.Email, c.Name, c.Phone)

	created, ok, err := scanCustomer(row, "insert customer")
	if err != nil {
		return model.Customer{}, err
	}
	if !ok {
		return model.Customer{}, storeErr("insert customer", pgx.ErrNoRows)
	}
	return created, nil
}

func scanCustomer(row rowScanner, op string) (model.Customer, bool, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.BusinessID, &c.IdentityID, &c.Email, &c.Name, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Customer{}, false, nil
		}
		return model.Customer{}, false, storeErr(op, err)
	}
	return c, true, nil
}
