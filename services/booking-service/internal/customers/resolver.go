package customers

import (
	"context"
	"strings"

	"bookwell/services/booking-service/internal/booking"
	"bookwell/services/booking-service/internal/model"
)

// MatchPreference decides which lookup wins when a booking carries both an
// identity-provider id and an email that could match different rows. The
// resolver never merges rows; it just picks one deterministically.
type MatchPreference string

const (
	PreferIdentity MatchPreference = "identity"
	PreferEmail    MatchPreference = "email"
)

// Store is the customer persistence surface. Lookups return ok=false for
// no match; Insert surfaces constraint failures as booking.ErrDataStore.
type Store interface {
	FindByIdentity(ctx context.Context, businessID, identityID string) (model.Customer, bool, error)
	FindByEmail(ctx context.Context, businessID, email string) (model.Customer, bool, error)
	Insert(ctx context.Context, c model.Customer) (model.Customer, error)
}

type Resolver struct {
	store Store
	pref  MatchPreference
}

func NewResolver(store Store, pref MatchPreference) *Resolver {
	if pref != PreferEmail {
		pref = PreferIdentity
	}
	return &Resolver{store: store, pref: pref}
}

// Resolve finds an existing customer in the business by identity id or
// email, or creates one. At most one insert; an existing row's contact
// fields are never updated by a booking.
func (r *Resolver) Resolve(ctx context.Context, businessID string, info booking.CustomerInfo) (model.Customer, error) {
	info.Name = strings.TrimSpace(info.Name)
	info.Email = strings.TrimSpace(strings.ToLower(info.Email))
	info.IdentityID = strings.TrimSpace(info.IdentityID)
	info.Phone = strings.TrimSpace(info.Phone)

	if info.Name == "" {
		return model.Customer{}, booking.ErrValidation
	}

	for _, lookup := range r.lookupOrder() {
		c, ok, err := lookup(ctx, businessID, info)
		if err != nil {
			return model.Customer{}, err
		}
		if ok {
			return c, nil
		}
	}

	return r.store.Insert(ctx, model.Customer{
		BusinessID: businessID,
		IdentityID: info.IdentityID,
		Email:      info.Email,
		Name:       info.Name,
		Phone:      info.Phone,
	})
}

type lookupFn func(ctx context.Context, businessID string, info booking.CustomerInfo) (model.Customer, bool, error)

func (r *Resolver) lookupOrder() []lookupFn {
	byIdentity := func(ctx context.Context, businessID string, info booking.CustomerInfo) (model.Customer, bool, error) {
		if info.IdentityID == "" {
			return model.Customer{}, false, nil
		}
		return r.store.FindByIdentity(ctx, businessID, info.IdentityID)
	}
	byEmail := func(ctx context.Context, businessID string, info booking.CustomerInfo) (model.Customer, bool, error) {
		if info.Email == "" {
			return model.Customer{}, false, nil
		}
		return r.store.FindByEmail(ctx, businessID, info.Email)
	}
	if r.pref == PreferEmail {
		return []lookupFn{byEmail, byIdentity}
	}
	return []lookupFn{byIdentity, byEmail}
}
