package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"bookwell/services/booking-service/internal/booking"
	"bookwell/services/booking-service/internal/model"
)

type memStore struct {
	byIdentity map[string]model.Customer
	byEmail    map[string]model.Customer
	inserted   []model.Customer
}

func newMemStore() *memStore {
	return &memStore{
		byIdentity: map[string]model.Customer{},
		byEmail:    map[string]model.Customer{},
	}
}

func (s *memStore) FindByIdentity(_ context.Context, businessID, identityID string) (model.Customer, bool, error) {
	c, ok := s.byIdentity[businessID+"/"+identityID]
	return c, ok, nil
}

func (s *memStore) FindByEmail(_ context.Context, businessID, email string) (model.Customer, bool, error) {
	c, ok := s.byEmail[businessID+"/"+email]
	return c, ok, nil
}

func (s *memStore) Insert(_ context.Context, c model.Customer) (model.Customer, error) {
	c.ID = "new-customer"
	s.inserted = append(s.inserted, c)
	return c, nil
}

func TestResolveCreatesWhenNoMatch(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, PreferIdentity)

	c, err := r.Resolve(context.Background(), "biz-1", booking.CustomerInfo{
		Name:  "  Alex  ",
		Email: "Alex@Example.COM",
		Phone: " +4915112345 ",
	})
	require.NoError(t, err)
	require.Equal(t, "new-customer", c.ID)
	require.Len(t, store.inserted, 1)
	require.Equal(t, "Alex", store.inserted[0].Name)
	require.Equal(t, "alex@example.com", store.inserted[0].Email)
	require.Equal(t, "+4915112345", store.inserted[0].Phone)
}

func TestResolveRequiresName(t *testing.T) {
	r := NewResolver(newMemStore(), PreferIdentity)
	_, err := r.Resolve(context.Background(), "biz-1", booking.CustomerInfo{Email: "alex@example.com"})
	require.ErrorIs(t, err, booking.ErrValidation)
}

func TestResolveIdentityWinsByDefault(t *testing.T) {
	store := newMemStore()
	store.byIdentity["biz-1/idp-7"] = model.Customer{ID: "by-identity"}
	store.byEmail["biz-1/alex@example.com"] = model.Customer{ID: "by-email"}
	r := NewResolver(store, PreferIdentity)

	c, err := r.Resolve(context.Background(), "biz-1", booking.CustomerInfo{
		Name:       "Alex",
		IdentityID: "idp-7",
		Email:      "alex@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "by-identity", c.ID)
	require.Empty(t, store.inserted)
}

func TestResolveEmailPreference(t *testing.T) {
	store := newMemStore()
	store.byIdentity["biz-1/idp-7"] = model.Customer{ID: "by-identity"}
	store.byEmail["biz-1/alex@example.com"] = model.Customer{ID: "by-email"}
	r := NewResolver(store, PreferEmail)

	c, err := r.Resolve(context.Background(), "biz-1", booking.CustomerInfo{
		Name:       "Alex",
		IdentityID: "idp-7",
		Email:      "alex@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "by-email", c.ID)
}

func TestResolveFallsThroughToSecondLookup(t *testing.T) {
	store := newMemStore()
	store.byEmail["biz-1/alex@example.com"] = model.Customer{ID: "by-email"}
	r := NewResolver(store, PreferIdentity)

	c, err := r.Resolve(context.Background(), "biz-1", booking.CustomerInfo{
		Name:       "Alex",
		IdentityID: "idp-unknown",
		Email:      "alex@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "by-email", c.ID)
	require.Empty(t, store.inserted)
}

func TestResolveScopedByBusiness(t *testing.T) {
	store := newMemStore()
	store.byEmail["biz-1/alex@example.com"] = model.Customer{ID: "biz1-customer"}
	r := NewResolver(store, PreferIdentity)

	c, err := r.Resolve(context.Background(), "biz-2", booking.CustomerInfo{
		Name:  "Alex",
		Email: "alex@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "new-customer", c.ID)
	require.Equal(t, "biz-2", store.inserted[0].BusinessID)
}
