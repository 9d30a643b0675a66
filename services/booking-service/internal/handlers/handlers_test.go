package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bookwell/services/booking-service/internal/booking"
	"bookwell/services/booking-service/internal/model"
	"bookwell/services/booking-service/internal/slots"
)

type stubStore struct {
	appts     map[string]model.Appointment
	nextID    int
	createErr error
}

func (s *stubStore) Create(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	if s.createErr != nil {
		return model.Appointment{}, s.createErr
	}
	s.nextID++
	appt.ID = fmt.Sprintf("appt-%d", s.nextID)
	appt.CreatedAt = time.Now().UTC()
	s.appts[appt.ID] = appt
	return appt, nil
}

func (s *stubStore) GetByID(_ context.Context, businessID, id string) (model.Appointment, error) {
	appt, ok := s.appts[id]
	if !ok || appt.BusinessID != businessID {
		return model.Appointment{}, booking.ErrNotFound
	}
	return appt, nil
}

func (s *stubStore) GetByToken(_ context.Context, token string) (model.Appointment, error) {
	for _, appt := range s.appts {
		if appt.PublicToken == token {
			return appt, nil
		}
	}
	return model.Appointment{}, booking.ErrNotFound
}

func (s *stubStore) Confirm(_ context.Context, id string) (model.Appointment, error) {
	appt := s.appts[id]
	appt.Status = model.StatusConfirmed
	s.appts[id] = appt
	return appt, nil
}

func (s *stubStore) Cancel(_ context.Context, id, reason string) (model.Appointment, error) {
	appt, ok := s.appts[id]
	if !ok || appt.Status == model.StatusCancelled {
		return model.Appointment{}, booking.ErrInvalidState
	}
	now := time.Now().UTC()
	appt.Status = model.StatusCancelled
	appt.CancelledAt = &now
	appt.CancelReason = reason
	s.appts[id] = appt
	return appt, nil
}

func (s *stubStore) Reschedule(_ context.Context, id string, startsAt, endsAt time.Time) (model.Appointment, error) {
	appt := s.appts[id]
	appt.StartsAt = startsAt
	appt.EndsAt = endsAt
	appt.Status = model.StatusConfirmed
	s.appts[id] = appt
	return appt, nil
}

func (s *stubStore) ListByBusiness(_ context.Context, businessID string, _ int) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, appt := range s.appts {
		if appt.BusinessID == businessID {
			out = append(out, appt)
		}
	}
	return out, nil
}

type stubDirectory struct{}

func (stubDirectory) GetBusiness(_ context.Context, id string) (model.Business, error) {
	if id != "biz-1" {
		return model.Business{}, booking.ErrNotFound
	}
	return model.Business{ID: "biz-1", Name: "Cut Loose", Timezone: "Europe/Berlin"}, nil
}

func (stubDirectory) GetService(_ context.Context, businessID, id string) (model.Service, error) {
	if businessID != "biz-1" || id != "svc-1" {
		return model.Service{}, booking.ErrNotFound
	}
	return model.Service{ID: "svc-1", BusinessID: "biz-1", Name: "Haircut", DurationMins: 30}, nil
}

func (stubDirectory) GetStaff(_ context.Context, businessID, id string) (model.Staff, error) {
	if businessID != "biz-1" || id != "staff-1" {
		return model.Staff{}, booking.ErrNotFound
	}
	return model.Staff{ID: "staff-1", BusinessID: "biz-1", Name: "Dana", IsActive: true}, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, businessID string, info booking.CustomerInfo) (model.Customer, error) {
	return model.Customer{ID: "cust-1", BusinessID: businessID, Name: info.Name}, nil
}

type stubSlots struct {
	listed []slots.Slot
	err    error
}

func (s stubSlots) List(context.Context, slots.Query) ([]slots.Slot, error) {
	return s.listed, s.err
}

func testMux(store *stubStore, slotSource slots.Source) *http.ServeMux {
	svc := booking.NewService(store, stubDirectory{}, stubResolver{}, nil, slog.Default())
	h := New(svc, slotSource, nil, slog.Default())
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func newStubStore() *stubStore {
	return &stubStore{appts: map[string]model.Appointment{}}
}

func bookBody() string {
	return `{
		"business_id": "biz-1",
		"service_id": "svc-1",
		"staff_id": "staff-1",
		"slot_start": "2026-09-07T10:00:00Z",
		"slot_end": "2026-09-07T10:30:00Z",
		"customer": {"name": "Alex", "email": "alex@example.com"}
	}`
}

func TestListSlots(t *testing.T) {
	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	mux := testMux(newStubStore(), stubSlots{listed: []slots.Slot{{Start: start, End: start.Add(30 * time.Minute)}}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?business_id=biz-1&staff_id=staff-1&service_id=svc-1&date=2026-09-07", nil)
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	var body struct {
		Slots []struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	require.Len(t, body.Slots, 1)
	require.Equal(t, "2026-09-07T09:00:00Z", body.Slots[0].Start)
}

func TestListSlotsValidationError(t *testing.T) {
	mux := testMux(newStubStore(), stubSlots{err: fmt.Errorf("date is required: %w", booking.ErrValidation)})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots", nil)
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)

	require.Equal(t, http.StatusBadRequest, rw.Code)
	require.Contains(t, rw.Body.String(), "validation_error")
}

func TestBookReturnsTokenOnce(t *testing.T) {
	mux := testMux(newStubStore(), stubSlots{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/bookings", strings.NewReader(bookBody()))
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)

	require.Equal(t, http.StatusCreated, rw.Code)
	var appt appointmentJSON
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &appt))
	require.Equal(t, "confirmed", appt.Status)
	require.NotEmpty(t, appt.PublicToken)

	// The token never appears on the tenant listing.
	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	listReq.Header.Set("X-User-Id", "u1")
	listReq.Header.Set("X-Role", "owner")
	listReq.Header.Set("X-Business-Id", "biz-1")
	listRW := httptest.NewRecorder()
	mux.ServeHTTP(listRW, listReq)
	require.Equal(t, http.StatusOK, listRW.Code)
	require.NotContains(t, listRW.Body.String(), appt.PublicToken)
}

func TestBookConflict(t *testing.T) {
	store := newStubStore()
	store.createErr = booking.ErrConflict
	mux := testMux(store, stubSlots{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/bookings", strings.NewReader(bookBody()))
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)

	require.Equal(t, http.StatusConflict, rw.Code)
	require.Contains(t, rw.Body.String(), "conflict")
}

func TestBookBadSlotFormat(t *testing.T) {
	mux := testMux(newStubStore(), stubSlots{})

	body := strings.Replace(bookBody(), "2026-09-07T10:00:00Z", "next tuesday", 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/bookings", strings.NewReader(body))
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)

	require.Equal(t, http.StatusBadRequest, rw.Code)
}

func bookOne(t *testing.T, mux *http.ServeMux) appointmentJSON {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/bookings", strings.NewReader(bookBody()))
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)
	require.Equal(t, http.StatusCreated, rw.Code)
	var appt appointmentJSON
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &appt))
	return appt
}

func TestViewByToken(t *testing.T) {
	mux := testMux(newStubStore(), stubSlots{})
	appt := bookOne(t, mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/appointments/"+appt.PublicToken, nil)
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	require.Contains(t, rw.Body.String(), "Cut Loose")
	require.Contains(t, rw.Body.String(), "Haircut")

	missing := httptest.NewRequest(http.MethodGet, "/api/v1/public/appointments/nope", nil)
	missingRW := httptest.NewRecorder()
	mux.ServeHTTP(missingRW, missing)
	require.Equal(t, http.StatusNotFound, missingRW.Code)
}

func TestCancelByTokenTwice(t *testing.T) {
	mux := testMux(newStubStore(), stubSlots{})
	appt := bookOne(t, mux)

	cancel := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/public/appointments/"+appt.PublicToken+"/cancel",
			strings.NewReader(`{"reason":"sick"}`))
		rw := httptest.NewRecorder()
		mux.ServeHTTP(rw, req)
		return rw
	}

	first := cancel()
	require.Equal(t, http.StatusOK, first.Code)
	require.Contains(t, first.Body.String(), "cancelled")

	second := cancel()
	require.Equal(t, http.StatusUnprocessableEntity, second.Code)
	require.Contains(t, second.Body.String(), "invalid_state")
}

func TestRescheduleByToken(t *testing.T) {
	mux := testMux(newStubStore(), stubSlots{})
	appt := bookOne(t, mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/appointments/"+appt.PublicToken+"/reschedule",
		strings.NewReader(`{"slot_start":"2026-09-08T11:00:00Z","slot_end":"2026-09-08T11:30:00Z"}`))
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	var updated appointmentJSON
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &updated))
	require.Equal(t, "2026-09-08T11:00:00Z", updated.StartsAt)
}

func TestTransitionByActor(t *testing.T) {
	mux := testMux(newStubStore(), stubSlots{})
	appt := bookOne(t, mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/"+appt.AppointmentID+"/transition",
		strings.NewReader(`{"status":"cancelled","reason":"no show"}`))
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-Role", "staff")
	req.Header.Set("X-Business-Id", "biz-1")
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	require.Contains(t, rw.Body.String(), "no show")
}

func TestTransitionWithoutIdentityHeaders(t *testing.T) {
	mux := testMux(newStubStore(), stubSlots{})
	appt := bookOne(t, mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/"+appt.AppointmentID+"/transition",
		strings.NewReader(`{"status":"cancelled"}`))
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)

	require.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestListRejectsBadLimit(t *testing.T) {
	mux := testMux(newStubStore(), stubSlots{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?limit=zero", nil)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-Role", "owner")
	req.Header.Set("X-Business-Id", "biz-1")
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)

	require.Equal(t, http.StatusBadRequest, rw.Code)
}
