package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"bookwell/services/booking-service/internal/booking"
	"bookwell/services/booking-service/internal/storage"
)

var idemCols = []string{
	"business_id", "idempotency_key", "appointment_id", "status_code", "response_payload",
}

func idemMux(t *testing.T, store *stubStore) (*http.ServeMux, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	svc := booking.NewService(store, stubDirectory{}, stubResolver{}, nil, slog.Default())
	h := New(svc, stubSlots{}, storage.NewIdempotencyRepository(mock), slog.Default())
	mux := http.NewServeMux()
	h.Register(mux)
	return mux, mock
}

func keyedBook(mux *http.ServeMux, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/bookings", strings.NewReader(bookBody()))
	req.Header.Set("Idempotency-Key", key)
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)
	return rw
}

func TestIdempotentBookFirstRequestFinalizes(t *testing.T) {
	store := newStubStore()
	mux, mock := idemMux(t, store)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnRows(pgxmock.NewRows(idemCols).AddRow("biz-1", "key-1", "", 0, ""))
	mock.ExpectExec("UPDATE booking_idempotency_keys").
		WithArgs("biz-1", "key-1", "appt-1", http.StatusCreated, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	rw := keyedBook(mux, "key-1")
	require.Equal(t, http.StatusCreated, rw.Code)
	require.Empty(t, rw.Header().Get("Idempotency-Replayed"))
	require.Len(t, store.appts, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotentBookReplaysStoredResponse(t *testing.T) {
	store := newStubStore()
	mux, mock := idemMux(t, store)

	stored := `{"appointment_id":"appt-9","status":"confirmed"}`
	mock.ExpectBegin()
	mock.ExpectQuery("FROM booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnRows(pgxmock.NewRows(idemCols).AddRow("biz-1", "key-1", "appt-9", http.StatusCreated, stored))
	mock.ExpectRollback()

	rw := keyedBook(mux, "key-1")
	require.Equal(t, http.StatusCreated, rw.Code)
	require.Equal(t, "true", rw.Header().Get("Idempotency-Replayed"))
	require.JSONEq(t, stored, rw.Body.String())
	require.Empty(t, store.appts)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A duplicate submitted while the first request was still in flight sees no
// claim row, inserts nothing on conflict, and then reads the winner's
// finalized record. It must replay that record, not book a second time.
func TestIdempotentBookReplaysAfterRacingClaim(t *testing.T) {
	store := newStubStore()
	mux, mock := idemMux(t, store)

	stored := `{"appointment_id":"appt-9","status":"confirmed"}`
	mock.ExpectBegin()
	mock.ExpectQuery("FROM booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("FROM booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnRows(pgxmock.NewRows(idemCols).AddRow("biz-1", "key-1", "appt-9", http.StatusCreated, stored))
	mock.ExpectRollback()

	rw := keyedBook(mux, "key-1")
	require.Equal(t, http.StatusCreated, rw.Code)
	require.Equal(t, "true", rw.Header().Get("Idempotency-Replayed"))
	require.JSONEq(t, stored, rw.Body.String())
	require.Empty(t, store.appts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotentBookFailureReleasesClaim(t *testing.T) {
	store := newStubStore()
	store.createErr = booking.ErrConflict
	mux, mock := idemMux(t, store)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM booking_idempotency_keys").
		WithArgs("biz-1", "key-1").
		WillReturnRows(pgxmock.NewRows(idemCols).AddRow("biz-1", "key-1", "", 0, ""))
	mock.ExpectRollback()

	rw := keyedBook(mux, "key-1")
	require.Equal(t, http.StatusConflict, rw.Code)
	require.Contains(t, rw.Body.String(), "conflict")
	require.NoError(t, mock.ExpectationsWereMet())
}
