package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bookwell/services/booking-service/internal/booking"
	"bookwell/services/booking-service/internal/model"
)

func validationError(msg string) error {
	return fmt.Errorf("%s: %w", msg, booking.ErrValidation)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeDomainError maps the five error kinds onto distinct status codes so
// the UI can tell "pick another time" (409/422) apart from "something went
// wrong" (500).
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, booking.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, booking.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, booking.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, booking.ErrInvalidState):
		status, code = http.StatusUnprocessableEntity, "invalid_state"
	default:
		h.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func actorFromHeaders(r *http.Request) booking.Actor {
	return booking.Actor{
		PrincipalID: strings.TrimSpace(r.Header.Get("X-User-Id")),
		Role:        strings.TrimSpace(r.Header.Get("X-Role")),
		BusinessID:  strings.TrimSpace(r.Header.Get("X-Business-Id")),
	}
}

type appointmentJSON struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	ServiceID     string `json:"service_id"`
	StaffID       string `json:"staff_id"`
	CustomerID    string `json:"customer_id"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	Status        string `json:"status"`
	PublicToken   string `json:"public_token,omitempty"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CancelReason  string `json:"cancel_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toAppointmentJSON(appt model.Appointment, includeToken bool) appointmentJSON {
	out := appointmentJSON{
		AppointmentID: appt.ID,
		BusinessID:    appt.BusinessID,
		ServiceID:     appt.ServiceID,
		StaffID:       appt.StaffID,
		CustomerID:    appt.CustomerID,
		StartsAt:      appt.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:        appt.EndsAt.UTC().Format(time.RFC3339),
		Status:        string(appt.Status),
		CancelReason:  appt.CancelReason,
		CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
	}
	if includeToken {
		out.PublicToken = appt.PublicToken
	}
	if appt.CancelledAt != nil {
		out.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	return out
}

func parseRFC3339(raw string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	return t, err == nil
}
