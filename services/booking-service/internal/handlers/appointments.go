package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"bookwell/services/booking-service/internal/booking"
	"bookwell/services/booking-service/internal/model"
)

// ListAppointments returns the acting business's appointments. Identity
// arrives via the gateway headers; the store scopes every row to the
// actor's business, so there is no cross-tenant read path.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	actor := actorFromHeaders(r)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer", Code: "validation_error"})
			return
		}
		limit = n
	}

	listed, err := h.svc.List(r.Context(), actor, limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]appointmentJSON, 0, len(listed))
	for _, appt := range listed {
		out = append(out, toAppointmentJSON(appt, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

type transitionPayload struct {
	Status    string `json:"status"`
	SlotStart string `json:"slot_start"`
	SlotEnd   string `json:"slot_end"`
	Reason    string `json:"reason"`
}

// Transition moves an appointment to a new status for an authenticated
// actor. A confirmed target with a slot payload is a reschedule.
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	var payload transitionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: "validation_error"})
		return
	}

	req := booking.TransitionRequest{
		AppointmentID: r.PathValue("id"),
		Actor:         actorFromHeaders(r),
		NewStatus:     model.Status(payload.Status),
		Reason:        payload.Reason,
	}
	if payload.SlotStart != "" || payload.SlotEnd != "" {
		start, okStart := parseRFC3339(payload.SlotStart)
		end, okEnd := parseRFC3339(payload.SlotEnd)
		if !okStart || !okEnd {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "slot_start and slot_end must be RFC 3339", Code: "validation_error"})
			return
		}
		req.SlotStart = start
		req.SlotEnd = end
	}

	appt, err := h.svc.Transition(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentJSON(appt, false))
}
