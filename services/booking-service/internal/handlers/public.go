package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bookwell/services/booking-service/internal/booking"
	"bookwell/services/booking-service/internal/model"
	"bookwell/services/booking-service/internal/slots"
	"bookwell/services/booking-service/internal/storage"
)

type Handler struct {
	svc    *booking.Service
	slots  slots.Source
	idem   *storage.IdempotencyRepository
	logger *slog.Logger
}

func New(svc *booking.Service, slotSource slots.Source, idem *storage.IdempotencyRepository, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, slots: slotSource, idem: idem, logger: logger}
}

// Register mounts both the anonymous booking-page surface and the
// header-authenticated tenant surface on mux. The gateway only forwards
// /api/v1/appointments once the JWT checks out, so the split is enforced
// upstream of this process.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/public/slots", h.ListSlots)
	mux.HandleFunc("POST /api/v1/public/bookings", h.Book)
	mux.HandleFunc("GET /api/v1/public/appointments/{token}", h.ViewByToken)
	mux.HandleFunc("POST /api/v1/public/appointments/{token}/cancel", h.CancelByToken)
	mux.HandleFunc("POST /api/v1/public/appointments/{token}/reschedule", h.RescheduleByToken)

	mux.HandleFunc("GET /api/v1/appointments", h.ListAppointments)
	mux.HandleFunc("POST /api/v1/appointments/{id}/transition", h.Transition)
}

func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	listed, err := h.slots.List(r.Context(), slots.Query{
		BusinessID: q.Get("business_id"),
		StaffID:    q.Get("staff_id"),
		ServiceID:  q.Get("service_id"),
		Date:       q.Get("date"),
		Timezone:   q.Get("timezone"),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	type slotJSON struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	out := make([]slotJSON, 0, len(listed))
	for _, s := range listed {
		out = append(out, slotJSON{
			Start: s.Start.Format(time.RFC3339),
			End:   s.End.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

type bookPayload struct {
	BusinessID string `json:"business_id"`
	ServiceID  string `json:"service_id"`
	StaffID    string `json:"staff_id"`
	SlotStart  string `json:"slot_start"`
	SlotEnd    string `json:"slot_end"`
	Customer   struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		IdentityID string `json:"identity_id"`
	} `json:"customer"`
}

func (p bookPayload) toRequest() (booking.BookRequest, error) {
	req := booking.BookRequest{
		BusinessID: strings.TrimSpace(p.BusinessID),
		ServiceID:  strings.TrimSpace(p.ServiceID),
		StaffID:    strings.TrimSpace(p.StaffID),
		Customer: booking.CustomerInfo{
			Name:       p.Customer.Name,
			Email:      p.Customer.Email,
			Phone:      p.Customer.Phone,
			IdentityID: p.Customer.IdentityID,
		},
	}
	if p.SlotStart != "" {
		start, ok := parseRFC3339(p.SlotStart)
		if !ok {
			return booking.BookRequest{}, validationError("slot_start must be RFC 3339")
		}
		req.SlotStart = start
	}
	if p.SlotEnd != "" {
		end, ok := parseRFC3339(p.SlotEnd)
		if !ok {
			return booking.BookRequest{}, validationError("slot_end must be RFC 3339")
		}
		req.SlotEnd = end
	}
	return req, nil
}

// Book creates a confirmed appointment. With an Idempotency-Key header the
// stored response is replayed on retry; without one every request books.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var payload bookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: "validation_error"})
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" || h.idem == nil {
		appt, err := h.svc.Book(r.Context(), req)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentJSON(appt, true))
		return
	}

	h.bookIdempotent(w, r, req, key)
}

func (h *Handler) bookIdempotent(w http.ResponseWriter, r *http.Request, req booking.BookRequest, key string) {
	ctx := r.Context()
	tx, err := h.idem.Begin(ctx)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	defer tx.Rollback(ctx)

	rec, err := h.idem.Lock(ctx, tx, req.BusinessID, key)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if rec.StatusCode != 0 {
		// A finished attempt replays verbatim, whatever the outcome was.
		// This includes a claim inserted by a racing duplicate that
		// finalized while we waited for its lock.
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotency-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.ResponsePayload)
		return
	}

	appt, err := h.svc.Book(ctx, req)
	if err != nil {
		// The claim rolls back with the tx, so the caller may retry the key.
		h.writeDomainError(w, err)
		return
	}

	body, err := json.Marshal(toAppointmentJSON(appt, true))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := h.idem.Finalize(ctx, tx, req.BusinessID, key, appt.ID, http.StatusCreated, body); err != nil {
		h.logger.Error("idempotency finalize failed", "key", key, "err", err)
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("idempotency commit failed", "key", key, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *Handler) ViewByToken(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.ByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewJSON(view))
}

func (h *Handler) CancelByToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: "validation_error"})
			return
		}
	}

	appt, err := h.svc.Transition(r.Context(), booking.TransitionRequest{
		PublicToken: r.PathValue("token"),
		NewStatus:   model.StatusCancelled,
		Reason:      payload.Reason,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentJSON(appt, false))
}

func (h *Handler) RescheduleByToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SlotStart string `json:"slot_start"`
		SlotEnd   string `json:"slot_end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: "validation_error"})
		return
	}
	start, okStart := parseRFC3339(payload.SlotStart)
	end, okEnd := parseRFC3339(payload.SlotEnd)
	if !okStart || !okEnd {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "slot_start and slot_end must be RFC 3339", Code: "validation_error"})
		return
	}

	appt, err := h.svc.Transition(r.Context(), booking.TransitionRequest{
		PublicToken: r.PathValue("token"),
		NewStatus:   model.StatusConfirmed,
		SlotStart:   start,
		SlotEnd:     end,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentJSON(appt, false))
}

func viewJSON(v booking.View) map[string]any {
	return map[string]any{
		"appointment": toAppointmentJSON(v.Appointment, false),
		"business": map[string]any{
			"name":     v.Business.Name,
			"timezone": v.Business.Timezone,
		},
		"service": map[string]any{
			"name":          v.Service.Name,
			"duration_mins": v.Service.DurationMins,
		},
		"staff": map[string]any{
			"name": v.Staff.Name,
		},
	}
}
