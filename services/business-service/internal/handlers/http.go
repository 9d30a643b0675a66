package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"bookwell/services/business-service/internal/storage"
)

type Handler struct {
	repo *storage.Repository
}

func New(repo *storage.Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/business", h.CreateBusiness)
	mux.HandleFunc("GET /api/v1/business", h.GetBusiness)
	mux.HandleFunc("PUT /api/v1/business", h.UpdateBusiness)
	mux.HandleFunc("DELETE /api/v1/business", h.DeleteBusiness)

	mux.HandleFunc("POST /api/v1/business/services", h.CreateService)
	mux.HandleFunc("GET /api/v1/business/services", h.ListServices)

	mux.HandleFunc("POST /api/v1/business/staff", h.CreateStaff)
	mux.HandleFunc("GET /api/v1/business/staff", h.ListStaff)
	mux.HandleFunc("PATCH /api/v1/business/staff/{id}", h.UpdateStaff)
	mux.HandleFunc("GET /api/v1/business/staff/{id}/working-hours", h.ListWorkingHours)
	mux.HandleFunc("PUT /api/v1/business/staff/{id}/working-hours", h.SetWorkingHours)
	mux.HandleFunc("POST /api/v1/business/staff/{id}/time-off", h.CreateTimeOff)
	mux.HandleFunc("GET /api/v1/business/staff/{id}/time-off", h.ListTimeOff)
	mux.HandleFunc("DELETE /api/v1/business/time-off/{id}", h.DeleteTimeOff)
}

func businessIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Business-Id"))
}

func userIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		writeError(w, http.StatusConflict, "already exists")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func slugify(name string) string {
	var b strings.Builder
	prevDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (h *Handler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromHeader(r)
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "missing X-User-Id")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Slug     string `json:"slug"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	req.Slug = strings.TrimSpace(req.Slug)
	if req.Slug == "" {
		req.Slug = slugify(req.Name)
	}
	if req.Slug == "" {
		writeError(w, http.StatusBadRequest, "slug could not be derived from name")
		return
	}
	req.Timezone = strings.TrimSpace(req.Timezone)
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		writeError(w, http.StatusBadRequest, "unknown timezone")
		return
	}

	b, err := h.repo.CreateBusiness(r.Context(), req.Slug, req.Name, req.Timezone, ownerID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":       b.ID,
		"slug":     b.Slug,
		"name":     b.Name,
		"timezone": b.Timezone,
	})
}

func (h *Handler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}

	b, err := h.repo.GetBusiness(r.Context(), businessID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":         b.ID,
		"slug":       b.Slug,
		"name":       b.Name,
		"timezone":   b.Timezone,
		"created_at": b.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	req.Timezone = strings.TrimSpace(req.Timezone)
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		writeError(w, http.StatusBadRequest, "unknown timezone")
		return
	}

	if err := h.repo.UpdateBusiness(r.Context(), businessID, req.Name, req.Timezone); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteBusiness(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}
	if err := h.repo.SoftDeleteBusiness(r.Context(), businessID); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}

	var req struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		DurationMins int    `json:"duration_minutes"`
		PriceCents   int    `json:"price_cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.DurationMins <= 0 {
		writeError(w, http.StatusBadRequest, "name and duration_minutes required")
		return
	}
	if req.PriceCents < 0 {
		writeError(w, http.StatusBadRequest, "price_cents must not be negative")
		return
	}

	id, err := h.repo.CreateService(r.Context(), businessID, req.Name, strings.TrimSpace(req.Description), req.DurationMins, req.PriceCents)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}

	services, err := h.repo.ListServices(r.Context(), businessID, 100)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(services))
	for _, s := range services {
		out = append(out, map[string]any{
			"id":               s.ID,
			"name":             s.Name,
			"description":      s.Description,
			"duration_minutes": s.DurationMins,
			"price_cents":      s.PriceCents,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"services": out})
}

func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}

	var req struct {
		Name       string `json:"name"`
		IdentityID string `json:"identity_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := h.repo.CreateStaff(r.Context(), businessID, req.Name, strings.TrimSpace(req.IdentityID))
	if err != nil {
		writeStorageError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
}

func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}

	staff, err := h.repo.ListStaff(r.Context(), businessID, 100)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(staff))
	for _, s := range staff {
		out = append(out, map[string]any{
			"id":        s.ID,
			"name":      s.Name,
			"is_active": s.IsActive,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"staff": out})
}

func (h *Handler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}

	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "is_active is required")
		return
	}

	if err := h.repo.SetStaffActive(r.Context(), businessID, r.PathValue("id"), *req.IsActive); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListWorkingHours(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}

	windows, err := h.repo.ListWorkingHours(r.Context(), businessID, r.PathValue("id"))
	if err != nil {
		writeStorageError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(windows))
	for _, win := range windows {
		out = append(out, map[string]any{
			"weekday":    win.Weekday,
			"start_time": win.StartTime,
			"end_time":   win.EndTime,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"working_hours": out})
}

func (h *Handler) SetWorkingHours(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}

	var req struct {
		Weekday int `json:"weekday"`
		Windows []struct {
			StartTime string `json:"start_time"`
			EndTime   string `json:"end_time"`
		} `json:"windows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		writeError(w, http.StatusBadRequest, "weekday must be between 0 and 6")
		return
	}

	windows := make([]storage.WorkingWindow, 0, len(req.Windows))
	for _, win := range req.Windows {
		start, errStart := time.Parse("15:04", win.StartTime)
		end, errEnd := time.Parse("15:04", win.EndTime)
		if errStart != nil || errEnd != nil || !end.After(start) {
			writeError(w, http.StatusBadRequest, "windows must be HH:MM with end after start")
			return
		}
		windows = append(windows, storage.WorkingWindow{
			Weekday:   req.Weekday,
			StartTime: win.StartTime,
			EndTime:   win.EndTime,
		})
	}

	if err := h.repo.SetWorkingHours(r.Context(), businessID, r.PathValue("id"), req.Weekday, windows); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateTimeOff(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}

	var req struct {
		StartsAt string `json:"starts_at"`
		EndsAt   string `json:"ends_at"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartsAt))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid starts_at")
		return
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndsAt))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ends_at")
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "ends_at must be after starts_at")
		return
	}

	id, err := h.repo.CreateTimeOff(r.Context(), businessID, r.PathValue("id"), start.UTC(), end.UTC(), strings.TrimSpace(req.Reason))
	if err != nil {
		writeStorageError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
}

func (h *Handler) ListTimeOff(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}

	from, errFrom := time.Parse(time.RFC3339, strings.TrimSpace(r.URL.Query().Get("from")))
	to, errTo := time.Parse(time.RFC3339, strings.TrimSpace(r.URL.Query().Get("to")))
	if errFrom != nil || errTo != nil || !to.After(from) {
		writeError(w, http.StatusBadRequest, "from and to are required (RFC3339, to after from)")
		return
	}

	items, err := h.repo.ListTimeOff(r.Context(), businessID, r.PathValue("id"), from.UTC(), to.UTC(), 100)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, t := range items {
		out = append(out, map[string]any{
			"id":        t.ID,
			"staff_id":  t.StaffID,
			"starts_at": t.StartsAt.UTC().Format(time.RFC3339),
			"ends_at":   t.EndsAt.UTC().Format(time.RFC3339),
			"reason":    t.Reason,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"time_off": out})
}

func (h *Handler) DeleteTimeOff(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Business-Id")
		return
	}
	if err := h.repo.DeleteTimeOff(r.Context(), businessID, r.PathValue("id")); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
