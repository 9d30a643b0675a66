package slots

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bookwell/libs/db"
	"bookwell/services/booking-service/internal/booking"
)

// Slot is one bookable interval as computed by the database-side
// get_available_slots function. Instants are UTC.
type Slot struct {
	Start time.Time
	End   time.Time
}

type Query struct {
	BusinessID string
	StaffID    string
	ServiceID  string
	Date       string // YYYY-MM-DD, interpreted in Timezone
	Timezone   string // IANA name; empty means the business's stored timezone
}

// Source lists candidate free slots. The listing is advisory: the
// read-then-book gap is closed by the appointments exclusion constraint,
// not by re-checking here.
type Source interface {
	List(ctx context.Context, q Query) ([]Slot, error)
}

// ProcedureSource delegates the free/busy arithmetic to the
// get_available_slots SQL function and only normalizes its output.
type ProcedureSource struct {
	q db.Querier
}

func NewProcedureSource(q db.Querier) *ProcedureSource {
	return &ProcedureSource{q: q}
}

func (s *ProcedureSource) List(ctx context.Context, q Query) ([]Slot, error) {
	if q.BusinessID == "" || q.StaffID == "" || q.ServiceID == "" || q.Date == "" {
		return nil, fmt.Errorf("business, staff, service and date are required: %w", booking.ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", q.Date); err != nil {
		return nil, fmt.Errorf("date must be YYYY-MM-DD: %w", booking.ErrValidation)
	}
	if q.Timezone != "" {
		if _, err := time.LoadLocation(q.Timezone); err != nil {
			return nil, fmt.Errorf("unknown timezone %q: %w", q.Timezone, booking.ErrValidation)
		}
	}

	rows, err := s.q.Query(ctx, `
		SELECT slot_start, slot_end
		FROM get_available_slots($1, $2, $3, $4, $5)
	`, q.BusinessID, q.StaffID, q.ServiceID, q.Date, q.Timezone)
	if err != nil {
		return nil, fmt.Errorf("get_available_slots: %w", booking.ErrDataStore)
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var slot Slot
		if err := rows.Scan(&slot.Start, &slot.End); err != nil {
			return nil, fmt.Errorf("get_available_slots scan: %w", booking.ErrDataStore)
		}
		out = append(out, Slot{Start: slot.Start.UTC(), End: slot.End.UTC()})
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("get_available_slots rows: %w", booking.ErrDataStore)
	}
	return Normalize(out), nil
}

// Normalize sorts slots by start time and removes exact duplicates. The
// SQL function can emit the same interval twice when availability windows
// touch; callers always see a strictly increasing, deduplicated list.
func Normalize(in []Slot) []Slot {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool {
		if !in[i].Start.Equal(in[j].Start) {
			return in[i].Start.Before(in[j].Start)
		}
		return in[i].End.Before(in[j].End)
	})
	out := in[:1]
	for _, s := range in[1:] {
		last := out[len(out)-1]
		if s.Start.Equal(last.Start) && s.End.Equal(last.End) {
			continue
		}
		out = append(out, s)
	}
	return out
}
