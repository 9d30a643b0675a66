package slots

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"bookwell/services/booking-service/internal/booking"
)

func TestNormalizeSortsAndDedups(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2026, 9, 7, h, 0, 0, 0, time.UTC) }
	in := []Slot{
		{Start: at(11), End: at(12)},
		{Start: at(9), End: at(10)},
		{Start: at(11), End: at(12)},
		{Start: at(10), End: at(11)},
	}

	out := Normalize(in)
	require.Len(t, out, 3)
	require.True(t, out[0].Start.Equal(at(9)))
	require.True(t, out[1].Start.Equal(at(10)))
	require.True(t, out[2].Start.Equal(at(11)))
}

func TestNormalizeEmpty(t *testing.T) {
	require.Nil(t, Normalize(nil))
	require.Nil(t, Normalize([]Slot{}))
}

func TestListValidation(t *testing.T) {
	src := NewProcedureSource(nil)

	cases := map[string]Query{
		"missing business": {StaffID: "s", ServiceID: "v", Date: "2026-09-07"},
		"missing staff":    {BusinessID: "b", ServiceID: "v", Date: "2026-09-07"},
		"missing service":  {BusinessID: "b", StaffID: "s", Date: "2026-09-07"},
		"missing date":     {BusinessID: "b", StaffID: "s", ServiceID: "v"},
		"bad date":         {BusinessID: "b", StaffID: "s", ServiceID: "v", Date: "07.09.2026"},
		"bad timezone":     {BusinessID: "b", StaffID: "s", ServiceID: "v", Date: "2026-09-07", Timezone: "Mars/Olympus"},
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := src.List(context.Background(), q)
			require.ErrorIs(t, err, booking.ErrValidation)
		})
	}
}

func TestListQueriesFunction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"slot_start", "slot_end"}).
		AddRow(start.Add(time.Hour), start.Add(90*time.Minute)).
		AddRow(start, start.Add(30*time.Minute))
	mock.ExpectQuery("FROM get_available_slots").
		WithArgs("biz-1", "staff-1", "svc-1", "2026-09-07", "Europe/Berlin").
		WillReturnRows(rows)

	src := NewProcedureSource(mock)
	listed, err := src.List(context.Background(), Query{
		BusinessID: "biz-1",
		StaffID:    "staff-1",
		ServiceID:  "svc-1",
		Date:       "2026-09-07",
		Timezone:   "Europe/Berlin",
	})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.True(t, listed[0].Start.Equal(start))
	require.NoError(t, mock.ExpectationsWereMet())
}
