package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() Reservation {
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	return Reservation{
		DocKey:        "key-1",
		ReservationID: 1741600800000,
		StudentName:   "Ana",
		CIF:           "21-00001",
		Email:         "ana@uamv.edu.ni",
		Subject:       "Cálculo",
		PartySize:     4,
		StartAt:       start,
		EndAt:         start.Add(time.Hour),
	}
}

func TestParseAttendance(t *testing.T) {
	cases := map[string]AttendanceStatus{
		"":             AttendancePending,
		"PENDING":      AttendancePending,
		"PENDIENTE":    AttendancePending,
		"attended":     AttendanceAttended,
		"ASISTENCIA":   AttendanceAttended,
		"NOT_ATTENDED": AttendanceNotAttended,
		"INASISTENCIA": AttendanceNotAttended,
	}
	for in, want := range cases {
		got, err := ParseAttendance(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAttendance("MAYBE")
	assert.Error(t, err)
}

func TestAfterFind_DefaultsMissingAttendance(t *testing.T) {
	r := validRecord()
	require.NoError(t, r.AfterFind(nil))
	assert.Equal(t, AttendancePending, r.Attendance)

	r.Attendance = "INASISTENCIA"
	require.NoError(t, r.AfterFind(nil))
	assert.Equal(t, AttendanceNotAttended, r.Attendance)
}

func TestAfterFind_RejectsMalformed(t *testing.T) {
	mutations := map[string]func(*Reservation){
		"no key":         func(r *Reservation) { r.DocKey = "" },
		"no id":          func(r *Reservation) { r.ReservationID = 0 },
		"no start":       func(r *Reservation) { r.StartAt = time.Time{} },
		"no end":         func(r *Reservation) { r.EndAt = time.Time{} },
		"no party":       func(r *Reservation) { r.PartySize = 0 },
		"bad attendance": func(r *Reservation) { r.Attendance = "LATE" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			r := validRecord()
			mutate(&r)
			assert.ErrorIs(t, r.AfterFind(nil), ErrMalformedReservation)
		})
	}
}

func TestOverlaps(t *testing.T) {
	r := validRecord()

	assert.True(t, r.Overlaps(r.StartAt.Add(30*time.Minute), r.EndAt.Add(30*time.Minute)))
	assert.True(t, r.Overlaps(r.StartAt.Add(-time.Hour), r.EndAt.Add(time.Hour)))
	assert.False(t, r.Overlaps(r.EndAt, r.EndAt.Add(time.Hour)), "touching end is not an overlap")
	assert.False(t, r.Overlaps(r.StartAt.Add(-time.Hour), r.StartAt))
}

func TestExtras(t *testing.T) {
	r := validRecord()
	assert.Equal(t, "", r.Extras())

	r.Whiteboard, r.Computer = true, true
	assert.Equal(t, "Whiteboard, Computer", r.Extras())

	r.Projector = true
	assert.Equal(t, "Whiteboard, Projector, Computer", r.Extras())
}

func TestUserProviders(t *testing.T) {
	u := User{Providers: []string{ProviderGoogle}}
	u.AddProvider(ProviderPassword)
	u.AddProvider(ProviderGoogle)

	assert.Equal(t, []string{ProviderGoogle, ProviderPassword}, []string(u.Providers))
	assert.True(t, u.HasProvider(ProviderPassword))
	assert.False(t, u.HasRole(RoleAdmin))
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "reservation.deleted", ReservationEvent{Action: ActionDeleted}.RoutingKey())
}
