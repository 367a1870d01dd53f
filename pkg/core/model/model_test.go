package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 1, 22, 30, 0, 0, time.UTC)
	b := time.Date(2025, 3, 5, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 4, DaysBetween(a, b))
	assert.Equal(t, -4, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a.Add(time.Hour)))
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDay("01/03/2025")
	assert.Error(t, err)
}

func TestReservation_Nights(t *testing.T) {
	r := Reservation{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 3, r.Nights())
	assert.Equal(t, 2, r.DaysUntilStart(time.Date(2025, 2, 27, 18, 0, 0, 0, time.UTC)))
}

func TestErrorKinds(t *testing.T) {
	err := Conflictf("CreateReservation", "r-1", "cabin already booked")
	assert.Equal(t, "CreateReservation: cabin already booked (ref r-1)", err.Error())

	wrapped := fmt.Errorf("saving: %w", err)
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindConflict))
	assert.False(t, IsKind(wrapped, KindState))

	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
	assert.Equal(t, "GetCabin: cabin not found (ref c-9)", NotFound("GetCabin", "cabin", "c-9").Error())
	assert.Equal(t, "Cancel: bad state", Statef("Cancel", "bad %s", "state").Error())
}

func TestActor_Is(t *testing.T) {
	a := Actor{ID: "u-1", Role: RoleOperations}
	assert.True(t, a.Is(RoleAdmin, RoleOperations))
	assert.False(t, a.Is(RoleCustomer))
	assert.False(t, Role("guest").IsValid())
}
