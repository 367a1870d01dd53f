package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

var today = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func reservationIn(days int, status model.ReservationStatus) model.Reservation {
	return model.Reservation{
		ID:     "r-1",
		Start:  today.AddDate(0, 0, days),
		End:    today.AddDate(0, 0, days+2),
		Status: status,
	}
}

func TestBand(t *testing.T) {
	tests := []struct {
		days      int
		threshold int
		ok        bool
	}{
		{10, 0, false},
		{8, 0, false},
		{7, 7, true},
		{6, 7, true},
		{5, 7, true},
		{4, 4, true},
		{3, 3, true},
		{1, 3, true},
		{0, 3, true},
		{-1, 0, false},
	}

	for _, tt := range tests {
		threshold, ok := Band(tt.days)
		assert.Equal(t, tt.ok, ok, "days=%d", tt.days)
		assert.Equal(t, tt.threshold, threshold, "days=%d", tt.days)
	}
}

func TestDue_OnlyConfirmed(t *testing.T) {
	_, ok := Due(reservationIn(7, model.ReservationPending), "Cabin X", today)
	assert.False(t, ok)

	_, ok = Due(reservationIn(7, model.ReservationCancelled), "Cabin X", today)
	assert.False(t, ok)

	a, ok := Due(reservationIn(7, model.ReservationConfirmed), "Cabin X", today)
	assert.True(t, ok)
	assert.Equal(t, WeekBefore, a.Threshold)
	assert.Equal(t, model.NotificationAlert, a.Kind)
	assert.Contains(t, a.Message, "7 days")
}

func TestDue_ConfirmationPrompt(t *testing.T) {
	r := reservationIn(4, model.ReservationConfirmed)

	a, ok := Due(r, "Cabin X", today)
	assert.True(t, ok)
	assert.True(t, a.PromptsConfirmation)
	assert.Equal(t, model.NotificationReminder, a.Kind)
	assert.Contains(t, a.Message, "confirm your arrival")

	r.CustomerConfirmed = true
	a, ok = Due(r, "Cabin X", today)
	assert.True(t, ok)
	assert.False(t, a.PromptsConfirmation)
}

func TestDue_LastBandStillPromptsUnconfirmed(t *testing.T) {
	for _, days := range []int{3, 1, 0} {
		r := reservationIn(days, model.ReservationConfirmed)

		a, ok := Due(r, "Cabin X", today)
		assert.True(t, ok, "days=%d", days)
		assert.Equal(t, ThreeDaysBefore, a.Threshold, "days=%d", days)
		assert.True(t, a.PromptsConfirmation, "days=%d", days)
		assert.Equal(t, model.NotificationReminder, a.Kind, "days=%d", days)
		assert.Contains(t, a.Message, "confirm your arrival")

		r.CustomerConfirmed = true
		a, ok = Due(r, "Cabin X", today)
		assert.True(t, ok, "days=%d", days)
		assert.False(t, a.PromptsConfirmation, "days=%d", days)
		assert.Equal(t, model.NotificationAlert, a.Kind, "days=%d", days)
	}
}

func TestDue_WeekBandNeverPrompts(t *testing.T) {
	a, ok := Due(reservationIn(5, model.ReservationConfirmed), "Cabin X", today)
	assert.True(t, ok)
	assert.False(t, a.PromptsConfirmation)
}

func TestDue_TimeOfDayDoesNotMatter(t *testing.T) {
	late := today.Add(23 * time.Hour)
	a, ok := Due(reservationIn(3, model.ReservationConfirmed), "Cabin X", late)
	assert.True(t, ok)
	assert.Equal(t, 3, a.DaysUntilStart)
}
