// Package alerts derives pre-arrival alerts from the days left before a reservation starts.
// Nothing here is stored or scheduled; callers re-evaluate on read and record what they sent.
package alerts

import (
	"fmt"
	"time"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

const (
	WeekBefore = 7
	// ConfirmationWindow is also the number of days before arrival when the customer may confirm
	ConfirmationWindow = 4
	ThreeDaysBefore    = 3
)

// Thresholds in descending order. Each one owns the band of days down to the next threshold.
var Thresholds = []int{WeekBefore, ConfirmationWindow, ThreeDaysBefore}

// Alert is one due pre-arrival notification
type Alert struct {
	Threshold      int
	DaysUntilStart int
	Kind           model.NotificationKind
	Message        string
	// PromptsConfirmation is set for the alert asking the customer to confirm arrival
	PromptsConfirmation bool
}

// Band returns the threshold whose band contains days, or false if none does
func Band(days int) (int, bool) {
	if days < 0 {
		return 0, false
	}
	for i, t := range Thresholds {
		lower := 0
		if i+1 < len(Thresholds) {
			lower = Thresholds[i+1] + 1
		}
		if days <= t && days >= lower {
			return t, true
		}
	}
	return 0, false
}

// Due returns the alert owed for the reservation today, if any. Only confirmed
// reservations get alerts.
func Due(r model.Reservation, cabinName string, today time.Time) (Alert, bool) {
	if r.Status != model.ReservationConfirmed {
		return Alert{}, false
	}

	days := r.DaysUntilStart(today)
	threshold, ok := Band(days)
	if !ok {
		return Alert{}, false
	}

	a := Alert{
		Threshold:      threshold,
		DaysUntilStart: days,
		Kind:           model.NotificationAlert,
		Message:        fmt.Sprintf("Your reservation at %s starts in %s", cabinName, dayCount(days)),
	}

	// from the confirmation window on, every alert asks until the customer confirms
	if threshold <= ConfirmationWindow && !r.CustomerConfirmed {
		a.Kind = model.NotificationReminder
		a.PromptsConfirmation = true
		a.Message = fmt.Sprintf("Your reservation at %s starts in %s. Please confirm your arrival so we can prepare the cabin.",
			cabinName, dayCount(days))
	}

	return a, true
}

func dayCount(days int) string {
	switch days {
	case 0:
		return "less than a day"
	case 1:
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
