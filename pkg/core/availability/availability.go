// Package availability decides whether a cabin can be booked for a date range.
// It is a pure function over the cabin, its maintenance windows and its reservations.
package availability

import (
	"time"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

type Reason string

const (
	ReasonNone               Reason = ""
	ReasonUnderMaintenance   Reason = "cabin_under_maintenance"
	ReasonMaintenanceWindow  Reason = "maintenance_window"
	ReasonReservationOverlap Reason = "reservation_overlap"
)

// Result explains the outcome of a check. Ref holds the id of the blocking
// maintenance window or reservation so callers can offer an alternative.
type Result struct {
	Available bool   `json:"available"`
	Reason    Reason `json:"reason,omitempty"`
	Ref       string `json:"ref,omitempty"`
}

// Query is a candidate booking. ExcludeReservationID removes the reservation
// being moved from the set it is checked against.
type Query struct {
	Cabin                model.Cabin
	Start                time.Time
	End                  time.Time
	ExcludeReservationID string
}

// Check evaluates q against the given maintenance windows and reservations.
// Windows and reservations belonging to other cabins are ignored.
func Check(q Query, maintenance []model.MaintenanceWindow, reservations []model.Reservation) Result {
	if q.Cabin.Status == model.CabinUnderMaintenance {
		ref := q.Cabin.ID
		if m := currentWindow(q.Cabin.ID, maintenance); m != nil {
			ref = m.ID
		}
		return Result{Reason: ReasonUnderMaintenance, Ref: ref}
	}

	start, end := model.Day(q.Start), model.Day(q.End)

	for _, m := range maintenance {
		if m.CabinID != q.Cabin.ID || !m.IsActive() {
			continue
		}
		if maintenanceBlocks(m, start, end) {
			return Result{Reason: ReasonMaintenanceWindow, Ref: m.ID}
		}
	}

	for _, r := range reservations {
		if r.CabinID != q.Cabin.ID || r.ID == q.ExcludeReservationID || !r.HoldsCabin() {
			continue
		}
		if Overlaps(r.Start, r.End, start, end) {
			return Result{Reason: ReasonReservationOverlap, Ref: r.ID}
		}
	}

	return Result{Available: true}
}

// IsAvailable is Check reduced to a bool
func IsAvailable(q Query, maintenance []model.MaintenanceWindow, reservations []model.Reservation) bool {
	return Check(q, maintenance, reservations).Available
}

// Overlaps compares two stays inclusively at both ends, so a stay ending on the
// day another begins still conflicts and leaves a turnover day between guests.
func Overlaps(existingStart, existingEnd, start, end time.Time) bool {
	return !model.Day(existingStart).After(model.Day(end)) && !model.Day(existingEnd).Before(model.Day(start))
}

// An un-executed window blocks everything from its scheduled date onward;
// an executed one blocks from its execution date onward.
func maintenanceBlocks(m model.MaintenanceWindow, start, end time.Time) bool {
	if m.ExecutionDate == nil {
		return !model.Day(m.ScheduledDate).After(end)
	}
	return !model.Day(*m.ExecutionDate).Before(start)
}

// currentWindow picks the window most likely holding the cabin: one in
// progress, otherwise the earliest scheduled one.
func currentWindow(cabinID string, maintenance []model.MaintenanceWindow) *model.MaintenanceWindow {
	var found *model.MaintenanceWindow
	for i, m := range maintenance {
		if m.CabinID != cabinID || !m.IsActive() {
			continue
		}
		if m.Status == model.MaintenanceInProgress {
			return &maintenance[i]
		}
		if found == nil || m.ScheduledDate.Before(found.ScheduledDate) {
			found = &maintenance[i]
		}
	}
	return found
}
