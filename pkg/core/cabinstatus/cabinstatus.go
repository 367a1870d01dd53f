// Package cabinstatus derives a cabin's status from the state of the workflows touching it.
package cabinstatus

import (
	"time"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

// Stay is a reservation on the cabin together with its turnover records, if created
type Stay struct {
	Reservation model.Reservation
	Preparation *model.PreparationRecord
	Delivery    *model.DeliveryRecord
}

// Inputs is everything Derive reads. Entries for other cabins must be filtered out by the caller.
type Inputs struct {
	// Today decides which scheduled maintenance windows have started
	Today       time.Time
	Maintenance []model.MaintenanceWindow
	Reports     []model.MissingItemReport
	Stays       []Stay
}

// Derive computes the cabin status. Precedence, highest first:
// under_maintenance, pending_issue, occupied, in_preparation, ready.
func Derive(in Inputs) model.CabinStatus {
	if InEffect(in.Maintenance, in.Today) != nil {
		return model.CabinUnderMaintenance
	}

	if HasOpenCritical(in.Reports) {
		return model.CabinPendingIssue
	}

	for _, s := range in.Stays {
		if s.Reservation.Status != model.ReservationConfirmed || s.Delivery == nil {
			continue
		}
		if s.Delivery.Status == model.DeliveryDelivered || s.Delivery.Status == model.DeliveryReturned {
			return model.CabinOccupied
		}
	}

	for _, s := range in.Stays {
		if inPreparation(s) {
			return model.CabinInPreparation
		}
	}

	return model.CabinReady
}

// InEffect returns the first window keeping the cabin under maintenance today:
// one in progress, or one still scheduled whose date has arrived. Windows
// scheduled for a later day only block bookings that reach them.
func InEffect(windows []model.MaintenanceWindow, today time.Time) *model.MaintenanceWindow {
	today = model.Day(today)
	for i, m := range windows {
		switch m.Status {
		case model.MaintenanceInProgress:
			return &windows[i]
		case model.MaintenanceScheduled:
			if !model.Day(m.ScheduledDate).After(today) {
				return &windows[i]
			}
		}
	}
	return nil
}

// HasOpenCritical reports whether any report is both critical and still open
func HasOpenCritical(reports []model.MissingItemReport) bool {
	for _, r := range reports {
		if r.Critical && r.IsOpen() {
			return true
		}
	}
	return false
}

func inPreparation(s Stay) bool {
	if s.Reservation.Status != model.ReservationConfirmed || !s.Reservation.CustomerConfirmed {
		return false
	}
	if s.Delivery != nil && s.Delivery.Status != model.DeliveryPending {
		return false
	}
	return s.Preparation == nil || s.Preparation.Status != model.PreparationCompleted
}
