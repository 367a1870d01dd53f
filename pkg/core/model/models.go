package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CabinStatus is the derived operational state of a cabin
type CabinStatus string

const (
	CabinReady            CabinStatus = "ready"
	CabinInPreparation    CabinStatus = "in_preparation"
	CabinPendingIssue     CabinStatus = "pending_issue"
	CabinUnderMaintenance CabinStatus = "under_maintenance"
	CabinOccupied         CabinStatus = "occupied"
)

func (s CabinStatus) IsValid() bool {
	switch s {
	case CabinReady, CabinInPreparation, CabinPendingIssue, CabinUnderMaintenance, CabinOccupied:
		return true
	}
	return false
}

// Cabin represents a rentable unit
type Cabin struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Capacity     int             `json:"capacity"`
	NightlyPrice decimal.Decimal `json:"nightly_price"`
	Status       CabinStatus     `json:"status"`
}

type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceDone       MaintenanceStatus = "done"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

type MaintenanceKind string

const (
	MaintenancePreventive MaintenanceKind = "preventive"
	MaintenanceCorrective MaintenanceKind = "corrective"
	MaintenanceCleaning   MaintenanceKind = "cleaning"
	MaintenanceRepair     MaintenanceKind = "repair"
)

func (k MaintenanceKind) IsValid() bool {
	switch k {
	case MaintenancePreventive, MaintenanceCorrective, MaintenanceCleaning, MaintenanceRepair:
		return true
	}
	return false
}

// MaintenanceWindow represents a scheduled or executed maintenance of a cabin
type MaintenanceWindow struct {
	ID            string            `json:"id"`
	CabinID       string            `json:"cabin_id"`
	Kind          MaintenanceKind   `json:"kind"`
	Description   string            `json:"description"`
	ScheduledDate time.Time         `json:"scheduled_date"`
	ExecutionDate *time.Time        `json:"execution_date,omitempty"` // nil until executed
	Status        MaintenanceStatus `json:"status"`
}

// IsActive reports whether the maintenance still affects the cabin
func (m MaintenanceWindow) IsActive() bool {
	return m.Status == MaintenanceScheduled || m.Status == MaintenanceInProgress
}

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCancelled, ReservationCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationCancelled || s == ReservationCompleted
}

// Reservation represents a customer's booking of a cabin for [Start, End) in whole days
type Reservation struct {
	ID                  string            `json:"id"`
	CustomerID          string            `json:"customer_id"`
	CabinID             string            `json:"cabin_id"`
	Start               time.Time         `json:"start"`
	End                 time.Time         `json:"end"`
	Guests              int               `json:"guests"`
	Status              ReservationStatus `json:"status"`
	Amount              decimal.Decimal   `json:"amount"`
	CustomerConfirmed   bool              `json:"customer_confirmed"`
	CustomerConfirmedAt *time.Time        `json:"customer_confirmed_at,omitempty"`
	Comments            string            `json:"comments"`
	CreatedAt           time.Time         `json:"created_at"`
}

// Nights returns the number of nights between start and end
func (r Reservation) Nights() int {
	return DaysBetween(r.Start, r.End)
}

// HoldsCabin reports whether the reservation takes part in availability checks
func (r Reservation) HoldsCabin() bool {
	return r.Status == ReservationPending || r.Status == ReservationConfirmed
}

// DaysUntilStart returns the whole days from today until the first night
func (r Reservation) DaysUntilStart(today time.Time) int {
	return DaysBetween(today, r.Start)
}

// CoversDay reports whether day falls between check-in and check-out, both included
func (r Reservation) CoversDay(day time.Time) bool {
	day = Day(day)
	return !day.Before(Day(r.Start)) && !day.After(Day(r.End))
}

// Customer represents a registered customer; ID doubles as the notification user ref
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
