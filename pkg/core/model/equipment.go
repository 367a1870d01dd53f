package model

import "time"

type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentOutOfStock  EquipmentStatus = "out_of_stock"
	EquipmentMaintenance EquipmentStatus = "maintenance"
)

func (s EquipmentStatus) IsValid() bool {
	switch s {
	case EquipmentAvailable, EquipmentOutOfStock, EquipmentMaintenance:
		return true
	}
	return false
}

// Equipment is a stock of lendable items such as kayaks or grills.
// Available never exceeds Total.
type Equipment struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Total       int             `json:"total"`
	Available   int             `json:"available"`
	Status      EquipmentStatus `json:"status"`
}

// Lendable reports whether qty units can go out now
func (e Equipment) Lendable(qty int) bool {
	return e.Status == EquipmentAvailable && qty > 0 && qty <= e.Available
}

// Take removes qty units from stock and marks the item out of stock when none are left.
// The caller checks Lendable first.
func (e *Equipment) Take(qty int) {
	e.Available -= qty
	e.refresh()
}

// Restore puts qty units back, never above Total
func (e *Equipment) Restore(qty int) {
	e.Available = min(e.Available+qty, e.Total)
	e.refresh()
}

// SetUnderMaintenance takes the item out of circulation, or puts it back with
// a status matching its stock
func (e *Equipment) SetUnderMaintenance(on bool) {
	if on {
		e.Status = EquipmentMaintenance
		return
	}
	e.Status = EquipmentAvailable
	e.refresh()
}

// items under maintenance keep that status whatever the stock
func (e *Equipment) refresh() {
	switch {
	case e.Status == EquipmentMaintenance:
	case e.Available <= 0:
		e.Status = EquipmentOutOfStock
	default:
		e.Status = EquipmentAvailable
	}
}

// EquipmentLoan is equipment lent to a guest during a stay
type EquipmentLoan struct {
	ID            string     `json:"id"`
	ReservationID string     `json:"reservation_id"`
	EquipmentID   string     `json:"equipment_id"`
	Quantity      int        `json:"quantity"`
	LentOn        time.Time  `json:"lent_on"`
	ReturnedOn    *time.Time `json:"returned_on,omitempty"`
	Returned      bool       `json:"returned"`
}
