package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChecklistItem is a catalog entry describing expected cabin inventory
type ChecklistItem struct {
	ID               string          `json:"id"`
	CabinID          string          `json:"cabin_id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	ExpectedQuantity int             `json:"expected_quantity"`
	Mandatory        bool            `json:"mandatory"`
	ReplacementPrice decimal.Decimal `json:"replacement_price"`
	Order            int             `json:"order"`
}

// PreparationTask is a standard turnover task
type PreparationTask struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Mandatory   bool   `json:"mandatory"`
	Order       int    `json:"order"`
}

type PreparationStatus string

const (
	PreparationPending    PreparationStatus = "pending"
	PreparationInProgress PreparationStatus = "in_progress"
	PreparationCompleted  PreparationStatus = "completed"
	PreparationHasIssues  PreparationStatus = "has_issues"
)

// PreparationRecord tracks the turnover of a cabin ahead of a reservation
type PreparationRecord struct {
	ID            string            `json:"id"`
	ReservationID string            `json:"reservation_id"`
	CabinID       string            `json:"cabin_id"`
	OperatorID    string            `json:"operator_id"`
	Status        PreparationStatus `json:"status"`
	StartedAt     *time.Time        `json:"started_at,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	Observations  string            `json:"observations"`
	Tasks         []TaskCompletion  `json:"tasks,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// TaskCompletion is the per-record state of one catalog task
type TaskCompletion struct {
	TaskID      string     `json:"task_id"`
	TaskName    string     `json:"task_name"`
	Order       int        `json:"order"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type ItemCondition string

const (
	ConditionGood    ItemCondition = "good"
	ConditionFair    ItemCondition = "fair"
	ConditionDamaged ItemCondition = "damaged"
	ConditionMissing ItemCondition = "missing"
)

func (c ItemCondition) IsValid() bool {
	switch c {
	case ConditionGood, ConditionFair, ConditionDamaged, ConditionMissing:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryReturned  DeliveryStatus = "returned"
	DeliveryVerified  DeliveryStatus = "verified"
)

// DeliveryRecord is the per-stay inventory handover record. One per reservation.
type DeliveryRecord struct {
	ID                       string             `json:"id"`
	ReservationID            string             `json:"reservation_id"`
	CabinID                  string             `json:"cabin_id"`
	Status                   DeliveryStatus     `json:"status"`
	DeliveredAt              *time.Time         `json:"delivered_at,omitempty"`
	DeliveredBy              string             `json:"delivered_by"`
	Signature                string             `json:"signature"`
	ReturnedAt               *time.Time         `json:"returned_at,omitempty"`
	CustomerConfirmsDelivery bool               `json:"customer_confirms_delivery"`
	CustomerConfirmsReturn   bool               `json:"customer_confirms_return"`
	DeliveryNotes            string             `json:"delivery_notes"`
	ReturnNotes              string             `json:"return_notes"`
	Items                    []VerificationItem `json:"items,omitempty"`
	CreatedAt                time.Time          `json:"created_at"`
}

// TotalCharge sums the item charges
func (d DeliveryRecord) TotalCharge() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.Charge)
	}
	return total
}

// VerificationItem records what was handed over and returned for one checklist item
type VerificationItem struct {
	ID                  string          `json:"id"`
	ChecklistItemID     string          `json:"checklist_item_id"`
	Name                string          `json:"name"`
	ReplacementPrice    decimal.Decimal `json:"replacement_price"`
	QuantityDelivered   int             `json:"quantity_delivered"`
	QuantityReturned    int             `json:"quantity_returned"`
	ConditionAtDelivery ItemCondition   `json:"condition_at_delivery"`
	ConditionAtReturn   ItemCondition   `json:"condition_at_return"` // empty until check-out
	Charge              decimal.Decimal `json:"charge"`
	RequiresReplacement bool            `json:"requires_replacement"`
}

type ReportStatus string

const (
	ReportPending      ReportStatus = "pending"
	ReportAcknowledged ReportStatus = "acknowledged"
	ReportResolved     ReportStatus = "resolved"
)

// MissingItemReport is an escalation raised by operations staff
type MissingItemReport struct {
	ID              string       `json:"id"`
	CabinID         string       `json:"cabin_id"`
	PreparationID   string       `json:"preparation_id"` // empty when raised outside a preparation
	RaisedBy        string       `json:"raised_by"`
	Description     string       `json:"description"`
	Critical        bool         `json:"critical"`
	Status          ReportStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	AcknowledgedAt  *time.Time   `json:"acknowledged_at,omitempty"`
	ResolvedAt      *time.Time   `json:"resolved_at,omitempty"`
	ResolvedBy      string       `json:"resolved_by"`
	ResolutionNotes string       `json:"resolution_notes"`
}

// IsOpen reports whether the report still blocks the cabin
func (r MissingItemReport) IsOpen() bool {
	return r.Status == ReportPending
}
