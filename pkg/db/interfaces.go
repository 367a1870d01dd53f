package db

import (
	"context"
	"errors"
	"time"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

// ErrNotFound is returned by Get* methods when no row matches
var ErrNotFound = errors.New("not found")

// Locker serialises work on a single entity. Lock blocks until the key is
// free or ctx is done; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// MultiLocker is a Locker able to take several keys at once, in the given
// order, on a single session. Callers locking more than one key prefer it.
type MultiLocker interface {
	Locker
	LockAll(ctx context.Context, keys ...string) (unlock func(), err error)
}

// Lock keys. Preparation and delivery records share their reservation's key.
func CabinKey(id string) string       { return "cabin:" + id }
func ReservationKey(id string) string { return "reservation:" + id }
func ReportKey(id string) string      { return "report:" + id }
func MaintenanceKey(id string) string { return "maintenance:" + id }
func EquipmentKey(id string) string   { return "equipment:" + id }

// ReservationFilter narrows ListReservations. Zero values match everything.
type ReservationFilter struct {
	CabinID    string
	CustomerID string
	Statuses   []model.ReservationStatus
	// StartFrom and StartTo bound the reservation start date, inclusive
	StartFrom *time.Time
	StartTo   *time.Time
}

// MissingItemFilter narrows ListMissingItemReports
type MissingItemFilter struct {
	CabinID       string
	PreparationID string
	Statuses      []model.ReportStatus
	CriticalOnly  bool
}

// EquipmentLoanFilter narrows ListEquipmentLoans. Zero values match everything.
type EquipmentLoanFilter struct {
	ReservationID   string
	EquipmentID     string
	OutstandingOnly bool
}

// PaymentFilter narrows ListPayments. PaidFrom and PaidTo are inclusive.
type PaymentFilter struct {
	ReservationID string
	PaidFrom      *time.Time
	PaidTo        *time.Time
}

type CabinStore interface {
	GetCabin(ctx context.Context, id string) (model.Cabin, error)
	ListCabins(ctx context.Context) ([]model.Cabin, error)
	InsertCabin(ctx context.Context, cabin *model.Cabin) error
	UpdateCabinStatus(ctx context.Context, id string, status model.CabinStatus) error
}

type CustomerStore interface {
	GetCustomer(ctx context.Context, id string) (model.Customer, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	InsertCustomer(ctx context.Context, customer *model.Customer) error
}

type MaintenanceStore interface {
	GetMaintenance(ctx context.Context, id string) (model.MaintenanceWindow, error)
	// ListMaintenance returns the windows of one cabin, or of every cabin when cabinID is empty
	ListMaintenance(ctx context.Context, cabinID string) ([]model.MaintenanceWindow, error)
	InsertMaintenance(ctx context.Context, m *model.MaintenanceWindow) error
	UpdateMaintenance(ctx context.Context, m *model.MaintenanceWindow) error
}

type ReservationStore interface {
	GetReservation(ctx context.Context, id string) (model.Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error)
	InsertReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservation(ctx context.Context, r *model.Reservation) error
}

// CatalogStore holds the static turnover reference data. Upserts match
// preparation tasks by name and checklist items by (cabin, name).
type CatalogStore interface {
	ListPreparationTasks(ctx context.Context) ([]model.PreparationTask, error)
	UpsertPreparationTask(ctx context.Context, task *model.PreparationTask) error
	ListChecklistItems(ctx context.Context, cabinID string) ([]model.ChecklistItem, error)
	UpsertChecklistItem(ctx context.Context, item *model.ChecklistItem) error
}

type PreparationStore interface {
	GetPreparation(ctx context.Context, id string) (model.PreparationRecord, error)
	GetPreparationByReservation(ctx context.Context, reservationID string) (model.PreparationRecord, error)
	InsertPreparation(ctx context.Context, p *model.PreparationRecord) error
	// UpdatePreparation writes the record and its task completions
	UpdatePreparation(ctx context.Context, p *model.PreparationRecord) error
}

type DeliveryStore interface {
	GetDeliveryByReservation(ctx context.Context, reservationID string) (model.DeliveryRecord, error)
	InsertDelivery(ctx context.Context, d *model.DeliveryRecord) error
	// UpdateDelivery writes the record and upserts its items by checklist item
	UpdateDelivery(ctx context.Context, d *model.DeliveryRecord) error
}

type MissingItemStore interface {
	GetMissingItemReport(ctx context.Context, id string) (model.MissingItemReport, error)
	ListMissingItemReports(ctx context.Context, filter MissingItemFilter) ([]model.MissingItemReport, error)
	InsertMissingItemReport(ctx context.Context, r *model.MissingItemReport) error
	UpdateMissingItemReport(ctx context.Context, r *model.MissingItemReport) error
}

type NotificationStore interface {
	InsertNotification(ctx context.Context, n *model.Notification) error
	GetNotification(ctx context.Context, id string) (model.Notification, error)
	ListNotifications(ctx context.Context, userRef string, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// AlertStore remembers which pre-arrival alerts went out
type AlertStore interface {
	// RecordAlert stores the (reservation, threshold) pair and reports whether
	// it was new. A false result means the alert was already sent.
	RecordAlert(ctx context.Context, reservationID string, threshold int, sentOn time.Time) (bool, error)
}

type PaymentStore interface {
	InsertPayment(ctx context.Context, p *model.Payment) error
	ListPayments(ctx context.Context, filter PaymentFilter) ([]model.Payment, error)
}

// EquipmentStore holds lendable equipment and its loans
type EquipmentStore interface {
	GetEquipment(ctx context.Context, id string) (model.Equipment, error)
	ListEquipment(ctx context.Context) ([]model.Equipment, error)
	InsertEquipment(ctx context.Context, e *model.Equipment) error
	UpdateEquipment(ctx context.Context, e *model.Equipment) error
	GetEquipmentLoan(ctx context.Context, id string) (model.EquipmentLoan, error)
	ListEquipmentLoans(ctx context.Context, filter EquipmentLoanFilter) ([]model.EquipmentLoan, error)
	InsertEquipmentLoan(ctx context.Context, l *model.EquipmentLoan) error
	UpdateEquipmentLoan(ctx context.Context, l *model.EquipmentLoan) error
}

type SurveyStore interface {
	GetSurveyByReservation(ctx context.Context, reservationID string) (model.Survey, error)
	InsertSurvey(ctx context.Context, s *model.Survey) error
	ListSurveys(ctx context.Context) ([]model.Survey, error)
}

// Database defines the interface for all database operations.
// Both memstore.DB and postgres.DB implement this interface.
type Database interface {
	CabinStore
	CustomerStore
	MaintenanceStore
	ReservationStore
	CatalogStore
	PreparationStore
	DeliveryStore
	MissingItemStore
	NotificationStore
	AlertStore
	PaymentStore
	SurveyStore
	EquipmentStore
}
