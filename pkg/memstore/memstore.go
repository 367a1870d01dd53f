// Package memstore is an in-memory db.Database. Every call is atomic and
// returns copies, so callers never share state with the store.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

type DB struct {
	mu sync.RWMutex

	cabins        map[string]model.Cabin
	customers     map[string]model.Customer
	maintenance   map[string]model.MaintenanceWindow
	reservations  map[string]model.Reservation
	tasks         map[string]model.PreparationTask
	checklist     map[string]model.ChecklistItem
	preparations  map[string]model.PreparationRecord
	deliveries    map[string]model.DeliveryRecord
	reports       map[string]model.MissingItemReport
	notifications map[string]model.Notification
	alerts        map[string]time.Time
	payments      map[string]model.Payment
	surveys       map[string]model.Survey
	equipment     map[string]model.Equipment
	loans         map[string]model.EquipmentLoan

	seq int
}

var _ db.Database = (*DB)(nil)

func New() *DB {
	return &DB{
		cabins:        make(map[string]model.Cabin),
		customers:     make(map[string]model.Customer),
		maintenance:   make(map[string]model.MaintenanceWindow),
		reservations:  make(map[string]model.Reservation),
		tasks:         make(map[string]model.PreparationTask),
		checklist:     make(map[string]model.ChecklistItem),
		preparations:  make(map[string]model.PreparationRecord),
		deliveries:    make(map[string]model.DeliveryRecord),
		reports:       make(map[string]model.MissingItemReport),
		notifications: make(map[string]model.Notification),
		alerts:        make(map[string]time.Time),
		payments:      make(map[string]model.Payment),
		surveys:       make(map[string]model.Survey),
		equipment:     make(map[string]model.Equipment),
		loans:         make(map[string]model.EquipmentLoan),
	}
}

// nextID fills in ids for rows inserted without one. Caller holds mu.
func (d *DB) nextID(prefix string) string {
	d.seq++
	return fmt.Sprintf("%s-%d", prefix, d.seq)
}

func duplicate(entity, id string) error {
	return fmt.Errorf("%s %s already exists", entity, id)
}

// Cabins

func (d *DB) GetCabin(ctx context.Context, id string) (model.Cabin, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.cabins[id]
	if !ok {
		return model.Cabin{}, db.ErrNotFound
	}
	return c, nil
}

func (d *DB) ListCabins(ctx context.Context) ([]model.Cabin, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cabins := make([]model.Cabin, 0, len(d.cabins))
	for _, c := range d.cabins {
		cabins = append(cabins, c)
	}
	sort.Slice(cabins, func(i, j int) bool { return cabins[i].Name < cabins[j].Name })
	return cabins, nil
}

func (d *DB) InsertCabin(ctx context.Context, cabin *model.Cabin) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cabin.ID == "" {
		cabin.ID = d.nextID("cabin")
	}
	if _, ok := d.cabins[cabin.ID]; ok {
		return duplicate("cabin", cabin.ID)
	}
	d.cabins[cabin.ID] = *cabin
	return nil
}

func (d *DB) UpdateCabinStatus(ctx context.Context, id string, status model.CabinStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.cabins[id]
	if !ok {
		return db.ErrNotFound
	}
	c.Status = status
	d.cabins[id] = c
	return nil
}

// Customers

func (d *DB) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.customers[id]
	if !ok {
		return model.Customer{}, db.ErrNotFound
	}
	return c, nil
}

func (d *DB) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	customers := make([]model.Customer, 0, len(d.customers))
	for _, c := range d.customers {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	return customers, nil
}

func (d *DB) InsertCustomer(ctx context.Context, customer *model.Customer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if customer.ID == "" {
		customer.ID = d.nextID("customer")
	}
	if _, ok := d.customers[customer.ID]; ok {
		return duplicate("customer", customer.ID)
	}
	d.customers[customer.ID] = *customer
	return nil
}

// Maintenance

func (d *DB) GetMaintenance(ctx context.Context, id string) (model.MaintenanceWindow, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.maintenance[id]
	if !ok {
		return model.MaintenanceWindow{}, db.ErrNotFound
	}
	return cloneMaintenance(m), nil
}

func (d *DB) ListMaintenance(ctx context.Context, cabinID string) ([]model.MaintenanceWindow, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var windows []model.MaintenanceWindow
	for _, m := range d.maintenance {
		if cabinID == "" || m.CabinID == cabinID {
			windows = append(windows, cloneMaintenance(m))
		}
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].ScheduledDate.Before(windows[j].ScheduledDate) })
	return windows, nil
}

func (d *DB) InsertMaintenance(ctx context.Context, m *model.MaintenanceWindow) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m.ID == "" {
		m.ID = d.nextID("maintenance")
	}
	if _, ok := d.maintenance[m.ID]; ok {
		return duplicate("maintenance", m.ID)
	}
	d.maintenance[m.ID] = cloneMaintenance(*m)
	return nil
}

func (d *DB) UpdateMaintenance(ctx context.Context, m *model.MaintenanceWindow) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.maintenance[m.ID]; !ok {
		return db.ErrNotFound
	}
	d.maintenance[m.ID] = cloneMaintenance(*m)
	return nil
}

// Reservations

func (d *DB) GetReservation(ctx context.Context, id string) (model.Reservation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.reservations[id]
	if !ok {
		return model.Reservation{}, db.ErrNotFound
	}
	return r, nil
}

func (d *DB) ListReservations(ctx context.Context, filter db.ReservationFilter) ([]model.Reservation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []model.Reservation
	for _, r := range d.reservations {
		if matchesReservation(r, filter) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matchesReservation(r model.Reservation, f db.ReservationFilter) bool {
	if f.CabinID != "" && r.CabinID != f.CabinID {
		return false
	}
	if f.CustomerID != "" && r.CustomerID != f.CustomerID {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status) {
		return false
	}
	if f.StartFrom != nil && r.Start.Before(model.Day(*f.StartFrom)) {
		return false
	}
	if f.StartTo != nil && r.Start.After(model.Day(*f.StartTo)) {
		return false
	}
	return true
}

func containsStatus[S comparable](statuses []S, s S) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (d *DB) InsertReservation(ctx context.Context, r *model.Reservation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.ID == "" {
		r.ID = d.nextID("reservation")
	}
	if _, ok := d.reservations[r.ID]; ok {
		return duplicate("reservation", r.ID)
	}
	d.reservations[r.ID] = *r
	return nil
}

func (d *DB) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.reservations[r.ID]; !ok {
		return db.ErrNotFound
	}
	d.reservations[r.ID] = *r
	return nil
}

// Catalogs

func (d *DB) ListPreparationTasks(ctx context.Context) ([]model.PreparationTask, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tasks := make([]model.PreparationTask, 0, len(d.tasks))
	for _, t := range d.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
	return tasks, nil
}

func (d *DB) UpsertPreparationTask(ctx context.Context, task *model.PreparationTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, existing := range d.tasks {
		if strings.EqualFold(existing.Name, task.Name) {
			task.ID = id
			d.tasks[id] = *task
			return nil
		}
	}
	if task.ID == "" {
		task.ID = d.nextID("task")
	}
	d.tasks[task.ID] = *task
	return nil
}

func (d *DB) ListChecklistItems(ctx context.Context, cabinID string) ([]model.ChecklistItem, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var items []model.ChecklistItem
	for _, c := range d.checklist {
		if c.CabinID == cabinID {
			items = append(items, c)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items, nil
}

func (d *DB) UpsertChecklistItem(ctx context.Context, item *model.ChecklistItem) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, existing := range d.checklist {
		if existing.CabinID == item.CabinID && strings.EqualFold(existing.Name, item.Name) {
			item.ID = id
			d.checklist[id] = *item
			return nil
		}
	}
	if item.ID == "" {
		item.ID = d.nextID("checklist")
	}
	d.checklist[item.ID] = *item
	return nil
}

// Preparation records

func (d *DB) GetPreparation(ctx context.Context, id string) (model.PreparationRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.preparations[id]
	if !ok {
		return model.PreparationRecord{}, db.ErrNotFound
	}
	return clonePreparation(p), nil
}

func (d *DB) GetPreparationByReservation(ctx context.Context, reservationID string) (model.PreparationRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.preparations {
		if p.ReservationID == reservationID {
			return clonePreparation(p), nil
		}
	}
	return model.PreparationRecord{}, db.ErrNotFound
}

func (d *DB) InsertPreparation(ctx context.Context, p *model.PreparationRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.ID == "" {
		p.ID = d.nextID("preparation")
	}
	for _, existing := range d.preparations {
		if existing.ReservationID == p.ReservationID {
			return duplicate("preparation for reservation", p.ReservationID)
		}
	}
	d.preparations[p.ID] = clonePreparation(*p)
	return nil
}

func (d *DB) UpdatePreparation(ctx context.Context, p *model.PreparationRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.preparations[p.ID]; !ok {
		return db.ErrNotFound
	}
	d.preparations[p.ID] = clonePreparation(*p)
	return nil
}

// Delivery records

func (d *DB) GetDeliveryByReservation(ctx context.Context, reservationID string) (model.DeliveryRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.deliveries[reservationID]
	if !ok {
		return model.DeliveryRecord{}, db.ErrNotFound
	}
	return cloneDelivery(rec), nil
}

func (d *DB) InsertDelivery(ctx context.Context, rec *model.DeliveryRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.deliveries[rec.ReservationID]; ok {
		return duplicate("delivery record for reservation", rec.ReservationID)
	}
	if rec.ID == "" {
		rec.ID = d.nextID("delivery")
	}
	d.assignItemIDs(rec)
	d.deliveries[rec.ReservationID] = cloneDelivery(*rec)
	return nil
}

func (d *DB) UpdateDelivery(ctx context.Context, rec *model.DeliveryRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	existing, ok := d.deliveries[rec.ReservationID]
	if !ok || existing.ID != rec.ID {
		return db.ErrNotFound
	}
	d.assignItemIDs(rec)
	d.deliveries[rec.ReservationID] = cloneDelivery(*rec)
	return nil
}

func (d *DB) assignItemIDs(rec *model.DeliveryRecord) {
	for i := range rec.Items {
		if rec.Items[i].ID == "" {
			rec.Items[i].ID = d.nextID("item")
		}
	}
}

// Missing-item reports

func (d *DB) GetMissingItemReport(ctx context.Context, id string) (model.MissingItemReport, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.reports[id]
	if !ok {
		return model.MissingItemReport{}, db.ErrNotFound
	}
	return r, nil
}

func (d *DB) ListMissingItemReports(ctx context.Context, filter db.MissingItemFilter) ([]model.MissingItemReport, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []model.MissingItemReport
	for _, r := range d.reports {
		if filter.CabinID != "" && r.CabinID != filter.CabinID {
			continue
		}
		if filter.PreparationID != "" && r.PreparationID != filter.PreparationID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, r.Status) {
			continue
		}
		if filter.CriticalOnly && !r.Critical {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (d *DB) InsertMissingItemReport(ctx context.Context, r *model.MissingItemReport) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.ID == "" {
		r.ID = d.nextID("report")
	}
	if _, ok := d.reports[r.ID]; ok {
		return duplicate("report", r.ID)
	}
	d.reports[r.ID] = *r
	return nil
}

func (d *DB) UpdateMissingItemReport(ctx context.Context, r *model.MissingItemReport) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.reports[r.ID]; !ok {
		return db.ErrNotFound
	}
	d.reports[r.ID] = *r
	return nil
}

// Notifications

func (d *DB) InsertNotification(ctx context.Context, n *model.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n.ID == "" {
		n.ID = d.nextID("notification")
	}
	d.notifications[n.ID] = *n
	return nil
}

func (d *DB) GetNotification(ctx context.Context, id string) (model.Notification, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.notifications[id]
	if !ok {
		return model.Notification{}, db.ErrNotFound
	}
	return n, nil
}

func (d *DB) ListNotifications(ctx context.Context, userRef string, unreadOnly bool) ([]model.Notification, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []model.Notification
	for _, n := range d.notifications {
		if n.UserRef != userRef || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	// newest first
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.After(out[j].SentAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (d *DB) MarkNotificationRead(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.notifications[id]
	if !ok {
		return db.ErrNotFound
	}
	n.Read = true
	d.notifications[id] = n
	return nil
}

// Alerts

func (d *DB) RecordAlert(ctx context.Context, reservationID string, threshold int, sentOn time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := fmt.Sprintf("%s|%d", reservationID, threshold)
	if _, ok := d.alerts[key]; ok {
		return false, nil
	}
	d.alerts[key] = sentOn
	return true, nil
}

// Payments

func (d *DB) InsertPayment(ctx context.Context, p *model.Payment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.ID == "" {
		p.ID = d.nextID("payment")
	}
	d.payments[p.ID] = *p
	return nil
}

func (d *DB) ListPayments(ctx context.Context, filter db.PaymentFilter) ([]model.Payment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []model.Payment
	for _, p := range d.payments {
		if filter.ReservationID != "" && p.ReservationID != filter.ReservationID {
			continue
		}
		if filter.PaidFrom != nil && p.PaidOn.Before(model.Day(*filter.PaidFrom)) {
			continue
		}
		if filter.PaidTo != nil && p.PaidOn.After(model.Day(*filter.PaidTo)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidOn.Before(out[j].PaidOn) })
	return out, nil
}

// Surveys

func (d *DB) GetSurveyByReservation(ctx context.Context, reservationID string) (model.Survey, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.surveys {
		if s.ReservationID == reservationID {
			return s, nil
		}
	}
	return model.Survey{}, db.ErrNotFound
}

func (d *DB) InsertSurvey(ctx context.Context, s *model.Survey) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.surveys {
		if existing.ReservationID == s.ReservationID {
			return duplicate("survey for reservation", s.ReservationID)
		}
	}
	if s.ID == "" {
		s.ID = d.nextID("survey")
	}
	d.surveys[s.ID] = *s
	return nil
}

func (d *DB) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Survey, 0, len(d.surveys))
	for _, s := range d.surveys {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Equipment

func (d *DB) GetEquipment(ctx context.Context, id string) (model.Equipment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.equipment[id]
	if !ok {
		return model.Equipment{}, db.ErrNotFound
	}
	return e, nil
}

func (d *DB) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Equipment, 0, len(d.equipment))
	for _, e := range d.equipment {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *DB) InsertEquipment(ctx context.Context, e *model.Equipment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e.ID == "" {
		e.ID = d.nextID("equipment")
	}
	if _, exists := d.equipment[e.ID]; exists {
		return duplicate("equipment", e.ID)
	}
	d.equipment[e.ID] = *e
	return nil
}

func (d *DB) UpdateEquipment(ctx context.Context, e *model.Equipment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.equipment[e.ID]; !ok {
		return db.ErrNotFound
	}
	d.equipment[e.ID] = *e
	return nil
}

func (d *DB) GetEquipmentLoan(ctx context.Context, id string) (model.EquipmentLoan, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.loans[id]
	if !ok {
		return model.EquipmentLoan{}, db.ErrNotFound
	}
	return cloneLoan(l), nil
}

func (d *DB) ListEquipmentLoans(ctx context.Context, filter db.EquipmentLoanFilter) ([]model.EquipmentLoan, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []model.EquipmentLoan
	for _, l := range d.loans {
		if filter.ReservationID != "" && l.ReservationID != filter.ReservationID {
			continue
		}
		if filter.EquipmentID != "" && l.EquipmentID != filter.EquipmentID {
			continue
		}
		if filter.OutstandingOnly && l.Returned {
			continue
		}
		out = append(out, cloneLoan(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LentOn.Equal(out[j].LentOn) {
			return out[i].LentOn.Before(out[j].LentOn)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *DB) InsertEquipmentLoan(ctx context.Context, l *model.EquipmentLoan) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l.ID == "" {
		l.ID = d.nextID("loan")
	}
	d.loans[l.ID] = cloneLoan(*l)
	return nil
}

func (d *DB) UpdateEquipmentLoan(ctx context.Context, l *model.EquipmentLoan) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.loans[l.ID]; !ok {
		return db.ErrNotFound
	}
	d.loans[l.ID] = cloneLoan(*l)
	return nil
}

func cloneLoan(l model.EquipmentLoan) model.EquipmentLoan {
	if l.ReturnedOn != nil {
		t := *l.ReturnedOn
		l.ReturnedOn = &t
	}
	return l
}

func cloneMaintenance(m model.MaintenanceWindow) model.MaintenanceWindow {
	if m.ExecutionDate != nil {
		t := *m.ExecutionDate
		m.ExecutionDate = &t
	}
	return m
}

func clonePreparation(p model.PreparationRecord) model.PreparationRecord {
	p.Tasks = append([]model.TaskCompletion(nil), p.Tasks...)
	return p
}

func cloneDelivery(rec model.DeliveryRecord) model.DeliveryRecord {
	rec.Items = append([]model.VerificationItem(nil), rec.Items...)
	return rec
}
