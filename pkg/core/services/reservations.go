package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/alerts"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/availability"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/inventory"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// MinLeadDays is how far ahead a reservation must start when it is requested
const MinLeadDays = 4

var holdingStatuses = []model.ReservationStatus{model.ReservationPending, model.ReservationConfirmed}

type CreateReservationRequest struct {
	// CustomerID defaults to the acting customer
	CustomerID string
	CabinID    string    `validate:"required"`
	Start      time.Time `validate:"required"`
	End        time.Time `validate:"required"`
	Guests     int       `validate:"min=1"`
	Comments   string    `validate:"max=2000"`
}

// CreateReservation books a cabin in the pending state. The availability check and
// the insert run under the cabin lock so two requests cannot both pass the check.
func CreateReservation(ctx context.Context, store LifecycleStore, rt Runtime, actor model.Actor, req CreateReservationRequest) (*model.Reservation, error) {
	const op = "CreateReservation"

	if err := requireRole(op, actor, model.RoleCustomer, model.RoleAdmin); err != nil {
		return nil, err
	}
	if actor.Role == model.RoleCustomer {
		if req.CustomerID == "" {
			req.CustomerID = actor.ID
		}
		if req.CustomerID != actor.ID {
			return nil, model.Forbiddenf(op, "customers can only book for themselves")
		}
	}
	if req.CustomerID == "" {
		return nil, model.Validationf(op, "CustomerID is required")
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	start, end := model.Day(req.Start), model.Day(req.End)
	if !start.Before(end) {
		return nil, model.Validationf(op, "start %s must be before end %s", start.Format(model.DateLayout), end.Format(model.DateLayout))
	}

	today := rt.today()
	if lead := model.DaysBetween(today, start); lead < MinLeadDays {
		return nil, model.Validationf(op, "reservations must start at least %d days from today (%s is %d days away)",
			MinLeadDays, start.Format(model.DateLayout), lead)
	}

	rt.Logger.Debug("Creating reservation",
		zap.String("cabin_id", req.CabinID),
		zap.String("customer_id", req.CustomerID),
		zap.Time("start", start),
		zap.Time("end", end))

	if _, err := store.GetCustomer(ctx, req.CustomerID); err != nil {
		return nil, refErr(op, "customer", req.CustomerID, err)
	}

	unlock, err := rt.lock(ctx, db.CabinKey(req.CabinID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	cabin, err := store.GetCabin(ctx, req.CabinID)
	if err != nil {
		return nil, refErr(op, "cabin", req.CabinID, err)
	}
	if cabin.Capacity > 0 && req.Guests > cabin.Capacity {
		return nil, model.Validationf(op, "%d guests exceed the capacity of %s (%d)", req.Guests, cabin.Name, cabin.Capacity)
	}

	result, err := checkAvailability(ctx, store, availability.Query{Cabin: cabin, Start: start, End: end})
	if err != nil {
		return nil, err
	}
	if !result.Available {
		return nil, model.Conflictf(op, result.Ref, "cabin %s is not available from %s to %s: %s",
			cabin.Name, start.Format(model.DateLayout), end.Format(model.DateLayout), result.Reason)
	}

	r := &model.Reservation{
		ID:         newID(),
		CustomerID: req.CustomerID,
		CabinID:    cabin.ID,
		Start:      start,
		End:        end,
		Guests:     req.Guests,
		Status:     model.ReservationPending,
		Comments:   req.Comments,
		CreatedAt:  rt.now(),
	}
	r.Amount = quote(cabin, r.Nights())

	if err := store.InsertReservation(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to insert reservation: %w", err)
	}
	unlock()

	rt.Logger.Info("Reservation created",
		zap.String("reservation_id", r.ID),
		zap.String("cabin_id", r.CabinID),
		zap.Int("nights", r.Nights()),
		zap.String("amount", r.Amount.StringFixed(2)))

	rt.notify(ctx, r.CustomerID, model.NotificationGeneral,
		fmt.Sprintf("Your reservation at %s from %s to %s was received and is awaiting confirmation.",
			cabin.Name, start.Format(model.DateLayout), end.Format(model.DateLayout)))
	rt.notify(ctx, StaffInbox, model.NotificationGeneral,
		fmt.Sprintf("New reservation %s at %s awaits confirmation.", r.ID, cabin.Name))

	return r, nil
}

type availabilityStore interface {
	db.MaintenanceStore
	db.ReservationStore
}

// checkAvailability loads the cabin's maintenance and holding reservations and runs the engine.
// Callers hold the cabin lock.
func checkAvailability(ctx context.Context, store availabilityStore, q availability.Query) (availability.Result, error) {
	maintenance, err := store.ListMaintenance(ctx, q.Cabin.ID)
	if err != nil {
		return availability.Result{}, fmt.Errorf("failed to list maintenance: %w", err)
	}

	reservations, err := store.ListReservations(ctx, db.ReservationFilter{
		CabinID:  q.Cabin.ID,
		Statuses: holdingStatuses,
	})
	if err != nil {
		return availability.Result{}, fmt.Errorf("failed to list reservations: %w", err)
	}

	return availability.Check(q, maintenance, reservations), nil
}

// CheckAvailability answers whether a cabin can be booked for a range without booking it
func CheckAvailability(ctx context.Context, store StatusStore, cabinID string, start, end time.Time) (availability.Result, error) {
	const op = "CheckAvailability"

	if !model.Day(start).Before(model.Day(end)) {
		return availability.Result{}, model.Validationf(op, "start must be before end")
	}

	cabin, err := store.GetCabin(ctx, cabinID)
	if err != nil {
		return availability.Result{}, loadErr(op, "cabin", cabinID, err)
	}

	return checkAvailability(ctx, store, availability.Query{Cabin: cabin, Start: start, End: end})
}

func quote(cabin model.Cabin, nights int) decimal.Decimal {
	return cabin.NightlyPrice.Mul(decimal.NewFromInt(int64(nights))).Round(2)
}

// ConfirmReservation moves a pending reservation to confirmed and sends any
// pre-arrival alert already due.
func ConfirmReservation(ctx context.Context, store LifecycleStore, rt Runtime, actor model.Actor, reservationID string) (*model.Reservation, error) {
	const op = "ConfirmReservation"

	if err := requireRole(op, actor, model.RoleAdmin); err != nil {
		return nil, err
	}

	unlock, err := rt.lock(ctx, db.ReservationKey(reservationID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, loadErr(op, "reservation", reservationID, err)
	}

	switch r.Status {
	case model.ReservationPending:
	case model.ReservationConfirmed:
		return nil, model.Conflictf(op, r.ID, "reservation is already confirmed")
	default:
		return nil, model.Statef(op, "cannot confirm a %s reservation", r.Status)
	}

	r.Status = model.ReservationConfirmed
	if err := store.UpdateReservation(ctx, &r); err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}
	unlock()

	rt.Logger.Info("Reservation confirmed", zap.String("reservation_id", r.ID), zap.String("cabin_id", r.CabinID))

	cabinName := cabinDisplayName(ctx, store, r.CabinID)
	rt.notify(ctx, r.CustomerID, model.NotificationConfirmation,
		fmt.Sprintf("Your reservation at %s from %s to %s is confirmed.",
			cabinName, r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout)))

	if _, err := EvaluateAlerts(ctx, store, rt, r); err != nil {
		rt.Logger.Warn("Failed to evaluate alerts after confirmation", zap.String("reservation_id", r.ID), zap.Error(err))
	}

	return &r, nil
}

// CancelReservation cancels any non-terminal reservation. Its preparation and
// delivery records are left in place and no longer count toward the cabin status.
func CancelReservation(ctx context.Context, store StatusStore, rt Runtime, actor model.Actor, reservationID, reason string) (*model.Reservation, error) {
	const op = "CancelReservation"

	if err := requireRole(op, actor, model.RoleAdmin); err != nil {
		return nil, err
	}

	unlock, err := rt.lock(ctx, db.ReservationKey(reservationID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, loadErr(op, "reservation", reservationID, err)
	}
	if r.Status.IsTerminal() {
		return nil, model.Statef(op, "reservation is already %s", r.Status)
	}

	previous := r.Status
	r.Status = model.ReservationCancelled
	if reason != "" {
		r.Comments = appendNote(r.Comments, "Cancelled: "+reason)
	}
	if err := store.UpdateReservation(ctx, &r); err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}
	unlock()

	rt.Logger.Info("Reservation cancelled",
		zap.String("reservation_id", r.ID),
		zap.String("previous_status", string(previous)))

	recomputeAfter(ctx, store, rt, r.CabinID)

	msg := fmt.Sprintf("Your reservation from %s to %s has been cancelled.",
		r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout))
	if reason != "" {
		msg += " Reason: " + reason
	}
	rt.notify(ctx, r.CustomerID, model.NotificationGeneral, msg)

	return &r, nil
}

// CustomerConfirmResult reports the outcome of a pre-arrival confirmation
type CustomerConfirmResult struct {
	Reservation      model.Reservation        `json:"reservation"`
	AlreadyConfirmed bool                     `json:"already_confirmed"`
	DaysUntilStart   int                      `json:"days_until_start"`
	Preparation      *model.PreparationRecord `json:"preparation,omitempty"`
	Delivery         *model.DeliveryRecord    `json:"delivery,omitempty"`
}

// CustomerConfirmReservation records the customer's arrival confirmation inside the
// confirmation window and starts the cabin turnover for the stay.
func CustomerConfirmReservation(ctx context.Context, store LifecycleStore, rt Runtime, actor model.Actor, reservationID string) (*CustomerConfirmResult, error) {
	const op = "CustomerConfirmReservation"

	if err := requireRole(op, actor, model.RoleCustomer); err != nil {
		return nil, err
	}

	unlock, err := rt.lock(ctx, db.ReservationKey(reservationID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, loadErr(op, "reservation", reservationID, err)
	}
	if err := requireOwnerOrStaff(op, actor, r.CustomerID); err != nil {
		return nil, err
	}
	if r.Status != model.ReservationConfirmed {
		return nil, model.Statef(op, "only confirmed reservations can be confirmed by the customer (status %s)", r.Status)
	}

	days := r.DaysUntilStart(rt.today())
	result := &CustomerConfirmResult{DaysUntilStart: days}

	if r.CustomerConfirmed {
		// a repeat also fills in turnover records an earlier attempt failed to create
		prep, delivery, err := ensureTurnover(ctx, store, rt, r)
		if err != nil {
			return nil, err
		}
		unlock()

		rt.Logger.Info("Reservation already confirmed by customer", zap.String("reservation_id", r.ID))
		recomputeAfter(ctx, store, rt, r.CabinID)

		result.Reservation = r
		result.AlreadyConfirmed = true
		result.Preparation = prep
		result.Delivery = delivery
		return result, nil
	}

	if days > alerts.ConfirmationWindow {
		return nil, model.Conflictf(op, r.ID, "too early to confirm arrival: confirmation opens %d days before arrival, %d days left",
			alerts.ConfirmationWindow, days)
	}

	// records first, so a failure leaves the reservation unconfirmed and retryable
	prep, delivery, err := ensureTurnover(ctx, store, rt, r)
	if err != nil {
		return nil, err
	}

	r.CustomerConfirmed = true
	r.CustomerConfirmedAt = timePtr(rt.now())
	if err := store.UpdateReservation(ctx, &r); err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}
	unlock()

	rt.Logger.Info("Reservation confirmed by customer",
		zap.String("reservation_id", r.ID),
		zap.Int("days_until_start", days),
		zap.String("preparation_id", prep.ID))

	recomputeAfter(ctx, store, rt, r.CabinID)

	cabinName := cabinDisplayName(ctx, store, r.CabinID)
	rt.notify(ctx, r.CustomerID, model.NotificationConfirmation,
		fmt.Sprintf("Thanks for confirming your arrival on %s. We are preparing %s for you.",
			r.Start.Format(model.DateLayout), cabinName))
	rt.notify(ctx, StaffInbox, model.NotificationPreparation,
		fmt.Sprintf("Prepare %s for reservation %s arriving %s.", cabinName, r.ID, r.Start.Format(model.DateLayout)))

	result.Reservation = r
	result.Preparation = prep
	result.Delivery = delivery
	return result, nil
}

func ensureTurnover(ctx context.Context, store TurnoverStore, rt Runtime, r model.Reservation) (*model.PreparationRecord, *model.DeliveryRecord, error) {
	prep, err := ensurePreparation(ctx, store, rt, r)
	if err != nil {
		return nil, nil, err
	}
	delivery, err := ensureDelivery(ctx, store, rt, r)
	if err != nil {
		return nil, nil, err
	}
	return prep, delivery, nil
}

type ReassignRequest struct {
	ReservationID string `validate:"required"`
	// Zero values keep the current cabin and dates
	CabinID string
	Start   time.Time
	End     time.Time
	Reason  string
}

// ReassignReservation moves a non-terminal reservation to another cabin or dates,
// provided the target is available once the reservation itself is set aside.
func ReassignReservation(ctx context.Context, store LifecycleStore, rt Runtime, actor model.Actor, req ReassignRequest) (*model.Reservation, error) {
	const op = "ReassignReservation"

	if err := requireRole(op, actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	unlockRes, err := rt.lock(ctx, db.ReservationKey(req.ReservationID))
	if err != nil {
		return nil, err
	}
	defer unlockRes()

	r, err := store.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return nil, loadErr(op, "reservation", req.ReservationID, err)
	}
	if r.Status.IsTerminal() {
		return nil, model.Statef(op, "cannot reassign a %s reservation", r.Status)
	}

	targetCabinID := r.CabinID
	if req.CabinID != "" {
		targetCabinID = req.CabinID
	}
	start, end := r.Start, r.End
	if !req.Start.IsZero() {
		start = model.Day(req.Start)
	}
	if !req.End.IsZero() {
		end = model.Day(req.End)
	}
	if !start.Before(end) {
		return nil, model.Validationf(op, "start %s must be before end %s", start.Format(model.DateLayout), end.Format(model.DateLayout))
	}

	cabinChanged := targetCabinID != r.CabinID
	datesChanged := !start.Equal(r.Start) || !end.Equal(r.End)
	if !cabinChanged && !datesChanged {
		return &r, nil
	}

	// cabin keys in a fixed order so two reassignments cannot deadlock
	cabinKeys := []string{db.CabinKey(r.CabinID)}
	if cabinChanged {
		cabinKeys = append(cabinKeys, db.CabinKey(targetCabinID))
		sort.Strings(cabinKeys)
	}
	unlockCabins, err := rt.lock(ctx, cabinKeys...)
	if err != nil {
		return nil, err
	}
	defer unlockCabins()

	target, err := store.GetCabin(ctx, targetCabinID)
	if err != nil {
		return nil, refErr(op, "cabin", targetCabinID, err)
	}
	if target.Capacity > 0 && r.Guests > target.Capacity {
		return nil, model.Validationf(op, "%d guests exceed the capacity of %s (%d)", r.Guests, target.Name, target.Capacity)
	}

	delivery, err := store.GetDeliveryByReservation(ctx, r.ID)
	hasDelivery := err == nil
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to load delivery record: %w", err)
	}
	if hasDelivery && delivery.Status != model.DeliveryPending {
		return nil, model.Statef(op, "cannot reassign after check-in (delivery record is %s)", delivery.Status)
	}

	result, err := checkAvailability(ctx, store, availability.Query{
		Cabin:                target,
		Start:                start,
		End:                  end,
		ExcludeReservationID: r.ID,
	})
	if err != nil {
		return nil, err
	}
	if !result.Available {
		return nil, model.Conflictf(op, result.Ref, "cabin %s is not available from %s to %s: %s",
			target.Name, start.Format(model.DateLayout), end.Format(model.DateLayout), result.Reason)
	}

	previousCabinID := r.CabinID
	r.CabinID = target.ID
	r.Start, r.End = start, end
	if datesChanged {
		r.Amount = quote(target, r.Nights())
	}
	if req.Reason != "" {
		r.Comments = appendNote(r.Comments, "Reassigned: "+req.Reason)
	}
	if err := store.UpdateReservation(ctx, &r); err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}

	if cabinChanged {
		if err := moveTurnoverRecords(ctx, store, r, hasDelivery, delivery); err != nil {
			return nil, err
		}
	}
	unlockCabins()
	unlockRes()

	rt.Logger.Info("Reservation reassigned",
		zap.String("reservation_id", r.ID),
		zap.String("from_cabin", previousCabinID),
		zap.String("to_cabin", r.CabinID),
		zap.Time("start", r.Start),
		zap.Time("end", r.End),
		zap.String("amount", r.Amount.StringFixed(2)))

	if cabinChanged {
		recomputeAfter(ctx, store, rt, previousCabinID, r.CabinID)
	} else {
		recomputeAfter(ctx, store, rt, r.CabinID)
	}

	rt.notify(ctx, r.CustomerID, model.NotificationGeneral,
		fmt.Sprintf("Your reservation has been moved to %s from %s to %s. Amount: %s.",
			target.Name, r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout), r.Amount.StringFixed(2)))

	return &r, nil
}

// moveTurnoverRecords points an unfinished preparation and a pending delivery record at the
// reservation's new cabin. The delivery checklist is rebuilt from the new cabin's catalog.
func moveTurnoverRecords(ctx context.Context, store TurnoverStore, r model.Reservation, hasDelivery bool, delivery model.DeliveryRecord) error {
	prep, err := store.GetPreparationByReservation(ctx, r.ID)
	switch {
	case err == nil:
		if prep.Status != model.PreparationCompleted {
			prep.CabinID = r.CabinID
			if err := store.UpdatePreparation(ctx, &prep); err != nil {
				return fmt.Errorf("failed to update preparation: %w", err)
			}
		}
	case !errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("failed to load preparation: %w", err)
	}

	if !hasDelivery {
		return nil
	}

	catalog, err := store.ListChecklistItems(ctx, r.CabinID)
	if err != nil {
		return fmt.Errorf("failed to list checklist items: %w", err)
	}
	delivery.CabinID = r.CabinID
	delivery.Items = inventory.MissingItems(catalog, nil)
	if err := store.UpdateDelivery(ctx, &delivery); err != nil {
		return fmt.Errorf("failed to update delivery record: %w", err)
	}
	return nil
}

// CompleteReservation closes a confirmed reservation whose return verification is finished
func CompleteReservation(ctx context.Context, store StatusStore, rt Runtime, actor model.Actor, reservationID string) (*model.Reservation, error) {
	const op = "CompleteReservation"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}

	unlock, err := rt.lock(ctx, db.ReservationKey(reservationID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, loadErr(op, "reservation", reservationID, err)
	}

	delivery, err := store.GetDeliveryByReservation(ctx, r.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to load delivery record: %w", err)
	}
	if err != nil || delivery.Status != model.DeliveryVerified {
		return nil, model.Statef(op, "return verification is not finished")
	}

	if err := completeLocked(ctx, store, rt, &r); err != nil {
		return nil, err
	}
	unlock()

	recomputeAfter(ctx, store, rt, r.CabinID)
	return &r, nil
}

// completeLocked marks r completed. Callers hold the reservation lock.
func completeLocked(ctx context.Context, store db.ReservationStore, rt Runtime, r *model.Reservation) error {
	const op = "CompleteReservation"

	switch r.Status {
	case model.ReservationConfirmed:
	case model.ReservationCompleted:
		return nil
	default:
		return model.Statef(op, "cannot complete a %s reservation", r.Status)
	}

	r.Status = model.ReservationCompleted
	if err := store.UpdateReservation(ctx, r); err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}

	rt.Logger.Info("Reservation completed", zap.String("reservation_id", r.ID))
	return nil
}

// GetReservation returns a reservation and sends any alert that has become due
func GetReservation(ctx context.Context, store LifecycleStore, rt Runtime, actor model.Actor, reservationID string) (*model.Reservation, error) {
	const op = "GetReservation"

	r, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, loadErr(op, "reservation", reservationID, err)
	}
	if err := requireOwnerOrStaff(op, actor, r.CustomerID); err != nil {
		return nil, err
	}

	if _, err := EvaluateAlerts(ctx, store, rt, r); err != nil {
		rt.Logger.Warn("Failed to evaluate alerts", zap.String("reservation_id", r.ID), zap.Error(err))
	}

	return &r, nil
}

// ListReservations lists reservations visible to the actor, evaluating alerts on the way.
// Customers only ever see their own.
func ListReservations(ctx context.Context, store LifecycleStore, rt Runtime, actor model.Actor, filter db.ReservationFilter) ([]model.Reservation, error) {
	const op = "ListReservations"

	if err := requireRole(op, actor, model.RoleCustomer, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}
	if actor.Role == model.RoleCustomer {
		filter.CustomerID = actor.ID
	}

	reservations, err := store.ListReservations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	for _, r := range reservations {
		if _, err := EvaluateAlerts(ctx, store, rt, r); err != nil {
			rt.Logger.Warn("Failed to evaluate alerts", zap.String("reservation_id", r.ID), zap.Error(err))
		}
	}

	return reservations, nil
}

// cabinDisplayName falls back to the id when the cabin cannot be loaded
func cabinDisplayName(ctx context.Context, store db.CabinStore, cabinID string) string {
	cabin, err := store.GetCabin(ctx, cabinID)
	if err != nil || cabin.Name == "" {
		return cabinID
	}
	return cabin.Name
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
