package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/inventory"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// ensureDelivery returns the reservation's delivery record, creating it or adding any
// catalog items it lacks. Callers hold the reservation lock.
func ensureDelivery(ctx context.Context, store TurnoverStore, rt Runtime, r model.Reservation) (*model.DeliveryRecord, error) {
	catalog, err := store.ListChecklistItems(ctx, r.CabinID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}

	rec, err := store.GetDeliveryByReservation(ctx, r.ID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		rec = model.DeliveryRecord{
			ID:            newID(),
			ReservationID: r.ID,
			CabinID:       r.CabinID,
			Status:        model.DeliveryPending,
			Items:         inventory.MissingItems(catalog, nil),
			CreatedAt:     rt.now(),
		}
		if err := store.InsertDelivery(ctx, &rec); err != nil {
			return nil, fmt.Errorf("failed to insert delivery record: %w", err)
		}
		rt.Logger.Info("Delivery record created",
			zap.String("reservation_id", r.ID),
			zap.Int("items", len(rec.Items)))
		return &rec, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load delivery record: %w", err)
	}

	// only a record nobody has checked in against picks up new catalog items
	if rec.Status != model.DeliveryPending {
		return &rec, nil
	}
	missing := inventory.MissingItems(catalog, rec.Items)
	if len(missing) == 0 {
		return &rec, nil
	}
	rec.Items = append(rec.Items, missing...)
	if err := store.UpdateDelivery(ctx, &rec); err != nil {
		return nil, fmt.Errorf("failed to update delivery record: %w", err)
	}
	rt.Logger.Debug("Delivery record seeded with new catalog items",
		zap.String("reservation_id", r.ID),
		zap.Int("added", len(missing)))

	return &rec, nil
}

// EnsureDeliveryRecord is the single factory for delivery records. It is idempotent.
func EnsureDeliveryRecord(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, reservationID string) (*model.DeliveryRecord, error) {
	const op = "EnsureDeliveryRecord"

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
	if r.Status != model.ReservationConfirmed && r.Status != model.ReservationCompleted {
		return nil, model.Statef(op, "reservation is %s", r.Status)
	}

	return ensureDelivery(ctx, store, rt, r)
}

// ItemObservation is what an operator records for one checklist item at check-in or check-out
type ItemObservation struct {
	ChecklistItemID string              `validate:"required"`
	Quantity        int                 `validate:"min=0"`
	Condition       model.ItemCondition `validate:"required"`
}

type HandoverRequest struct {
	ReservationID string            `validate:"required"`
	Items         []ItemObservation `validate:"dive"`
	Notes         string            `validate:"max=2000"`
}

// indexItems maps observations onto the record's items, rejecting unknown or repeated items
func indexItems(op string, rec model.DeliveryRecord, observations []ItemObservation) (map[int]ItemObservation, error) {
	positions := make(map[string]int, len(rec.Items))
	for i, item := range rec.Items {
		positions[item.ChecklistItemID] = i
	}

	byPosition := make(map[int]ItemObservation, len(observations))
	for _, obs := range observations {
		if !obs.Condition.IsValid() {
			return nil, model.Validationf(op, "invalid condition %q for item %s", obs.Condition, obs.ChecklistItemID)
		}
		i, ok := positions[obs.ChecklistItemID]
		if !ok {
			return nil, model.Validationf(op, "item %s is not on this cabin's checklist", obs.ChecklistItemID)
		}
		if _, dup := byPosition[i]; dup {
			return nil, model.Validationf(op, "item %s listed twice", obs.ChecklistItemID)
		}
		byPosition[i] = obs
	}
	return byPosition, nil
}

// CheckIn records what was handed to the guest and signs the delivery
func CheckIn(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, req HandoverRequest) (*model.DeliveryRecord, error) {
	const op = "CheckIn"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	unlock, err := rt.lock(ctx, db.ReservationKey(req.ReservationID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := store.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return nil, loadErr(op, "reservation", req.ReservationID, err)
	}
	if r.Status != model.ReservationConfirmed {
		return nil, model.Statef(op, "cannot check in a %s reservation", r.Status)
	}

	rec, err := ensureDelivery(ctx, store, rt, r)
	if err != nil {
		return nil, err
	}
	if rec.Status != model.DeliveryPending {
		return nil, model.Statef(op, "delivery already recorded (status %s)", rec.Status)
	}

	observations, err := indexItems(op, *rec, req.Items)
	if err != nil {
		return nil, err
	}
	for i := range rec.Items {
		item := &rec.Items[i]
		if obs, ok := observations[i]; ok {
			item.QuantityDelivered = obs.Quantity
			item.ConditionAtDelivery = obs.Condition
		} else {
			item.ConditionAtDelivery = model.ConditionGood
		}
	}

	now := rt.now()
	rec.Status = model.DeliveryDelivered
	rec.DeliveredAt = timePtr(now)
	rec.DeliveredBy = actor.ID
	rec.DeliveryNotes = req.Notes
	rec.Signature = inventory.SignatureToken(r.ID, r.CustomerID, now)

	if err := store.UpdateDelivery(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update delivery record: %w", err)
	}
	unlock()

	rt.Logger.Info("Check-in recorded",
		zap.String("reservation_id", r.ID),
		zap.String("operator_id", actor.ID),
		zap.Int("items", len(rec.Items)))

	recomputeAfter(ctx, store, rt, r.CabinID)

	rt.notify(ctx, r.CustomerID, model.NotificationGeneral,
		"Welcome! Your cabin inventory has been handed over. Please review and acknowledge the delivery.")

	return rec, nil
}

// CustomerConfirmDelivery records the guest's acknowledgement of the handover
func CustomerConfirmDelivery(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, reservationID string) (*model.DeliveryRecord, error) {
	const op = "CustomerConfirmDelivery"

	return customerAcknowledge(ctx, store, rt, actor, op, reservationID, func(rec *model.DeliveryRecord) error {
		if rec.Status != model.DeliveryDelivered {
			return model.Statef(op, "delivery can only be acknowledged once items are delivered (status %s)", rec.Status)
		}
		rec.CustomerConfirmsDelivery = true
		return nil
	})
}

// CustomerConfirmReturn records the guest's acknowledgement of the return verification
func CustomerConfirmReturn(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, reservationID string) (*model.DeliveryRecord, error) {
	const op = "CustomerConfirmReturn"

	return customerAcknowledge(ctx, store, rt, actor, op, reservationID, func(rec *model.DeliveryRecord) error {
		if rec.Status != model.DeliveryReturned && rec.Status != model.DeliveryVerified {
			return model.Statef(op, "return can only be acknowledged after check-out (status %s)", rec.Status)
		}
		rec.CustomerConfirmsReturn = true
		return nil
	})
}

func customerAcknowledge(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, op, reservationID string, apply func(*model.DeliveryRecord) error) (*model.DeliveryRecord, error) {
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

	rec, err := store.GetDeliveryByReservation(ctx, reservationID)
	if err != nil {
		return nil, loadErr(op, "delivery record", reservationID, err)
	}

	if err := apply(&rec); err != nil {
		return nil, err
	}
	if err := store.UpdateDelivery(ctx, &rec); err != nil {
		return nil, fmt.Errorf("failed to update delivery record: %w", err)
	}

	rt.Logger.Info("Customer acknowledgement recorded", zap.String("reservation_id", reservationID), zap.String("op", op))

	return &rec, nil
}

// CheckOutResult carries the verified record and what the guest owes for it
type CheckOutResult struct {
	Record      model.DeliveryRecord `json:"record"`
	Total       decimal.Decimal      `json:"total"`
	Reservation model.Reservation    `json:"reservation"`
}

// CheckOut records the returned quantities and conditions, computes the charges and
// completes the reservation. Items not listed are taken as returned in full and in good condition.
func CheckOut(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, req HandoverRequest) (*CheckOutResult, error) {
	const op = "CheckOut"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	unlock, err := rt.lock(ctx, db.ReservationKey(req.ReservationID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := store.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return nil, loadErr(op, "reservation", req.ReservationID, err)
	}
	if r.Status != model.ReservationConfirmed {
		return nil, model.Statef(op, "cannot check out a %s reservation", r.Status)
	}

	rec, err := store.GetDeliveryByReservation(ctx, r.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to load delivery record: %w", err)
	}
	if err != nil || (rec.Status != model.DeliveryDelivered && rec.Status != model.DeliveryReturned) {
		return nil, model.Statef(op, "items cannot be returned before delivery is recorded")
	}

	observations, err := indexItems(op, rec, req.Items)
	if err != nil {
		return nil, err
	}
	for i := range rec.Items {
		item := &rec.Items[i]
		if obs, ok := observations[i]; ok {
			item.QuantityReturned = obs.Quantity
			item.ConditionAtReturn = obs.Condition
		} else {
			item.QuantityReturned = item.QuantityDelivered
			item.ConditionAtReturn = model.ConditionGood
		}
		inventory.ApplyCharge(item)
	}

	rec.Status = model.DeliveryVerified
	rec.ReturnedAt = timePtr(rt.now())
	rec.ReturnNotes = req.Notes
	if err := store.UpdateDelivery(ctx, &rec); err != nil {
		return nil, fmt.Errorf("failed to update delivery record: %w", err)
	}

	if err := completeLocked(ctx, store, rt, &r); err != nil {
		return nil, err
	}
	unlock()

	total := inventory.Total(rec.Items)
	rt.Logger.Info("Check-out verified",
		zap.String("reservation_id", r.ID),
		zap.String("total_charge", total.StringFixed(2)))

	recomputeAfter(ctx, store, rt, r.CabinID)

	if total.IsPositive() {
		rt.notify(ctx, r.CustomerID, model.NotificationGeneral,
			fmt.Sprintf("Thanks for staying with us. Inventory charges for missing or damaged items: %s.", total.StringFixed(2)))
	} else {
		rt.notify(ctx, r.CustomerID, model.NotificationGeneral,
			"Thanks for staying with us. All items were returned in good condition.")
	}

	return &CheckOutResult{Record: rec, Total: total, Reservation: r}, nil
}

// GetDeliveryRecord returns the reservation's delivery record and its total charge
func GetDeliveryRecord(ctx context.Context, store TurnoverStore, actor model.Actor, reservationID string) (*model.DeliveryRecord, decimal.Decimal, error) {
	const op = "GetDeliveryRecord"

	r, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, decimal.Zero, loadErr(op, "reservation", reservationID, err)
	}
	if err := requireOwnerOrStaff(op, actor, r.CustomerID); err != nil {
		return nil, decimal.Zero, err
	}

	rec, err := store.GetDeliveryByReservation(ctx, reservationID)
	if err != nil {
		return nil, decimal.Zero, loadErr(op, "delivery record", reservationID, err)
	}

	return &rec, rec.TotalCharge(), nil
}
