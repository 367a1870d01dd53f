package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

type equipmentLoanStore interface {
	db.ReservationStore
	db.EquipmentStore
}

type RegisterEquipmentRequest struct {
	Name        string `validate:"required,max=200"`
	Description string
	Quantity    int `validate:"min=1"`
}

// RegisterEquipment adds a stock of lendable equipment with all units available
func RegisterEquipment(ctx context.Context, store db.EquipmentStore, rt Runtime, actor model.Actor, req RegisterEquipmentRequest) (*model.Equipment, error) {
	const op = "RegisterEquipment"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	e := &model.Equipment{
		ID:          newID(),
		Name:        req.Name,
		Description: req.Description,
		Total:       req.Quantity,
		Available:   req.Quantity,
		Status:      model.EquipmentAvailable,
	}
	if err := store.InsertEquipment(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to insert equipment: %w", err)
	}

	rt.Logger.Info("Equipment registered",
		zap.String("equipment_id", e.ID),
		zap.String("name", e.Name),
		zap.Int("quantity", e.Total))

	return e, nil
}

func ListEquipment(ctx context.Context, store db.EquipmentStore) ([]model.Equipment, error) {
	items, err := store.ListEquipment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	return items, nil
}

// SetEquipmentMaintenance takes equipment out of circulation or puts it back.
// Outstanding loans are unaffected and can still be returned.
func SetEquipmentMaintenance(ctx context.Context, store db.EquipmentStore, rt Runtime, actor model.Actor, equipmentID string, underMaintenance bool) (*model.Equipment, error) {
	const op = "SetEquipmentMaintenance"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}

	unlock, err := rt.lock(ctx, db.EquipmentKey(equipmentID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	e, err := store.GetEquipment(ctx, equipmentID)
	if err != nil {
		return nil, loadErr(op, "equipment", equipmentID, err)
	}

	e.SetUnderMaintenance(underMaintenance)
	if err := store.UpdateEquipment(ctx, &e); err != nil {
		return nil, fmt.Errorf("failed to update equipment: %w", err)
	}

	rt.Logger.Info("Equipment status set", zap.String("equipment_id", e.ID), zap.String("status", string(e.Status)))
	return &e, nil
}

type LendEquipmentRequest struct {
	ReservationID string `validate:"required"`
	EquipmentID   string `validate:"required"`
	Quantity      int    `validate:"min=1"`
}

// LendEquipment lends units to a guest whose confirmed stay covers today.
// Taking the last units marks the equipment out of stock.
func LendEquipment(ctx context.Context, store equipmentLoanStore, rt Runtime, actor model.Actor, req LendEquipmentRequest) (*model.EquipmentLoan, error) {
	const op = "LendEquipment"

	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	unlock, err := rt.lock(ctx, db.ReservationKey(req.ReservationID), db.EquipmentKey(req.EquipmentID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := store.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return nil, refErr(op, "reservation", req.ReservationID, err)
	}
	if err := requireOwnerOrStaff(op, actor, r.CustomerID); err != nil {
		return nil, err
	}
	today := rt.today()
	if r.Status != model.ReservationConfirmed || !r.CoversDay(today) {
		return nil, model.Statef(op, "equipment is only lent during a confirmed stay (reservation %s is %s, %s to %s)",
			r.ID, r.Status, r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout))
	}

	e, err := store.GetEquipment(ctx, req.EquipmentID)
	if err != nil {
		return nil, refErr(op, "equipment", req.EquipmentID, err)
	}
	if !e.Lendable(req.Quantity) {
		return nil, model.Conflictf(op, e.ID, "cannot lend %d of %s: %d available, status %s",
			req.Quantity, e.Name, e.Available, e.Status)
	}

	e.Take(req.Quantity)
	if err := store.UpdateEquipment(ctx, &e); err != nil {
		return nil, fmt.Errorf("failed to update equipment: %w", err)
	}

	loan := &model.EquipmentLoan{
		ID:            newID(),
		ReservationID: r.ID,
		EquipmentID:   e.ID,
		Quantity:      req.Quantity,
		LentOn:        today,
	}
	if err := store.InsertEquipmentLoan(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to insert equipment loan: %w", err)
	}

	rt.Logger.Info("Equipment lent",
		zap.String("loan_id", loan.ID),
		zap.String("reservation_id", r.ID),
		zap.String("equipment_id", e.ID),
		zap.Int("quantity", loan.Quantity),
		zap.Int("available", e.Available))

	if e.Status == model.EquipmentOutOfStock {
		rt.notify(ctx, StaffInbox, model.NotificationGeneral,
			fmt.Sprintf("%s is out of stock after loan %s.", e.Name, loan.ID))
	}

	return loan, nil
}

// ReturnEquipment closes an outstanding loan and puts its units back in stock
func ReturnEquipment(ctx context.Context, store db.EquipmentStore, rt Runtime, actor model.Actor, loanID string) (*model.EquipmentLoan, error) {
	const op = "ReturnEquipment"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}

	loan, err := store.GetEquipmentLoan(ctx, loanID)
	if err != nil {
		return nil, loadErr(op, "equipment loan", loanID, err)
	}

	unlock, err := rt.lock(ctx, db.EquipmentKey(loan.EquipmentID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// reload under the lock so two returns cannot both restock
	loan, err = store.GetEquipmentLoan(ctx, loanID)
	if err != nil {
		return nil, loadErr(op, "equipment loan", loanID, err)
	}
	if loan.Returned {
		return nil, model.Statef(op, "loan %s was already returned", loan.ID)
	}

	e, err := store.GetEquipment(ctx, loan.EquipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment %s: %w", loan.EquipmentID, err)
	}
	e.Restore(loan.Quantity)
	if err := store.UpdateEquipment(ctx, &e); err != nil {
		return nil, fmt.Errorf("failed to update equipment: %w", err)
	}

	loan.Returned = true
	loan.ReturnedOn = timePtr(rt.today())
	if err := store.UpdateEquipmentLoan(ctx, &loan); err != nil {
		return nil, fmt.Errorf("failed to update equipment loan: %w", err)
	}

	rt.Logger.Info("Equipment returned",
		zap.String("loan_id", loan.ID),
		zap.String("equipment_id", e.ID),
		zap.Int("quantity", loan.Quantity),
		zap.Int("available", e.Available))

	return &loan, nil
}

// ListEquipmentLoans lists loans for staff. A customer may list the loans of
// their own reservation only.
func ListEquipmentLoans(ctx context.Context, store equipmentLoanStore, actor model.Actor, filter db.EquipmentLoanFilter) ([]model.EquipmentLoan, error) {
	const op = "ListEquipmentLoans"

	if !actor.Is(model.RoleAdmin, model.RoleOperations) {
		if filter.ReservationID == "" {
			return nil, model.Forbiddenf(op, "customers may only list loans of their own reservation")
		}
		r, err := store.GetReservation(ctx, filter.ReservationID)
		if err != nil {
			return nil, loadErr(op, "reservation", filter.ReservationID, err)
		}
		if err := requireOwnerOrStaff(op, actor, r.CustomerID); err != nil {
			return nil, err
		}
	}

	loans, err := store.ListEquipmentLoans(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment loans: %w", err)
	}
	return loans, nil
}
