package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/cabinstatus"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// RecomputeCabin derives the cabin's status from its maintenance windows, open
// reports and confirmed reservations, and stores it if it changed.
// It takes the cabin lock itself, so callers must not hold it.
func RecomputeCabin(ctx context.Context, store StatusStore, rt Runtime, cabinID string) (model.CabinStatus, error) {
	const op = "RecomputeCabin"

	unlock, err := rt.lock(ctx, db.CabinKey(cabinID))
	if err != nil {
		return "", err
	}
	defer unlock()

	cabin, err := store.GetCabin(ctx, cabinID)
	if err != nil {
		return "", loadErr(op, "cabin", cabinID, err)
	}

	maintenance, err := store.ListMaintenance(ctx, cabinID)
	if err != nil {
		return "", fmt.Errorf("failed to list maintenance: %w", err)
	}

	reports, err := store.ListMissingItemReports(ctx, db.MissingItemFilter{
		CabinID:  cabinID,
		Statuses: []model.ReportStatus{model.ReportPending},
	})
	if err != nil {
		return "", fmt.Errorf("failed to list missing item reports: %w", err)
	}

	reservations, err := store.ListReservations(ctx, db.ReservationFilter{
		CabinID:  cabinID,
		Statuses: []model.ReservationStatus{model.ReservationConfirmed},
	})
	if err != nil {
		return "", fmt.Errorf("failed to list reservations: %w", err)
	}

	stays := make([]cabinstatus.Stay, 0, len(reservations))
	for _, r := range reservations {
		stay := cabinstatus.Stay{Reservation: r}

		prep, err := store.GetPreparationByReservation(ctx, r.ID)
		switch {
		case err == nil:
			stay.Preparation = &prep
		case !errors.Is(err, db.ErrNotFound):
			return "", fmt.Errorf("failed to load preparation for reservation %s: %w", r.ID, err)
		}

		delivery, err := store.GetDeliveryByReservation(ctx, r.ID)
		switch {
		case err == nil:
			stay.Delivery = &delivery
		case !errors.Is(err, db.ErrNotFound):
			return "", fmt.Errorf("failed to load delivery record for reservation %s: %w", r.ID, err)
		}

		stays = append(stays, stay)
	}

	status := cabinstatus.Derive(cabinstatus.Inputs{
		Today:       rt.today(),
		Maintenance: maintenance,
		Reports:     reports,
		Stays:       stays,
	})

	if status == cabin.Status {
		rt.Logger.Debug("Cabin status unchanged", zap.String("cabin_id", cabinID), zap.String("status", string(status)))
		return status, nil
	}

	if err := store.UpdateCabinStatus(ctx, cabinID, status); err != nil {
		return "", fmt.Errorf("failed to update cabin status: %w", err)
	}

	rt.Logger.Info("Cabin status changed",
		zap.String("cabin_id", cabinID),
		zap.String("from", string(cabin.Status)),
		zap.String("to", string(status)))

	return status, nil
}

// recomputeAfter is used once a transition has been stored. A failure here does not
// undo the transition; the next event or an explicit recompute repairs the status.
func recomputeAfter(ctx context.Context, store StatusStore, rt Runtime, cabinIDs ...string) {
	for _, id := range cabinIDs {
		if _, err := RecomputeCabin(ctx, store, rt, id); err != nil {
			rt.Logger.Error("Failed to recompute cabin status", zap.String("cabin_id", id), zap.Error(err))
		}
	}
}

type RegisterCabinRequest struct {
	Name         string          `validate:"required,max=100"`
	Capacity     int             `validate:"min=1"`
	NightlyPrice decimal.Decimal `validate:"-"`
}

// RegisterCabin adds a cabin in the ready state
func RegisterCabin(ctx context.Context, store db.CabinStore, rt Runtime, actor model.Actor, req RegisterCabinRequest) (*model.Cabin, error) {
	const op = "RegisterCabin"

	if err := requireRole(op, actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if !req.NightlyPrice.IsPositive() {
		return nil, model.Validationf(op, "nightly price must be positive, got %s", req.NightlyPrice)
	}

	cabin := &model.Cabin{
		ID:           newID(),
		Name:         req.Name,
		Capacity:     req.Capacity,
		NightlyPrice: req.NightlyPrice,
		Status:       model.CabinReady,
	}

	if err := store.InsertCabin(ctx, cabin); err != nil {
		return nil, fmt.Errorf("failed to insert cabin: %w", err)
	}

	rt.Logger.Info("Cabin registered", zap.String("cabin_id", cabin.ID), zap.String("name", cabin.Name))

	return cabin, nil
}

func ListCabins(ctx context.Context, store db.CabinStore) ([]model.Cabin, error) {
	cabins, err := store.ListCabins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cabins: %w", err)
	}
	return cabins, nil
}

func GetCabin(ctx context.Context, store db.CabinStore, cabinID string) (*model.Cabin, error) {
	cabin, err := store.GetCabin(ctx, cabinID)
	if err != nil {
		return nil, loadErr("GetCabin", "cabin", cabinID, err)
	}
	return &cabin, nil
}
