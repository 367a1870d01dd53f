package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/alerts"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

type alertStore interface {
	db.CabinStore
	db.AlertStore
}

// EvaluateAlerts sends the pre-arrival alert due for r today, unless that alert
// was already sent. It returns the alert it sent, or nil.
func EvaluateAlerts(ctx context.Context, store alertStore, rt Runtime, r model.Reservation) (*alerts.Alert, error) {
	today := rt.today()

	alert, ok := alerts.Due(r, cabinDisplayName(ctx, store, r.CabinID), today)
	if !ok {
		return nil, nil
	}

	inserted, err := store.RecordAlert(ctx, r.ID, alert.Threshold, today)
	if err != nil {
		return nil, fmt.Errorf("failed to record alert: %w", err)
	}
	if !inserted {
		rt.Logger.Debug("Alert already sent",
			zap.String("reservation_id", r.ID),
			zap.Int("threshold", alert.Threshold))
		return nil, nil
	}

	rt.Logger.Info("Sending pre-arrival alert",
		zap.String("reservation_id", r.ID),
		zap.Int("threshold", alert.Threshold),
		zap.Int("days_until_start", alert.DaysUntilStart),
		zap.Bool("prompts_confirmation", alert.PromptsConfirmation))

	rt.notify(ctx, r.CustomerID, alert.Kind, alert.Message)

	return &alert, nil
}

type alertSweepStore interface {
	alertStore
	db.ReservationStore
}

// EvaluateDueAlerts runs EvaluateAlerts over every confirmed reservation starting within
// the widest alert band. It returns how many alerts were sent.
func EvaluateDueAlerts(ctx context.Context, store alertSweepStore, rt Runtime) (int, error) {
	today := rt.today()
	until := today.AddDate(0, 0, alerts.WeekBefore)

	reservations, err := store.ListReservations(ctx, db.ReservationFilter{
		Statuses:  []model.ReservationStatus{model.ReservationConfirmed},
		StartFrom: &today,
		StartTo:   &until,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list reservations: %w", err)
	}

	rt.Logger.Debug("Evaluating alerts", zap.Int("reservations", len(reservations)))

	sent := 0
	for _, r := range reservations {
		alert, err := EvaluateAlerts(ctx, store, rt, r)
		if err != nil {
			rt.Logger.Warn("Failed to evaluate alerts", zap.String("reservation_id", r.ID), zap.Error(err))
			continue
		}
		if alert != nil {
			sent++
		}
	}

	return sent, nil
}
