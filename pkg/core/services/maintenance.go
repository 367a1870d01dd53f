package services

import (
	"context"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

type ScheduleMaintenanceRequest struct {
	CabinID       string                `validate:"required"`
	Kind          model.MaintenanceKind `validate:"required"`
	Description   string                `validate:"max=2000"`
	ScheduledDate time.Time             `validate:"required"`
}

// ScheduleMaintenance registers a maintenance window. The cabin goes under maintenance
// until the window is finalized or cancelled.
func ScheduleMaintenance(ctx context.Context, store StatusStore, rt Runtime, actor model.Actor, req ScheduleMaintenanceRequest) (*model.MaintenanceWindow, error) {
	const op = "ScheduleMaintenance"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if !req.Kind.IsValid() {
		return nil, model.Validationf(op, "invalid maintenance kind %q", req.Kind)
	}

	if _, err := store.GetCabin(ctx, req.CabinID); err != nil {
		return nil, refErr(op, "cabin", req.CabinID, err)
	}

	m := &model.MaintenanceWindow{
		ID:            newID(),
		CabinID:       req.CabinID,
		Kind:          req.Kind,
		Description:   req.Description,
		ScheduledDate: model.Day(req.ScheduledDate),
		Status:        model.MaintenanceScheduled,
	}
	if err := store.InsertMaintenance(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to insert maintenance: %w", err)
	}

	rt.Logger.Info("Maintenance scheduled",
		zap.String("maintenance_id", m.ID),
		zap.String("cabin_id", m.CabinID),
		zap.String("kind", string(m.Kind)),
		zap.Time("scheduled_date", m.ScheduledDate))

	recomputeAfter(ctx, store, rt, m.CabinID)

	return m, nil
}

// StartMaintenance moves a scheduled window to in progress
func StartMaintenance(ctx context.Context, store StatusStore, rt Runtime, actor model.Actor, maintenanceID string) (*model.MaintenanceWindow, error) {
	const op = "StartMaintenance"

	return transitionMaintenance(ctx, store, rt, actor, op, maintenanceID, func(m *model.MaintenanceWindow) error {
		if m.Status != model.MaintenanceScheduled {
			return model.Statef(op, "cannot start a %s maintenance", m.Status)
		}
		m.Status = model.MaintenanceInProgress
		return nil
	})
}

// FinalizeMaintenance marks a window done, executed today
func FinalizeMaintenance(ctx context.Context, store StatusStore, rt Runtime, actor model.Actor, maintenanceID string) (*model.MaintenanceWindow, error) {
	const op = "FinalizeMaintenance"

	return transitionMaintenance(ctx, store, rt, actor, op, maintenanceID, func(m *model.MaintenanceWindow) error {
		if !m.IsActive() {
			return model.Statef(op, "cannot finalize a %s maintenance", m.Status)
		}
		m.Status = model.MaintenanceDone
		m.ExecutionDate = timePtr(rt.today())
		return nil
	})
}

// CancelMaintenance drops a window that has not been executed
func CancelMaintenance(ctx context.Context, store StatusStore, rt Runtime, actor model.Actor, maintenanceID string) (*model.MaintenanceWindow, error) {
	const op = "CancelMaintenance"

	return transitionMaintenance(ctx, store, rt, actor, op, maintenanceID, func(m *model.MaintenanceWindow) error {
		if !m.IsActive() {
			return model.Statef(op, "cannot cancel a %s maintenance", m.Status)
		}
		m.Status = model.MaintenanceCancelled
		return nil
	})
}

func transitionMaintenance(ctx context.Context, store StatusStore, rt Runtime, actor model.Actor, op, maintenanceID string, transition func(*model.MaintenanceWindow) error) (*model.MaintenanceWindow, error) {
	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}

	unlock, err := rt.lock(ctx, db.MaintenanceKey(maintenanceID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, err := store.GetMaintenance(ctx, maintenanceID)
	if err != nil {
		return nil, loadErr(op, "maintenance", maintenanceID, err)
	}

	previous := m.Status
	if err := transition(&m); err != nil {
		return nil, err
	}
	if err := store.UpdateMaintenance(ctx, &m); err != nil {
		return nil, fmt.Errorf("failed to update maintenance: %w", err)
	}
	unlock()

	rt.Logger.Info("Maintenance updated",
		zap.String("maintenance_id", m.ID),
		zap.String("cabin_id", m.CabinID),
		zap.String("from", string(previous)),
		zap.String("to", string(m.Status)))

	recomputeAfter(ctx, store, rt, m.CabinID)

	return &m, nil
}

// ListMaintenance lists the windows of one cabin, or all when cabinID is empty
func ListMaintenance(ctx context.Context, store db.MaintenanceStore, cabinID string) ([]model.MaintenanceWindow, error) {
	windows, err := store.ListMaintenance(ctx, cabinID)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance: %w", err)
	}
	return windows, nil
}

// MaintenancePlan is a recurring preventive maintenance described by an RRULE
type MaintenancePlan struct {
	CabinID     string
	RRule       string
	Kind        model.MaintenanceKind
	Description string
}

// PlanMaintenance schedules every occurrence of the plans between today and
// today+horizonDays. Occurrences already scheduled for the same cabin and day are skipped.
func PlanMaintenance(ctx context.Context, store StatusStore, rt Runtime, actor model.Actor, plans []MaintenancePlan, horizonDays int) ([]model.MaintenanceWindow, error) {
	const op = "PlanMaintenance"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}
	if horizonDays <= 0 {
		return nil, model.Validationf(op, "horizon must be positive, got %d", horizonDays)
	}

	today := rt.today()
	until := today.AddDate(0, 0, horizonDays)

	var created []model.MaintenanceWindow
	touched := make(map[string]bool)

	for i, plan := range plans {
		occurrences, err := planOccurrences(plan.RRule, today, until)
		if err != nil {
			return created, model.Validationf(op, "plan %d for cabin %s: %v", i, plan.CabinID, err)
		}

		if _, err := store.GetCabin(ctx, plan.CabinID); err != nil {
			return created, refErr(op, "cabin", plan.CabinID, err)
		}

		existing, err := store.ListMaintenance(ctx, plan.CabinID)
		if err != nil {
			return created, fmt.Errorf("failed to list maintenance: %w", err)
		}
		scheduled := make(map[time.Time]bool, len(existing))
		for _, m := range existing {
			if m.Status != model.MaintenanceCancelled {
				scheduled[model.Day(m.ScheduledDate)] = true
			}
		}

		kind := plan.Kind
		if kind == "" {
			kind = model.MaintenancePreventive
		}

		for _, occurrence := range occurrences {
			day := model.Day(occurrence)
			if scheduled[day] {
				continue
			}

			m := model.MaintenanceWindow{
				ID:            newID(),
				CabinID:       plan.CabinID,
				Kind:          kind,
				Description:   plan.Description,
				ScheduledDate: day,
				Status:        model.MaintenanceScheduled,
			}
			if err := store.InsertMaintenance(ctx, &m); err != nil {
				return created, fmt.Errorf("failed to insert maintenance: %w", err)
			}
			scheduled[day] = true
			touched[plan.CabinID] = true
			created = append(created, m)
		}
	}

	rt.Logger.Info("Maintenance planned", zap.Int("plans", len(plans)), zap.Int("created", len(created)))

	for cabinID := range touched {
		recomputeAfter(ctx, store, rt, cabinID)
	}

	return created, nil
}

// planOccurrences expands an RRULE between from and until inclusive. Rules without
// a DTSTART start counting from `from`.
func planOccurrences(rule string, from, until time.Time) ([]time.Time, error) {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, fmt.Errorf("invalid rrule %q: %w", rule, err)
	}
	if opt.Dtstart.IsZero() {
		opt.Dtstart = from
	}

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("invalid rrule %q: %w", rule, err)
	}

	return r.Between(from, until, true), nil
}
