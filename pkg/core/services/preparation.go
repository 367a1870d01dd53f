package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/cabinstatus"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/preparation"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// ensurePreparation returns the reservation's preparation record, creating it seeded
// with the whole task catalog if it does not exist yet. Callers hold the reservation lock.
func ensurePreparation(ctx context.Context, store TurnoverStore, rt Runtime, r model.Reservation) (*model.PreparationRecord, error) {
	existing, err := store.GetPreparationByReservation(ctx, r.ID)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to load preparation: %w", err)
	}

	catalog, err := store.ListPreparationTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list preparation tasks: %w", err)
	}

	rec := &model.PreparationRecord{
		ID:            newID(),
		ReservationID: r.ID,
		CabinID:       r.CabinID,
		Status:        model.PreparationPending,
		Tasks:         preparation.Seed(catalog),
		CreatedAt:     rt.now(),
	}
	if err := store.InsertPreparation(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to insert preparation: %w", err)
	}

	rt.Logger.Info("Preparation initiated",
		zap.String("preparation_id", rec.ID),
		zap.String("reservation_id", r.ID),
		zap.Int("tasks", len(rec.Tasks)))

	return rec, nil
}

// loadPreparationForUpdate resolves the preparation's reservation, locks it and reloads
// the record under the lock. The returned func releases the lock.
func loadPreparationForUpdate(ctx context.Context, store TurnoverStore, rt Runtime, op, preparationID string) (model.PreparationRecord, model.Reservation, func(), error) {
	rec, err := store.GetPreparation(ctx, preparationID)
	if err != nil {
		return model.PreparationRecord{}, model.Reservation{}, nil, loadErr(op, "preparation", preparationID, err)
	}

	unlock, err := rt.lock(ctx, db.ReservationKey(rec.ReservationID))
	if err != nil {
		return model.PreparationRecord{}, model.Reservation{}, nil, err
	}

	rec, err = store.GetPreparation(ctx, preparationID)
	if err != nil {
		unlock()
		return model.PreparationRecord{}, model.Reservation{}, nil, loadErr(op, "preparation", preparationID, err)
	}
	r, err := store.GetReservation(ctx, rec.ReservationID)
	if err != nil {
		unlock()
		return model.PreparationRecord{}, model.Reservation{}, nil, loadErr(op, "reservation", rec.ReservationID, err)
	}
	if r.Status != model.ReservationConfirmed {
		unlock()
		return model.PreparationRecord{}, model.Reservation{}, nil, model.Statef(op, "reservation %s is %s", r.ID, r.Status)
	}

	return rec, r, unlock, nil
}

// AssignPreparation sets the operator responsible for a preparation
func AssignPreparation(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, preparationID, operatorID string) (*model.PreparationRecord, error) {
	const op = "AssignPreparation"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}
	if operatorID == "" {
		return nil, model.Validationf(op, "operator is required")
	}

	rec, _, unlock, err := loadPreparationForUpdate(ctx, store, rt, op, preparationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if rec.Status == model.PreparationCompleted {
		return nil, model.Statef(op, "preparation is already completed")
	}

	rec.OperatorID = operatorID
	if err := store.UpdatePreparation(ctx, &rec); err != nil {
		return nil, fmt.Errorf("failed to update preparation: %w", err)
	}

	rt.Logger.Info("Preparation assigned", zap.String("preparation_id", rec.ID), zap.String("operator_id", operatorID))

	return &rec, nil
}

// ProgressResult is a preparation record with its completion figures
type ProgressResult struct {
	Record     model.PreparationRecord `json:"record"`
	TasksDone  int                     `json:"tasks_done"`
	TasksTotal int                     `json:"tasks_total"`
	Percentage int                     `json:"percentage"`
}

func newProgressResult(rec model.PreparationRecord) *ProgressResult {
	done, total := preparation.Count(rec.Tasks)
	return &ProgressResult{
		Record:     rec,
		TasksDone:  done,
		TasksTotal: total,
		Percentage: preparation.Percentage(done, total),
	}
}

type UpdateProgressRequest struct {
	PreparationID string `validate:"required"`
	// Completions maps task ids to their new completed flag; unlisted tasks keep their state
	Completions  map[string]bool `validate:"required,min=1"`
	Observations string
}

// UpdateProgress toggles task completions and recomputes the record status
func UpdateProgress(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, req UpdateProgressRequest) (*ProgressResult, error) {
	const op = "UpdateProgress"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	rec, _, unlock, err := loadPreparationForUpdate(ctx, store, rt, op, req.PreparationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if rec.Status == model.PreparationCompleted {
		return nil, model.Statef(op, "preparation is already completed")
	}

	index := make(map[string]int, len(rec.Tasks))
	for i, t := range rec.Tasks {
		index[t.TaskID] = i
	}
	for taskID := range req.Completions {
		if _, ok := index[taskID]; !ok {
			return nil, model.Validationf(op, "task %s is not part of preparation %s", taskID, rec.ID)
		}
	}

	now := rt.now()
	for taskID, completed := range req.Completions {
		task := &rec.Tasks[index[taskID]]
		if task.Completed == completed {
			continue
		}
		task.Completed = completed
		if completed {
			task.CompletedAt = timePtr(now)
		} else {
			task.CompletedAt = nil
		}
	}

	if rec.OperatorID == "" {
		rec.OperatorID = actor.ID
	}
	if req.Observations != "" {
		rec.Observations = req.Observations
	}

	done, _ := preparation.Count(rec.Tasks)
	if done > 0 && rec.StartedAt == nil {
		rec.StartedAt = timePtr(now)
	}

	openIssues, err := hasOpenIssues(ctx, store, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Status = preparation.DeriveStatus(rec.Status, done, openIssues)

	if err := store.UpdatePreparation(ctx, &rec); err != nil {
		return nil, fmt.Errorf("failed to update preparation: %w", err)
	}

	result := newProgressResult(rec)
	rt.Logger.Info("Preparation progress updated",
		zap.String("preparation_id", rec.ID),
		zap.String("status", string(rec.Status)),
		zap.Int("percentage", result.Percentage))

	return result, nil
}

func hasOpenIssues(ctx context.Context, store db.MissingItemStore, preparationID string) (bool, error) {
	open, err := store.ListMissingItemReports(ctx, db.MissingItemFilter{
		PreparationID: preparationID,
		Statuses:      []model.ReportStatus{model.ReportPending},
	})
	if err != nil {
		return false, fmt.Errorf("failed to list missing item reports: %w", err)
	}
	return len(open) > 0, nil
}

// CompletionResult is returned by CompletePreparation. Percentage is reported because
// an operator may finalize before every task is done.
type CompletionResult struct {
	ProgressResult
	// Delayed is set when an open critical report keeps the cabin from being ready
	Delayed     bool                  `json:"delayed"`
	CabinStatus model.CabinStatus     `json:"cabin_status"`
	Delivery    *model.DeliveryRecord `json:"delivery,omitempty"`
}

type CompletePreparationRequest struct {
	PreparationID string `validate:"required"`
	Observations  string
}

// CompletePreparation finalizes a preparation at whatever completion it has reached,
// creates the delivery record and tells the customer whether the cabin is ready.
func CompletePreparation(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, req CompletePreparationRequest) (*CompletionResult, error) {
	const op = "CompletePreparation"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	rec, r, unlock, err := loadPreparationForUpdate(ctx, store, rt, op, req.PreparationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if rec.Status == model.PreparationCompleted {
		return nil, model.Statef(op, "preparation is already completed")
	}

	now := rt.now()
	rec.Status = model.PreparationCompleted
	rec.CompletedAt = timePtr(now)
	if rec.StartedAt == nil {
		rec.StartedAt = timePtr(now)
	}
	if rec.OperatorID == "" {
		rec.OperatorID = actor.ID
	}
	if req.Observations != "" {
		rec.Observations = req.Observations
	}
	if err := store.UpdatePreparation(ctx, &rec); err != nil {
		return nil, fmt.Errorf("failed to update preparation: %w", err)
	}

	delivery, err := ensureDelivery(ctx, store, rt, r)
	if err != nil {
		return nil, err
	}
	unlock()

	result := &CompletionResult{ProgressResult: *newProgressResult(rec), Delivery: delivery}

	rt.Logger.Info("Preparation completed",
		zap.String("preparation_id", rec.ID),
		zap.String("reservation_id", r.ID),
		zap.Int("percentage", result.Percentage))
	if result.Percentage < 100 {
		rt.Logger.Warn("Preparation completed before all tasks were done",
			zap.String("preparation_id", rec.ID),
			zap.Int("tasks_done", result.TasksDone),
			zap.Int("tasks_total", result.TasksTotal))
	}

	status, err := RecomputeCabin(ctx, store, rt, rec.CabinID)
	if err != nil {
		rt.Logger.Error("Failed to recompute cabin status", zap.String("cabin_id", rec.CabinID), zap.Error(err))
	}
	result.CabinStatus = status

	reports, err := store.ListMissingItemReports(ctx, db.MissingItemFilter{
		CabinID:      rec.CabinID,
		Statuses:     []model.ReportStatus{model.ReportPending},
		CriticalOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list missing item reports: %w", err)
	}
	result.Delayed = cabinstatus.HasOpenCritical(reports)

	cabinName := cabinDisplayName(ctx, store, rec.CabinID)
	if result.Delayed {
		rt.notify(ctx, r.CustomerID, model.NotificationPreparation,
			fmt.Sprintf("The preparation of %s is finished but an issue is still being resolved. We will let you know as soon as the cabin is ready.", cabinName))
	} else {
		rt.notify(ctx, r.CustomerID, model.NotificationPreparation,
			fmt.Sprintf("%s is ready for your arrival on %s.", cabinName, r.Start.Format(model.DateLayout)))
	}

	return result, nil
}

// GetPreparation returns a preparation with its completion figures
func GetPreparation(ctx context.Context, store TurnoverStore, actor model.Actor, preparationID string) (*ProgressResult, error) {
	const op = "GetPreparation"

	rec, err := store.GetPreparation(ctx, preparationID)
	if err != nil {
		return nil, loadErr(op, "preparation", preparationID, err)
	}

	if !actor.Is(model.RoleAdmin, model.RoleOperations) {
		r, err := store.GetReservation(ctx, rec.ReservationID)
		if err != nil {
			return nil, loadErr(op, "reservation", rec.ReservationID, err)
		}
		if err := requireOwnerOrStaff(op, actor, r.CustomerID); err != nil {
			return nil, err
		}
	}

	return newProgressResult(rec), nil
}

// GetPreparationByReservation looks a preparation up by its reservation
func GetPreparationByReservation(ctx context.Context, store TurnoverStore, actor model.Actor, reservationID string) (*ProgressResult, error) {
	const op = "GetPreparationByReservation"

	r, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, loadErr(op, "reservation", reservationID, err)
	}
	if err := requireOwnerOrStaff(op, actor, r.CustomerID); err != nil {
		return nil, err
	}

	rec, err := store.GetPreparationByReservation(ctx, reservationID)
	if err != nil {
		return nil, loadErr(op, "preparation for reservation", reservationID, err)
	}

	return newProgressResult(rec), nil
}

// refreshPreparationStatus re-derives a preparation's status after one of its reports changed.
// Callers must not hold the reservation lock.
func refreshPreparationStatus(ctx context.Context, store TurnoverStore, rt Runtime, preparationID string) error {
	rec, err := store.GetPreparation(ctx, preparationID)
	if err != nil {
		return fmt.Errorf("failed to load preparation %s: %w", preparationID, err)
	}

	unlock, err := rt.lock(ctx, db.ReservationKey(rec.ReservationID))
	if err != nil {
		return err
	}
	defer unlock()

	rec, err = store.GetPreparation(ctx, preparationID)
	if err != nil {
		return fmt.Errorf("failed to reload preparation %s: %w", preparationID, err)
	}

	openIssues, err := hasOpenIssues(ctx, store, rec.ID)
	if err != nil {
		return err
	}
	done, _ := preparation.Count(rec.Tasks)
	status := preparation.DeriveStatus(rec.Status, done, openIssues)
	if status == rec.Status {
		return nil
	}

	rt.Logger.Info("Preparation status changed",
		zap.String("preparation_id", rec.ID),
		zap.String("from", string(rec.Status)),
		zap.String("to", string(status)))

	rec.Status = status
	if err := store.UpdatePreparation(ctx, &rec); err != nil {
		return fmt.Errorf("failed to update preparation: %w", err)
	}
	return nil
}
