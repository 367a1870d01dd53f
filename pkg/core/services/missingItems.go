package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

type RaiseMissingItemRequest struct {
	// CabinID may be left empty when PreparationID is given
	CabinID       string
	PreparationID string
	Description   string `validate:"required,max=2000"`
	Critical      bool
}

// RaiseMissingItem records an escalation. A critical report blocks the cabin from
// being ready immediately, without waiting for the preparation to complete.
func RaiseMissingItem(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, req RaiseMissingItemRequest) (*model.MissingItemReport, error) {
	const op = "RaiseMissingItem"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	if req.PreparationID != "" {
		prep, err := store.GetPreparation(ctx, req.PreparationID)
		if err != nil {
			return nil, refErr(op, "preparation", req.PreparationID, err)
		}
		if req.CabinID == "" {
			req.CabinID = prep.CabinID
		}
		if prep.CabinID != req.CabinID {
			return nil, model.Validationf(op, "preparation %s belongs to cabin %s, not %s", prep.ID, prep.CabinID, req.CabinID)
		}
	}
	if req.CabinID == "" {
		return nil, model.Validationf(op, "a cabin or a preparation is required")
	}
	cabin, err := store.GetCabin(ctx, req.CabinID)
	if err != nil {
		return nil, refErr(op, "cabin", req.CabinID, err)
	}

	report := &model.MissingItemReport{
		ID:            newID(),
		CabinID:       cabin.ID,
		PreparationID: req.PreparationID,
		RaisedBy:      actor.ID,
		Description:   req.Description,
		Critical:      req.Critical,
		Status:        model.ReportPending,
		CreatedAt:     rt.now(),
	}
	if err := store.InsertMissingItemReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to insert missing item report: %w", err)
	}

	rt.Logger.Info("Missing item reported",
		zap.String("report_id", report.ID),
		zap.String("cabin_id", report.CabinID),
		zap.String("preparation_id", report.PreparationID),
		zap.Bool("critical", report.Critical))

	if report.PreparationID != "" {
		if err := refreshPreparationStatus(ctx, store, rt, report.PreparationID); err != nil {
			rt.Logger.Error("Failed to refresh preparation status", zap.String("preparation_id", report.PreparationID), zap.Error(err))
		}
	}
	recomputeAfter(ctx, store, rt, report.CabinID)

	if report.Critical {
		rt.notify(ctx, StaffInbox, model.NotificationAlert,
			fmt.Sprintf("Critical missing item at %s: %s", cabin.Name, report.Description))
	} else {
		rt.notify(ctx, StaffInbox, model.NotificationGeneral,
			fmt.Sprintf("Missing item at %s: %s", cabin.Name, report.Description))
	}

	return report, nil
}

// AcknowledgeMissingItem marks a pending report as seen by an administrator.
// An acknowledged report no longer blocks the cabin.
func AcknowledgeMissingItem(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, reportID string) (*model.MissingItemReport, error) {
	const op = "AcknowledgeMissingItem"

	if err := requireRole(op, actor, model.RoleAdmin); err != nil {
		return nil, err
	}

	return closeReport(ctx, store, rt, op, reportID, func(r *model.MissingItemReport) error {
		if r.Status != model.ReportPending {
			return model.Statef(op, "report is already %s", r.Status)
		}
		r.Status = model.ReportAcknowledged
		r.AcknowledgedAt = timePtr(rt.now())
		return nil
	})
}

type ResolveMissingItemRequest struct {
	ReportID        string `validate:"required"`
	ResolutionNotes string `validate:"max=2000"`
}

// ResolveMissingItem closes a pending or acknowledged report
func ResolveMissingItem(ctx context.Context, store TurnoverStore, rt Runtime, actor model.Actor, req ResolveMissingItemRequest) (*model.MissingItemReport, error) {
	const op = "ResolveMissingItem"

	if err := requireRole(op, actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	report, err := closeReport(ctx, store, rt, op, req.ReportID, func(r *model.MissingItemReport) error {
		if r.Status == model.ReportResolved {
			return model.Statef(op, "report is already resolved")
		}
		now := rt.now()
		if r.AcknowledgedAt == nil {
			r.AcknowledgedAt = timePtr(now)
		}
		r.Status = model.ReportResolved
		r.ResolvedAt = timePtr(now)
		r.ResolvedBy = actor.ID
		r.ResolutionNotes = req.ResolutionNotes
		return nil
	})
	if err != nil {
		return nil, err
	}

	rt.notify(ctx, report.RaisedBy, model.NotificationGeneral,
		fmt.Sprintf("Your report \"%s\" was resolved.", report.Description))

	return report, nil
}

// closeReport applies transition to a report under its lock, then lets the linked
// preparation and the cabin catch up.
func closeReport(ctx context.Context, store TurnoverStore, rt Runtime, op, reportID string, transition func(*model.MissingItemReport) error) (*model.MissingItemReport, error) {
	unlock, err := rt.lock(ctx, db.ReportKey(reportID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	report, err := store.GetMissingItemReport(ctx, reportID)
	if err != nil {
		return nil, loadErr(op, "missing item report", reportID, err)
	}

	previous := report.Status
	if err := transition(&report); err != nil {
		return nil, err
	}
	if err := store.UpdateMissingItemReport(ctx, &report); err != nil {
		return nil, fmt.Errorf("failed to update missing item report: %w", err)
	}

	rt.Logger.Info("Missing item report updated",
		zap.String("report_id", report.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(report.Status)))

	// report key is still held; reservation and cabin keys come after it
	if report.PreparationID != "" {
		if err := refreshPreparationStatus(ctx, store, rt, report.PreparationID); err != nil {
			rt.Logger.Error("Failed to refresh preparation status", zap.String("preparation_id", report.PreparationID), zap.Error(err))
		}
	}
	recomputeAfter(ctx, store, rt, report.CabinID)

	return &report, nil
}

// ListMissingItemReports lists reports for staff
func ListMissingItemReports(ctx context.Context, store db.MissingItemStore, actor model.Actor, filter db.MissingItemFilter) ([]model.MissingItemReport, error) {
	const op = "ListMissingItemReports"

	if err := requireRole(op, actor, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}

	reports, err := store.ListMissingItemReports(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list missing item reports: %w", err)
	}
	return reports, nil
}
