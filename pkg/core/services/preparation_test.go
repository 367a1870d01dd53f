package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

func TestUpdateProgress(t *testing.T) {
	f := newFixture(t)
	_, prep := f.turnover(t, f.north)

	res, err := UpdateProgress(f.ctx, f.store, f.rt, f.ops, UpdateProgressRequest{
		PreparationID: prep.ID,
		Completions: map[string]bool{
			prep.Tasks[0].TaskID: true,
			prep.Tasks[1].TaskID: true,
		},
		Observations: "Bathroom tap drips",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.TasksDone)
	assert.Equal(t, 4, res.TasksTotal)
	assert.Equal(t, 50, res.Percentage)
	assert.Equal(t, model.PreparationInProgress, res.Record.Status)
	assert.Equal(t, f.ops.ID, res.Record.OperatorID)
	assert.NotNil(t, res.Record.StartedAt)
	assert.NotNil(t, res.Record.Tasks[0].CompletedAt)
	assert.Equal(t, "Bathroom tap drips", res.Record.Observations)

	// unticking every task goes back to pending
	res, err = UpdateProgress(f.ctx, f.store, f.rt, f.ops, UpdateProgressRequest{
		PreparationID: prep.ID,
		Completions: map[string]bool{
			prep.Tasks[0].TaskID: false,
			prep.Tasks[1].TaskID: false,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Percentage)
	assert.Equal(t, model.PreparationPending, res.Record.Status)
	assert.Nil(t, res.Record.Tasks[0].CompletedAt)
}

func TestUpdateProgress_Rejections(t *testing.T) {
	f := newFixture(t)
	_, prep := f.turnover(t, f.north)

	_, err := UpdateProgress(f.ctx, f.store, f.rt, f.ops, UpdateProgressRequest{
		PreparationID: prep.ID,
		Completions:   map[string]bool{"not-a-task": true},
	})
	assertKind(t, err, model.KindValidation)

	_, err = UpdateProgress(f.ctx, f.store, f.rt, f.ops, UpdateProgressRequest{PreparationID: prep.ID})
	assertKind(t, err, model.KindValidation)

	_, err = UpdateProgress(f.ctx, f.store, f.rt, f.customer, UpdateProgressRequest{
		PreparationID: prep.ID,
		Completions:   map[string]bool{prep.Tasks[0].TaskID: true},
	})
	assertKind(t, err, model.KindForbidden)

	_, err = UpdateProgress(f.ctx, f.store, f.rt, f.ops, UpdateProgressRequest{
		PreparationID: "ghost",
		Completions:   map[string]bool{prep.Tasks[0].TaskID: true},
	})
	assertKind(t, err, model.KindNotFound)
}

func TestAssignPreparation(t *testing.T) {
	f := newFixture(t)
	_, prep := f.turnover(t, f.north)

	rec, err := AssignPreparation(f.ctx, f.store, f.rt, f.admin, prep.ID, "ops-7")
	require.NoError(t, err)
	assert.Equal(t, "ops-7", rec.OperatorID)

	_, err = AssignPreparation(f.ctx, f.store, f.rt, f.admin, prep.ID, "")
	assertKind(t, err, model.KindValidation)
}

func TestCompletePreparation_Ready(t *testing.T) {
	f := newFixture(t)
	r, prep := f.turnover(t, f.north)
	f.notifier.reset()

	_, err := UpdateProgress(f.ctx, f.store, f.rt, f.ops, UpdateProgressRequest{
		PreparationID: prep.ID,
		Completions:   map[string]bool{prep.Tasks[0].TaskID: true, prep.Tasks[1].TaskID: true},
	})
	require.NoError(t, err)

	res, err := CompletePreparation(f.ctx, f.store, f.rt, f.ops, CompletePreparationRequest{PreparationID: prep.ID})
	require.NoError(t, err)

	assert.Equal(t, model.PreparationCompleted, res.Record.Status)
	assert.NotNil(t, res.Record.CompletedAt)
	assert.Equal(t, 50, res.Percentage, "finalizing early keeps the reached percentage")
	assert.False(t, res.Delayed)
	assert.Equal(t, model.CabinReady, res.CabinStatus)
	require.NotNil(t, res.Delivery)
	assert.Equal(t, r.ID, res.Delivery.ReservationID)
	assert.Equal(t, model.CabinReady, f.cabinStatus(t, f.north.ID))

	sent := ofKind(f.notifier.to(f.customer.ID), model.NotificationPreparation)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Message, "is ready")

	_, err = CompletePreparation(f.ctx, f.store, f.rt, f.ops, CompletePreparationRequest{PreparationID: prep.ID})
	assertKind(t, err, model.KindState)

	_, err = UpdateProgress(f.ctx, f.store, f.rt, f.ops, UpdateProgressRequest{
		PreparationID: prep.ID,
		Completions:   map[string]bool{prep.Tasks[2].TaskID: true},
	})
	assertKind(t, err, model.KindState)
}

func TestCompletePreparation_CancelledReservation(t *testing.T) {
	f := newFixture(t)
	r, prep := f.turnover(t, f.north)

	_, err := CancelReservation(f.ctx, f.store, f.rt, f.admin, r.ID, "")
	require.NoError(t, err)

	_, err = CompletePreparation(f.ctx, f.store, f.rt, f.ops, CompletePreparationRequest{PreparationID: prep.ID})
	assertKind(t, err, model.KindState)
}

func TestCriticalMissingItem_BlocksUntilResolved(t *testing.T) {
	f := newFixture(t)
	_, prep := f.turnover(t, f.north)
	f.notifier.reset()

	report, err := RaiseMissingItem(f.ctx, f.store, f.rt, f.ops, RaiseMissingItemRequest{
		PreparationID: prep.ID,
		Description:   "Gas stove missing",
		Critical:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, f.north.ID, report.CabinID, "cabin is taken from the preparation")
	assert.Equal(t, model.ReportPending, report.Status)
	assert.Equal(t, f.ops.ID, report.RaisedBy)

	assert.Equal(t, model.CabinPendingIssue, f.cabinStatus(t, f.north.ID), "critical reports block the cabin immediately")
	storedPrep, err := f.store.GetPreparation(f.ctx, prep.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PreparationHasIssues, storedPrep.Status)
	assert.Len(t, ofKind(f.notifier.to(StaffInbox), model.NotificationAlert), 1)

	res, err := CompletePreparation(f.ctx, f.store, f.rt, f.ops, CompletePreparationRequest{PreparationID: prep.ID})
	require.NoError(t, err)
	assert.True(t, res.Delayed)
	assert.Equal(t, model.CabinPendingIssue, res.CabinStatus)
	assert.Contains(t, ofKind(f.notifier.to(f.customer.ID), model.NotificationPreparation)[0].Message, "issue")

	resolved, err := ResolveMissingItem(f.ctx, f.store, f.rt, f.admin, ResolveMissingItemRequest{
		ReportID:        report.ID,
		ResolutionNotes: "Replacement stove installed",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReportResolved, resolved.Status)
	assert.Equal(t, f.admin.ID, resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.NotNil(t, resolved.AcknowledgedAt)

	assert.Equal(t, model.CabinReady, f.cabinStatus(t, f.north.ID))
	storedPrep, err = f.store.GetPreparation(f.ctx, prep.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PreparationCompleted, storedPrep.Status, "completed is kept once reached")
	assert.Len(t, f.notifier.to(f.ops.ID), 1, "the reporter hears about the resolution")

	_, err = ResolveMissingItem(f.ctx, f.store, f.rt, f.admin, ResolveMissingItemRequest{ReportID: report.ID})
	assertKind(t, err, model.KindState)
}

func TestNonCriticalMissingItem(t *testing.T) {
	f := newFixture(t)
	_, prep := f.turnover(t, f.north)

	report, err := RaiseMissingItem(f.ctx, f.store, f.rt, f.ops, RaiseMissingItemRequest{
		PreparationID: prep.ID,
		Description:   "One towel short",
	})
	require.NoError(t, err)

	assert.Equal(t, model.CabinInPreparation, f.cabinStatus(t, f.north.ID))
	storedPrep, err := f.store.GetPreparation(f.ctx, prep.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PreparationHasIssues, storedPrep.Status)

	acked, err := AcknowledgeMissingItem(f.ctx, f.store, f.rt, f.admin, report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportAcknowledged, acked.Status)

	storedPrep, err = f.store.GetPreparation(f.ctx, prep.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PreparationPending, storedPrep.Status)

	_, err = AcknowledgeMissingItem(f.ctx, f.store, f.rt, f.admin, report.ID)
	assertKind(t, err, model.KindState)

	_, err = AcknowledgeMissingItem(f.ctx, f.store, f.rt, f.ops, report.ID)
	assertKind(t, err, model.KindForbidden)
}

func TestRaiseMissingItem_Validation(t *testing.T) {
	f := newFixture(t)
	_, prep := f.turnover(t, f.north)

	tests := []struct {
		name  string
		actor model.Actor
		req   RaiseMissingItemRequest
		kind  model.Kind
	}{
		{name: "no cabin or preparation", actor: f.ops, req: RaiseMissingItemRequest{Description: "x"}, kind: model.KindValidation},
		{name: "no description", actor: f.ops, req: RaiseMissingItemRequest{CabinID: f.north.ID}, kind: model.KindValidation},
		{name: "unknown cabin", actor: f.ops, req: RaiseMissingItemRequest{CabinID: "ghost", Description: "x"}, kind: model.KindValidation},
		{name: "unknown preparation", actor: f.ops, req: RaiseMissingItemRequest{PreparationID: "ghost", Description: "x"}, kind: model.KindValidation},
		{name: "preparation of another cabin", actor: f.ops, req: RaiseMissingItemRequest{CabinID: f.south.ID, PreparationID: prep.ID, Description: "x"}, kind: model.KindValidation},
		{name: "customer", actor: f.customer, req: RaiseMissingItemRequest{CabinID: f.north.ID, Description: "x"}, kind: model.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RaiseMissingItem(f.ctx, f.store, f.rt, tt.actor, tt.req)
			assertKind(t, err, tt.kind)
		})
	}
}

func TestRaiseMissingItem_OutsidePreparation(t *testing.T) {
	f := newFixture(t)

	report, err := RaiseMissingItem(f.ctx, f.store, f.rt, f.admin, RaiseMissingItemRequest{
		CabinID:     f.south.ID,
		Description: "Broken window",
		Critical:    true,
	})
	require.NoError(t, err)
	assert.Empty(t, report.PreparationID)
	assert.Equal(t, model.CabinPendingIssue, f.cabinStatus(t, f.south.ID))

	reports, err := ListMissingItemReports(f.ctx, f.store, f.ops, db.MissingItemFilter{CabinID: f.south.ID, CriticalOnly: true})
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	_, err = ListMissingItemReports(f.ctx, f.store, f.customer, db.MissingItemFilter{})
	assertKind(t, err, model.KindForbidden)
}

func TestGetPreparation_Visibility(t *testing.T) {
	f := newFixture(t)
	r, prep := f.turnover(t, f.north)

	res, err := GetPreparation(f.ctx, f.store, f.customer, prep.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Percentage)

	res, err = GetPreparationByReservation(f.ctx, f.store, f.ops, r.ID)
	require.NoError(t, err)
	assert.Equal(t, prep.ID, res.Record.ID)

	_, err = GetPreparation(f.ctx, f.store, model.Actor{ID: "cust-2", Role: model.RoleCustomer}, prep.ID)
	assertKind(t, err, model.KindForbidden)
}
