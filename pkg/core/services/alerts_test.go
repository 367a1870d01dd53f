package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/alerts"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

func TestAlerts_SentOncePerBand(t *testing.T) {
	f := newFixture(t)

	// confirming six days out sends the week alert straight away
	r := f.bookConfirmed(t, f.north, 6, 2)
	weekAlerts := ofKind(f.notifier.to(f.customer.ID), model.NotificationAlert)
	require.Len(t, weekAlerts, 1)
	assert.Contains(t, weekAlerts[0].Message, "6 days")

	sent, err := EvaluateDueAlerts(f.ctx, f.store, f.rt)
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "week alert already sent")

	f.advance(2) // four days left
	f.notifier.reset()
	sent, err = EvaluateDueAlerts(f.ctx, f.store, f.rt)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	reminders := ofKind(f.notifier.to(f.customer.ID), model.NotificationReminder)
	require.Len(t, reminders, 1)
	assert.Contains(t, reminders[0].Message, "confirm your arrival")

	// reading the reservation does not send it again
	_, err = GetReservation(f.ctx, f.store, f.rt, f.customer, r.ID)
	require.NoError(t, err)
	assert.Len(t, f.notifier.to(f.customer.ID), 1)

	f.advance(1) // three days left, still unconfirmed
	sent, err = EvaluateDueAlerts(f.ctx, f.store, f.rt)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	reminders = ofKind(f.notifier.to(f.customer.ID), model.NotificationReminder)
	require.Len(t, reminders, 2)
	assert.Contains(t, reminders[1].Message, "3 days")

	f.advance(1) // two days left, still the three day band
	sent, err = EvaluateDueAlerts(f.ctx, f.store, f.rt)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestAlerts_ConfirmedCustomerGetsNoPrompt(t *testing.T) {
	f := newFixture(t)
	r := f.bookConfirmed(t, f.north, 10, 2)

	f.advance(6)
	_, err := CustomerConfirmReservation(f.ctx, f.store, f.rt, f.customer, r.ID)
	require.NoError(t, err)
	f.notifier.reset()

	stored, err := f.store.GetReservation(f.ctx, r.ID)
	require.NoError(t, err)
	alert, err := EvaluateAlerts(f.ctx, f.store, f.rt, stored)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, alerts.ConfirmationWindow, alert.Threshold)
	assert.False(t, alert.PromptsConfirmation)
	assert.Equal(t, model.NotificationAlert, alert.Kind)
}

func TestAlerts_PendingReservationsAreSkipped(t *testing.T) {
	f := newFixture(t)
	r := f.book(t, f.north, 5, 2)

	sent, err := EvaluateDueAlerts(f.ctx, f.store, f.rt)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	alert, err := EvaluateAlerts(f.ctx, f.store, f.rt, *r)
	require.NoError(t, err)
	assert.Nil(t, alert)
}
