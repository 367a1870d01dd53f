package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

func (f *fixture) equipment(t *testing.T, name string, quantity int) *model.Equipment {
	t.Helper()
	e, err := RegisterEquipment(f.ctx, f.store, f.rt, f.ops, RegisterEquipmentRequest{Name: name, Quantity: quantity})
	require.NoError(t, err)
	return e
}

func TestEquipment_LendAndReturn(t *testing.T) {
	f := newFixture(t)
	kayak := f.equipment(t, "Kayak", 2)
	assert.Equal(t, model.EquipmentAvailable, kayak.Status)
	assert.Equal(t, 2, kayak.Available)

	r := f.bookConfirmed(t, f.north, 10, 3)
	lend := func(qty int) (*model.EquipmentLoan, error) {
		return LendEquipment(f.ctx, f.store, f.rt, f.customer, LendEquipmentRequest{
			ReservationID: r.ID, EquipmentID: kayak.ID, Quantity: qty,
		})
	}

	_, err := lend(1)
	assertKind(t, err, model.KindState)

	f.advance(10) // check-in day
	first, err := lend(1)
	require.NoError(t, err)
	assert.Equal(t, f.day(10), first.LentOn)
	assert.False(t, first.Returned)

	stock, err := f.store.GetEquipment(f.ctx, kayak.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stock.Available)
	assert.Equal(t, model.EquipmentAvailable, stock.Status)

	_, err = lend(2)
	assertKind(t, err, model.KindConflict)
	assert.Equal(t, kayak.ID, errRef(err))

	f.notifier.reset()
	_, err = lend(1)
	require.NoError(t, err)
	stock, err = f.store.GetEquipment(f.ctx, kayak.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock.Available)
	assert.Equal(t, model.EquipmentOutOfStock, stock.Status)
	assert.Len(t, f.notifier.to(StaffInbox), 1)

	_, err = lend(1)
	assertKind(t, err, model.KindConflict)

	_, err = ReturnEquipment(f.ctx, f.store, f.rt, f.customer, first.ID)
	assertKind(t, err, model.KindForbidden)

	f.advance(1)
	returned, err := ReturnEquipment(f.ctx, f.store, f.rt, f.ops, first.ID)
	require.NoError(t, err)
	assert.True(t, returned.Returned)
	require.NotNil(t, returned.ReturnedOn)
	assert.Equal(t, f.day(11), *returned.ReturnedOn)

	stock, err = f.store.GetEquipment(f.ctx, kayak.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stock.Available)
	assert.Equal(t, model.EquipmentAvailable, stock.Status)

	_, err = ReturnEquipment(f.ctx, f.store, f.rt, f.ops, first.ID)
	assertKind(t, err, model.KindState)

	outstanding, err := ListEquipmentLoans(f.ctx, f.store, f.customer, db.EquipmentLoanFilter{ReservationID: r.ID, OutstandingOnly: true})
	require.NoError(t, err)
	assert.Len(t, outstanding, 1)

	all, err := ListEquipmentLoans(f.ctx, f.store, f.ops, db.EquipmentLoanFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEquipment_Rejections(t *testing.T) {
	f := newFixture(t)
	grill := f.equipment(t, "Grill", 1)
	confirmed := f.bookConfirmed(t, f.north, 10, 3)
	pending := f.book(t, f.south, 10, 3)
	f.advance(10)

	_, err := RegisterEquipment(f.ctx, f.store, f.rt, f.ops, RegisterEquipmentRequest{Name: "Bike", Quantity: 0})
	assertKind(t, err, model.KindValidation)
	_, err = RegisterEquipment(f.ctx, f.store, f.rt, f.customer, RegisterEquipmentRequest{Name: "Bike", Quantity: 1})
	assertKind(t, err, model.KindForbidden)

	stranger := model.Actor{ID: "cust-2", Role: model.RoleCustomer}
	tests := []struct {
		name  string
		actor model.Actor
		req   LendEquipmentRequest
		kind  model.Kind
	}{
		{"unknown equipment", f.customer, LendEquipmentRequest{ReservationID: confirmed.ID, EquipmentID: "ghost", Quantity: 1}, model.KindValidation},
		{"unknown reservation", f.customer, LendEquipmentRequest{ReservationID: "ghost", EquipmentID: grill.ID, Quantity: 1}, model.KindValidation},
		{"zero quantity", f.customer, LendEquipmentRequest{ReservationID: confirmed.ID, EquipmentID: grill.ID}, model.KindValidation},
		{"someone else's stay", stranger, LendEquipmentRequest{ReservationID: confirmed.ID, EquipmentID: grill.ID, Quantity: 1}, model.KindForbidden},
		{"pending reservation", f.customer, LendEquipmentRequest{ReservationID: pending.ID, EquipmentID: grill.ID, Quantity: 1}, model.KindState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LendEquipment(f.ctx, f.store, f.rt, tt.actor, tt.req)
			assertKind(t, err, tt.kind)
		})
	}

	_, err = ListEquipmentLoans(f.ctx, f.store, f.customer, db.EquipmentLoanFilter{})
	assertKind(t, err, model.KindForbidden)
	_, err = ReturnEquipment(f.ctx, f.store, f.rt, f.ops, "ghost")
	assertKind(t, err, model.KindNotFound)

	stock, err := f.store.GetEquipment(f.ctx, grill.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stock.Available, "rejected loans leave stock alone")
}

func TestEquipment_MaintenanceStopsLending(t *testing.T) {
	f := newFixture(t)
	bike := f.equipment(t, "Bike", 2)
	r := f.bookConfirmed(t, f.north, 10, 3)
	f.advance(11)

	loan, err := LendEquipment(f.ctx, f.store, f.rt, f.ops, LendEquipmentRequest{ReservationID: r.ID, EquipmentID: bike.ID, Quantity: 1})
	require.NoError(t, err)

	held, err := SetEquipmentMaintenance(f.ctx, f.store, f.rt, f.ops, bike.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentMaintenance, held.Status)

	_, err = LendEquipment(f.ctx, f.store, f.rt, f.ops, LendEquipmentRequest{ReservationID: r.ID, EquipmentID: bike.ID, Quantity: 1})
	assertKind(t, err, model.KindConflict)

	// returns still land while the item is held back
	_, err = ReturnEquipment(f.ctx, f.store, f.rt, f.ops, loan.ID)
	require.NoError(t, err)
	stock, err := f.store.GetEquipment(f.ctx, bike.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stock.Available)
	assert.Equal(t, model.EquipmentMaintenance, stock.Status)

	back, err := SetEquipmentMaintenance(f.ctx, f.store, f.rt, f.ops, bike.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentAvailable, back.Status)

	items, err := ListEquipment(f.ctx, f.store)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Bike", items[0].Name)
}

func TestLendEquipment_ConcurrentLoansNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	lantern := f.equipment(t, "Lantern", 3)
	r := f.bookConfirmed(t, f.north, 10, 3)
	f.advance(10)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := LendEquipment(f.ctx, f.store, f.rt, f.customer, LendEquipmentRequest{
				ReservationID: r.ID, EquipmentID: lantern.ID, Quantity: 1,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case model.IsKind(err, model.KindConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, successes)
	assert.Equal(t, attempts-3, conflicts)

	stock, err := f.store.GetEquipment(f.ctx, lantern.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock.Available)
	assert.Equal(t, model.EquipmentOutOfStock, stock.Status)
}
