package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// connect skips unless CABANAS_TEST_DATABASE_URL points at a scratch database
func connect(t *testing.T) (*DB, context.Context) {
	t.Helper()
	url := os.Getenv("CABANAS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CABANAS_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	d, err := NewDB(ctx, url)
	require.NoError(t, err)
	t.Cleanup(d.Close)

	_, err = d.RunMigrations(ctx)
	require.NoError(t, err)

	again, err := d.RunMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, again, "migrations are applied once")

	return d, ctx
}

func seedStay(t *testing.T, d *DB, ctx context.Context) (model.Cabin, model.Reservation) {
	t.Helper()
	cabin := model.Cabin{Name: "Cabaña " + uuid.NewString()[:8], Capacity: 4, NightlyPrice: decimal.RequireFromString("50000.50"), Status: model.CabinReady}
	require.NoError(t, d.InsertCabin(ctx, &cabin))

	customer := model.Customer{Name: "Ana Rojas", Email: "ana@example.com", Type: "individual", CreatedAt: time.Now()}
	require.NoError(t, d.InsertCustomer(ctx, &customer))

	r := model.Reservation{
		CustomerID: customer.ID,
		CabinID:    cabin.ID,
		Start:      time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		Guests:     2,
		Status:     model.ReservationPending,
		Amount:     decimal.RequireFromString("150001.50"),
		CreatedAt:  time.Now(),
	}
	require.NoError(t, d.InsertReservation(ctx, &r))
	return cabin, r
}

func TestReservationRoundTrip(t *testing.T) {
	d, ctx := connect(t)
	cabin, r := seedStay(t, d, ctx)

	got, err := d.GetCabin(ctx, cabin.ID)
	require.NoError(t, err)
	assert.True(t, cabin.NightlyPrice.Equal(got.NightlyPrice))

	stored, err := d.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Start, stored.Start)
	assert.Equal(t, r.End, stored.End)
	assert.Equal(t, "150001.50", stored.Amount.StringFixed(2))

	confirmedAt := time.Now().UTC().Truncate(time.Microsecond)
	stored.Status = model.ReservationConfirmed
	stored.CustomerConfirmed = true
	stored.CustomerConfirmedAt = &confirmedAt
	require.NoError(t, d.UpdateReservation(ctx, &stored))

	list, err := d.ListReservations(ctx, db.ReservationFilter{
		CabinID:  cabin.ID,
		Statuses: []model.ReservationStatus{model.ReservationConfirmed},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].CustomerConfirmedAt)
	assert.True(t, confirmedAt.Equal(*list[0].CustomerConfirmedAt))

	_, err = d.GetReservation(ctx, uuid.NewString())
	assert.ErrorIs(t, err, db.ErrNotFound)

	missing := model.Reservation{ID: uuid.NewString()}
	assert.ErrorIs(t, d.UpdateReservation(ctx, &missing), db.ErrNotFound)

	require.NoError(t, d.UpdateCabinStatus(ctx, cabin.ID, model.CabinInPreparation))
	assert.ErrorIs(t, d.UpdateCabinStatus(ctx, uuid.NewString(), model.CabinReady), db.ErrNotFound)
}

func TestDeliveryItemsKeepOrderAndUpsert(t *testing.T) {
	d, ctx := connect(t)
	cabin, r := seedStay(t, d, ctx)

	rec := model.DeliveryRecord{
		ReservationID: r.ID,
		CabinID:       cabin.ID,
		Status:        model.DeliveryPending,
		CreatedAt:     time.Now(),
		Items: []model.VerificationItem{
			{ChecklistItemID: "fridge", Name: "Refrigerator", ReplacementPrice: decimal.NewFromInt(150000), QuantityDelivered: 1, ConditionAtDelivery: model.ConditionGood},
			{ChecklistItemID: "kettle", Name: "Electric kettle", ReplacementPrice: decimal.NewFromInt(25000), QuantityDelivered: 1, ConditionAtDelivery: model.ConditionGood},
		},
	}
	require.NoError(t, d.InsertDelivery(ctx, &rec))

	rec.Status = model.DeliveryVerified
	rec.Items[1].ConditionAtReturn = model.ConditionMissing
	rec.Items[1].Charge = decimal.NewFromInt(25000)
	rec.Items = append(rec.Items, model.VerificationItem{ChecklistItemID: "towels", Name: "Bath towels", ReplacementPrice: decimal.NewFromInt(10000), QuantityDelivered: 6})
	require.NoError(t, d.UpdateDelivery(ctx, &rec))

	got, err := d.GetDeliveryByReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryVerified, got.Status)
	require.Len(t, got.Items, 3)
	assert.Equal(t, []string{"Refrigerator", "Electric kettle", "Bath towels"}, []string{got.Items[0].Name, got.Items[1].Name, got.Items[2].Name})
	assert.Equal(t, "25000.00", got.TotalCharge().StringFixed(2))
}

func TestCatalogUpsertAndAlerts(t *testing.T) {
	d, ctx := connect(t)
	cabin, r := seedStay(t, d, ctx)

	item := model.ChecklistItem{CabinID: cabin.ID, Name: "Microwave", ExpectedQuantity: 1, ReplacementPrice: decimal.NewFromInt(60000)}
	require.NoError(t, d.UpsertChecklistItem(ctx, &item))
	again := model.ChecklistItem{CabinID: cabin.ID, Name: "microwave", ExpectedQuantity: 2, ReplacementPrice: decimal.NewFromInt(65000)}
	require.NoError(t, d.UpsertChecklistItem(ctx, &again))
	assert.Equal(t, item.ID, again.ID, "upsert matches by cabin and name")

	items, err := d.ListChecklistItems(ctx, cabin.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].ExpectedQuantity)

	fresh, err := d.RecordAlert(ctx, r.ID, 7, time.Now())
	require.NoError(t, err)
	assert.True(t, fresh)
	fresh, err = d.RecordAlert(ctx, r.ID, 7, time.Now())
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestAdvisoryLock(t *testing.T) {
	d, ctx := connect(t)
	key := db.CabinKey(uuid.NewString())

	unlock, err := d.Lock(ctx, key)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = d.Lock(waitCtx, key)
	assert.Error(t, err, "second holder waits until the deadline")

	unlock()
	unlock()

	unlock, err = d.Lock(ctx, key)
	require.NoError(t, err)
	unlock()
}

func TestAdvisoryLock_ManyKeysOneTransaction(t *testing.T) {
	d, ctx := connect(t)
	reservationKey := db.ReservationKey(uuid.NewString())
	cabinKey := db.CabinKey(uuid.NewString())

	unlock, err := d.LockAll(ctx, reservationKey, cabinKey)
	require.NoError(t, err)

	for _, key := range []string{reservationKey, cabinKey} {
		waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		_, err = d.Lock(waitCtx, key)
		cancel()
		assert.Error(t, err, "key %s is held", key)
	}

	unlock()

	unlock, err = d.Lock(ctx, cabinKey)
	require.NoError(t, err)
	unlock()
}

func TestAdvisoryLock_HoldersLeaveConnectionsForQueries(t *testing.T) {
	d, ctx := connect(t)

	var unlocks []func()
	for i := 0; i < cap(d.lockSlots); i++ {
		unlock, err := d.Lock(ctx, db.CabinKey(uuid.NewString()))
		require.NoError(t, err)
		unlocks = append(unlocks, unlock)
	}

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := d.ListCabins(queryCtx)
	require.NoError(t, err, "lock holders must not exhaust the pool")

	waitCtx, cancelWait := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancelWait()
	_, err = d.Lock(waitCtx, db.CabinKey(uuid.NewString()))
	assert.Error(t, err, "further holders wait for a slot")

	for _, unlock := range unlocks {
		unlock()
	}
	unlock, err := d.Lock(ctx, db.CabinKey(uuid.NewString()))
	require.NoError(t, err)
	unlock()
}

func TestEquipmentLoanRoundTrip(t *testing.T) {
	d, ctx := connect(t)
	_, r := seedStay(t, d, ctx)

	grill := model.Equipment{Name: "Grill " + uuid.NewString()[:8], Total: 2, Available: 2, Status: model.EquipmentAvailable}
	require.NoError(t, d.InsertEquipment(ctx, &grill))

	loan := model.EquipmentLoan{ReservationID: r.ID, EquipmentID: grill.ID, Quantity: 2, LentOn: r.Start}
	require.NoError(t, d.InsertEquipmentLoan(ctx, &loan))

	grill.Take(loan.Quantity)
	require.NoError(t, d.UpdateEquipment(ctx, &grill))
	stored, err := d.GetEquipment(ctx, grill.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Available)
	assert.Equal(t, model.EquipmentOutOfStock, stored.Status)

	outstanding, err := d.ListEquipmentLoans(ctx, db.EquipmentLoanFilter{ReservationID: r.ID, OutstandingOnly: true})
	require.NoError(t, err)
	require.Len(t, outstanding, 1)
	assert.Nil(t, outstanding[0].ReturnedOn)

	returnedOn := r.End
	loan.Returned = true
	loan.ReturnedOn = &returnedOn
	require.NoError(t, d.UpdateEquipmentLoan(ctx, &loan))

	outstanding, err = d.ListEquipmentLoans(ctx, db.EquipmentLoanFilter{ReservationID: r.ID, OutstandingOnly: true})
	require.NoError(t, err)
	assert.Empty(t, outstanding)

	got, err := d.GetEquipmentLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReturnedOn)
	assert.Equal(t, r.End, *got.ReturnedOn)

	_, err = d.GetEquipmentLoan(ctx, uuid.NewString())
	assert.ErrorIs(t, err, db.ErrNotFound)
}
