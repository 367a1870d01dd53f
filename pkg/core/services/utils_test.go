package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/locks"
	"github.com/cabecera/ing-software-caba-itas/pkg/memstore"
)

// baseNow is a Saturday
var baseNow = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

type sentNotification struct {
	UserRef string
	Kind    model.NotificationKind
	Message string
}

// mockNotifier records every notification and optionally fails
type mockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (m *mockNotifier) Notify(ctx context.Context, userRef string, kind model.NotificationKind, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{UserRef: userRef, Kind: kind, Message: message})
	return m.err
}

func (m *mockNotifier) to(userRef string) []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentNotification
	for _, n := range m.sent {
		if n.UserRef == userRef {
			out = append(out, n)
		}
	}
	return out
}

func (m *mockNotifier) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

func ofKind(sent []sentNotification, kind model.NotificationKind) []sentNotification {
	var out []sentNotification
	for _, n := range sent {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// fixture is a memstore with two cabins, one customer and the default catalogs
type fixture struct {
	ctx      context.Context
	store    *memstore.DB
	notifier *mockNotifier
	rt       Runtime
	now      time.Time

	admin    model.Actor
	ops      model.Actor
	customer model.Actor

	north model.Cabin
	south model.Cabin
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:      context.Background(),
		store:    memstore.New(),
		notifier: &mockNotifier{},
		now:      baseNow,
		admin:    model.Actor{ID: "admin-1", Role: model.RoleAdmin},
		ops:      model.Actor{ID: "ops-1", Role: model.RoleOperations},
		customer: model.Actor{ID: "cust-1", Role: model.RoleCustomer},
	}
	f.rt = Runtime{
		Locker:   locks.NewMemory(),
		Notifier: f.notifier,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return f.now },
	}

	north, err := RegisterCabin(f.ctx, f.store, f.rt, f.admin, RegisterCabinRequest{
		Name: "Cabaña Norte", Capacity: 4, NightlyPrice: decimal.NewFromInt(50000),
	})
	require.NoError(t, err)
	f.north = *north

	south, err := RegisterCabin(f.ctx, f.store, f.rt, f.admin, RegisterCabinRequest{
		Name: "Cabaña Sur", Capacity: 6, NightlyPrice: decimal.NewFromInt(60000),
	})
	require.NoError(t, err)
	f.south = *south

	_, err = RegisterCustomer(f.ctx, f.store, f.rt, f.customer, RegisterCustomerRequest{
		Name: "Ana Rojas", Email: "ana@example.com", Phone: "+56911112222",
	})
	require.NoError(t, err)

	_, err = SeedCatalogs(f.ctx, f.store, f.rt, f.admin)
	require.NoError(t, err)

	f.notifier.reset()
	return f
}

// day is baseNow's date plus offset days, independent of the current clock
func (f *fixture) day(offset int) time.Time {
	return model.Day(baseNow).AddDate(0, 0, offset)
}

func (f *fixture) advance(days int) {
	f.now = f.now.AddDate(0, 0, days)
}

func (f *fixture) book(t *testing.T, cabin model.Cabin, startOffset, nights int) *model.Reservation {
	t.Helper()
	r, err := CreateReservation(f.ctx, f.store, f.rt, f.customer, CreateReservationRequest{
		CabinID: cabin.ID,
		Start:   f.day(startOffset),
		End:     f.day(startOffset + nights),
		Guests:  2,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) bookConfirmed(t *testing.T, cabin model.Cabin, startOffset, nights int) *model.Reservation {
	t.Helper()
	r := f.book(t, cabin, startOffset, nights)
	confirmed, err := ConfirmReservation(f.ctx, f.store, f.rt, f.admin, r.ID)
	require.NoError(t, err)
	return confirmed
}

// turnover books a 3 night stay starting at day 10, confirms it, moves the clock into
// the confirmation window and lets the customer confirm.
func (f *fixture) turnover(t *testing.T, cabin model.Cabin) (*model.Reservation, *model.PreparationRecord) {
	t.Helper()
	r := f.bookConfirmed(t, cabin, 10, 3)
	f.advance(6)
	res, err := CustomerConfirmReservation(f.ctx, f.store, f.rt, f.customer, r.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Preparation)
	return &res.Reservation, res.Preparation
}

func (f *fixture) cabinStatus(t *testing.T, cabinID string) model.CabinStatus {
	t.Helper()
	cabin, err := f.store.GetCabin(f.ctx, cabinID)
	require.NoError(t, err)
	return cabin.Status
}

func (f *fixture) checklistID(t *testing.T, cabinID, name string) string {
	t.Helper()
	items, err := f.store.ListChecklistItems(f.ctx, cabinID)
	require.NoError(t, err)
	for _, item := range items {
		if item.Name == name {
			return item.ID
		}
	}
	t.Fatalf("checklist item %q not found for cabin %s", name, cabinID)
	return ""
}

func assertKind(t *testing.T, err error, kind model.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, model.KindOf(err), err.Error())
}

func errRef(err error) string {
	var e *model.Error
	if errors.As(err, &e) {
		return e.Ref
	}
	return ""
}
