package reports

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/memstore"
)

var admin = model.Actor{ID: "admin-1", Role: model.RoleAdmin}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type seeder struct {
	t     *testing.T
	store *memstore.DB
	ctx   context.Context
}

func newSeeder(t *testing.T) *seeder {
	return &seeder{t: t, store: memstore.New(), ctx: context.Background()}
}

func (s *seeder) cabin(id, name string) {
	require.NoError(s.t, s.store.InsertCabin(s.ctx, &model.Cabin{ID: id, Name: name, Capacity: 4, Status: model.CabinReady}))
}

func (s *seeder) stay(id, cabinID string, start, end time.Time, status model.ReservationStatus, created time.Time) {
	require.NoError(s.t, s.store.InsertReservation(s.ctx, &model.Reservation{
		ID: id, CustomerID: "cust-1", CabinID: cabinID, Start: start, End: end,
		Guests: 2, Status: status, CreatedAt: created,
	}))
}

func (s *seeder) payment(amount string, paidOn time.Time) {
	require.NoError(s.t, s.store.InsertPayment(s.ctx, &model.Payment{
		ReservationID: "r1", Amount: decimal.RequireFromString(amount), Method: model.PaymentTransfer, PaidOn: paidOn,
	}))
}

func (s *seeder) survey(reservationID string, rating int, created time.Time) {
	require.NoError(s.t, s.store.InsertSurvey(s.ctx, &model.Survey{ReservationID: reservationID, Rating: rating, CreatedAt: created}))
}

func TestBuildDashboard(t *testing.T) {
	s := newSeeder(t)
	s.cabin("a", "Alerce")
	s.cabin("b", "Boldo")
	s.cabin("c", "Coigue")

	s.stay("r1", "a", day(2026, 3, 14), day(2026, 3, 17), model.ReservationConfirmed, day(2026, 1, 1))
	s.stay("r2", "b", day(2026, 3, 18), day(2026, 3, 20), model.ReservationConfirmed, day(2026, 1, 2))
	s.stay("r3", "c", day(2026, 3, 15), day(2026, 3, 16), model.ReservationPending, day(2026, 1, 3))
	s.stay("r4", "c", day(2026, 3, 22), day(2026, 3, 24), model.ReservationConfirmed, day(2026, 1, 4))
	s.stay("r5", "c", day(2026, 3, 23), day(2026, 3, 25), model.ReservationConfirmed, day(2026, 1, 5))
	s.stay("r6", "a", day(2026, 3, 15), day(2026, 3, 17), model.ReservationCancelled, day(2026, 1, 6))
	s.stay("r7", "b", day(2026, 3, 10), day(2026, 3, 15), model.ReservationConfirmed, day(2026, 1, 7))

	s.payment("25000", day(2026, 3, 1))
	s.payment("10000.50", day(2026, 3, 31))
	s.payment("5000", day(2026, 2, 28))

	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	d, err := BuildDashboard(s.ctx, s.store, admin, now)
	require.NoError(t, err)

	assert.Equal(t, day(2026, 3, 15), d.Today)
	assert.Equal(t, 7, d.TotalReservations)
	assert.Equal(t, 1, d.PendingCount)
	assert.Equal(t, 2, d.UpcomingCheckIns, "arrivals from today through today+7")
	assert.Equal(t, "35000.50", d.RevenueThisMonth.StringFixed(2))
	assert.Equal(t, "33.33", d.OccupancyRate.StringFixed(2), "one of three cabins hosts a confirmed stay tonight")

	require.Len(t, d.RecentReservations, 7)
	assert.Equal(t, "r7", d.RecentReservations[0].ID)
	assert.Equal(t, "r1", d.RecentReservations[6].ID)
}

func TestBuildDashboard_Empty(t *testing.T) {
	s := newSeeder(t)

	d, err := BuildDashboard(s.ctx, s.store, admin, time.Now())
	require.NoError(t, err)
	assert.Zero(t, d.TotalReservations)
	assert.True(t, d.OccupancyRate.IsZero())
	assert.True(t, d.RevenueThisMonth.IsZero())
	assert.Empty(t, d.RecentReservations)
}

func TestBuildDashboard_RecentIsCapped(t *testing.T) {
	s := newSeeder(t)
	s.cabin("a", "Alerce")
	for i := range 12 {
		start := day(2026, 5, 1).AddDate(0, 0, i*2)
		s.stay("r"+string(rune('a'+i)), "a", start, start.AddDate(0, 0, 1), model.ReservationPending, day(2026, 1, 1+i))
	}

	d, err := BuildDashboard(s.ctx, s.store, admin, day(2026, 4, 1))
	require.NoError(t, err)
	require.Len(t, d.RecentReservations, 10)
	assert.Equal(t, "rl", d.RecentReservations[0].ID)
}

func seedYear(t *testing.T) *seeder {
	s := newSeeder(t)
	s.cabin("a", "Alerce")
	s.cabin("b", "Boldo")
	s.cabin("c", "Coigue")
	s.cabin("d", "Drimys")
	s.cabin("e", "Espino")
	s.cabin("f", "Fuinque")

	created := day(2025, 12, 1)
	s.stay("r1", "a", day(2026, 1, 5), day(2026, 1, 7), model.ReservationCompleted, created)
	s.stay("r2", "a", day(2026, 3, 1), day(2026, 3, 3), model.ReservationConfirmed, created)
	s.stay("r3", "b", day(2026, 3, 10), day(2026, 3, 12), model.ReservationConfirmed, created)
	s.stay("r4", "b", day(2026, 6, 1), day(2026, 6, 3), model.ReservationPending, created)
	s.stay("r5", "c", day(2026, 6, 10), day(2026, 6, 12), model.ReservationConfirmed, created)
	s.stay("r6", "c", day(2026, 7, 1), day(2026, 7, 3), model.ReservationConfirmed, created)
	s.stay("r7", "c", day(2026, 8, 1), day(2026, 8, 3), model.ReservationConfirmed, created)
	s.stay("r8", "c", day(2026, 9, 1), day(2026, 9, 3), model.ReservationCancelled, created)
	s.stay("r9", "a", day(2025, 12, 20), day(2025, 12, 22), model.ReservationCompleted, created)

	s.payment("100000", day(2026, 1, 15))
	s.payment("50000.25", day(2026, 1, 20))
	s.payment("30000", day(2026, 7, 1))
	s.payment("99999", day(2025, 12, 31))

	s.survey("r1", 5, day(2026, 1, 8))
	s.survey("r2", 4, day(2026, 3, 4))
	s.survey("r3", 4, day(2026, 3, 13))
	s.survey("r9", 1, day(2025, 12, 23))
	return s
}

func TestBuildAnnualReport(t *testing.T) {
	s := seedYear(t)

	report, err := BuildAnnualReport(s.ctx, s.store, admin, 2026)
	require.NoError(t, err)

	assert.Equal(t, [12]int{1, 0, 2, 0, 0, 1, 1, 1, 0, 0, 0, 0}, report.ConfirmedByMonth)
	assert.Equal(t, "150000.25", report.RevenueByMonth[0].StringFixed(2))
	assert.Equal(t, "30000.00", report.RevenueByMonth[6].StringFixed(2))
	assert.True(t, report.RevenueByMonth[11].IsZero())
	assert.Equal(t, "180000.25", report.TotalRevenue().StringFixed(2))

	assert.Equal(t, 3, report.Surveys)
	assert.Equal(t, "4.33", report.AverageRating.StringFixed(2))

	require.Len(t, report.TopCabins, 5)
	assert.Equal(t, []CabinCount{
		{CabinID: "c", Name: "Coigue", Reservations: 3},
		{CabinID: "a", Name: "Alerce", Reservations: 2},
		{CabinID: "b", Name: "Boldo", Reservations: 2},
		{CabinID: "d", Name: "Drimys", Reservations: 0},
		{CabinID: "e", Name: "Espino", Reservations: 0},
	}, report.TopCabins)
}

func TestBuildAnnualReport_Errors(t *testing.T) {
	s := newSeeder(t)

	_, err := BuildAnnualReport(s.ctx, s.store, model.Actor{ID: "ops-1", Role: model.RoleOperations}, 2026)
	assert.True(t, model.IsKind(err, model.KindForbidden))

	_, err = BuildAnnualReport(s.ctx, s.store, admin, 1999)
	assert.True(t, model.IsKind(err, model.KindValidation))

	_, err = BuildDashboard(s.ctx, s.store, model.Actor{ID: "cust-1", Role: model.RoleCustomer}, time.Now())
	assert.True(t, model.IsKind(err, model.KindForbidden))

	report, err := BuildAnnualReport(s.ctx, s.store, admin, 2026)
	require.NoError(t, err)
	assert.True(t, report.AverageRating.IsZero())
	assert.Empty(t, report.TopCabins)
}

func TestWriteAnnualXLSX(t *testing.T) {
	s := seedYear(t)
	report, err := BuildAnnualReport(s.ctx, s.store, admin, 2026)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteAnnualXLSX(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, cabinsSheet}, f.GetSheetList())

	cell := func(sheet, ref string) string {
		v, err := f.GetCellValue(sheet, ref)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Month", cell(summarySheet, "A1"))
	assert.Equal(t, "January", cell(summarySheet, "A2"))
	assert.Equal(t, "1", cell(summarySheet, "B2"))
	assert.Equal(t, "150000.25", cell(summarySheet, "C2"))
	assert.Equal(t, "Total", cell(summarySheet, "A14"))
	assert.Equal(t, "6", cell(summarySheet, "B14"))
	assert.Equal(t, "2026", cell(summarySheet, "B16"))
	assert.Equal(t, "3", cell(summarySheet, "B17"))
	assert.Equal(t, "4.33", cell(summarySheet, "B18"))

	assert.Equal(t, "Coigue", cell(cabinsSheet, "A2"))
	assert.Equal(t, "3", cell(cabinsSheet, "B2"))
	assert.Equal(t, "Espino", cell(cabinsSheet, "A6"))
}
