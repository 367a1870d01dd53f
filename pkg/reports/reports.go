// Package reports builds the administrator dashboard and the annual report.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

const (
	// UpcomingDays is how far ahead the dashboard counts confirmed arrivals
	UpcomingDays = 7
	recentLimit  = 10
	topCabins    = 5
)

// Store is what the reports read
type Store interface {
	db.CabinStore
	db.ReservationStore
	db.PaymentStore
	db.SurveyStore
}

type Dashboard struct {
	Today              time.Time           `json:"today"`
	TotalReservations  int                 `json:"total_reservations"`
	PendingCount       int                 `json:"pending_count"`
	UpcomingCheckIns   int                 `json:"upcoming_check_ins"`
	RevenueThisMonth   decimal.Decimal     `json:"revenue_this_month"`
	OccupancyRate      decimal.Decimal     `json:"occupancy_rate"`
	RecentReservations []model.Reservation `json:"recent_reservations"`
}

type CabinCount struct {
	CabinID      string `json:"cabin_id"`
	Name         string `json:"name"`
	Reservations int    `json:"reservations"`
}

type AnnualReport struct {
	Year int `json:"year"`
	// index 0 is January
	ConfirmedByMonth [12]int             `json:"confirmed_by_month"`
	RevenueByMonth   [12]decimal.Decimal `json:"revenue_by_month"`
	Surveys          int                 `json:"surveys"`
	AverageRating    decimal.Decimal     `json:"average_rating"`
	TopCabins        []CabinCount        `json:"top_cabins"`
}

// TotalRevenue sums the monthly revenue
func (a AnnualReport) TotalRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, m := range a.RevenueByMonth {
		total = total.Add(m)
	}
	return total
}

func requireAdmin(op string, actor model.Actor) error {
	if !actor.Is(model.RoleAdmin) {
		return model.Forbiddenf(op, "role %q may not view reports", actor.Role)
	}
	return nil
}

// BuildDashboard summarises bookings, this month's payments and today's occupancy
func BuildDashboard(ctx context.Context, store Store, actor model.Actor, now time.Time) (*Dashboard, error) {
	const op = "Dashboard"

	if err := requireAdmin(op, actor); err != nil {
		return nil, err
	}

	today := model.Day(now)

	reservations, err := store.ListReservations(ctx, db.ReservationFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	cabins, err := store.ListCabins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cabins: %w", err)
	}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	payments, err := store.ListPayments(ctx, db.PaymentFilter{PaidFrom: &monthStart, PaidTo: &monthEnd})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	d := &Dashboard{
		Today:             today,
		TotalReservations: len(reservations),
		RevenueThisMonth:  decimal.Zero,
		OccupancyRate:     decimal.Zero,
	}

	horizon := today.AddDate(0, 0, UpcomingDays)
	occupied := 0
	for _, r := range reservations {
		switch r.Status {
		case model.ReservationPending:
			d.PendingCount++
		case model.ReservationConfirmed:
			if !r.Start.Before(today) && !r.Start.After(horizon) {
				d.UpcomingCheckIns++
			}
			if !r.Start.After(today) && today.Before(r.End) {
				occupied++
			}
		}
	}

	for _, p := range payments {
		d.RevenueThisMonth = d.RevenueThisMonth.Add(p.Amount)
	}

	if len(cabins) > 0 {
		d.OccupancyRate = decimal.NewFromInt(int64(occupied)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(len(cabins)))).
			Round(2)
	}

	recent := append([]model.Reservation(nil), reservations...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	d.RecentReservations = recent

	return d, nil
}

// BuildAnnualReport covers reservations starting in year, payments made in year
// and surveys submitted in year
func BuildAnnualReport(ctx context.Context, store Store, actor model.Actor, year int) (*AnnualReport, error) {
	const op = "AnnualReport"

	if err := requireAdmin(op, actor); err != nil {
		return nil, err
	}
	if year < 2000 || year > 9999 {
		return nil, model.Validationf(op, "year %d is out of range", year)
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	reservations, err := store.ListReservations(ctx, db.ReservationFilter{StartFrom: &from, StartTo: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	payments, err := store.ListPayments(ctx, db.PaymentFilter{PaidFrom: &from, PaidTo: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	surveys, err := store.ListSurveys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	cabins, err := store.ListCabins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cabins: %w", err)
	}

	report := &AnnualReport{Year: year, AverageRating: decimal.Zero}
	for i := range report.RevenueByMonth {
		report.RevenueByMonth[i] = decimal.Zero
	}

	counts := make(map[string]int)
	for _, r := range reservations {
		if r.Status == model.ReservationCancelled {
			continue
		}
		counts[r.CabinID]++
		if r.Status == model.ReservationConfirmed || r.Status == model.ReservationCompleted {
			report.ConfirmedByMonth[r.Start.Month()-1]++
		}
	}

	for _, p := range payments {
		m := p.PaidOn.Month() - 1
		report.RevenueByMonth[m] = report.RevenueByMonth[m].Add(p.Amount)
	}

	ratingSum := 0
	for _, s := range surveys {
		if s.CreatedAt.UTC().Year() != year {
			continue
		}
		ratingSum += s.Rating
		report.Surveys++
	}
	if report.Surveys > 0 {
		report.AverageRating = decimal.NewFromInt(int64(ratingSum)).Div(decimal.NewFromInt(int64(report.Surveys))).Round(2)
	}

	for _, c := range cabins {
		report.TopCabins = append(report.TopCabins, CabinCount{CabinID: c.ID, Name: c.Name, Reservations: counts[c.ID]})
	}
	sort.SliceStable(report.TopCabins, func(i, j int) bool {
		a, b := report.TopCabins[i], report.TopCabins[j]
		if a.Reservations != b.Reservations {
			return a.Reservations > b.Reservations
		}
		return a.Name < b.Name
	})
	if len(report.TopCabins) > topCabins {
		report.TopCabins = report.TopCabins[:topCabins]
	}

	return report, nil
}
