package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

const reservationColumns = `id, customer_id, cabin_id, start_date, end_date, guests, status, amount,
	customer_confirmed, customer_confirmed_at, comments, created_at`

func scanReservation(row pgx.Row) (model.Reservation, error) {
	var r model.Reservation
	err := row.Scan(&r.ID, &r.CustomerID, &r.CabinID, &r.Start, &r.End, &r.Guests, &r.Status, &r.Amount,
		&r.CustomerConfirmed, &r.CustomerConfirmedAt, &r.Comments, &r.CreatedAt)
	r.CustomerConfirmedAt = utcPtr(r.CustomerConfirmedAt)
	r.CreatedAt = utc(r.CreatedAt)
	return r, err
}

func (d *DB) GetReservation(ctx context.Context, id string) (model.Reservation, error) {
	r, err := scanReservation(d.pool.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if err != nil {
		return model.Reservation{}, notFound(err)
	}
	return r, nil
}

func (d *DB) ListReservations(ctx context.Context, filter db.ReservationFilter) ([]model.Reservation, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.CabinID != "" {
		add("cabin_id = $%d", filter.CabinID)
	}
	if filter.CustomerID != "" {
		add("customer_id = $%d", filter.CustomerID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}
	if filter.StartFrom != nil {
		add("start_date >= $%d", model.Day(*filter.StartFrom))
	}
	if filter.StartTo != nil {
		add("start_date <= $%d", model.Day(*filter.StartTo))
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_date, id`

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}
	return out, nil
}

func (d *DB) InsertReservation(ctx context.Context, r *model.Reservation) error {
	r.ID = orNewID(r.ID)
	_, err := d.pool.Exec(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.ID, r.CustomerID, r.CabinID, r.Start, r.End, r.Guests, r.Status, r.Amount,
		r.CustomerConfirmed, r.CustomerConfirmedAt, r.Comments, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (d *DB) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE reservations
		SET customer_id = $2, cabin_id = $3, start_date = $4, end_date = $5, guests = $6, status = $7,
			amount = $8, customer_confirmed = $9, customer_confirmed_at = $10, comments = $11
		WHERE id = $1
	`, r.ID, r.CustomerID, r.CabinID, r.Start, r.End, r.Guests, r.Status,
		r.Amount, r.CustomerConfirmed, r.CustomerConfirmedAt, r.Comments)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	return expectRow(tag)
}
