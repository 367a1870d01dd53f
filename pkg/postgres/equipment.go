package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

const (
	equipmentColumns = `id, name, description, total, available, status`
	loanColumns      = `id, reservation_id, equipment_id, quantity, lent_on, returned_on, returned`
)

func scanEquipment(row pgx.Row) (model.Equipment, error) {
	var e model.Equipment
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Total, &e.Available, &e.Status)
	return e, err
}

func (d *DB) GetEquipment(ctx context.Context, id string) (model.Equipment, error) {
	e, err := scanEquipment(d.pool.QueryRow(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`, id))
	if err != nil {
		return model.Equipment{}, notFound(err)
	}
	return e, nil
}

func (d *DB) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+equipmentColumns+` FROM equipment ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query equipment: %w", err)
	}
	defer rows.Close()

	var out []model.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating equipment: %w", err)
	}
	return out, nil
}

func (d *DB) InsertEquipment(ctx context.Context, e *model.Equipment) error {
	e.ID = orNewID(e.ID)
	_, err := d.pool.Exec(ctx, `
		INSERT INTO equipment (`+equipmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.Name, e.Description, e.Total, e.Available, e.Status)
	if err != nil {
		return fmt.Errorf("failed to insert equipment: %w", err)
	}
	return nil
}

func (d *DB) UpdateEquipment(ctx context.Context, e *model.Equipment) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE equipment
		SET name = $2, description = $3, total = $4, available = $5, status = $6
		WHERE id = $1
	`, e.ID, e.Name, e.Description, e.Total, e.Available, e.Status)
	if err != nil {
		return fmt.Errorf("failed to update equipment: %w", err)
	}
	return expectRow(tag)
}

func scanLoan(row pgx.Row) (model.EquipmentLoan, error) {
	var l model.EquipmentLoan
	err := row.Scan(&l.ID, &l.ReservationID, &l.EquipmentID, &l.Quantity, &l.LentOn, &l.ReturnedOn, &l.Returned)
	return l, err
}

func (d *DB) GetEquipmentLoan(ctx context.Context, id string) (model.EquipmentLoan, error) {
	l, err := scanLoan(d.pool.QueryRow(ctx, `SELECT `+loanColumns+` FROM equipment_loans WHERE id = $1`, id))
	if err != nil {
		return model.EquipmentLoan{}, notFound(err)
	}
	return l, nil
}

func (d *DB) ListEquipmentLoans(ctx context.Context, filter db.EquipmentLoanFilter) ([]model.EquipmentLoan, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+loanColumns+`
		FROM equipment_loans
		WHERE ($1 = '' OR reservation_id = $1)
			AND ($2 = '' OR equipment_id = $2)
			AND (NOT $3 OR NOT returned)
		ORDER BY lent_on, id
	`, filter.ReservationID, filter.EquipmentID, filter.OutstandingOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query equipment loans: %w", err)
	}
	defer rows.Close()

	var out []model.EquipmentLoan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment loan: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating equipment loans: %w", err)
	}
	return out, nil
}

func (d *DB) InsertEquipmentLoan(ctx context.Context, l *model.EquipmentLoan) error {
	l.ID = orNewID(l.ID)
	_, err := d.pool.Exec(ctx, `
		INSERT INTO equipment_loans (`+loanColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, l.ID, l.ReservationID, l.EquipmentID, l.Quantity, l.LentOn, l.ReturnedOn, l.Returned)
	if err != nil {
		return fmt.Errorf("failed to insert equipment loan: %w", err)
	}
	return nil
}

func (d *DB) UpdateEquipmentLoan(ctx context.Context, l *model.EquipmentLoan) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE equipment_loans
		SET quantity = $2, lent_on = $3, returned_on = $4, returned = $5
		WHERE id = $1
	`, l.ID, l.Quantity, l.LentOn, l.ReturnedOn, l.Returned)
	if err != nil {
		return fmt.Errorf("failed to update equipment loan: %w", err)
	}
	return expectRow(tag)
}
