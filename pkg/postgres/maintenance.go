package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

const maintenanceColumns = `id, cabin_id, kind, description, scheduled_date, execution_date, status`

func scanMaintenance(row pgx.Row) (model.MaintenanceWindow, error) {
	var m model.MaintenanceWindow
	err := row.Scan(&m.ID, &m.CabinID, &m.Kind, &m.Description, &m.ScheduledDate, &m.ExecutionDate, &m.Status)
	return m, err
}

func (d *DB) GetMaintenance(ctx context.Context, id string) (model.MaintenanceWindow, error) {
	m, err := scanMaintenance(d.pool.QueryRow(ctx, `SELECT `+maintenanceColumns+` FROM maintenance WHERE id = $1`, id))
	if err != nil {
		return model.MaintenanceWindow{}, notFound(err)
	}
	return m, nil
}

func (d *DB) ListMaintenance(ctx context.Context, cabinID string) ([]model.MaintenanceWindow, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+maintenanceColumns+`
		FROM maintenance
		WHERE $1 = '' OR cabin_id = $1
		ORDER BY scheduled_date, id
	`, cabinID)
	if err != nil {
		return nil, fmt.Errorf("failed to query maintenance: %w", err)
	}
	defer rows.Close()

	var windows []model.MaintenanceWindow
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan maintenance: %w", err)
		}
		windows = append(windows, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating maintenance: %w", err)
	}
	return windows, nil
}

func (d *DB) InsertMaintenance(ctx context.Context, m *model.MaintenanceWindow) error {
	m.ID = orNewID(m.ID)
	_, err := d.pool.Exec(ctx, `
		INSERT INTO maintenance (`+maintenanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.CabinID, m.Kind, m.Description, m.ScheduledDate, m.ExecutionDate, m.Status)
	if err != nil {
		return fmt.Errorf("failed to insert maintenance: %w", err)
	}
	return nil
}

func (d *DB) UpdateMaintenance(ctx context.Context, m *model.MaintenanceWindow) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE maintenance
		SET cabin_id = $2, kind = $3, description = $4, scheduled_date = $5, execution_date = $6, status = $7
		WHERE id = $1
	`, m.ID, m.CabinID, m.Kind, m.Description, m.ScheduledDate, m.ExecutionDate, m.Status)
	if err != nil {
		return fmt.Errorf("failed to update maintenance: %w", err)
	}
	return expectRow(tag)
}
