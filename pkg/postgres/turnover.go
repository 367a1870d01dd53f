package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

// Catalogs

func (d *DB) ListPreparationTasks(ctx context.Context) ([]model.PreparationTask, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, category, description, mandatory, sort_order
		FROM preparation_tasks
		ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query preparation tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.PreparationTask
	for rows.Next() {
		var t model.PreparationTask
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Description, &t.Mandatory, &t.Order); err != nil {
			return nil, fmt.Errorf("failed to scan preparation task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating preparation tasks: %w", err)
	}
	return tasks, nil
}

func (d *DB) UpsertPreparationTask(ctx context.Context, task *model.PreparationTask) error {
	err := d.pool.QueryRow(ctx, `
		INSERT INTO preparation_tasks (id, name, category, description, mandatory, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ((LOWER(name))) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category, description = EXCLUDED.description,
			mandatory = EXCLUDED.mandatory, sort_order = EXCLUDED.sort_order
		RETURNING id
	`, orNewID(task.ID), task.Name, task.Category, task.Description, task.Mandatory, task.Order).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert preparation task %q: %w", task.Name, err)
	}
	return nil
}

func (d *DB) ListChecklistItems(ctx context.Context, cabinID string) ([]model.ChecklistItem, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, cabin_id, name, category, expected_quantity, mandatory, replacement_price, sort_order
		FROM checklist_items
		WHERE cabin_id = $1
		ORDER BY sort_order, name
	`, cabinID)
	if err != nil {
		return nil, fmt.Errorf("failed to query checklist items: %w", err)
	}
	defer rows.Close()

	var items []model.ChecklistItem
	for rows.Next() {
		var c model.ChecklistItem
		if err := rows.Scan(&c.ID, &c.CabinID, &c.Name, &c.Category, &c.ExpectedQuantity, &c.Mandatory, &c.ReplacementPrice, &c.Order); err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checklist items: %w", err)
	}
	return items, nil
}

func (d *DB) UpsertChecklistItem(ctx context.Context, item *model.ChecklistItem) error {
	err := d.pool.QueryRow(ctx, `
		INSERT INTO checklist_items (id, cabin_id, name, category, expected_quantity, mandatory, replacement_price, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (cabin_id, (LOWER(name))) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category, expected_quantity = EXCLUDED.expected_quantity,
			mandatory = EXCLUDED.mandatory, replacement_price = EXCLUDED.replacement_price, sort_order = EXCLUDED.sort_order
		RETURNING id
	`, orNewID(item.ID), item.CabinID, item.Name, item.Category, item.ExpectedQuantity, item.Mandatory,
		item.ReplacementPrice, item.Order).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert checklist item %q: %w", item.Name, err)
	}
	return nil
}

// Preparation records

const preparationColumns = `id, reservation_id, cabin_id, operator_id, status, started_at, completed_at, observations, created_at`

func (d *DB) GetPreparation(ctx context.Context, id string) (model.PreparationRecord, error) {
	return d.getPreparation(ctx, `id = $1`, id)
}

func (d *DB) GetPreparationByReservation(ctx context.Context, reservationID string) (model.PreparationRecord, error) {
	return d.getPreparation(ctx, `reservation_id = $1`, reservationID)
}

func (d *DB) getPreparation(ctx context.Context, where string, arg string) (model.PreparationRecord, error) {
	var p model.PreparationRecord
	err := d.pool.QueryRow(ctx, `SELECT `+preparationColumns+` FROM preparations WHERE `+where, arg).
		Scan(&p.ID, &p.ReservationID, &p.CabinID, &p.OperatorID, &p.Status, &p.StartedAt, &p.CompletedAt, &p.Observations, &p.CreatedAt)
	if err != nil {
		return model.PreparationRecord{}, notFound(err)
	}
	p.StartedAt = utcPtr(p.StartedAt)
	p.CompletedAt = utcPtr(p.CompletedAt)
	p.CreatedAt = utc(p.CreatedAt)

	rows, err := d.pool.Query(ctx, `
		SELECT task_id, task_name, sort_order, completed, completed_at
		FROM preparation_task_completions
		WHERE preparation_id = $1
		ORDER BY sort_order, task_id
	`, p.ID)
	if err != nil {
		return model.PreparationRecord{}, fmt.Errorf("failed to query task completions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t model.TaskCompletion
		if err := rows.Scan(&t.TaskID, &t.TaskName, &t.Order, &t.Completed, &t.CompletedAt); err != nil {
			return model.PreparationRecord{}, fmt.Errorf("failed to scan task completion: %w", err)
		}
		t.CompletedAt = utcPtr(t.CompletedAt)
		p.Tasks = append(p.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return model.PreparationRecord{}, fmt.Errorf("error iterating task completions: %w", err)
	}

	return p, nil
}

func (d *DB) InsertPreparation(ctx context.Context, p *model.PreparationRecord) error {
	p.ID = orNewID(p.ID)
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO preparations (`+preparationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, p.ID, p.ReservationID, p.CabinID, p.OperatorID, p.Status, p.StartedAt, p.CompletedAt, p.Observations, p.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert preparation: %w", err)
		}
		return writeTaskCompletions(ctx, tx, p)
	})
}

func (d *DB) UpdatePreparation(ctx context.Context, p *model.PreparationRecord) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE preparations
			SET cabin_id = $2, operator_id = $3, status = $4, started_at = $5, completed_at = $6, observations = $7
			WHERE id = $1
		`, p.ID, p.CabinID, p.OperatorID, p.Status, p.StartedAt, p.CompletedAt, p.Observations)
		if err != nil {
			return fmt.Errorf("failed to update preparation: %w", err)
		}
		if err := expectRow(tag); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM preparation_task_completions WHERE preparation_id = $1`, p.ID); err != nil {
			return fmt.Errorf("failed to clear task completions: %w", err)
		}
		return writeTaskCompletions(ctx, tx, p)
	})
}

func writeTaskCompletions(ctx context.Context, tx pgx.Tx, p *model.PreparationRecord) error {
	batch := &pgx.Batch{}
	for _, t := range p.Tasks {
		batch.Queue(`
			INSERT INTO preparation_task_completions (preparation_id, task_id, task_name, sort_order, completed, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, p.ID, t.TaskID, t.TaskName, t.Order, t.Completed, t.CompletedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to write task completions: %w", err)
	}
	return nil
}

// Delivery records

const deliveryColumns = `id, reservation_id, cabin_id, status, delivered_at, delivered_by, signature, returned_at,
	customer_confirms_delivery, customer_confirms_return, delivery_notes, return_notes, created_at`

func (d *DB) GetDeliveryByReservation(ctx context.Context, reservationID string) (model.DeliveryRecord, error) {
	var rec model.DeliveryRecord
	err := d.pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE reservation_id = $1`, reservationID).
		Scan(&rec.ID, &rec.ReservationID, &rec.CabinID, &rec.Status, &rec.DeliveredAt, &rec.DeliveredBy, &rec.Signature,
			&rec.ReturnedAt, &rec.CustomerConfirmsDelivery, &rec.CustomerConfirmsReturn, &rec.DeliveryNotes,
			&rec.ReturnNotes, &rec.CreatedAt)
	if err != nil {
		return model.DeliveryRecord{}, notFound(err)
	}
	rec.DeliveredAt = utcPtr(rec.DeliveredAt)
	rec.ReturnedAt = utcPtr(rec.ReturnedAt)
	rec.CreatedAt = utc(rec.CreatedAt)

	rows, err := d.pool.Query(ctx, `
		SELECT id, checklist_item_id, name, replacement_price, quantity_delivered, quantity_returned,
			condition_at_delivery, condition_at_return, charge, requires_replacement
		FROM verification_items
		WHERE delivery_id = $1
		ORDER BY position
	`, rec.ID)
	if err != nil {
		return model.DeliveryRecord{}, fmt.Errorf("failed to query verification items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.VerificationItem
		if err := rows.Scan(&item.ID, &item.ChecklistItemID, &item.Name, &item.ReplacementPrice, &item.QuantityDelivered,
			&item.QuantityReturned, &item.ConditionAtDelivery, &item.ConditionAtReturn, &item.Charge, &item.RequiresReplacement); err != nil {
			return model.DeliveryRecord{}, fmt.Errorf("failed to scan verification item: %w", err)
		}
		rec.Items = append(rec.Items, item)
	}
	if err := rows.Err(); err != nil {
		return model.DeliveryRecord{}, fmt.Errorf("error iterating verification items: %w", err)
	}

	return rec, nil
}

func (d *DB) InsertDelivery(ctx context.Context, rec *model.DeliveryRecord) error {
	rec.ID = orNewID(rec.ID)
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO deliveries (`+deliveryColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, rec.ID, rec.ReservationID, rec.CabinID, rec.Status, rec.DeliveredAt, rec.DeliveredBy, rec.Signature,
			rec.ReturnedAt, rec.CustomerConfirmsDelivery, rec.CustomerConfirmsReturn, rec.DeliveryNotes,
			rec.ReturnNotes, rec.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert delivery record: %w", err)
		}
		return writeVerificationItems(ctx, tx, rec)
	})
}

func (d *DB) UpdateDelivery(ctx context.Context, rec *model.DeliveryRecord) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE deliveries
			SET cabin_id = $3, status = $4, delivered_at = $5, delivered_by = $6, signature = $7, returned_at = $8,
				customer_confirms_delivery = $9, customer_confirms_return = $10, delivery_notes = $11, return_notes = $12
			WHERE id = $1 AND reservation_id = $2
		`, rec.ID, rec.ReservationID, rec.CabinID, rec.Status, rec.DeliveredAt, rec.DeliveredBy, rec.Signature,
			rec.ReturnedAt, rec.CustomerConfirmsDelivery, rec.CustomerConfirmsReturn, rec.DeliveryNotes, rec.ReturnNotes)
		if err != nil {
			return fmt.Errorf("failed to update delivery record: %w", err)
		}
		if err := expectRow(tag); err != nil {
			return err
		}
		return writeVerificationItems(ctx, tx, rec)
	})
}

// writeVerificationItems upserts items by checklist item, keeping slice order in position
func writeVerificationItems(ctx context.Context, tx pgx.Tx, rec *model.DeliveryRecord) error {
	batch := &pgx.Batch{}
	for i := range rec.Items {
		item := &rec.Items[i]
		item.ID = orNewID(item.ID)
		batch.Queue(`
			INSERT INTO verification_items (id, delivery_id, checklist_item_id, position, name, replacement_price,
				quantity_delivered, quantity_returned, condition_at_delivery, condition_at_return, charge, requires_replacement)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (delivery_id, checklist_item_id) DO UPDATE
			SET position = EXCLUDED.position, name = EXCLUDED.name, replacement_price = EXCLUDED.replacement_price,
				quantity_delivered = EXCLUDED.quantity_delivered, quantity_returned = EXCLUDED.quantity_returned,
				condition_at_delivery = EXCLUDED.condition_at_delivery, condition_at_return = EXCLUDED.condition_at_return,
				charge = EXCLUDED.charge, requires_replacement = EXCLUDED.requires_replacement
		`, item.ID, rec.ID, item.ChecklistItemID, i, item.Name, item.ReplacementPrice, item.QuantityDelivered,
			item.QuantityReturned, item.ConditionAtDelivery, item.ConditionAtReturn, item.Charge, item.RequiresReplacement)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to write verification items: %w", err)
	}
	return nil
}
