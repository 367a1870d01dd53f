package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// Missing-item reports

const reportColumns = `id, cabin_id, preparation_id, raised_by, description, critical, status, created_at,
	acknowledged_at, resolved_at, resolved_by, resolution_notes`

func scanReport(row pgx.Row) (model.MissingItemReport, error) {
	var r model.MissingItemReport
	err := row.Scan(&r.ID, &r.CabinID, &r.PreparationID, &r.RaisedBy, &r.Description, &r.Critical, &r.Status,
		&r.CreatedAt, &r.AcknowledgedAt, &r.ResolvedAt, &r.ResolvedBy, &r.ResolutionNotes)
	r.CreatedAt = utc(r.CreatedAt)
	r.AcknowledgedAt = utcPtr(r.AcknowledgedAt)
	r.ResolvedAt = utcPtr(r.ResolvedAt)
	return r, err
}

func (d *DB) GetMissingItemReport(ctx context.Context, id string) (model.MissingItemReport, error) {
	r, err := scanReport(d.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM missing_item_reports WHERE id = $1`, id))
	if err != nil {
		return model.MissingItemReport{}, notFound(err)
	}
	return r, nil
}

func (d *DB) ListMissingItemReports(ctx context.Context, filter db.MissingItemFilter) ([]model.MissingItemReport, error) {
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
	if filter.PreparationID != "" {
		add("preparation_id = $%d", filter.PreparationID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}
	if filter.CriticalOnly {
		where = append(where, "critical")
	}

	query := `SELECT ` + reportColumns + ` FROM missing_item_reports`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing item reports: %w", err)
	}
	defer rows.Close()

	var out []model.MissingItemReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan missing item report: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating missing item reports: %w", err)
	}
	return out, nil
}

func (d *DB) InsertMissingItemReport(ctx context.Context, r *model.MissingItemReport) error {
	r.ID = orNewID(r.ID)
	_, err := d.pool.Exec(ctx, `
		INSERT INTO missing_item_reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.ID, r.CabinID, r.PreparationID, r.RaisedBy, r.Description, r.Critical, r.Status, r.CreatedAt.UTC(),
		r.AcknowledgedAt, r.ResolvedAt, r.ResolvedBy, r.ResolutionNotes)
	if err != nil {
		return fmt.Errorf("failed to insert missing item report: %w", err)
	}
	return nil
}

func (d *DB) UpdateMissingItemReport(ctx context.Context, r *model.MissingItemReport) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE missing_item_reports
		SET description = $2, critical = $3, status = $4, acknowledged_at = $5, resolved_at = $6,
			resolved_by = $7, resolution_notes = $8
		WHERE id = $1
	`, r.ID, r.Description, r.Critical, r.Status, r.AcknowledgedAt, r.ResolvedAt, r.ResolvedBy, r.ResolutionNotes)
	if err != nil {
		return fmt.Errorf("failed to update missing item report: %w", err)
	}
	return expectRow(tag)
}

// Notifications

func scanNotification(row pgx.Row) (model.Notification, error) {
	var n model.Notification
	err := row.Scan(&n.ID, &n.UserRef, &n.Kind, &n.Message, &n.SentAt, &n.Read)
	n.SentAt = utc(n.SentAt)
	return n, err
}

func (d *DB) InsertNotification(ctx context.Context, n *model.Notification) error {
	n.ID = orNewID(n.ID)
	_, err := d.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_ref, kind, message, sent_at, read)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.UserRef, n.Kind, n.Message, n.SentAt.UTC(), n.Read)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (d *DB) GetNotification(ctx context.Context, id string) (model.Notification, error) {
	n, err := scanNotification(d.pool.QueryRow(ctx, `
		SELECT id, user_ref, kind, message, sent_at, read FROM notifications WHERE id = $1
	`, id))
	if err != nil {
		return model.Notification{}, notFound(err)
	}
	return n, nil
}

func (d *DB) ListNotifications(ctx context.Context, userRef string, unreadOnly bool) ([]model.Notification, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, user_ref, kind, message, sent_at, read
		FROM notifications
		WHERE user_ref = $1 AND (NOT $2 OR NOT read)
		ORDER BY sent_at DESC, id DESC
	`, userRef, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}

func (d *DB) MarkNotificationRead(ctx context.Context, id string) error {
	tag, err := d.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return expectRow(tag)
}

// Alerts

func (d *DB) RecordAlert(ctx context.Context, reservationID string, threshold int, sentOn time.Time) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		INSERT INTO sent_alerts (reservation_id, threshold, sent_on)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, reservationID, threshold, model.Day(sentOn))
	if err != nil {
		return false, fmt.Errorf("failed to record alert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Payments

func (d *DB) InsertPayment(ctx context.Context, p *model.Payment) error {
	p.ID = orNewID(p.ID)
	_, err := d.pool.Exec(ctx, `
		INSERT INTO payments (id, reservation_id, amount, method, paid_on, receipt_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.ReservationID, p.Amount, p.Method, p.PaidOn, p.ReceiptRef, p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (d *DB) ListPayments(ctx context.Context, filter db.PaymentFilter) ([]model.Payment, error) {
	var from, to *time.Time
	if filter.PaidFrom != nil {
		day := model.Day(*filter.PaidFrom)
		from = &day
	}
	if filter.PaidTo != nil {
		day := model.Day(*filter.PaidTo)
		to = &day
	}

	rows, err := d.pool.Query(ctx, `
		SELECT id, reservation_id, amount, method, paid_on, receipt_ref, created_at
		FROM payments
		WHERE ($1 = '' OR reservation_id = $1)
			AND ($2::date IS NULL OR paid_on >= $2)
			AND ($3::date IS NULL OR paid_on <= $3)
		ORDER BY paid_on, created_at, id
	`, filter.ReservationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.Amount, &p.Method, &p.PaidOn, &p.ReceiptRef, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.CreatedAt = utc(p.CreatedAt)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return out, nil
}

// Surveys

func scanSurvey(row pgx.Row) (model.Survey, error) {
	var s model.Survey
	err := row.Scan(&s.ID, &s.ReservationID, &s.Rating, &s.Comments, &s.CreatedAt)
	s.CreatedAt = utc(s.CreatedAt)
	return s, err
}

func (d *DB) GetSurveyByReservation(ctx context.Context, reservationID string) (model.Survey, error) {
	s, err := scanSurvey(d.pool.QueryRow(ctx, `
		SELECT id, reservation_id, rating, comments, created_at FROM surveys WHERE reservation_id = $1
	`, reservationID))
	if err != nil {
		return model.Survey{}, notFound(err)
	}
	return s, nil
}

func (d *DB) InsertSurvey(ctx context.Context, s *model.Survey) error {
	s.ID = orNewID(s.ID)
	_, err := d.pool.Exec(ctx, `
		INSERT INTO surveys (id, reservation_id, rating, comments, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.ReservationID, s.Rating, s.Comments, s.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert survey: %w", err)
	}
	return nil
}

func (d *DB) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, reservation_id, rating, comments, created_at FROM surveys ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query surveys: %w", err)
	}
	defer rows.Close()

	var out []model.Survey
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating surveys: %w", err)
	}
	return out, nil
}
