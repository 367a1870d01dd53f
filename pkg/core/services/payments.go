package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

type paymentStore interface {
	db.ReservationStore
	db.DeliveryStore
	db.PaymentStore
}

type RecordPaymentRequest struct {
	ReservationID string              `validate:"required"`
	Amount        decimal.Decimal     `validate:"-"`
	Method        model.PaymentMethod `validate:"required"`
	// PaidOn defaults to today
	PaidOn     time.Time
	ReceiptRef string `validate:"max=200"`
}

// RecordPayment stores a payment received for a reservation
func RecordPayment(ctx context.Context, store paymentStore, rt Runtime, actor model.Actor, req RecordPaymentRequest) (*model.Payment, error) {
	const op = "RecordPayment"

	if err := requireRole(op, actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, model.Validationf(op, "amount must be positive, got %s", req.Amount)
	}
	if !req.Method.IsValid() {
		return nil, model.Validationf(op, "invalid payment method %q", req.Method)
	}

	r, err := store.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return nil, refErr(op, "reservation", req.ReservationID, err)
	}
	if r.Status == model.ReservationCancelled {
		return nil, model.Statef(op, "cannot record a payment for a cancelled reservation")
	}

	paidOn := rt.today()
	if !req.PaidOn.IsZero() {
		paidOn = model.Day(req.PaidOn)
	}

	p := &model.Payment{
		ID:            newID(),
		ReservationID: r.ID,
		Amount:        req.Amount.Round(2),
		Method:        req.Method,
		PaidOn:        paidOn,
		ReceiptRef:    req.ReceiptRef,
		CreatedAt:     rt.now(),
	}
	if err := store.InsertPayment(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	rt.Logger.Info("Payment recorded",
		zap.String("payment_id", p.ID),
		zap.String("reservation_id", r.ID),
		zap.String("amount", p.Amount.StringFixed(2)),
		zap.String("method", string(p.Method)))

	return p, nil
}

// PaymentSummary is what a reservation has been charged and paid.
// Outstanding is the quoted amount plus inventory charges minus payments.
type PaymentSummary struct {
	Payments    []model.Payment `json:"payments"`
	Quoted      decimal.Decimal `json:"quoted"`
	Charges     decimal.Decimal `json:"charges"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// ListPayments summarises the payments of one reservation
func ListPayments(ctx context.Context, store paymentStore, actor model.Actor, reservationID string) (*PaymentSummary, error) {
	const op = "ListPayments"

	r, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, loadErr(op, "reservation", reservationID, err)
	}
	if err := requireOwnerOrStaff(op, actor, r.CustomerID); err != nil {
		return nil, err
	}

	payments, err := store.ListPayments(ctx, db.PaymentFilter{ReservationID: reservationID})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	charges := decimal.Zero
	delivery, err := store.GetDeliveryByReservation(ctx, reservationID)
	switch {
	case err == nil:
		charges = delivery.TotalCharge()
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("failed to load delivery record: %w", err)
	}

	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	return &PaymentSummary{
		Payments:    payments,
		Quoted:      r.Amount,
		Charges:     charges,
		Paid:        paid,
		Outstanding: r.Amount.Add(charges).Sub(paid),
	}, nil
}
