package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type NotificationKind string

const (
	NotificationAlert        NotificationKind = "alert"
	NotificationConfirmation NotificationKind = "confirmation"
	NotificationPreparation  NotificationKind = "preparation"
	NotificationReminder     NotificationKind = "reminder"
	NotificationGeneral      NotificationKind = "general"
)

// Notification is a message persisted in a user's inbox
type Notification struct {
	ID      string           `json:"id"`
	UserRef string           `json:"user_ref"`
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	SentAt  time.Time        `json:"sent_at"`
	Read    bool             `json:"read"`
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCard     PaymentMethod = "card"
	PaymentOther    PaymentMethod = "other"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentCard, PaymentOther:
		return true
	}
	return false
}

// Payment is a recorded payment fact; nothing here talks to a gateway
type Payment struct {
	ID            string          `json:"id"`
	ReservationID string          `json:"reservation_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	PaidOn        time.Time       `json:"paid_on"`
	ReceiptRef    string          `json:"receipt_ref"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Survey is a post-stay satisfaction survey
type Survey struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservation_id"`
	Rating        int       `json:"rating"`
	Comments      string    `json:"comments"`
	CreatedAt     time.Time `json:"created_at"`
}
