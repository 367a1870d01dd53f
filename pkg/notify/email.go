package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

var subjects = map[model.NotificationKind]string{
	model.NotificationAlert:        "Upcoming stay",
	model.NotificationConfirmation: "Reservation update",
	model.NotificationPreparation:  "Cabin preparation",
	model.NotificationReminder:     "Please confirm your arrival",
	model.NotificationGeneral:      "Notice",
}

func subjectFor(kind model.NotificationKind) string {
	if s, ok := subjects[kind]; ok {
		return "Cabañas: " + s
	}
	return "Cabañas"
}

// Addresses maps notification user refs to email addresses.
// Staff messages go to one shared mailbox; customers use their registered email.
type Addresses struct {
	Customers db.CustomerStore
	Staff     string
}

// Resolve returns "" when the user has no address on file
func (a Addresses) Resolve(ctx context.Context, userRef string) (string, error) {
	if userRef == services.StaffInbox {
		return a.Staff, nil
	}

	customer, err := a.Customers.GetCustomer(ctx, userRef)
	if errors.Is(err, db.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up customer %s: %w", userRef, err)
	}
	return customer.Email, nil
}

// EmailSender is satisfied by *gmailclient.Client
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Gmail emails notifications through the Gmail API
type Gmail struct {
	sender    EmailSender
	addresses Addresses
	logger    *zap.Logger
}

func NewGmail(sender EmailSender, addresses Addresses, logger *zap.Logger) *Gmail {
	return &Gmail{sender: sender, addresses: addresses, logger: logger}
}

func (g *Gmail) Notify(ctx context.Context, userRef string, kind model.NotificationKind, message string) error {
	to, err := g.addresses.Resolve(ctx, userRef)
	if err != nil {
		return err
	}
	if to == "" {
		g.logger.Debug("No email address, skipping", zap.String("user_ref", userRef))
		return nil
	}

	if err := g.sender.SendEmail(ctx, to, subjectFor(kind), message); err != nil {
		return fmt.Errorf("gmail: %w", err)
	}

	g.logger.Debug("Email sent", zap.String("user_ref", userRef), zap.String("kind", string(kind)))
	return nil
}

// Dialer is satisfied by *gomail.Dialer
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP emails notifications through a mail relay
type SMTP struct {
	dialer    Dialer
	from      string
	addresses Addresses
	logger    *zap.Logger
}

// NewSMTPDialer builds the gomail dialer for a relay
func NewSMTPDialer(host string, port int, username, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, username, password)
}

func NewSMTP(dialer Dialer, from string, addresses Addresses, logger *zap.Logger) *SMTP {
	return &SMTP{dialer: dialer, from: from, addresses: addresses, logger: logger}
}

func (s *SMTP) Notify(ctx context.Context, userRef string, kind model.NotificationKind, message string) error {
	to, err := s.addresses.Resolve(ctx, userRef)
	if err != nil {
		return err
	}
	if to == "" {
		s.logger.Debug("No email address, skipping", zap.String("user_ref", userRef))
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subjectFor(kind))
	m.SetBody("text/plain", message)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp: failed to send to %s: %w", to, err)
	}

	s.logger.Debug("Email sent", zap.String("user_ref", userRef), zap.String("kind", string(kind)))
	return nil
}
