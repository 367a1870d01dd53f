// Package notify holds the delivery channels behind services.Notifier:
// a persisted inbox, a log sink, Gmail and SMTP email, and a fan-out.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// Inbox persists every notification so users can list and read them later
type Inbox struct {
	store db.NotificationStore
	now   func() time.Time
}

// NewInbox stamps notifications with now, or time.Now when nil
func NewInbox(store db.NotificationStore, now func() time.Time) *Inbox {
	if now == nil {
		now = time.Now
	}
	return &Inbox{store: store, now: now}
}

func (i *Inbox) Notify(ctx context.Context, userRef string, kind model.NotificationKind, message string) error {
	n := &model.Notification{
		UserRef: userRef,
		Kind:    kind,
		Message: message,
		SentAt:  i.now().UTC(),
	}
	if err := i.store.InsertNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// Log writes notifications to the application log
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger.Named("notify")}
}

func (l *Log) Notify(_ context.Context, userRef string, kind model.NotificationKind, message string) error {
	l.logger.Info("Notification",
		zap.String("user_ref", userRef),
		zap.String("kind", string(kind)),
		zap.String("message", message))
	return nil
}

// Multi delivers to every channel. One failing channel does not stop the others.
type Multi []services.Notifier

func (m Multi) Notify(ctx context.Context, userRef string, kind model.NotificationKind, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, userRef, kind, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
