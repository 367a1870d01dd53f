package services

import (
	"context"
	"fmt"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// inboxRef is the inbox the actor reads: staff share one, customers have their own
func inboxRef(actor model.Actor) string {
	if actor.Is(model.RoleAdmin, model.RoleOperations) {
		return StaffInbox
	}
	return actor.ID
}

// ListNotifications returns the actor's inbox, newest first
func ListNotifications(ctx context.Context, store db.NotificationStore, actor model.Actor, unreadOnly bool) ([]model.Notification, error) {
	const op = "ListNotifications"

	if err := requireRole(op, actor, model.RoleCustomer, model.RoleAdmin, model.RoleOperations); err != nil {
		return nil, err
	}

	notifications, err := store.ListNotifications(ctx, inboxRef(actor), unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead marks one of the actor's notifications as read
func MarkNotificationRead(ctx context.Context, store db.NotificationStore, actor model.Actor, notificationID string) error {
	const op = "MarkNotificationRead"

	n, err := store.GetNotification(ctx, notificationID)
	if err != nil {
		return loadErr(op, "notification", notificationID, err)
	}
	if n.UserRef != inboxRef(actor) {
		return model.Forbiddenf(op, "notification belongs to another user")
	}
	if n.Read {
		return nil
	}

	if err := store.MarkNotificationRead(ctx, notificationID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
