package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// StaffInbox is the user ref for notifications addressed to administrators and operations staff
const StaffInbox = "staff"

// Notifier delivers a message to a user. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userRef string, kind model.NotificationKind, message string) error
}

// Runtime carries the collaborators every operation needs besides its store
type Runtime struct {
	Locker   db.Locker
	Notifier Notifier
	Logger   *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// StatusStore is what cabin status recomputation reads and writes
type StatusStore interface {
	db.CabinStore
	db.MaintenanceStore
	db.ReservationStore
	db.MissingItemStore
	db.PreparationStore
	db.DeliveryStore
}

// TurnoverStore covers the preparation, escalation and verification workflows
type TurnoverStore interface {
	StatusStore
	db.CatalogStore
}

// LifecycleStore covers the reservation lifecycle
type LifecycleStore interface {
	TurnoverStore
	db.CustomerStore
	db.AlertStore
}

func (rt Runtime) now() time.Time {
	if rt.Now != nil {
		return rt.Now().UTC()
	}
	return time.Now().UTC()
}

func (rt Runtime) today() time.Time {
	return model.Day(rt.now())
}

// lock takes keys in the given order and returns a func releasing them in reverse.
// The release func may be called more than once.
func (rt Runtime) lock(ctx context.Context, keys ...string) (func(), error) {
	if ml, ok := rt.Locker.(db.MultiLocker); ok {
		unlock, err := ml.LockAll(ctx, keys...)
		if err != nil {
			return nil, fmt.Errorf("failed to lock %s: %w", strings.Join(keys, ", "), err)
		}
		var once sync.Once
		return func() { once.Do(unlock) }, nil
	}

	var (
		unlocks []func()
		once    sync.Once
	)
	release := func() {
		once.Do(func() {
			for i := len(unlocks) - 1; i >= 0; i-- {
				unlocks[i]()
			}
		})
	}

	for _, key := range keys {
		unlock, err := rt.Locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to lock %s: %w", key, err)
		}
		unlocks = append(unlocks, unlock)
	}

	return release, nil
}

// notify never fails the calling operation; errors are logged and dropped
func (rt Runtime) notify(ctx context.Context, userRef string, kind model.NotificationKind, message string) {
	if rt.Notifier == nil || userRef == "" {
		return
	}
	if err := rt.Notifier.Notify(ctx, userRef, kind, message); err != nil {
		rt.Logger.Warn("Failed to send notification",
			zap.String("user_ref", userRef),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

func newID() string {
	return uuid.New().String()
}

var validate = validator.New()

// validateRequest runs struct tag validation and reports failures as a validation error
func validateRequest(op string, req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return model.Validationf(op, "%v", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return model.Validationf(op, "%s", strings.Join(msgs, "; "))
}

func requireRole(op string, actor model.Actor, roles ...model.Role) error {
	if !actor.Is(roles...) {
		return model.Forbiddenf(op, "role %q may not perform this operation", actor.Role)
	}
	return nil
}

// requireOwnerOrStaff lets staff act on any reservation and customers only on their own
func requireOwnerOrStaff(op string, actor model.Actor, customerID string) error {
	if actor.Is(model.RoleAdmin, model.RoleOperations) {
		return nil
	}
	if actor.Role == model.RoleCustomer && actor.ID == customerID {
		return nil
	}
	return model.Forbiddenf(op, "not allowed to act on another customer's reservation")
}

// loadErr turns a missing entity being operated on into a not-found error
func loadErr(op, entity, id string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return model.NotFound(op, entity, id)
	}
	return fmt.Errorf("failed to load %s %s: %w", entity, id, err)
}

// refErr turns a missing entity referenced by a request into a validation error
func refErr(op, entity, id string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return model.Validationf(op, "%s %s does not exist", entity, id)
	}
	return fmt.Errorf("failed to load %s %s: %w", entity, id, err)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
