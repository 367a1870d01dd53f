package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

type RegisterCustomerRequest struct {
	// ID lets the identity collaborator reuse its own user id; generated when empty
	ID      string
	Name    string `validate:"required,max=200"`
	Phone   string `validate:"max=20"`
	Email   string `validate:"omitempty,email"`
	Address string
	Type    string `validate:"omitempty,oneof=individual company"`
}

// RegisterCustomer stores a customer. Customers may register themselves; admins may register anyone.
func RegisterCustomer(ctx context.Context, store db.CustomerStore, rt Runtime, actor model.Actor, req RegisterCustomerRequest) (*model.Customer, error) {
	const op = "RegisterCustomer"

	if err := requireRole(op, actor, model.RoleCustomer, model.RoleAdmin); err != nil {
		return nil, err
	}
	if actor.Role == model.RoleCustomer {
		if req.ID != "" && req.ID != actor.ID {
			return nil, model.Forbiddenf(op, "customers can only register themselves")
		}
		req.ID = actor.ID
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	customer := &model.Customer{
		ID:        req.ID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		Type:      req.Type,
		CreatedAt: rt.now(),
	}
	if customer.ID == "" {
		customer.ID = newID()
	}
	if customer.Type == "" {
		customer.Type = "individual"
	}

	if _, err := store.GetCustomer(ctx, customer.ID); err == nil {
		return nil, model.Conflictf(op, customer.ID, "customer already registered")
	}

	if err := store.InsertCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to insert customer: %w", err)
	}

	rt.Logger.Info("Customer registered", zap.String("customer_id", customer.ID))

	return customer, nil
}

func GetCustomer(ctx context.Context, store db.CustomerStore, actor model.Actor, customerID string) (*model.Customer, error) {
	const op = "GetCustomer"

	if err := requireOwnerOrStaff(op, actor, customerID); err != nil {
		return nil, err
	}

	customer, err := store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, loadErr(op, "customer", customerID, err)
	}
	return &customer, nil
}
