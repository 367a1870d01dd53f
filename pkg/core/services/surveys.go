package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

type surveyStore interface {
	db.ReservationStore
	db.SurveyStore
}

type SubmitSurveyRequest struct {
	ReservationID string `validate:"required"`
	Rating        int    `validate:"min=1,max=5"`
	Comments      string `validate:"max=2000"`
}

// SubmitSurvey stores the customer's rating of a completed stay, once per reservation
func SubmitSurvey(ctx context.Context, store surveyStore, rt Runtime, actor model.Actor, req SubmitSurveyRequest) (*model.Survey, error) {
	const op = "SubmitSurvey"

	if err := requireRole(op, actor, model.RoleCustomer); err != nil {
		return nil, err
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	unlock, err := rt.lock(ctx, db.ReservationKey(req.ReservationID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := store.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return nil, loadErr(op, "reservation", req.ReservationID, err)
	}
	if err := requireOwnerOrStaff(op, actor, r.CustomerID); err != nil {
		return nil, err
	}
	if r.Status != model.ReservationCompleted {
		return nil, model.Statef(op, "surveys can only be submitted for completed stays (status %s)", r.Status)
	}

	existing, err := store.GetSurveyByReservation(ctx, r.ID)
	switch {
	case err == nil:
		return nil, model.Conflictf(op, existing.ID, "a survey was already submitted for this reservation")
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("failed to load survey: %w", err)
	}

	s := &model.Survey{
		ID:            newID(),
		ReservationID: r.ID,
		Rating:        req.Rating,
		Comments:      req.Comments,
		CreatedAt:     rt.now(),
	}
	if err := store.InsertSurvey(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to insert survey: %w", err)
	}

	rt.Logger.Info("Survey submitted", zap.String("reservation_id", r.ID), zap.Int("rating", s.Rating))

	return s, nil
}
