package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

const jobTimeout = 2 * time.Minute

// Actor is who the scheduler acts as when planning maintenance
var Actor = model.Actor{ID: "scheduler", Role: model.RoleOperations}

// Scheduler runs the daily alert sweep, maintenance planning and cabin status
// refresh on a cron spec.
// Both jobs call the same operations a request would, so running them is optional.
type Scheduler struct {
	cron        *cron.Cron
	spec        string
	store       db.Database
	rt          services.Runtime
	plans       []services.MaintenancePlan
	horizonDays int
	logger      *zap.Logger
}

// New creates a scheduler evaluating in UTC, the zone reservation days are kept in
func New(spec string, store db.Database, rt services.Runtime, plans []services.MaintenancePlan, horizonDays int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rt.Logger == nil {
		rt.Logger = logger
	}

	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		spec:        spec,
		store:       store,
		rt:          rt,
		plans:       plans,
		horizonDays: horizonDays,
		logger:      logger,
	}
}

// Start registers the daily job and starts the cron loop
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("spec", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.runDaily); err != nil {
		return fmt.Errorf("failed to schedule daily job %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("daily job failed", zap.Error(err))
	}
}

// Summary reports what one run did
type Summary struct {
	AlertsSent         int
	MaintenancePlanned int
}

// RunOnce sweeps due alerts, plans maintenance and re-derives every cabin's
// status so windows whose day has come take hold. A failed step does not stop
// the others; the first error is returned.
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, error) {
	var (
		summary  Summary
		firstErr error
	)

	sent, err := services.EvaluateDueAlerts(ctx, s.store, s.rt)
	if err != nil {
		s.logger.Error("alert sweep failed", zap.Error(err))
		firstErr = err
	}
	summary.AlertsSent = sent

	if len(s.plans) > 0 {
		created, err := services.PlanMaintenance(ctx, s.store, s.rt, Actor, s.plans, s.horizonDays)
		if err != nil {
			s.logger.Error("maintenance planning failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
		summary.MaintenancePlanned = len(created)
	}

	if err := s.refreshCabins(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	s.logger.Info("daily job finished",
		zap.Int("alerts_sent", summary.AlertsSent),
		zap.Int("maintenance_planned", summary.MaintenancePlanned))

	return summary, firstErr
}

func (s *Scheduler) refreshCabins(ctx context.Context) error {
	cabins, err := s.store.ListCabins(ctx)
	if err != nil {
		s.logger.Error("failed to list cabins for status refresh", zap.Error(err))
		return fmt.Errorf("failed to list cabins: %w", err)
	}

	var firstErr error
	for _, cabin := range cabins {
		if _, err := services.RecomputeCabin(ctx, s.store, s.rt, cabin.ID); err != nil {
			s.logger.Error("cabin status refresh failed", zap.String("cabin_id", cabin.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
