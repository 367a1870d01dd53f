package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/internal/scheduler"
	"github.com/cabecera/ing-software-caba-itas/internal/server/handlers"
	"github.com/cabecera/ing-software-caba-itas/internal/server/router"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/reports"
)

const shutdownTimeout = 10 * time.Second

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Postgres == nil {
				return fmt.Errorf("migrate needs store: postgres (configured store is %q)", app.Cfg.Store)
			}

			applied, err := app.Postgres.RunMigrations(app.Ctx)
			if err != nil {
				return err
			}

			if len(applied) == 0 {
				fmt.Println("\nDatabase is up to date.")
				return nil
			}
			fmt.Printf("\n✓ Applied %d migrations:\n", len(applied))
			for _, name := range applied {
				fmt.Printf("  - %s\n", name)
			}
			fmt.Println()
			return nil
		},
	}
}

// EvaluateAlertsCmd creates the evaluateAlerts command
func EvaluateAlertsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluateAlerts",
		Short: "Send the due confirmation and reminder alerts for upcoming stays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sent, err := services.EvaluateDueAlerts(app.Ctx, app.Database, app.Runtime)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ %d alerts sent\n\n", sent)
			return nil
		},
	}
}

func (app *AppContext) newScheduler() *scheduler.Scheduler {
	return scheduler.New(app.Cfg.Scheduler.Cron, app.Database, app.Runtime, app.Plans(),
		app.Cfg.Scheduler.HorizonDays, app.Logger.Named("scheduler"))
}

// SchedulerCmd creates the scheduler command
func SchedulerCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run the daily alert sweep and maintenance planning on the configured cron spec",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			once, _ := cmd.Flags().GetBool("once")
			sched := app.newScheduler()

			if once {
				summary, err := sched.RunOnce(app.Ctx)
				fmt.Printf("\nAlerts sent: %d\nMaintenance planned: %d\n\n", summary.AlertsSent, summary.MaintenancePlanned)
				return err
			}

			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := sched.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}

	cmd.Flags().Bool("once", false, "Run the daily job once and exit")

	return cmd
}

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			withScheduler, _ := cmd.Flags().GetBool("scheduler")
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Cfg.HTTP.Addr
			}

			h := handlers.NewHandler(app.Database, app.Runtime, handlers.Options{
				Plans:       app.Plans(),
				HorizonDays: app.Cfg.Scheduler.HorizonDays,
			}, app.Logger.Named("handlers"))
			engine := router.New(h, app.Logger.Named("router"))

			if withScheduler {
				sched := app.newScheduler()
				if err := sched.Start(); err != nil {
					return err
				}
				defer sched.Stop()
			}

			srv := &http.Server{
				Addr:         addr,
				Handler:      engine,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			serveErr := make(chan error, 1)
			go func() {
				app.Logger.Info("server starting", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("http server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}
			app.Logger.Info("shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "", "Listen address (defaults to http.addr)")
	cmd.Flags().Bool("scheduler", false, "Also run the daily scheduler in this process")

	return cmd
}

// DashboardCmd creates the dashboard command
func DashboardCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the administrator dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := reports.BuildDashboard(app.Ctx, app.Database, app.Actor, time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("\nDashboard for %s\n\n", d.Today.Format(model.DateLayout))
			fmt.Printf("Reservations:         %d (%d pending)\n", d.TotalReservations, d.PendingCount)
			fmt.Printf("Check-ins next %d days: %d\n", reports.UpcomingDays, d.UpcomingCheckIns)
			fmt.Printf("Revenue this month:   %s\n", app.money(d.RevenueThisMonth))
			fmt.Printf("Occupancy today:      %s%%\n\n", d.OccupancyRate.StringFixed(2))

			fmt.Printf("Recent reservations:\n")
			for _, r := range d.RecentReservations {
				fmt.Printf("  - %s  %s → %s  %s\n", r.ID, r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout), r.Status)
			}
			fmt.Println()
			return nil
		},
	}
}

// AnnualReportCmd creates the annualReport command
func AnnualReportCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annualReport <year>",
		Short: "Show the annual report, optionally writing it as XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("year must be a number: %w", err)
			}
			out, _ := cmd.Flags().GetString("out")

			report, err := reports.BuildAnnualReport(app.Ctx, app.Database, app.Actor, year)
			if err != nil {
				return err
			}

			fmt.Printf("\nAnnual report %d\n\n", report.Year)
			for i := range report.ConfirmedByMonth {
				fmt.Printf("  %-10s %4d  %16s\n", time.Month(i+1), report.ConfirmedByMonth[i], app.money(report.RevenueByMonth[i]))
			}
			fmt.Printf("\n  Total revenue: %s\n", app.money(report.TotalRevenue()))
			fmt.Printf("  Surveys: %d (average %s)\n\n", report.Surveys, report.AverageRating.StringFixed(2))
			for _, c := range report.TopCabins {
				fmt.Printf("  %-20s %d reservations\n", c.Name, c.Reservations)
			}
			fmt.Println()

			if out == "" {
				return nil
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := reports.WriteAnnualXLSX(f, report); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Printf("✓ Written to %s\n\n", out)
			return nil
		},
	}

	cmd.Flags().String("out", "", "Write the report to this .xlsx file")

	return cmd
}
