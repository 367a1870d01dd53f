package commands

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
)

// RegisterCabinCmd creates the registerCabin command
func RegisterCabinCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "registerCabin <name> <capacity> <nightly_price>",
		Short: "Register a cabin",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			capacity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid capacity %q", args[1])
			}
			price, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid nightly price %q", args[2])
			}

			cabin, err := services.RegisterCabin(app.Ctx, app.Database, app.Runtime, app.Actor, services.RegisterCabinRequest{
				Name:         args[0],
				Capacity:     capacity,
				NightlyPrice: price,
			})
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Cabin %q registered with ID %s\n\n", cabin.Name, cabin.ID)
			return nil
		},
	}
}

// ListCabinsCmd creates the listCabins command
func ListCabinsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listCabins",
		Short: "List cabins with their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cabins, err := services.ListCabins(app.Ctx, app.Database)
			if err != nil {
				return err
			}

			fmt.Printf("\n%-36s  %-20s %8s %16s  %s\n", "ID", "Name", "Capacity", "Nightly", "Status")
			for _, c := range cabins {
				fmt.Printf("%-36s  %-20s %8d %16s  %s\n", c.ID, c.Name, c.Capacity, app.money(c.NightlyPrice), c.Status)
			}
			fmt.Println()
			return nil
		},
	}
}

// RecomputeCabinCmd creates the recomputeCabin command
func RecomputeCabinCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recomputeCabin <cabin_id>",
		Short: "Recompute a cabin's status from its reservations, preparations and maintenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := services.RecomputeCabin(app.Ctx, app.Database, app.Runtime, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("\nCabin %s is %s\n\n", args[0], status)
			return nil
		},
	}
}

// SeedCatalogsCmd creates the seedCatalogs command
func SeedCatalogsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seedCatalogs",
		Short: "Load the standard preparation tasks and per-cabin checklists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := services.SeedCatalogs(app.Ctx, app.Database, app.Runtime, app.Actor)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Seeded %d tasks and %d checklist items across %d cabins\n\n", res.Tasks, res.ChecklistItems, res.Cabins)
			return nil
		},
	}
}

// RegisterCustomerCmd creates the registerCustomer command
func RegisterCustomerCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registerCustomer <name>",
		Short: "Register a customer profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := services.RegisterCustomerRequest{Name: args[0]}
			req.ID, _ = cmd.Flags().GetString("id")
			req.Phone, _ = cmd.Flags().GetString("phone")
			req.Email, _ = cmd.Flags().GetString("email")
			req.Address, _ = cmd.Flags().GetString("address")
			req.Type, _ = cmd.Flags().GetString("type")

			customer, err := services.RegisterCustomer(app.Ctx, app.Database, app.Runtime, app.Actor, req)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Customer %q registered with ID %s\n\n", customer.Name, customer.ID)
			return nil
		},
	}

	cmd.Flags().String("id", "", "Reuse an existing user ID")
	cmd.Flags().String("phone", "", "Phone number")
	cmd.Flags().String("email", "", "Email address for notifications")
	cmd.Flags().String("address", "", "Postal address")
	cmd.Flags().String("type", "individual", "individual or company")

	return cmd
}

// ScheduleMaintenanceCmd creates the scheduleMaintenance command
func ScheduleMaintenanceCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduleMaintenance <cabin_id> <kind> <date>",
		Short: "Schedule maintenance for a cabin (preventive, corrective, cleaning, repair)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := model.ParseDay(args[2])
			if err != nil {
				return err
			}
			description, _ := cmd.Flags().GetString("description")

			m, err := services.ScheduleMaintenance(app.Ctx, app.Database, app.Runtime, app.Actor, services.ScheduleMaintenanceRequest{
				CabinID:       args[0],
				Kind:          model.MaintenanceKind(args[1]),
				Description:   description,
				ScheduledDate: date,
			})
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Maintenance %s scheduled for %s\n\n", m.ID, m.ScheduledDate.Format(model.DateLayout))
			return nil
		},
	}

	cmd.Flags().String("description", "", "What the maintenance covers")

	return cmd
}

func maintenanceStepCmd(app *AppContext, use, short string,
	step func(app *AppContext, id string) (*model.MaintenanceWindow, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := step(app, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Maintenance %s is %s\n\n", m.ID, m.Status)
			return nil
		},
	}
}

// StartMaintenanceCmd creates the startMaintenance command
func StartMaintenanceCmd(app *AppContext) *cobra.Command {
	return maintenanceStepCmd(app, "startMaintenance <maintenance_id>", "Mark maintenance as in progress",
		func(app *AppContext, id string) (*model.MaintenanceWindow, error) {
			return services.StartMaintenance(app.Ctx, app.Database, app.Runtime, app.Actor, id)
		})
}

// FinalizeMaintenanceCmd creates the finalizeMaintenance command
func FinalizeMaintenanceCmd(app *AppContext) *cobra.Command {
	return maintenanceStepCmd(app, "finalizeMaintenance <maintenance_id>", "Finish maintenance and release the cabin",
		func(app *AppContext, id string) (*model.MaintenanceWindow, error) {
			return services.FinalizeMaintenance(app.Ctx, app.Database, app.Runtime, app.Actor, id)
		})
}

// CancelMaintenanceCmd creates the cancelMaintenance command
func CancelMaintenanceCmd(app *AppContext) *cobra.Command {
	return maintenanceStepCmd(app, "cancelMaintenance <maintenance_id>", "Cancel scheduled maintenance",
		func(app *AppContext, id string) (*model.MaintenanceWindow, error) {
			return services.CancelMaintenance(app.Ctx, app.Database, app.Runtime, app.Actor, id)
		})
}

// ListMaintenanceCmd creates the listMaintenance command
func ListMaintenanceCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listMaintenance <cabin_id>",
		Short: "List maintenance windows of a cabin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			windows, err := services.ListMaintenance(app.Ctx, app.Database, args[0])
			if err != nil {
				return err
			}
			printMaintenance(windows)
			return nil
		},
	}
}

// PlanMaintenanceCmd creates the planMaintenance command
func PlanMaintenanceCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "planMaintenance",
		Short: "Schedule the configured recurring maintenance plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			horizon, _ := cmd.Flags().GetInt("horizon")
			if horizon == 0 {
				horizon = app.Cfg.Scheduler.HorizonDays
			}

			app.Logger.Debug("planMaintenance command", zap.Int("plans", len(app.Cfg.MaintenancePlans)), zap.Int("horizon_days", horizon))

			planned, err := services.PlanMaintenance(app.Ctx, app.Database, app.Runtime, app.Actor, app.Plans(), horizon)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Planned %d maintenance windows\n", len(planned))
			printMaintenance(planned)
			return nil
		},
	}

	cmd.Flags().Int("horizon", 0, "Days ahead to plan (defaults to scheduler.horizon_days)")

	return cmd
}

func printMaintenance(windows []model.MaintenanceWindow) {
	fmt.Println()
	for _, m := range windows {
		fmt.Printf("- %s  %s  %-10s %-11s %s\n", m.ID, m.ScheduledDate.Format(model.DateLayout), m.Kind, m.Status, m.Description)
	}
	fmt.Println()
}

// RecordPaymentCmd creates the recordPayment command
func RecordPaymentCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recordPayment <reservation_id> <amount>",
		Short: "Record a payment received for a reservation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			method, _ := cmd.Flags().GetString("method")
			receipt, _ := cmd.Flags().GetString("receipt")
			paidOn, err := dayFlag(cmd, "paid-on")
			if err != nil {
				return err
			}

			req := services.RecordPaymentRequest{
				ReservationID: args[0],
				Amount:        amount,
				Method:        model.PaymentMethod(method),
				ReceiptRef:    receipt,
			}
			if paidOn != nil {
				req.PaidOn = *paidOn
			}

			p, err := services.RecordPayment(app.Ctx, app.Database, app.Runtime, app.Actor, req)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Payment %s of %s recorded\n\n", p.ID, app.money(p.Amount))
			return nil
		},
	}

	cmd.Flags().String("method", string(model.PaymentTransfer), "cash, transfer, card or other")
	cmd.Flags().String("receipt", "", "Receipt reference")
	cmd.Flags().String("paid-on", "", "Payment date YYYY-MM-DD (defaults to today)")

	return cmd
}

// ListPaymentsCmd creates the listPayments command
func ListPaymentsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listPayments <reservation_id>",
		Short: "Show payments and the outstanding balance of a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := services.ListPayments(app.Ctx, app.Database, app.Actor, args[0])
			if err != nil {
				return err
			}

			fmt.Println()
			for _, p := range summary.Payments {
				fmt.Printf("- %s  %-8s %16s  %s\n", p.PaidOn.Format(model.DateLayout), p.Method, app.money(p.Amount), p.ReceiptRef)
			}
			fmt.Printf("\nQuoted:      %s\n", app.money(summary.Quoted))
			fmt.Printf("Charges:     %s\n", app.money(summary.Charges))
			fmt.Printf("Paid:        %s\n", app.money(summary.Paid))
			fmt.Printf("Outstanding: %s\n\n", app.money(summary.Outstanding))
			return nil
		},
	}
}

// SubmitSurveyCmd creates the submitSurvey command
func SubmitSurveyCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submitSurvey <reservation_id> <rating>",
		Short: "Rate a completed stay from 1 to 5",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating %q", args[1])
			}
			comments, _ := cmd.Flags().GetString("comments")

			if _, err := services.SubmitSurvey(app.Ctx, app.Database, app.Runtime, app.Actor, services.SubmitSurveyRequest{
				ReservationID: args[0],
				Rating:        rating,
				Comments:      comments,
			}); err != nil {
				return err
			}
			fmt.Printf("\n✓ Thanks for your feedback\n\n")
			return nil
		},
	}

	cmd.Flags().String("comments", "", "Free-text comments")

	return cmd
}

// NotificationsCmd creates the notifications command
func NotificationsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List the acting user's notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			unread, _ := cmd.Flags().GetBool("unread")

			list, err := services.ListNotifications(app.Ctx, app.Database, app.Actor, unread)
			if err != nil {
				return err
			}

			fmt.Printf("\n%d notifications:\n\n", len(list))
			for _, n := range list {
				mark := "•"
				if n.Read {
					mark = " "
				}
				fmt.Printf("%s %s  %s  [%s] %s\n", mark, n.ID, n.SentAt.Format("2006-01-02 15:04"), n.Kind, n.Message)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().Bool("unread", false, "Only unread notifications")

	return cmd
}

// MarkReadCmd creates the markRead command
func MarkReadCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "markRead <notification_id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.MarkNotificationRead(app.Ctx, app.Database, app.Actor, args[0]); err != nil {
				return err
			}
			fmt.Printf("\n✓ Marked as read\n\n")
			return nil
		},
	}
}
