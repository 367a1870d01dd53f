package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

const itemFlagHelp = "Observed item as <checklist_item_id>=<quantity>[:<condition>] (repeatable)"

// ShowPreparationCmd creates the showPreparation command
func ShowPreparationCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "showPreparation <reservation_id>",
		Short: "Show the preparation record of a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := services.GetPreparationByReservation(app.Ctx, app.Database, app.Actor, args[0])
			if err != nil {
				return err
			}
			fmt.Println()
			printProgress(res)
			return nil
		},
	}
}

// AssignPreparationCmd creates the assignPreparation command
func AssignPreparationCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assignPreparation <preparation_id> <operator_id>",
		Short: "Assign an operator to a preparation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := services.AssignPreparation(app.Ctx, app.Database, app.Runtime, app.Actor, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Preparation %s assigned to %s\n\n", rec.ID, rec.OperatorID)
			return nil
		},
	}
}

// UpdateProgressCmd creates the updateProgress command
func UpdateProgressCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "updateProgress <preparation_id>",
		Short: "Mark preparation tasks done or undone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			done, _ := cmd.Flags().GetStringSlice("done")
			undone, _ := cmd.Flags().GetStringSlice("undone")
			observations, _ := cmd.Flags().GetString("observations")

			changes, err := completions(done, undone)
			if err != nil {
				return err
			}

			app.Logger.Debug("updateProgress command", zap.String("preparation_id", args[0]), zap.Int("changes", len(changes)))

			res, err := services.UpdateProgress(app.Ctx, app.Database, app.Runtime, app.Actor, services.UpdateProgressRequest{
				PreparationID: args[0],
				Completions:   changes,
				Observations:  observations,
			})
			if err != nil {
				return err
			}
			fmt.Println()
			printProgress(res)
			return nil
		},
	}

	cmd.Flags().StringSlice("done", nil, "Task IDs to mark done")
	cmd.Flags().StringSlice("undone", nil, "Task IDs to mark not done")
	cmd.Flags().String("observations", "", "Observations recorded on the preparation")

	return cmd
}

// CompletePreparationCmd creates the completePreparation command
func CompletePreparationCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completePreparation <preparation_id>",
		Short: "Finalize a preparation and create the delivery record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			observations, _ := cmd.Flags().GetString("observations")

			res, err := services.CompletePreparation(app.Ctx, app.Database, app.Runtime, app.Actor, services.CompletePreparationRequest{
				PreparationID: args[0],
				Observations:  observations,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Preparation completed at %d%%\n", res.Percentage)
			if res.Delayed {
				fmt.Printf("⚠️  A critical missing-item report keeps the cabin from being ready\n")
			}
			fmt.Printf("Cabin status: %s\n\n", res.CabinStatus)
			if res.Delivery != nil {
				printDelivery(app, *res.Delivery)
			}
			return nil
		},
	}

	cmd.Flags().String("observations", "", "Observations recorded on the preparation")

	return cmd
}

// CreateDeliveryRecordCmd creates the createDeliveryRecord command
func CreateDeliveryRecordCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "createDeliveryRecord <reservation_id>",
		Short: "Create the delivery record from the cabin checklist if missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := services.EnsureDeliveryRecord(app.Ctx, app.Database, app.Runtime, app.Actor, args[0])
			if err != nil {
				return err
			}
			fmt.Println()
			printDelivery(app, *rec)
			return nil
		},
	}
}

// ShowDeliveryCmd creates the showDelivery command
func ShowDeliveryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "showDelivery <reservation_id>",
		Short: "Show the delivery record and charges of a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, _, err := services.GetDeliveryRecord(app.Ctx, app.Database, app.Actor, args[0])
			if err != nil {
				return err
			}
			fmt.Println()
			printDelivery(app, *rec)
			return nil
		},
	}
}

func handoverCmd(app *AppContext, use, short string, run func(services.HandoverRequest) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, _ := cmd.Flags().GetStringArray("item")
			notes, _ := cmd.Flags().GetString("notes")

			observations, err := parseObservations(items)
			if err != nil {
				return err
			}

			return run(services.HandoverRequest{ReservationID: args[0], Items: observations, Notes: notes})
		},
	}

	cmd.Flags().StringArray("item", nil, itemFlagHelp)
	cmd.Flags().String("notes", "", "Notes recorded on the delivery record")

	return cmd
}

// CheckInCmd creates the checkIn command
func CheckInCmd(app *AppContext) *cobra.Command {
	return handoverCmd(app, "checkIn <reservation_id>", "Record the items handed over at check-in",
		func(req services.HandoverRequest) error {
			rec, err := services.CheckIn(app.Ctx, app.Database, app.Runtime, app.Actor, req)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Check-in recorded.\n\n")
			printDelivery(app, *rec)
			return nil
		})
}

// CheckOutCmd creates the checkOut command
func CheckOutCmd(app *AppContext) *cobra.Command {
	return handoverCmd(app, "checkOut <reservation_id>", "Record returned items, compute charges and complete the stay",
		func(req services.HandoverRequest) error {
			res, err := services.CheckOut(app.Ctx, app.Database, app.Runtime, app.Actor, req)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Check-out recorded. Reservation %s is %s.\n\n", res.Reservation.ID, res.Reservation.Status)
			printDelivery(app, res.Record)
			return nil
		})
}

// ConfirmDeliveryCmd creates the confirmDelivery command
func ConfirmDeliveryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "confirmDelivery <reservation_id>",
		Short: "Acknowledge the delivered inventory as the customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := services.CustomerConfirmDelivery(app.Ctx, app.Database, app.Runtime, app.Actor, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Delivery acknowledged (%s)\n\n", rec.Status)
			return nil
		},
	}
}

// ConfirmReturnCmd creates the confirmReturn command
func ConfirmReturnCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "confirmReturn <reservation_id>",
		Short: "Acknowledge the returned inventory as the customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := services.CustomerConfirmReturn(app.Ctx, app.Database, app.Runtime, app.Actor, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Return acknowledged (%s)\n\n", rec.Status)
			return nil
		},
	}
}

// RaiseMissingItemCmd creates the raiseMissingItem command
func RaiseMissingItemCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raiseMissingItem <description>",
		Short: "Report a missing item for a cabin or preparation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := services.RaiseMissingItemRequest{Description: args[0]}
			req.CabinID, _ = cmd.Flags().GetString("cabin")
			req.PreparationID, _ = cmd.Flags().GetString("preparation")
			req.Critical, _ = cmd.Flags().GetBool("critical")

			report, err := services.RaiseMissingItem(app.Ctx, app.Database, app.Runtime, app.Actor, req)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Report %s raised for cabin %s", report.ID, report.CabinID)
			if report.Critical {
				fmt.Printf(" (critical)")
			}
			fmt.Printf("\n\n")
			return nil
		},
	}

	cmd.Flags().String("cabin", "", "Cabin ID (optional when --preparation is given)")
	cmd.Flags().String("preparation", "", "Preparation ID")
	cmd.Flags().Bool("critical", false, "Block the cabin from being ready until resolved")

	return cmd
}

// ListMissingItemsCmd creates the listMissingItems command
func ListMissingItemsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listMissingItems",
		Short: "List missing-item reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter db.MissingItemFilter
			filter.CabinID, _ = cmd.Flags().GetString("cabin")
			filter.CriticalOnly, _ = cmd.Flags().GetBool("critical")
			open, _ := cmd.Flags().GetBool("open")
			if open {
				filter.Statuses = []model.ReportStatus{model.ReportPending}
			}

			reports, err := services.ListMissingItemReports(app.Ctx, app.Database, app.Actor, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d reports:\n\n", len(reports))
			for _, r := range reports {
				critical := ""
				if r.Critical {
					critical = " [critical]"
				}
				fmt.Printf("- %s  cabin %s  %-12s%s  %s\n", r.ID, r.CabinID, r.Status, critical, r.Description)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("cabin", "", "Only this cabin")
	cmd.Flags().Bool("critical", false, "Only critical reports")
	cmd.Flags().Bool("open", false, "Only reports still pending")

	return cmd
}

// AcknowledgeMissingItemCmd creates the acknowledgeMissingItem command
func AcknowledgeMissingItemCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "acknowledgeMissingItem <report_id>",
		Short: "Acknowledge a missing-item report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := services.AcknowledgeMissingItem(app.Ctx, app.Database, app.Runtime, app.Actor, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Report %s is %s\n\n", report.ID, report.Status)
			return nil
		},
	}
}

// ResolveMissingItemCmd creates the resolveMissingItem command
func ResolveMissingItemCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolveMissingItem <report_id>",
		Short: "Resolve a missing-item report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, _ := cmd.Flags().GetString("notes")

			report, err := services.ResolveMissingItem(app.Ctx, app.Database, app.Runtime, app.Actor, services.ResolveMissingItemRequest{
				ReportID:        args[0],
				ResolutionNotes: notes,
			})
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Report %s resolved\n\n", report.ID)
			return nil
		},
	}

	cmd.Flags().String("notes", "", "Resolution notes")

	return cmd
}
