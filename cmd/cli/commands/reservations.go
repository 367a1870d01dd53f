package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// dayFlag reads an optional YYYY-MM-DD flag
func dayFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return nil, nil
	}
	t, err := model.ParseDay(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

// CreateReservationCmd creates the createReservation command
func CreateReservationCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createReservation <cabin_id> <start> <end>",
		Short: "Book a cabin for [start, end) in the pending state",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := model.ParseDay(args[1])
			if err != nil {
				return err
			}
			end, err := model.ParseDay(args[2])
			if err != nil {
				return err
			}
			guests, _ := cmd.Flags().GetInt("guests")
			customerID, _ := cmd.Flags().GetString("customer")
			comments, _ := cmd.Flags().GetString("comments")

			app.Logger.Debug("createReservation command", zap.String("cabin_id", args[0]), zap.Int("guests", guests))

			r, err := services.CreateReservation(app.Ctx, app.Database, app.Runtime, app.Actor, services.CreateReservationRequest{
				CustomerID: customerID,
				CabinID:    args[0],
				Start:      start,
				End:        end,
				Guests:     guests,
				Comments:   comments,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Reservation created!\n\n")
			printReservation(app, *r)
			return nil
		},
	}

	cmd.Flags().Int("guests", 1, "Number of guests")
	cmd.Flags().String("customer", "", "Customer ID (defaults to the acting customer)")
	cmd.Flags().String("comments", "", "Free-text comments")

	return cmd
}

// ListReservationsCmd creates the listReservations command
func ListReservationsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listReservations",
		Short: "List reservations, sending any pre-arrival alert that is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				filter db.ReservationFilter
				err    error
			)
			filter.CabinID, _ = cmd.Flags().GetString("cabin")
			filter.CustomerID, _ = cmd.Flags().GetString("customer")

			statuses, _ := cmd.Flags().GetStringSlice("status")
			for _, s := range statuses {
				status := model.ReservationStatus(s)
				if !status.IsValid() {
					return fmt.Errorf("unknown status %q", s)
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			if filter.StartFrom, err = dayFlag(cmd, "from"); err != nil {
				return err
			}
			if filter.StartTo, err = dayFlag(cmd, "to"); err != nil {
				return err
			}

			reservations, err := services.ListReservations(app.Ctx, app.Database, app.Runtime, app.Actor, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d reservations:\n\n", len(reservations))
			for _, r := range reservations {
				fmt.Printf("- %s  %s → %s  cabin %s  %-9s  %s\n",
					r.ID, r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout),
					r.CabinID, r.Status, app.money(r.Amount))
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("cabin", "", "Only this cabin")
	cmd.Flags().String("customer", "", "Only this customer")
	cmd.Flags().StringSlice("status", nil, "Only these statuses (pending, confirmed, cancelled, completed)")
	cmd.Flags().String("from", "", "Earliest start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Latest start date (YYYY-MM-DD)")

	return cmd
}

// ShowReservationCmd creates the showReservation command
func ShowReservationCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "showReservation <reservation_id>",
		Short: "Show a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := services.GetReservation(app.Ctx, app.Database, app.Runtime, app.Actor, args[0])
			if err != nil {
				return err
			}
			fmt.Println()
			printReservation(app, *r)
			return nil
		},
	}
}

// ConfirmReservationCmd creates the confirmReservation command
func ConfirmReservationCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "confirmReservation <reservation_id>",
		Short: "Confirm a pending reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := services.ConfirmReservation(app.Ctx, app.Database, app.Runtime, app.Actor, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Reservation confirmed!\n\n")
			printReservation(app, *r)
			return nil
		},
	}
}

// CancelReservationCmd creates the cancelReservation command
func CancelReservationCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancelReservation <reservation_id>",
		Short: "Cancel a pending or confirmed reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")

			r, err := services.CancelReservation(app.Ctx, app.Database, app.Runtime, app.Actor, args[0], reason)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Reservation cancelled.\n\n")
			printReservation(app, *r)
			return nil
		},
	}

	cmd.Flags().String("reason", "", "Reason recorded on the reservation")

	return cmd
}

// CustomerConfirmCmd creates the customerConfirm command
func CustomerConfirmCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "customerConfirm <reservation_id>",
		Short: "Confirm arrival as the customer, starting the cabin turnover",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := services.CustomerConfirmReservation(app.Ctx, app.Database, app.Runtime, app.Actor, args[0])
			if err != nil {
				return err
			}

			if res.AlreadyConfirmed {
				fmt.Printf("\nArrival was already confirmed.\n\n")
			} else {
				fmt.Printf("\n✓ Arrival confirmed, %d days before check-in.\n\n", res.DaysUntilStart)
			}
			if res.Preparation != nil {
				fmt.Printf("Preparation: %s (%s)\n", res.Preparation.ID, res.Preparation.Status)
			}
			if res.Delivery != nil {
				fmt.Printf("Delivery record: %s (%s)\n", res.Delivery.ID, res.Delivery.Status)
			}
			fmt.Println()
			return nil
		},
	}
}

// ReassignReservationCmd creates the reassignReservation command
func ReassignReservationCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reassignReservation <reservation_id>",
		Short: "Move a reservation to another cabin or dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := services.ReassignRequest{ReservationID: args[0]}
			req.CabinID, _ = cmd.Flags().GetString("cabin")
			req.Reason, _ = cmd.Flags().GetString("reason")

			start, err := dayFlag(cmd, "start")
			if err != nil {
				return err
			}
			end, err := dayFlag(cmd, "end")
			if err != nil {
				return err
			}
			if start != nil {
				req.Start = *start
			}
			if end != nil {
				req.End = *end
			}

			r, err := services.ReassignReservation(app.Ctx, app.Database, app.Runtime, app.Actor, req)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Reservation reassigned!\n\n")
			printReservation(app, *r)
			return nil
		},
	}

	cmd.Flags().String("cabin", "", "Target cabin ID")
	cmd.Flags().String("start", "", "New start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "New end date (YYYY-MM-DD)")
	cmd.Flags().String("reason", "", "Reason recorded on the reservation")

	return cmd
}

// CompleteReservationCmd creates the completeReservation command
func CompleteReservationCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "completeReservation <reservation_id>",
		Short: "Complete a reservation whose return has been verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := services.CompleteReservation(app.Ctx, app.Database, app.Runtime, app.Actor, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Reservation completed.\n\n")
			printReservation(app, *r)
			return nil
		},
	}
}

// CheckAvailabilityCmd creates the checkAvailability command
func CheckAvailabilityCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "checkAvailability <cabin_id> <start> <end>",
		Short: "Check whether a cabin can be booked for [start, end)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := model.ParseDay(args[1])
			if err != nil {
				return err
			}
			end, err := model.ParseDay(args[2])
			if err != nil {
				return err
			}

			res, err := services.CheckAvailability(app.Ctx, app.Database, args[0], start, end)
			if err != nil {
				return err
			}

			if res.Available {
				fmt.Printf("\n✓ Cabin %s is available from %s to %s\n\n", args[0], args[1], args[2])
			} else {
				fmt.Printf("\n✗ Cabin %s is not available: %s (ref %s)\n\n", args[0], res.Reason, res.Ref)
			}
			return nil
		},
	}
}
