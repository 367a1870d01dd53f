package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// RegisterEquipmentCmd creates the registerEquipment command
func RegisterEquipmentCmd(app *AppContext) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "registerEquipment <name> <quantity>",
		Short: "Register lendable equipment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}

			e, err := services.RegisterEquipment(app.Ctx, app.Database, app.Runtime, app.Actor, services.RegisterEquipmentRequest{
				Name:        args[0],
				Description: description,
				Quantity:    quantity,
			})
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ %d x %s registered with ID %s\n\n", e.Total, e.Name, e.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "What the equipment is")
	return cmd
}

// ListEquipmentCmd creates the listEquipment command
func ListEquipmentCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listEquipment",
		Short: "List equipment with its stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := services.ListEquipment(app.Ctx, app.Database)
			if err != nil {
				return err
			}

			fmt.Printf("\n%-36s  %-20s %9s  %s\n", "ID", "Name", "Available", "Status")
			for _, e := range items {
				fmt.Printf("%-36s  %-20s %4d/%-4d  %s\n", e.ID, e.Name, e.Available, e.Total, e.Status)
			}
			fmt.Println()
			return nil
		},
	}
}

// LendEquipmentCmd creates the lendEquipment command
func LendEquipmentCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lendEquipment <reservation_id> <equipment_id> <quantity>",
		Short: "Lend equipment to a guest during their stay",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[2])
			}

			loan, err := services.LendEquipment(app.Ctx, app.Database, app.Runtime, app.Actor, services.LendEquipmentRequest{
				ReservationID: args[0],
				EquipmentID:   args[1],
				Quantity:      quantity,
			})
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Loan %s recorded on %s\n\n", loan.ID, loan.LentOn.Format(model.DateLayout))
			return nil
		},
	}
}

// ReturnEquipmentCmd creates the returnEquipment command
func ReturnEquipmentCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "returnEquipment <loan_id>",
		Short: "Record equipment coming back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loan, err := services.ReturnEquipment(app.Ctx, app.Database, app.Runtime, app.Actor, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Loan %s returned (%d units back in stock)\n\n", loan.ID, loan.Quantity)
			return nil
		},
	}
}

// ListLoansCmd creates the listLoans command
func ListLoansCmd(app *AppContext) *cobra.Command {
	var (
		reservationID string
		outstanding   bool
	)

	cmd := &cobra.Command{
		Use:   "listLoans",
		Short: "List equipment loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loans, err := services.ListEquipmentLoans(app.Ctx, app.Database, app.Actor, db.EquipmentLoanFilter{
				ReservationID:   reservationID,
				OutstandingOnly: outstanding,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n%-36s  %-36s  %-36s %4s  %-10s  %s\n", "ID", "Reservation", "Equipment", "Qty", "Lent", "Returned")
			for _, l := range loans {
				returned := "-"
				if l.ReturnedOn != nil {
					returned = l.ReturnedOn.Format(model.DateLayout)
				}
				fmt.Printf("%-36s  %-36s  %-36s %4d  %-10s  %s\n",
					l.ID, l.ReservationID, l.EquipmentID, l.Quantity, l.LentOn.Format(model.DateLayout), returned)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&reservationID, "reservation", "", "Only loans of this reservation")
	cmd.Flags().BoolVar(&outstanding, "outstanding", false, "Only loans not yet returned")
	return cmd
}
