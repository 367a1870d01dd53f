package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/cmd/cli/commands"
	"github.com/cabecera/ing-software-caba-itas/internal/config"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/utils/logging"
)

var (
	env     string
	actorID string
	role    string
	app     = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cabanas",
		Short:         "Cabañas CLI - Manage cabin reservations, turnovers and inventory",
		Long:          `A CLI tool for booking cabins, preparing them between stays, verifying inventory and reporting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
			app.Close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "cli", "User ID to act as")
	rootCmd.PersistentFlags().StringVar(&role, "role", string(model.RoleAdmin), "Role to act as: customer, admin or operations")

	rootCmd.AddCommand(
		commands.RegisterCabinCmd(app),
		commands.ListCabinsCmd(app),
		commands.RecomputeCabinCmd(app),
		commands.SeedCatalogsCmd(app),
		commands.RegisterCustomerCmd(app),

		commands.CreateReservationCmd(app),
		commands.ListReservationsCmd(app),
		commands.ShowReservationCmd(app),
		commands.ConfirmReservationCmd(app),
		commands.CancelReservationCmd(app),
		commands.CustomerConfirmCmd(app),
		commands.ReassignReservationCmd(app),
		commands.CompleteReservationCmd(app),
		commands.CheckAvailabilityCmd(app),

		commands.ShowPreparationCmd(app),
		commands.AssignPreparationCmd(app),
		commands.UpdateProgressCmd(app),
		commands.CompletePreparationCmd(app),
		commands.CreateDeliveryRecordCmd(app),
		commands.ShowDeliveryCmd(app),
		commands.CheckInCmd(app),
		commands.CheckOutCmd(app),
		commands.ConfirmDeliveryCmd(app),
		commands.ConfirmReturnCmd(app),

		commands.RaiseMissingItemCmd(app),
		commands.ListMissingItemsCmd(app),
		commands.AcknowledgeMissingItemCmd(app),
		commands.ResolveMissingItemCmd(app),

		commands.ScheduleMaintenanceCmd(app),
		commands.StartMaintenanceCmd(app),
		commands.FinalizeMaintenanceCmd(app),
		commands.CancelMaintenanceCmd(app),
		commands.ListMaintenanceCmd(app),
		commands.PlanMaintenanceCmd(app),

		commands.RecordPaymentCmd(app),
		commands.ListPaymentsCmd(app),
		commands.SubmitSurveyCmd(app),

		commands.RegisterEquipmentCmd(app),
		commands.ListEquipmentCmd(app),
		commands.LendEquipmentCmd(app),
		commands.ReturnEquipmentCmd(app),
		commands.ListLoansCmd(app),

		commands.NotificationsCmd(app),
		commands.MarkReadCmd(app),

		commands.MigrateCmd(app),
		commands.EvaluateAlertsCmd(app),
		commands.SchedulerCmd(app),
		commands.ServeCmd(app),
		commands.DashboardCmd(app),
		commands.AnnualReportCmd(app),

		interactiveCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, commands.Describe(err))
		os.Exit(1)
	}
}

// initApp sets up logger, config, store, locker and notifier
func initApp() error {
	actor := model.Actor{ID: actorID, Role: model.Role(role)}
	if actor.ID == "" || !actor.Role.IsValid() {
		return fmt.Errorf("invalid actor %q with role %q", actorID, role)
	}

	logger, err := logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Starting application", zap.String("environment", env), zap.String("actor", actor.ID), zap.String("role", string(actor.Role)))

	logger.Info("Loading configuration")
	cfg, err := config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Debug("Configuration loaded successfully")

	built, err := commands.NewAppContext(context.Background(), env, cfg, actor, logger)
	if err != nil {
		_ = logger.Sync()
		return err
	}
	*app = *built

	return nil
}

func interactiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session (connect once, run multiple commands)",
		Long: `Start an interactive session where you can run multiple commands against one connection.
With the in-memory store this is the only way to keep data between commands.
The session will keep running until you type 'exit' or 'quit'.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("\n🚀 Starting interactive session...")
			fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to leave")

			rootCmd := cmd.Parent()
			available := make(map[string]*cobra.Command)
			for _, subCmd := range rootCmd.Commands() {
				if subCmd.Name() != "interactive" && subCmd.Name() != "completion" && subCmd.Name() != "help" {
					available[subCmd.Name()] = subCmd
				}
			}

			scanner := bufio.NewScanner(os.Stdin)

			for {
				fmt.Print("> ")

				if !scanner.Scan() {
					break
				}

				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				parts := strings.Fields(line)
				cmdName := parts[0]
				cmdArgs := parts[1:]

				if cmdName == "exit" || cmdName == "quit" {
					fmt.Println("👋 Goodbye!")
					return nil
				}

				if cmdName == "help" {
					printInteractiveHelp(available)
					continue
				}

				targetCmd, exists := available[cmdName]
				if !exists {
					fmt.Printf("❌ Unknown command: %s (type 'help' for available commands)\n\n", cmdName)
					continue
				}

				targetCmd.Flags().VisitAll(func(flag *pflag.Flag) {
					flag.Changed = false
					if sv, ok := flag.Value.(pflag.SliceValue); ok {
						_ = sv.Replace(nil)
						return
					}
					_ = flag.Value.Set(flag.DefValue)
				})

				// RunE is called directly so PersistentPreRunE does not reconnect
				if err := targetCmd.ParseFlags(cmdArgs); err != nil {
					fmt.Printf("❌ Error parsing flags: %v\n\n", err)
					continue
				}

				cmdArgs = targetCmd.Flags().Args()

				if targetCmd.Args != nil {
					if err := targetCmd.Args(targetCmd, cmdArgs); err != nil {
						fmt.Printf("❌ Error: %v\n\n", err)
						continue
					}
				}

				if targetCmd.RunE != nil {
					if err := targetCmd.RunE(targetCmd, cmdArgs); err != nil {
						fmt.Printf("%s\n\n", commands.Describe(err))
					}
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}

			return nil
		},
	}
}

func printInteractiveHelp(available map[string]*cobra.Command) {
	fmt.Println("\nAvailable commands:")

	names := make([]string, 0, len(available))
	for name := range available {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cmd := available[name]
		fmt.Printf("  %-50s %s\n", cmd.Use, cmd.Short)
	}

	fmt.Println("\n  help                                               Show this help message")
	fmt.Println("  exit, quit                                         Exit the interactive session")
}
