package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
)

// Describe renders an error for the terminal, naming the kind of domain errors
func Describe(err error) string {
	var domainErr *model.Error
	if !errors.As(err, &domainErr) {
		return fmt.Sprintf("❌ Error: %v", err)
	}

	var label string
	switch domainErr.Kind {
	case model.KindValidation:
		label = "Invalid request"
	case model.KindConflict:
		label = "Conflict"
	case model.KindState:
		label = "Not allowed now"
	case model.KindNotFound:
		label = "Not found"
	case model.KindForbidden:
		label = "Forbidden"
	default:
		label = "Error"
	}

	msg := fmt.Sprintf("❌ %s: %s", label, domainErr.Message)
	if domainErr.Ref != "" {
		msg += fmt.Sprintf(" (ref %s)", domainErr.Ref)
	}
	return msg
}

func (app *AppContext) money(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + app.Cfg.Currency
}

func printReservation(app *AppContext, r model.Reservation) {
	fmt.Printf("Reservation ID: %s\n", r.ID)
	fmt.Printf("Cabin:          %s\n", r.CabinID)
	fmt.Printf("Customer:       %s\n", r.CustomerID)
	fmt.Printf("Stay:           %s → %s (%d nights, %d guests)\n",
		r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout), r.Nights(), r.Guests)
	fmt.Printf("Status:         %s\n", r.Status)
	fmt.Printf("Amount:         %s\n", app.money(r.Amount))
	if r.CustomerConfirmed {
		fmt.Printf("Arrival confirmed by customer\n")
	}
	fmt.Println()
}

func printDelivery(app *AppContext, rec model.DeliveryRecord) {
	fmt.Printf("Delivery record %s (%s)\n\n", rec.ID, rec.Status)
	fmt.Printf("  %-24s %9s %9s %-10s %-10s %14s\n", "Item", "Delivered", "Returned", "Out", "Back", "Charge")
	for _, item := range rec.Items {
		fmt.Printf("  %-24s %9d %9d %-10s %-10s %14s\n",
			item.Name, item.QuantityDelivered, item.QuantityReturned,
			item.ConditionAtDelivery, item.ConditionAtReturn, app.money(item.Charge))
	}
	fmt.Printf("\n  Total charge: %s\n\n", app.money(rec.TotalCharge()))
}

func printProgress(res *services.ProgressResult) {
	fmt.Printf("Preparation %s for reservation %s: %s\n", res.Record.ID, res.Record.ReservationID, res.Record.Status)
	fmt.Printf("Progress: %d/%d tasks (%d%%)\n", res.TasksDone, res.TasksTotal, res.Percentage)
	for _, task := range res.Record.Tasks {
		mark := " "
		if task.Completed {
			mark = "✓"
		}
		fmt.Printf("  [%s] %s (%s)\n", mark, task.TaskName, task.TaskID)
	}
	fmt.Println()
}

// parseObservation reads "<checklist_item_id>=<quantity>[:<condition>]"; condition defaults to good
func parseObservation(s string) (services.ItemObservation, error) {
	id, rest, ok := strings.Cut(s, "=")
	if !ok || id == "" || rest == "" {
		return services.ItemObservation{}, fmt.Errorf("item %q must look like <id>=<quantity>[:<condition>]", s)
	}

	qtyText, condText, hasCond := strings.Cut(rest, ":")
	qty, err := strconv.Atoi(qtyText)
	if err != nil {
		return services.ItemObservation{}, fmt.Errorf("item %q: quantity must be a number", s)
	}

	cond := model.ConditionGood
	if hasCond {
		cond = model.ItemCondition(condText)
		if !cond.IsValid() {
			return services.ItemObservation{}, fmt.Errorf("item %q: unknown condition %q", s, condText)
		}
	}

	return services.ItemObservation{ChecklistItemID: id, Quantity: qty, Condition: cond}, nil
}

func parseObservations(items []string) ([]services.ItemObservation, error) {
	out := make([]services.ItemObservation, 0, len(items))
	for _, s := range items {
		obs, err := parseObservation(s)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, nil
}

// completions merges --done and --undone task ids; a task named in both is an error
func completions(done, undone []string) (map[string]bool, error) {
	out := make(map[string]bool, len(done)+len(undone))
	for _, id := range done {
		out[id] = true
	}
	for _, id := range undone {
		if out[id] {
			return nil, fmt.Errorf("task %s is marked both done and undone", id)
		}
		out[id] = false
	}
	return out, nil
}
