package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// DefaultPreparationTasks is the standard turnover task catalog
var DefaultPreparationTasks = []model.PreparationTask{
	{Name: "General cleaning", Category: "cleaning", Description: "Clean every room, change bed linen and towels", Mandatory: true, Order: 1},
	{Name: "Appliance check", Category: "inspection", Description: "Check the refrigerator, microwave, kettle and lighting work", Mandatory: true, Order: 2},
	{Name: "Stove maintenance", Category: "maintenance", Description: "Clean burners and check the gas connection", Mandatory: true, Order: 3},
	{Name: "Firewood refill", Category: "supplies", Description: "Stock the wood box next to the fireplace", Mandatory: false, Order: 4},
}

// DefaultChecklist is the base inventory every cabin starts with
var DefaultChecklist = []model.ChecklistItem{
	{Name: "Refrigerator", Category: "appliances", ExpectedQuantity: 1, Mandatory: true, ReplacementPrice: decimal.NewFromInt(150000), Order: 1},
	{Name: "Gas stove", Category: "appliances", ExpectedQuantity: 1, Mandatory: true, ReplacementPrice: decimal.NewFromInt(80000), Order: 2},
	{Name: "Microwave", Category: "appliances", ExpectedQuantity: 1, Mandatory: true, ReplacementPrice: decimal.NewFromInt(60000), Order: 3},
	{Name: "Electric kettle", Category: "appliances", ExpectedQuantity: 1, Mandatory: true, ReplacementPrice: decimal.NewFromInt(25000), Order: 4},
	{Name: "Crockery set", Category: "kitchen", ExpectedQuantity: 1, Mandatory: true, ReplacementPrice: decimal.NewFromInt(30000), Order: 5},
	{Name: "Cutlery set", Category: "kitchen", ExpectedQuantity: 1, Mandatory: true, ReplacementPrice: decimal.NewFromInt(20000), Order: 6},
	{Name: "Pots and pans", Category: "kitchen", ExpectedQuantity: 1, Mandatory: true, ReplacementPrice: decimal.NewFromInt(40000), Order: 7},
	{Name: "Bath towels", Category: "linen", ExpectedQuantity: 6, Mandatory: true, ReplacementPrice: decimal.NewFromInt(10000), Order: 8},
}

// SeedResult counts what SeedCatalogs wrote
type SeedResult struct {
	Tasks          int `json:"tasks"`
	ChecklistItems int `json:"checklist_items"`
	Cabins         int `json:"cabins"`
}

type catalogSeedStore interface {
	db.CabinStore
	db.CatalogStore
}

// SeedCatalogs upserts the standard task catalog and every cabin's base checklist.
// Running it again updates the same rows.
func SeedCatalogs(ctx context.Context, store catalogSeedStore, rt Runtime, actor model.Actor) (*SeedResult, error) {
	const op = "SeedCatalogs"

	if err := requireRole(op, actor, model.RoleAdmin); err != nil {
		return nil, err
	}

	result := &SeedResult{}

	for _, task := range DefaultPreparationTasks {
		task := task
		if err := store.UpsertPreparationTask(ctx, &task); err != nil {
			return nil, fmt.Errorf("failed to upsert preparation task %q: %w", task.Name, err)
		}
		result.Tasks++
	}

	cabins, err := store.ListCabins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cabins: %w", err)
	}

	for _, cabin := range cabins {
		for _, item := range DefaultChecklist {
			item := item
			item.CabinID = cabin.ID
			if err := store.UpsertChecklistItem(ctx, &item); err != nil {
				return nil, fmt.Errorf("failed to upsert checklist item %q for cabin %s: %w", item.Name, cabin.ID, err)
			}
			result.ChecklistItems++
		}
		result.Cabins++
	}

	rt.Logger.Info("Catalogs seeded",
		zap.Int("tasks", result.Tasks),
		zap.Int("checklist_items", result.ChecklistItems),
		zap.Int("cabins", result.Cabins))

	return result, nil
}

func ListPreparationTasks(ctx context.Context, store db.CatalogStore) ([]model.PreparationTask, error) {
	tasks, err := store.ListPreparationTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list preparation tasks: %w", err)
	}
	return tasks, nil
}

func ListChecklist(ctx context.Context, store db.CatalogStore, cabinID string) ([]model.ChecklistItem, error) {
	items, err := store.ListChecklistItems(ctx, cabinID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}
	return items, nil
}
