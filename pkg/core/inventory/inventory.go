// Package inventory holds the checklist verification rules: seeding, charge computation and
// the delivery acknowledgement token.
package inventory

import (
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

var (
	damagedRate = decimal.NewFromFloat(0.5)
	fairRate    = decimal.NewFromFloat(0.2)
)

// CalculateCharge returns what the guest owes for one verification item.
// Shortage is charged at full replacement value per missing unit; returned units
// are charged 50% if damaged and 20% if fair. Both parts accumulate.
func CalculateCharge(item model.VerificationItem) decimal.Decimal {
	charge := decimal.Zero
	price := item.ReplacementPrice

	if shortage := item.QuantityDelivered - item.QuantityReturned; shortage > 0 {
		charge = charge.Add(price.Mul(decimal.NewFromInt(int64(shortage))))
	}

	if item.QuantityReturned > 0 {
		returned := price.Mul(decimal.NewFromInt(int64(item.QuantityReturned)))
		switch item.ConditionAtReturn {
		case model.ConditionDamaged:
			charge = charge.Add(returned.Mul(damagedRate))
		case model.ConditionFair:
			charge = charge.Add(returned.Mul(fairRate))
		}
	}

	return charge.Round(2)
}

// ApplyCharge stores the computed charge and replacement flag on the item
func ApplyCharge(item *model.VerificationItem) {
	item.Charge = CalculateCharge(*item)
	item.RequiresReplacement = item.Charge.IsPositive()
}

// Total sums item charges
func Total(items []model.VerificationItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Charge)
	}
	return total
}

// MissingItems returns a verification item for every catalog entry that existing does
// not cover yet, so seeding the same record twice adds nothing.
func MissingItems(catalog []model.ChecklistItem, existing []model.VerificationItem) []model.VerificationItem {
	seen := make(map[string]bool, len(existing))
	for _, item := range existing {
		seen[item.ChecklistItemID] = true
	}

	sorted := make([]model.ChecklistItem, len(catalog))
	copy(sorted, catalog)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	var missing []model.VerificationItem
	for _, c := range sorted {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		missing = append(missing, model.VerificationItem{
			ChecklistItemID:     c.ID,
			Name:                c.Name,
			ReplacementPrice:    c.ReplacementPrice,
			QuantityDelivered:   c.ExpectedQuantity,
			ConditionAtDelivery: model.ConditionFair,
			Charge:              decimal.Zero,
		})
	}
	return missing
}

// SignatureToken is the acknowledgement artifact stored with a delivery. It is not an
// authentication mechanism.
func SignatureToken(reservationID, customerID string, at time.Time) string {
	payload := fmt.Sprintf("%s|%s|%s|entrega", reservationID, customerID, at.UTC().Format(time.RFC3339Nano))
	sum := blake2b.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
