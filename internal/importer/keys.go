package importer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"finanzas/internal/legacy"
)

var importKeySpace = uuid.MustParse("5b0f3c1e-8a57-4f3e-9d2c-6f1a7e4b2c90")

// movementKeys derives one import key per remote movement from its fields
// and the number of identical records before it in the same collection, so
// that repeated identical movements stay distinct and a replay maps each one
// onto the row it produced last time.
func movementKeys(remote []legacy.Movement) []string {
	seen := make(map[string]int, len(remote))
	keys := make([]string, len(remote))
	for i, rm := range remote {
		tuple := movementTuple(rm)
		keys[i] = uuid.NewSHA1(importKeySpace, fmt.Appendf(nil, "%s#%d", tuple, seen[tuple])).String()
		seen[tuple]++
	}
	return keys
}

func movementTuple(rm legacy.Movement) string {
	fields := []string{
		rm.Account,
		rm.Category,
		rm.Amount.String(),
		rm.PurchaseDate.String(),
		rm.Description,
		rm.Event,
		rm.Investment,
	}
	if leg := rm.Transfer; leg != nil {
		fields = append(fields, leg.Account, leg.Category, leg.Amount.String(), leg.Date.String())
	}
	return strings.Join(fields, "\x1f")
}
