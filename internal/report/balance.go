package report

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BalancePoint is the cumulative balance of a currency at the end of a bucket.
type BalancePoint struct {
	Badge   string          `json:"badge"`
	Period  string          `json:"period"`
	Delta   decimal.Decimal `json:"delta"`
	Balance decimal.Decimal `json:"balance"`
}

// RunningBalance accumulates flows per currency in chronological bucket order,
// starting from the opening balance of each currency (the sum of the initial
// amounts of its accounts). Flows inside a bucket are summed, so their order
// does not matter. Output is sorted by currency, then bucket.
func RunningBalance(opening map[string]decimal.Decimal, flows []Flow) []BalancePoint {
	type key struct {
		badge string
		label string
	}
	deltas := map[key]decimal.Decimal{}
	starts := map[key]Bucket{}
	for _, f := range flows {
		k := key{f.Badge, f.Bucket.Label}
		d, ok := deltas[k]
		if !ok {
			d = decimal.Zero
			starts[k] = f.Bucket
		}
		deltas[k] = d.Add(f.Amount)
	}

	keys := make([]key, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].badge != keys[j].badge {
			return keys[i].badge < keys[j].badge
		}
		return starts[keys[i]].Start.Before(starts[keys[j]].Start)
	})

	out := make([]BalancePoint, 0, len(keys))
	running := map[string]decimal.Decimal{}
	for _, k := range keys {
		bal, ok := running[k.badge]
		if !ok {
			bal = opening[k.badge]
		}
		bal = bal.Add(deltas[k])
		running[k.badge] = bal
		out = append(out, BalancePoint{Badge: k.badge, Period: k.label, Delta: deltas[k], Balance: bal})
	}
	return out
}
