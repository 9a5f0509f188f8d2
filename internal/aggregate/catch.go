package aggregate

import (
	"sort"

	"ourfish-bknd/internal/models"
)

// MonthLayout formats the month key of every monthly table.
const MonthLayout = "2006-01"

// CatchMonth is the total landed weight of one month.
type CatchMonth struct {
	Month    string  `json:"month"`
	WeightMT float64 `json:"weight_mt"`
}

// CatchByMonth sums weight per calendar month, months ascending. Months
// without records are omitted.
func CatchByMonth(filtered []models.Transaction) []CatchMonth {
	kg := map[string]float64{}
	for _, rec := range filtered {
		kg[monthKey(rec)] += rec.WeightKg
	}

	out := make([]CatchMonth, 0, len(kg))
	for _, m := range sortedKeys(kg) {
		out = append(out, CatchMonth{Month: m, WeightMT: kg[m] / 1000})
	}
	return out
}

func monthKey(rec models.Transaction) string {
	return Month(rec.Date).Format(MonthLayout)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
