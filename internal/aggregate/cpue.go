package aggregate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"ourfish-bknd/internal/models"
)

// CPUEMonth is catch and value per unit effort for one month. A boat is one
// fisher id active in the month; records without a fisher id form a single
// boat. Standard errors are nil when fewer than two boats were active.
type CPUEMonth struct {
	Month            string   `json:"month"`
	CPUEKgBoat       float64  `json:"cpue_kg_boat"`
	SteCPUEKgBoat    *float64 `json:"ste_cpue_kg_boat"`
	AvgCatchValueUSD float64  `json:"avg_catch_value_usd"`
	SteCatchValueUSD *float64 `json:"ste_catch_value_usd"`
	Boats            int      `json:"boats"`
}

type boatTotal struct {
	weightKg float64
	value    float64
}

// CPUEValueByMonth groups by (month, boat), sums each boat and then takes the
// mean and standard error of the mean across boats.
func CPUEValueByMonth(filtered []models.Transaction) []CPUEMonth {
	type month struct {
		order []string
		boats map[string]*boatTotal
	}
	months := map[string]*month{}

	for _, rec := range filtered {
		key := monthKey(rec)
		m, ok := months[key]
		if !ok {
			m = &month{boats: map[string]*boatTotal{}}
			months[key] = m
		}
		boat := fisherKey(rec.FisherID)
		t, ok := m.boats[boat]
		if !ok {
			t = &boatTotal{}
			m.boats[boat] = t
			m.order = append(m.order, boat)
		}
		t.weightKg += rec.WeightKg
		t.value += rec.TotalPrice
	}

	out := make([]CPUEMonth, 0, len(months))
	for _, key := range sortedKeys(months) {
		m := months[key]
		weights := make([]float64, len(m.order))
		values := make([]float64, len(m.order))
		for i, boat := range m.order {
			weights[i] = m.boats[boat].weightKg
			values[i] = m.boats[boat].value
		}

		row := CPUEMonth{Month: key, Boats: len(m.order)}
		row.CPUEKgBoat, row.SteCPUEKgBoat = meanSEM(weights)
		row.AvgCatchValueUSD, row.SteCatchValueUSD = meanSEM(values)
		out = append(out, row)
	}
	return out
}

// meanSEM returns the mean and the standard error of the mean using the
// sample standard deviation. The error is nil for fewer than two values.
func meanSEM(xs []float64) (float64, *float64) {
	if len(xs) == 0 {
		return 0, nil
	}
	if len(xs) < 2 {
		return xs[0], nil
	}
	mean, std := stat.MeanStdDev(xs, nil)
	sem := std / math.Sqrt(float64(len(xs)))
	return mean, &sem
}
