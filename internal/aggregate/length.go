package aggregate

import (
	"math"

	"ourfish-bknd/internal/models"
)

// LengthMonth is the count-weighted mean length and the share of mature
// individuals for one month. Either side is nil when the month has no usable
// records for it.
type LengthMonth struct {
	Month         string   `json:"month"`
	AvgLengthCm   *float64 `json:"avg_length_cm"`
	PercentMature *float64 `json:"percent_mature"`
}

// EstimateLength inverts W = a * L^b for the mean individual of a record:
// L = (1000 * weight_kg / count / a) ^ (1/b). ok is false when the record
// lacks a count, growth parameters or weight, or the result is not finite.
func EstimateLength(rec models.Transaction) (float64, bool) {
	if !(rec.Count > 0 && rec.A > 0 && rec.B > 0 && rec.WeightKg > 0) {
		return 0, false
	}
	l := math.Exp(math.Log(1000*rec.WeightKg/rec.Count/rec.A) / rec.B)
	if math.IsNaN(l) || math.IsInf(l, 0) {
		return 0, false
	}
	return l, true
}

// MaturityLength estimates the length at first maturity from the maximum
// observed length using the Froese & Binohlan (2000) relations.
func MaturityLength(lmax float64) float64 {
	linf := math.Pow(10, 0.044+0.9841*math.Log10(lmax))
	return math.Pow(10, 0.8979*math.Log10(linf)-0.0782)
}

// LengthByMonth outer-joins the monthly average length and percent mature.
func LengthByMonth(filtered []models.Transaction) []LengthMonth {
	type acc struct {
		weighted, count         float64
		matureCount, matureBase float64
		hasLength, hasMaturity  bool
	}
	months := map[string]*acc{}

	for _, rec := range filtered {
		l, ok := EstimateLength(rec)
		if !ok {
			continue
		}
		key := monthKey(rec)
		a, seen := months[key]
		if !seen {
			a = &acc{}
			months[key] = a
		}
		a.weighted += l * rec.Count
		a.count += rec.Count
		a.hasLength = true

		if rec.Lmax > 0 {
			a.matureBase += rec.Count
			if l > MaturityLength(rec.Lmax) {
				a.matureCount += rec.Count
			}
			a.hasMaturity = true
		}
	}

	out := make([]LengthMonth, 0, len(months))
	for _, key := range sortedKeys(months) {
		a := months[key]
		row := LengthMonth{Month: key}
		if a.hasLength && a.count > 0 {
			avg := a.weighted / a.count
			row.AvgLengthCm = &avg
		}
		if a.hasMaturity && a.matureBase > 0 {
			pct := 100 * a.matureCount / a.matureBase
			row.PercentMature = &pct
		}
		if row.AvgLengthCm == nil && row.PercentMature == nil {
			continue
		}
		out = append(out, row)
	}
	return out
}
