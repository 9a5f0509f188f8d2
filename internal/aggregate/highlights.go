package aggregate

import (
	"strings"

	"ourfish-bknd/internal/models"
)

// Highlights are the headline totals shown as summary cards.
type Highlights struct {
	WeightMT float64 `json:"weight_mt"`
	ValueUSD float64 `json:"value_usd"`
	Trips    int     `json:"trips"`
	Fishers  int     `json:"fishers"`
	Buyers   int     `json:"buyers"`
	Female   int     `json:"female"`
}

// ComputeHighlights totals the filtered records. A trip is a distinct
// (day, fisher) pair, with all records lacking a fisher id sharing one fisher
// per day. Fishers count only known ids. Female counts distinct fishers and
// buyers whose gender is recorded as female.
func ComputeHighlights(filtered []models.Transaction) Highlights {
	var h Highlights
	var weightKg float64
	trips := map[string]struct{}{}
	fishers := map[string]struct{}{}
	buyers := map[string]struct{}{}
	female := map[string]struct{}{}

	for _, rec := range filtered {
		weightKg += rec.WeightKg
		h.ValueUSD += rec.TotalPrice

		trips[Day(rec.Date).Format(DateLayout)+"|"+fisherKey(rec.FisherID)] = struct{}{}
		if rec.FisherID != nil {
			fishers[*rec.FisherID] = struct{}{}
			if IsFemale(rec.FisherGender) {
				female["fisher:"+*rec.FisherID] = struct{}{}
			}
		}
		if rec.BuyerID != "" {
			buyers[rec.BuyerID] = struct{}{}
			if IsFemale(rec.BuyerGender) {
				female["buyer:"+rec.BuyerID] = struct{}{}
			}
		}
	}

	h.WeightMT = weightKg / 1000
	h.Trips = len(trips)
	h.Fishers = len(fishers)
	h.Buyers = len(buyers)
	h.Female = len(female)
	return h
}

// IsFemale matches "f" or "female" in any case.
func IsFemale(gender *string) bool {
	if gender == nil {
		return false
	}
	g := strings.ToLower(strings.TrimSpace(*gender))
	return g == "f" || g == "female"
}
