package aggregate

import (
	"sort"
	"strings"

	"ourfish-bknd/internal/models"
)

// CompositionLimit is the number of species kept in the composition table.
const CompositionLimit = 10

// SpeciesShare is one species' total landed weight.
type SpeciesShare struct {
	SpeciesScientific string  `json:"species_scientific"`
	SpeciesLocal      string  `json:"species_local"`
	FamilyScientific  string  `json:"family_scientific"`
	IsFocal           bool    `json:"is_focal"`
	WeightMT          float64 `json:"weight_mt"`
}

// Composition returns the heaviest species, descending by weight. Ties keep
// the order in which species were first encountered. Local names are the
// sorted distinct names joined with "/".
func Composition(filtered []models.Transaction) []SpeciesShare {
	type acc struct {
		share    SpeciesShare
		weightKg float64
		locals   map[string]struct{}
	}
	var order []*acc
	bySpecies := map[string]*acc{}

	for _, rec := range filtered {
		a, ok := bySpecies[rec.SpeciesScientific]
		if !ok {
			a = &acc{
				share: SpeciesShare{
					SpeciesScientific: rec.SpeciesScientific,
					FamilyScientific:  rec.FamilyScientific,
				},
				locals: map[string]struct{}{},
			}
			bySpecies[rec.SpeciesScientific] = a
			order = append(order, a)
		}
		a.weightKg += rec.WeightKg
		a.share.IsFocal = a.share.IsFocal || rec.IsFocal
		if rec.SpeciesLocal != "" {
			a.locals[rec.SpeciesLocal] = struct{}{}
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].weightKg > order[j].weightKg })
	if len(order) > CompositionLimit {
		order = order[:CompositionLimit]
	}

	out := make([]SpeciesShare, len(order))
	for i, a := range order {
		s := a.share
		s.SpeciesLocal = strings.Join(sortedKeys(a.locals), "/")
		s.WeightMT = a.weightKg / 1000
		out[i] = s
	}
	return out
}
