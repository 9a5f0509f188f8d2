package aggregate

import (
	"strings"

	"ourfish-bknd/internal/models"
)

// Result is every derived table computed under one filter.
type Result struct {
	Filter      FilterState    `json:"filter"`
	Records     int            `json:"records"`
	Highlights  Highlights     `json:"highlights"`
	Catch       []CatchMonth   `json:"catch"`
	CPUEValue   []CPUEMonth    `json:"cpue_value"`
	Length      []LengthMonth  `json:"length"`
	Composition []SpeciesShare `json:"composition"`
	Map         MapData        `json:"map"`
}

// Run filters the records once and derives all six tables from the same
// filtered set.
func Run(records []models.Transaction, loc Locations, f FilterState) Result {
	filtered := f.Apply(records)
	return Result{
		Filter:      f,
		Records:     len(filtered),
		Highlights:  ComputeHighlights(filtered),
		Catch:       CatchByMonth(filtered),
		CPUEValue:   CPUEValueByMonth(filtered),
		Length:      LengthByMonth(filtered),
		Composition: Composition(filtered),
		Map:         MapByCommunity(filtered, loc),
	}
}

// Sheet names, in export order.
const (
	SheetTotals      = "Totals"
	SheetCatch       = "Catch"
	SheetCPUEValue   = "CPUE-Value"
	SheetLength      = "Length"
	SheetComposition = "Composition"
	SheetMap         = "Map"
)

// Table is a derived table flattened to a header and rows. Nil cells are
// missing values.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Sheets flattens the result into named tables.
func (r Result) Sheets() []Table {
	totals := Table{
		Name:    SheetTotals,
		Columns: []string{"weight_mt", "value_usd", "trips", "fishers", "buyers", "female"},
		Rows: [][]any{{
			r.Highlights.WeightMT, r.Highlights.ValueUSD, r.Highlights.Trips,
			r.Highlights.Fishers, r.Highlights.Buyers, r.Highlights.Female,
		}},
	}

	catch := Table{Name: SheetCatch, Columns: []string{"month", "weight_mt"}, Rows: [][]any{}}
	for _, m := range r.Catch {
		catch.Rows = append(catch.Rows, []any{m.Month, m.WeightMT})
	}

	cpue := Table{
		Name: SheetCPUEValue,
		Columns: []string{"month", "cpue_kg_boat", "ste_cpue_kg_boat",
			"avg_catch_value_usd", "ste_catch_value_usd", "boats"},
		Rows: [][]any{},
	}
	for _, m := range r.CPUEValue {
		cpue.Rows = append(cpue.Rows, []any{
			m.Month, m.CPUEKgBoat, cell(m.SteCPUEKgBoat),
			m.AvgCatchValueUSD, cell(m.SteCatchValueUSD), m.Boats,
		})
	}

	length := Table{Name: SheetLength, Columns: []string{"month", "avg_length_cm", "percent_mature"}, Rows: [][]any{}}
	for _, m := range r.Length {
		length.Rows = append(length.Rows, []any{m.Month, cell(m.AvgLengthCm), cell(m.PercentMature)})
	}

	comp := Table{
		Name:    SheetComposition,
		Columns: []string{"species_scientific", "species_local", "family_scientific", "is_focal", "weight_mt"},
		Rows:    [][]any{},
	}
	for _, s := range r.Composition {
		comp.Rows = append(comp.Rows, []any{s.SpeciesScientific, s.SpeciesLocal, s.FamilyScientific, s.IsFocal, s.WeightMT})
	}

	mp := Table{
		Name: SheetMap,
		Columns: []string{"community_id", "community_name", "area_id", "population", "est_fishers",
			"est_buyers", "weight_kg", "value_usd", "records", "lat", "lon"},
		Rows: [][]any{},
	}
	for _, p := range r.Map.Points {
		mp.Rows = append(mp.Rows, []any{
			p.CommunityID, p.CommunityName, p.AreaID, p.Population, p.EstFishers,
			p.EstBuyers, p.WeightKg, p.ValueUSD, p.Records, p.Lat, p.Lon,
		})
	}

	return []Table{totals, catch, cpue, length, comp, mp}
}

// Sheet returns one named table. Names match case-insensitively.
func (r Result) Sheet(name string) (Table, bool) {
	for _, t := range r.Sheets() {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Table{}, false
}

func cell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
