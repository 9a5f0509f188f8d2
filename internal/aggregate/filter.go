package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ourfish-bknd/internal/models"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidRange = errors.New("start date is after end date")
	ErrOutOfBounds  = errors.New("date outside the observed data range")
	ErrUnknownArea  = errors.New("unknown managed access area")
)

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Month truncates t to the first day of its month.
func Month(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// ObservedRange is the span of record dates. ok is false for an empty table.
func ObservedRange(records []models.Transaction) (r DateRange, ok bool) {
	for i, rec := range records {
		d := Day(rec.Date)
		if i == 0 || d.Before(r.Start) {
			r.Start = d
		}
		if i == 0 || d.After(r.End) {
			r.End = d
		}
	}
	return r, len(records) > 0
}

// FilterState is the atomic filter every derived table is computed under.
// Build it with NewFilterState; it is replaced, never modified.
type FilterState struct {
	AreaIDs []int64   `json:"area_ids"`
	Start   time.Time `json:"start_date"`
	End     time.Time `json:"end_date"`
}

// AreaLookup reports whether a managed access area exists.
type AreaLookup func(id int64) bool

// NewFilterState validates and builds a filter. Dates are truncated to days.
func NewFilterState(areaIDs []int64, start, end time.Time, bounds DateRange, known AreaLookup) (FilterState, error) {
	start, end = Day(start), Day(end)
	if start.After(end) {
		return FilterState{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start.Format(DateLayout), end.Format(DateLayout))
	}
	if !bounds.Contains(start) || !bounds.Contains(end) {
		return FilterState{}, fmt.Errorf("%w: %s..%s not within %s..%s", ErrOutOfBounds,
			start.Format(DateLayout), end.Format(DateLayout),
			bounds.Start.Format(DateLayout), bounds.End.Format(DateLayout))
	}
	ids := make([]int64, 0, len(areaIDs))
	for _, id := range areaIDs {
		if known != nil && !known(id) {
			return FilterState{}, fmt.Errorf("%w: %d", ErrUnknownArea, id)
		}
		ids = append(ids, id)
	}
	return FilterState{AreaIDs: ids, Start: start, End: end}, nil
}

// DefaultFilter is the page-load filter: every given area over the trailing
// window of `months` calendar months ending on the latest observed day. The
// window starts on the first of the month (months-1) months before the end.
func DefaultFilter(areaIDs []int64, bounds DateRange, months int) FilterState {
	if months < 1 {
		months = 1
	}
	start := Month(bounds.End).AddDate(0, -(months - 1), 0)
	if start.Before(bounds.Start) {
		start = bounds.Start
	}
	ids := make([]int64, len(areaIDs))
	copy(ids, areaIDs)
	return FilterState{AreaIDs: ids, Start: start, End: bounds.End}
}

// Range returns the filter's date span.
func (f FilterState) Range() DateRange {
	return DateRange{Start: f.Start, End: f.End}
}

// Apply returns the records matching the filter in canonical order, so every
// derived table is independent of the order records were loaded in.
func (f FilterState) Apply(records []models.Transaction) []models.Transaction {
	areas := make(map[int64]struct{}, len(f.AreaIDs))
	for _, id := range f.AreaIDs {
		areas[id] = struct{}{}
	}
	rng := f.Range()

	out := []models.Transaction{}
	for _, rec := range records {
		if _, ok := areas[rec.AreaID]; !ok {
			continue
		}
		if !rng.Contains(rec.Date) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return canonicalLess(&out[i], &out[j]) })
	return out
}

func canonicalLess(a, b *models.Transaction) bool {
	if da, db := Day(a.Date), Day(b.Date); !da.Equal(db) {
		return da.Before(db)
	}
	if a.AreaID != b.AreaID {
		return a.AreaID < b.AreaID
	}
	if a.CommunityID != b.CommunityID {
		return a.CommunityID < b.CommunityID
	}
	if fa, fb := fisherKey(a.FisherID), fisherKey(b.FisherID); fa != fb {
		return fa < fb
	}
	if a.BuyerID != b.BuyerID {
		return a.BuyerID < b.BuyerID
	}
	if a.SpeciesScientific != b.SpeciesScientific {
		return a.SpeciesScientific < b.SpeciesScientific
	}
	if a.SpeciesLocal != b.SpeciesLocal {
		return a.SpeciesLocal < b.SpeciesLocal
	}
	if a.WeightKg != b.WeightKg {
		return a.WeightKg < b.WeightKg
	}
	if a.TotalPrice != b.TotalPrice {
		return a.TotalPrice < b.TotalPrice
	}
	if a.Count != b.Count {
		return a.Count < b.Count
	}
	return a.ID < b.ID
}

// fisherKey maps a nullable fisher id to a grouping key. Null fishers share
// one key that cannot collide with a real id.
func fisherKey(id *string) string {
	if id == nil {
		return "\x00null"
	}
	return "id:" + *id
}
