package dataset

import (
	"context"

	"ourfish-bknd/internal/aggregate"
	"ourfish-bknd/internal/geo"
	"ourfish-bknd/internal/models"
)

// Source loads the full dataset once.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Snapshot is the read-only dataset every session computes from. It is built
// once at startup and shared by all requests.
type Snapshot struct {
	Catalog      *geo.Catalog
	Transactions []models.Transaction
	Locations    aggregate.Locations
	Bounds       aggregate.DateRange
	// HasData is false when there are no transactions; Bounds is zero then.
	HasData bool
}

// Tables are the raw rows a Source reads.
type Tables struct {
	Countries    []models.Country
	SNUs         []models.SubnationalUnit
	LGUs         []models.LocalGovernmentUnit
	Areas        []models.ManagedAccessArea
	Communities  []models.Community
	Transactions []models.Transaction
}

// New indexes the raw tables into a snapshot.
func New(t Tables) *Snapshot {
	bounds, ok := aggregate.ObservedRange(t.Transactions)
	return &Snapshot{
		Catalog:      geo.NewCatalog(t.Countries, t.SNUs, t.LGUs, t.Areas),
		Transactions: t.Transactions,
		Locations:    aggregate.Locations{Communities: t.Communities, Areas: t.Areas},
		Bounds:       bounds,
		HasData:      ok,
	}
}

// KnownArea reports whether a managed access area is in the catalog.
func (s *Snapshot) KnownArea(id int64) bool {
	return s.Catalog.Has(geo.LevelMAA, id)
}

// DefaultFilter is the filter a new session starts with.
func (s *Snapshot) DefaultFilter(months int) aggregate.FilterState {
	return aggregate.DefaultFilter(s.Catalog.IDs(geo.LevelMAA), s.Bounds, months)
}
