package dataset

import (
	"testing"
	"time"

	"ourfish-bknd/internal/models"
)

func TestNewSnapshot(t *testing.T) {
	day := func(s string) time.Time { d, _ := time.Parse("2006-01-02", s); return d }
	snap := New(Tables{
		Countries: []models.Country{{ID: 1, Name: "Philippines"}},
		SNUs:      []models.SubnationalUnit{{ID: 10, Name: "Cebu", CountryID: 1}},
		LGUs:      []models.LocalGovernmentUnit{{ID: 100, Name: "Alcoy", SNUID: 10}},
		Areas:     []models.ManagedAccessArea{{ID: 1000, Name: "Alcoy MAA", LGUID: 100}},
		Transactions: []models.Transaction{
			{Date: day("2021-05-03"), AreaID: 1000},
			{Date: day("2020-11-20"), AreaID: 1000},
		},
	})

	if !snap.HasData {
		t.Fatal("HasData = false")
	}
	if !snap.Bounds.Start.Equal(day("2020-11-20")) || !snap.Bounds.End.Equal(day("2021-05-03")) {
		t.Errorf("Bounds = %+v", snap.Bounds)
	}
	if !snap.KnownArea(1000) || snap.KnownArea(5) {
		t.Errorf("KnownArea wrong")
	}
	f := snap.DefaultFilter(6)
	if !f.Start.Equal(day("2020-12-01")) || len(f.AreaIDs) != 1 {
		t.Errorf("DefaultFilter = %+v", f)
	}
}

func TestEmptySnapshot(t *testing.T) {
	snap := New(Tables{})
	if snap.HasData {
		t.Errorf("HasData = true for no rows")
	}
	if len(snap.DefaultFilter(6).AreaIDs) != 0 {
		t.Errorf("areas in an empty catalog")
	}
}
