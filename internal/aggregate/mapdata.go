package aggregate

import (
	"sort"

	"ourfish-bknd/internal/models"
	"ourfish-bknd/internal/spatial"
)

// MapPoint is one community's landings joined with its static location data.
type MapPoint struct {
	CommunityID   int64   `json:"community_id"`
	CommunityName string  `json:"community_name"`
	AreaID        int64   `json:"area_id"`
	Population    float64 `json:"population"`
	EstFishers    float64 `json:"est_fishers"`
	EstBuyers     float64 `json:"est_buyers"`
	WeightKg      float64 `json:"weight_kg"`
	ValueUSD      float64 `json:"value_usd"`
	Records       int     `json:"records"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
}

// MapData is the map layer plus a view fitted to it.
type MapData struct {
	Points []MapPoint   `json:"points"`
	View   spatial.View `json:"view"`
}

// Locations is the static location data joined into the map layer.
type Locations struct {
	Communities []models.Community
	Areas       []models.ManagedAccessArea
}

// MapByCommunity sums landings per community and joins location data. A
// community without a plottable coordinate is placed at its managed access
// area (its own area, else the area of its first record) when that one is
// plottable. Unknown communities and those with no usable location are left
// out.
func MapByCommunity(filtered []models.Transaction, loc Locations) MapData {
	byID := make(map[int64]models.Community, len(loc.Communities))
	for _, c := range loc.Communities {
		byID[c.ID] = c
	}
	areas := make(map[int64]models.ManagedAccessArea, len(loc.Areas))
	for _, a := range loc.Areas {
		areas[a.ID] = a
	}

	points := map[int64]*MapPoint{}
	skipped := map[int64]struct{}{}
	for _, rec := range filtered {
		p, ok := points[rec.CommunityID]
		if !ok {
			if _, skip := skipped[rec.CommunityID]; skip {
				continue
			}
			c, known := byID[rec.CommunityID]
			if !known {
				skipped[rec.CommunityID] = struct{}{}
				continue
			}
			areaID := rec.AreaID
			if c.AreaID != nil {
				areaID = *c.AreaID
			}
			lat, lon, plottable := c.Lat, c.Lon, spatial.ValidCoordinate(c.Lat, c.Lon)
			if !plottable {
				a := areas[areaID]
				lat, lon, plottable = a.Lat, a.Lon, spatial.ValidCoordinate(a.Lat, a.Lon)
			}
			if !plottable {
				skipped[rec.CommunityID] = struct{}{}
				continue
			}
			p = &MapPoint{
				CommunityID:   c.ID,
				CommunityName: c.Name,
				AreaID:        areaID,
				Population:    c.Population,
				EstFishers:    c.EstFishers,
				EstBuyers:     c.EstBuyers,
				Lat:           *lat,
				Lon:           *lon,
			}
			points[rec.CommunityID] = p
		}
		p.WeightKg += rec.WeightKg
		p.ValueUSD += rec.TotalPrice
		p.Records++
	}

	out := MapData{Points: make([]MapPoint, 0, len(points))}
	coords := make([]spatial.Point, 0, len(points))
	for _, p := range points {
		out.Points = append(out.Points, *p)
	}
	sort.Slice(out.Points, func(i, j int) bool { return out.Points[i].CommunityID < out.Points[j].CommunityID })
	for _, p := range out.Points {
		coords = append(coords, spatial.Point{Lat: p.Lat, Lon: p.Lon})
	}
	out.View = spatial.FitView(coords)
	return out
}
