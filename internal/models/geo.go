package models

import (
	"github.com/uptrace/bun"
)

// Country is the top level of the geographic hierarchy.
type Country struct {
	bun.BaseModel `bun:"table:countries,alias:c"`

	ID   int64  `bun:"country_id,pk" json:"country_id"`
	Name string `bun:"country_name" json:"country_name"`
}

// SubnationalUnit is a province/state inside a country.
type SubnationalUnit struct {
	bun.BaseModel `bun:"table:subnational_units,alias:snu"`

	ID        int64  `bun:"snu_id,pk" json:"snu_id"`
	Name      string `bun:"snu_name" json:"snu_name"`
	CountryID int64  `bun:"country_id" json:"country_id"`
}

// LocalGovernmentUnit is a municipality inside a subnational unit.
type LocalGovernmentUnit struct {
	bun.BaseModel `bun:"table:local_government_units,alias:lgu"`

	ID    int64  `bun:"lgu_id,pk" json:"lgu_id"`
	Name  string `bun:"lgu_name" json:"lgu_name"`
	SNUID int64  `bun:"snu_id" json:"snu_id"`
}

// ManagedAccessArea is the finest unit used for filtering.
type ManagedAccessArea struct {
	bun.BaseModel `bun:"table:managed_access_areas,alias:maa"`

	ID    int64    `bun:"ma_id,pk" json:"ma_id"`
	Name  string   `bun:"ma_name" json:"ma_name"`
	LGUID int64    `bun:"lgu_id" json:"lgu_id"`
	Lat   *float64 `bun:"ma_lat" json:"ma_lat"`
	Lon   *float64 `bun:"ma_lon" json:"ma_lon"`
}

// Community is a fishing community with static demographics and a location.
type Community struct {
	bun.BaseModel `bun:"table:communities,alias:comm"`

	ID         int64    `bun:"community_id,pk" json:"community_id"`
	Name       string   `bun:"community_name" json:"community_name"`
	AreaID     *int64   `bun:"ma_id" json:"ma_id"`
	Population float64  `bun:"population" json:"population"`
	EstFishers float64  `bun:"est_fishers" json:"est_fishers"`
	EstBuyers  float64  `bun:"est_buyers" json:"est_buyers"`
	Lat        *float64 `bun:"lat" json:"lat"`
	Lon        *float64 `bun:"lon" json:"lon"`
}
