package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Transaction is one fish-landing record from OurFish joined with FishBase
// growth parameters. Rows are read once at startup and never modified.
type Transaction struct {
	bun.BaseModel `bun:"table:ourfish_transactions,alias:tx"`

	ID           int64     `bun:"transaction_id,pk" json:"transaction_id"`
	Date         time.Time `bun:"date" json:"date"`
	AreaID       int64     `bun:"ma_id" json:"ma_id"`
	CommunityID  int64     `bun:"community_id" json:"community_id"`
	BuyerID      string    `bun:"buyer_id" json:"buyer_id"`
	BuyerGender  *string   `bun:"buyer_gender" json:"buyer_gender"`
	FisherID     *string   `bun:"fisher_id" json:"fisher_id"`
	FisherGender *string   `bun:"fisher_gender" json:"fisher_gender"`

	SpeciesID         int64  `bun:"fishbase_id" json:"fishbase_id"`
	SpeciesScientific string `bun:"species_scientific" json:"species_scientific"`
	SpeciesLocal      string `bun:"species_local" json:"species_local"`
	FamilyScientific  string `bun:"family_scientific" json:"family_scientific"`
	IsFocal           bool   `bun:"is_focal" json:"is_focal"`

	WeightKg   float64 `bun:"weight_kg" json:"weight_kg"`
	TotalPrice float64 `bun:"total_price_usd" json:"total_price_usd"`
	Count      float64 `bun:"count,nullzero" json:"count"`

	// length-weight parameters W = a * L^b and maximum length, 0 when unknown
	A    float64 `bun:"a,nullzero" json:"a"`
	B    float64 `bun:"b,nullzero" json:"b"`
	Lmax float64 `bun:"lmax,nullzero" json:"lmax"`
}
