package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PriceCategory string

const (
	PriceCategoryVegetable PriceCategory = "vegetable"
	PriceCategoryFruit     PriceCategory = "fruit"
	PriceCategoryGrain     PriceCategory = "grain"
	PriceCategorySpice     PriceCategory = "spice"
	PriceCategoryOther     PriceCategory = "other"
)

type PriceUnit string

const (
	UnitKg      PriceUnit = "kg"
	UnitQuintal PriceUnit = "quintal"
	UnitTon     PriceUnit = "ton"
	UnitPiece   PriceUnit = "piece"
	UnitDozen   PriceUnit = "dozen"
	UnitLiter   PriceUnit = "liter"
)

// MarketPrice is a quote entered by an admin. Active quotes are laid over
// the upstream mandi feed.
type MarketPrice struct {
	ID        string
	Commodity string
	Market    string
	District  string
	State     string
	Category  PriceCategory
	Unit      PriceUnit
	Price     decimal.Decimal
	MinPrice  decimal.Decimal
	MaxPrice  decimal.Decimal
	PriceDate time.Time
	IsActive  bool
	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarketPriceFilter narrows the admin listing. Market and Search match
// case-insensitive substrings; a zero Limit means no limit.
type MarketPriceFilter struct {
	ActiveOnly bool
	Category   PriceCategory
	Market     string
	Search     string
	Limit      int
}
