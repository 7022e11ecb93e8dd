package model

import (
	"cmp"
	"fmt"

	"github.com/shopspring/decimal"
)

// RawTable is one worksheet extracted from one workbook, headers as loaded.
type RawTable struct {
	Source  string     `json:"source"`
	Sheet   string     `json:"sheet"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Cell returns the value at row i, column j, or "" when the row is short.
func (t RawTable) Cell(i, j int) string {
	row := t.Rows[i]
	if j < 0 || j >= len(row) {
		return ""
	}
	return row[j]
}

// Lane is the unit of competitive comparison.
type Lane struct {
	TruckType       string `json:"truck_type"`
	OriginCity      string `json:"origin_city"`
	DestinationCity string `json:"destination_city"`
}

// Compare orders lanes by truck type, origin, then destination.
func (l Lane) Compare(o Lane) int {
	return cmp.Or(
		cmp.Compare(l.TruckType, o.TruckType),
		cmp.Compare(l.OriginCity, o.OriginCity),
		cmp.Compare(l.DestinationCity, o.DestinationCity),
	)
}

func (l Lane) String() string {
	return fmt.Sprintf("%s %s -> %s", l.TruckType, l.OriginCity, l.DestinationCity)
}

// PriceQuote is one vendor's price for one truck type on one origin/destination pair.
type PriceQuote struct {
	Vendor          string          `json:"vendor"`
	OriginCity      string          `json:"origin_city"`
	DestinationCity string          `json:"destination_city"`
	TruckType       string          `json:"truck_type"`
	Price           decimal.Decimal `json:"price"`
	SourceFile      string          `json:"source_file"`
	Shipper         string          `json:"shipper,omitempty"`
}

// Lane returns the grouping key of the quote.
func (q PriceQuote) Lane() Lane {
	return Lane{TruckType: q.TruckType, OriginCity: q.OriginCity, DestinationCity: q.DestinationCity}
}

// Equal reports whether every field matches, prices compared numerically.
func (q PriceQuote) Equal(o PriceQuote) bool {
	return q.Vendor == o.Vendor &&
		q.OriginCity == o.OriginCity &&
		q.DestinationCity == o.DestinationCity &&
		q.TruckType == o.TruckType &&
		q.SourceFile == o.SourceFile &&
		q.Shipper == o.Shipper &&
		q.Price.Equal(o.Price)
}

// IncumbentLabel is the reserved tier label for incumbent vendors.
const IncumbentLabel = "Tier 0"

// TierAssignment is a PriceQuote ranked within its lane.
type TierAssignment struct {
	PriceQuote
	Rank      int  `json:"rank"`
	Incumbent bool `json:"incumbent"`
}

// Label renders the tier, e.g. "Tier 1", or IncumbentLabel.
func (a TierAssignment) Label() string {
	if a.Incumbent {
		return IncumbentLabel
	}
	return fmt.Sprintf("Tier %d", a.Rank)
}

// PlaceholderColumn is the label given to a column loaded without a header.
func PlaceholderColumn(index int) string {
	return fmt.Sprintf("Unnamed: %d", index)
}

// SheetBatch is every raw table loaded for one selected sheet, with the
// warnings collected while loading them.
type SheetBatch struct {
	Sheet    string     `json:"sheet"`
	Tables   []RawTable `json:"tables"`
	Warnings []Warning  `json:"warnings,omitempty"`
}
