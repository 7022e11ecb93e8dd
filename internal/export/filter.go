// Package export projects tier assignments into filtered, presentation-ready
// tables for CSV, JSON and YAML consumers.
package export

import (
	"slices"
	"strings"

	"github.com/sells-group/rate-tiering/internal/model"
)

// All is the filter value that disables a predicate.
const All = "All"

// Filter selects assignments by exact vendor, origin and destination. An
// empty field or All matches everything.
type Filter struct {
	Vendor      string `json:"vendor,omitempty"`
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != All
}

// Active reports whether any predicate is set.
func (f Filter) Active() bool {
	return active(f.Vendor) || active(f.Origin) || active(f.Destination)
}

// Match reports whether a satisfies every active predicate.
func (f Filter) Match(a model.TierAssignment) bool {
	if active(f.Vendor) && a.Vendor != strings.TrimSpace(f.Vendor) {
		return false
	}
	if active(f.Origin) && a.OriginCity != strings.TrimSpace(f.Origin) {
		return false
	}
	if active(f.Destination) && a.DestinationCity != strings.TrimSpace(f.Destination) {
		return false
	}
	return true
}

// Apply returns the matching assignments in their original order. The input
// slice is never modified.
func (f Filter) Apply(rows []model.TierAssignment) []model.TierAssignment {
	out := make([]model.TierAssignment, 0, len(rows))
	for _, a := range rows {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

// Field names a filterable column.
type Field string

// Filterable columns.
const (
	FieldVendor      Field = "vendor"
	FieldOrigin      Field = "origin"
	FieldDestination Field = "destination"
	FieldTruckType   Field = "truck_type"
)

func (f Field) value(a model.TierAssignment) string {
	switch f {
	case FieldVendor:
		return a.Vendor
	case FieldOrigin:
		return a.OriginCity
	case FieldDestination:
		return a.DestinationCity
	case FieldTruckType:
		return a.TruckType
	}
	return ""
}

// Distinct returns the sorted distinct values of field.
func Distinct(rows []model.TierAssignment, field Field) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range rows {
		v := field.value(a)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Choices are the distinct filter values of a result.
type Choices struct {
	Vendors      []string `json:"vendors"`
	Origins      []string `json:"origins"`
	Destinations []string `json:"destinations"`
	TruckTypes   []string `json:"truck_types"`
}

// FilterChoices collects the distinct values for every filterable column.
func FilterChoices(rows []model.TierAssignment) Choices {
	return Choices{
		Vendors:      Distinct(rows, FieldVendor),
		Origins:      Distinct(rows, FieldOrigin),
		Destinations: Distinct(rows, FieldDestination),
		TruckTypes:   Distinct(rows, FieldTruckType),
	}
}
