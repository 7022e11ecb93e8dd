package tiering

import (
	"slices"

	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/rate-tiering/internal/model"
)

// LaneSummary describes the competitive spread of one lane. Price figures
// cover competitors only; incumbents are counted but not priced.
type LaneSummary struct {
	model.Lane
	Quotes      int             `json:"quotes"`
	Vendors     int             `json:"vendors"`
	Incumbents  int             `json:"incumbents"`
	Tiers       int             `json:"tiers"`
	MinPrice    decimal.Decimal `json:"min_price"`
	MaxPrice    decimal.Decimal `json:"max_price"`
	MedianPrice float64         `json:"median_price"`
	MeanPrice   float64         `json:"mean_price"`
	Spread      decimal.Decimal `json:"spread"`
	BestVendors []string        `json:"best_vendors,omitempty"`
}

// Summarize groups assignments by lane, in first-seen lane order.
func Summarize(assignments []model.TierAssignment) ([]LaneSummary, error) {
	byLane := make(map[model.Lane][]model.TierAssignment)
	var lanes []model.Lane
	for _, a := range assignments {
		l := a.Lane()
		if _, ok := byLane[l]; !ok {
			lanes = append(lanes, l)
		}
		byLane[l] = append(byLane[l], a)
	}

	out := make([]LaneSummary, 0, len(lanes))
	for _, l := range lanes {
		s, err := summarizeLane(l, byLane[l])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func summarizeLane(l model.Lane, rows []model.TierAssignment) (LaneSummary, error) {
	s := LaneSummary{Lane: l, Quotes: len(rows)}

	vendors := make(map[string]bool)
	var prices stats.Float64Data
	first := true
	for _, a := range rows {
		vendors[a.Vendor] = true
		if a.Incumbent {
			s.Incumbents++
			continue
		}
		prices = append(prices, a.Price.InexactFloat64())
		if a.Rank > s.Tiers {
			s.Tiers = a.Rank
		}
		if first || a.Price.LessThan(s.MinPrice) {
			s.MinPrice = a.Price
		}
		if first || a.Price.GreaterThan(s.MaxPrice) {
			s.MaxPrice = a.Price
		}
		first = false
	}
	s.Vendors = len(vendors)

	if len(prices) == 0 {
		return s, nil
	}

	var err error
	if s.MedianPrice, err = stats.Median(prices); err != nil {
		return s, eris.Wrapf(err, "summary: median for %s", l)
	}
	if s.MeanPrice, err = stats.Mean(prices); err != nil {
		return s, eris.Wrapf(err, "summary: mean for %s", l)
	}
	s.Spread = s.MaxPrice.Sub(s.MinPrice)

	for _, a := range rows {
		if !a.Incumbent && a.Rank == 1 && !slices.Contains(s.BestVendors, a.Vendor) {
			s.BestVendors = append(s.BestVendors, a.Vendor)
		}
	}
	return s, nil
}
