package tiering

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/rate-tiering/internal/model"
)

// Policy controls how quotes within a lane are ranked.
type Policy struct {
	// RankByDistinctPrice gives equal prices the same tier. When false every
	// competitor gets its own consecutive tier after a stable price sort.
	RankByDistinctPrice bool
	// Incumbents are vendor substrings, matched case-insensitively, that are
	// excluded from ranking and labelled model.IncumbentLabel.
	Incumbents []string
}

// DefaultIncumbents are the incumbent vendor substrings of the standard
// rate-bid round. Configuration applies them unless overridden.
var DefaultIncumbents = []string{"SJL", "JHT"}

// DefaultPolicy ranks by distinct price with no incumbent carve-out.
func DefaultPolicy() Policy {
	return Policy{RankByDistinctPrice: true}
}

// Engine assigns tiers to price quotes lane by lane. It is not safe for
// concurrent use.
type Engine struct {
	policy     Policy
	fold       cases.Caser
	incumbents []string
}

// NewEngine builds an Engine for the policy. Blank incumbent substrings are ignored.
func NewEngine(p Policy) *Engine {
	e := &Engine{policy: p, fold: cases.Fold()}
	for _, s := range p.Incumbents {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		e.incumbents = append(e.incumbents, e.fold.String(s))
	}
	return e
}

// IsIncumbent reports whether the vendor name contains an incumbent substring.
func (e *Engine) IsIncumbent(vendor string) bool {
	if len(e.incumbents) == 0 {
		return false
	}
	v := e.fold.String(vendor)
	for _, s := range e.incumbents {
		if strings.Contains(v, s) {
			return true
		}
	}
	return false
}

// Assign ranks every quote within its lane. Each input quote appears exactly
// once in the output. Lanes are emitted in ascending truck type, origin and
// destination order; within a lane incumbents come first in input order,
// followed by competitors in ascending price order.
func (e *Engine) Assign(quotes []model.PriceQuote) []model.TierAssignment {
	lanes := make(map[model.Lane][]model.PriceQuote)
	var keys []model.Lane
	for _, q := range quotes {
		l := q.Lane()
		if _, ok := lanes[l]; !ok {
			keys = append(keys, l)
		}
		lanes[l] = append(lanes[l], q)
	}
	slices.SortFunc(keys, model.Lane.Compare)

	out := make([]model.TierAssignment, 0, len(quotes))
	for _, l := range keys {
		out = append(out, e.assignLane(lanes[l])...)
	}
	return out
}

func (e *Engine) assignLane(quotes []model.PriceQuote) []model.TierAssignment {
	out := make([]model.TierAssignment, 0, len(quotes))
	var competitors []model.PriceQuote
	for _, q := range quotes {
		if e.IsIncumbent(q.Vendor) {
			out = append(out, model.TierAssignment{PriceQuote: q, Incumbent: true})
			continue
		}
		competitors = append(competitors, q)
	}

	slices.SortStableFunc(competitors, func(a, b model.PriceQuote) int {
		return a.Price.Cmp(b.Price)
	})

	rank := 0
	for i, q := range competitors {
		switch {
		case !e.policy.RankByDistinctPrice:
			rank = i + 1
		case i == 0 || !q.Price.Equal(competitors[i-1].Price):
			rank++
		}
		out = append(out, model.TierAssignment{PriceQuote: q, Rank: rank})
	}
	return out
}
