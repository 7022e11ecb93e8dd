package tiering

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/sells-group/rate-tiering/internal/model"
)

// MeltStats counts what the long-format transform kept and dropped.
type MeltStats struct {
	Rows        int `json:"rows"`
	Candidates  int `json:"candidates"`
	BlankPrices int `json:"blank_prices"`
	Unparseable int `json:"unparseable_prices"`
	BlankKeys   int `json:"blank_keys"`
	Duplicates  int `json:"duplicates"`
	Quotes      int `json:"quotes"`
}

type quoteKey struct {
	vendor, origin, destination, truckType, price, source, shipper string
}

// Melt reshapes the wide per-truck-type price matrix into one PriceQuote per
// row and truck-type column. Cells without a parseable price are dropped, as
// are rows without a vendor, origin or destination. Exact duplicates keep
// their first occurrence. Output order is table order, then row order, then
// truck-type column order.
func Melt(tables []NormalizedTable) ([]model.PriceQuote, MeltStats, []model.Warning) {
	var (
		quotes   []model.PriceQuote
		stats    MeltStats
		warnings []model.Warning
	)
	seen := make(map[quoteKey]bool)

	for _, t := range tables {
		var unparseable, blankKeys int
		for i := range t.Len() {
			stats.Rows++
			vendor := strings.TrimSpace(t.cell(i, t.vendor))
			origin := strings.TrimSpace(t.cell(i, t.origin))
			destination := strings.TrimSpace(t.cell(i, t.destination))

			for _, col := range t.trucks {
				stats.Candidates++
				raw := t.cell(i, col.index)
				if strings.TrimSpace(raw) == "" {
					stats.BlankPrices++
					continue
				}
				price, ok := ParsePrice(raw)
				if !ok {
					stats.Unparseable++
					unparseable++
					continue
				}
				if vendor == "" || origin == "" || destination == "" {
					stats.BlankKeys++
					blankKeys++
					continue
				}

				q := model.PriceQuote{
					Vendor:          vendor,
					OriginCity:      origin,
					DestinationCity: destination,
					TruckType:       col.label,
					Price:           price,
					SourceFile:      t.Source,
					Shipper:         t.Sheet,
				}
				key := quoteKey{vendor, origin, destination, col.label, price.String(), t.Source, t.Sheet}
				if seen[key] {
					stats.Duplicates++
					continue
				}
				seen[key] = true
				quotes = append(quotes, q)
			}
		}

		if unparseable > 0 {
			warnings = append(warnings, model.Warning{
				Source:  t.Source,
				Message: fmt.Sprintf("%d price cells could not be parsed and were dropped", unparseable),
			})
		}
		if blankKeys > 0 {
			warnings = append(warnings, model.Warning{
				Source:  t.Source,
				Message: fmt.Sprintf("%d prices without vendor, origin or destination were dropped", blankKeys),
			})
		}
	}

	stats.Quotes = len(quotes)
	return quotes, stats, warnings
}

// ParsePrice coerces a cell into a non-negative price. Currency words and
// symbols around the number are ignored, as are spaces and thousands
// separators inside it. Negative values, values above 1e15 and exponents
// beyond ±18 are rejected, so every accepted price prints short. It returns
// false for anything else.
func ParsePrice(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, false
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return validPrice(d)
	}

	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return decimal.Decimal{}, false
	}
	if start > 0 && s[start-1] == '-' {
		start--
	}
	end := strings.LastIndexFunc(s, unicode.IsDigit)

	var b strings.Builder
	for _, r := range s[start : end+1] {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '\'', r == '_':
		default:
			return decimal.Decimal{}, false
		}
	}

	d, err := decimal.NewFromString(normalizeSeparators(b.String()))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return validPrice(d)
}

// Price bounds. The exponent is bounded before any comparison, since
// comparing or printing 1e100000000 expands it in full.
const maxPriceExponent = 18

var maxPrice = decimal.New(1, 15)

func validPrice(d decimal.Decimal) (decimal.Decimal, bool) {
	if exp := d.Exponent(); exp > maxPriceExponent || exp < -maxPriceExponent {
		return decimal.Decimal{}, false
	}
	if d.IsNegative() || d.GreaterThan(maxPrice) {
		return decimal.Decimal{}, false
	}
	return d, true
}

// normalizeSeparators rewrites a number written with thousands separators
// into plain dotted-decimal form.
func normalizeSeparators(s string) string {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			return strings.ReplaceAll(s, ",", "")
		}
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	case commas > 1:
		return strings.ReplaceAll(s, ",", "")
	case commas == 1:
		if len(s)-strings.Index(s, ",")-1 == 3 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}
