package tiering

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/rate-tiering/internal/model"
)

func quote(vendor, truckType, origin, destination, price string) model.PriceQuote {
	return model.PriceQuote{
		Vendor:          vendor,
		OriginCity:      origin,
		DestinationCity: destination,
		TruckType:       truckType,
		Price:           decimal.RequireFromString(price),
		SourceFile:      "bids.xlsx",
	}
}

func rawTable(source string, columns []string, rows ...[]string) model.RawTable {
	return model.RawTable{Source: source, Sheet: "SPX FTL", Columns: columns, Rows: rows}
}

// tiersByVendor maps vendor to tier label; vendors must be unique in the input.
func tiersByVendor(rows []model.TierAssignment) map[string]string {
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Vendor] = r.Label()
	}
	return out
}
