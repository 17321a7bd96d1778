package billing

import (
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MaxTotal is the largest amount a bill total column can store.
var MaxTotal = decimal.RequireFromString("99999999.99")

// ComputeTotal sums the price of every distinct item id. An empty set totals
// 0.00. Every id must have a price; a missing one means the caller loaded the
// catalog inconsistently. A sum above MaxTotal is rejected as invalid input.
func ComputeTotal(itemIDs []uint, prices map[uint]decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	seen := make(map[uint]struct{}, len(itemIDs))

	for _, id := range itemIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		price, ok := prices[id]
		if !ok {
			return decimal.Zero, status.Errorf(codes.Internal, "no price loaded for menu item %d", id)
		}
		total = total.Add(price)
	}

	total = total.Round(2)
	if total.GreaterThan(MaxTotal) {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "bill total %s exceeds the maximum of %s", total.StringFixed(2), MaxTotal.StringFixed(2))
	}
	return total, nil
}
