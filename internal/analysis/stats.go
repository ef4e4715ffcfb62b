package analysis

import (
	"github.com/shopspring/decimal"

	"omip-benchmark/internal/model"
)

// PriceStats summarizes the prices found in a window. Mean, Min and Max are
// nil when Count is zero; an empty window never averages to 0.
type PriceStats struct {
	Count int
	Mean  *float64
	Min   *float64
	Max   *float64
}

func Summarize(rows []model.MonthlyPrice) PriceStats {
	s := PriceStats{Count: len(rows)}
	if len(rows) == 0 {
		return s
	}

	sum := decimal.Zero
	minv := rows[0].Price
	maxv := rows[0].Price
	for _, r := range rows {
		sum = sum.Add(decimal.NewFromFloat(r.Price))
		if r.Price < minv {
			minv = r.Price
		}
		if r.Price > maxv {
			maxv = r.Price
		}
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(rows)))).InexactFloat64()
	s.Mean = &mean
	s.Min = &minv
	s.Max = &maxv
	return s
}
