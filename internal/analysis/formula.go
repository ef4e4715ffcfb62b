package analysis

import (
	"github.com/shopspring/decimal"

	"omip-benchmark/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ReferencePrice applies the adjustments to an index average:
//
//	(avg + eric + ren) * (1 + losses/100)
func ReferencePrice(avg float64, adj model.Adjustments) float64 {
	base := decimal.NewFromFloat(avg).
		Add(decimal.NewFromFloat(adj.EricPerMWh)).
		Add(decimal.NewFromFloat(adj.RenPerMWh))
	uplift := decimal.NewFromInt(1).Add(decimal.NewFromFloat(adj.LossesPercent).Div(hundred))
	return base.Mul(uplift).InexactFloat64()
}

// Deviation compares a client price to a reference. pct is nil when the
// reference is zero.
func Deviation(client, reference float64) (abs float64, pct *float64) {
	d := decimal.NewFromFloat(client).Sub(decimal.NewFromFloat(reference))
	abs = d.InexactFloat64()
	if reference == 0 {
		return abs, nil
	}
	p := d.Div(decimal.NewFromFloat(reference)).Mul(hundred).InexactFloat64()
	return abs, &p
}
