package ingest

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"omip-benchmark/internal/model"
)

// WritePricesCSV writes prices as a semicolon-delimited sheet with a decimal
// comma, the same shape the importer accepts, so an export can be edited and
// uploaded again.
func WritePricesCSV(w io.Writer, rows []model.MonthlyPrice) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	defer cw.Flush()

	header := []string{
		"month",
		"price_eur_mwh",
		"source",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		row := []string{
			r.Month.String(),
			fmtPrice(r.Price),
			r.Source,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func fmtPrice(x float64) string {
	return strings.Replace(strconv.FormatFloat(x, 'f', -1, 64), ".", ",", 1)
}
