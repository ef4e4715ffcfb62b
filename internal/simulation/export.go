package simulation

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"omip-benchmark/internal/model"
)

var exportHeader = []any{
	"ID", "Created", "Email", "NIF", "Company", "Responsible", "Supplier",
	"Install type", "Cycle", "Unit", "Start month", "Term (months)",
	"Annual consumption (MWh)", "Includes networks",
	"Client avg (EUR/MWh)", "Client energy avg (EUR/MWh)", "Network (EUR/MWh)",
	"Months found", "OMIP avg (EUR/MWh)", "Reference (EUR/MWh)",
	"Deviation (EUR/MWh)", "Deviation (%)", "Settings version",
}

// BuildSimulationsXLSX renders the admin listing as a single-sheet workbook.
func BuildSimulationsXLSX(sims []model.Simulation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "simulations"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	for i, s := range sims {
		row := []any{
			s.ID, s.CreatedAt.UTC().Format(time.RFC3339), s.Email, s.NIF, s.Company, s.Responsible, s.Supplier,
			string(s.InstallType), string(s.Cycle), string(s.Unit), s.StartMonth.String(), s.TermMonths,
			cell(s.AnnualConsumptionMWh), s.IncludeNetworks,
			cell(s.ClientAvgMWh), cell(s.ClientEnergyAvgMWh), s.NetworkPerMWh,
			s.MonthsFound, cell(s.AvgIndexPrice), cell(s.ReferencePrice),
			cell(s.DeviationAbs), cell(s.DeviationPct), s.SettingsVersion,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cell leaves nil numbers as empty cells.
func cell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

// BuildReportPDF renders a one-page report for a saved simulation.
func BuildReportPDF(s *model.Simulation) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("OMIP benchmark "+s.ID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Simulation report")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	line := func(label, value string) {
		pdf.CellFormat(60, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(value), "", 0, "L", false, 0, "")
		pdf.Ln(6)
	}
	line("Simulation", s.ID)
	line("Created", s.CreatedAt.UTC().Format(time.RFC3339))
	line("Email", s.Email)
	if s.Company != "" {
		line("Company", s.Company)
	}
	if s.NIF != "" {
		line("NIF", s.NIF)
	}
	if s.Supplier != "" {
		line("Supplier", s.Supplier)
	}
	tariff := string(s.InstallType)
	if s.Cycle != "" {
		tariff += " / " + string(s.Cycle)
	}
	line("Tariff", tariff)
	line("Window", fmt.Sprintf("%s, %d months (%d with prices)", s.StartMonth.String(), s.TermMonths, s.MonthsFound))
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(100, 7, "Measure", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, "EUR/MWh", "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	rows := []struct {
		label string
		v     *float64
	}{
		{"Client average", s.ClientAvgMWh},
		{"Client energy average", s.ClientEnergyAvgMWh},
		{"OMIP average", s.AvgIndexPrice},
		{"Reference price", s.ReferencePrice},
		{"Deviation", s.DeviationAbs},
	}
	for _, r := range rows {
		pdf.CellFormat(100, 7, r.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, formatNumber(r.v, 2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.CellFormat(100, 7, "Deviation (%)", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, formatNumber(s.DeviationPct, 1), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	if s.IncludeNetworks {
		pdf.Ln(3)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, fmt.Sprintf("Client prices included networks; %.2f EUR/MWh was removed before comparing.", s.NetworkPerMWh), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatNumber(v *float64, decimals int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}
