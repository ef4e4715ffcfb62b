package ingest

import (
	"strings"

	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/model"
)

// SkipReason explains why a data row was left out of an import.
type SkipReason string

const (
	SkipTooFewFields SkipReason = "too_few_fields"
	SkipMissingField SkipReason = "missing_field"
	SkipBadMonth     SkipReason = "bad_month"
	SkipBadPrice     SkipReason = "bad_price"
	SkipNegative     SkipReason = "negative_price"
)

// Skipped is the diagnostic for one rejected row. Line is 1-based and counts
// physical lines in the source, blank ones included.
type Skipped struct {
	Line   int        `json:"line"`
	Raw    string     `json:"raw"`
	Reason SkipReason `json:"reason"`
}

// Columns are the resolved positions of the header fields; Source is -1 when
// the sheet has no source column.
type Columns struct {
	Month  int
	Price  int
	Source int
}

// Batch is a parsed sheet, ready to be written.
type Batch struct {
	Delimiter string
	Header    []string
	DataRows  int
	Rows      []model.MonthlyPrice
	Skipped   []Skipped
}

// record is one data row after splitting, with its position in the source.
type record struct {
	line   int
	raw    string
	fields []string
}

// DetectDelimiter picks the field separator from a header line: semicolon
// wins over tab, and comma is the fallback.
func DetectDelimiter(line string) string {
	switch {
	case strings.Contains(line, ";"):
		return ";"
	case strings.Contains(line, "\t"):
		return "\t"
	default:
		return ","
	}
}

var monthHeaders = map[string]bool{"month": true, "mes": true, "mês": true}

// ResolveColumns finds the month, price and source columns in a header.
// Fields are matched after trimming and lower-casing; the month column must
// match a known name exactly, the price column only has to contain "price".
func ResolveColumns(header []string) (Columns, error) {
	cols := Columns{Month: -1, Price: -1, Source: -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if cols.Month < 0 && monthHeaders[h] {
			cols.Month = i
		}
		if cols.Price < 0 && strings.Contains(h, "price") {
			cols.Price = i
		}
		if cols.Source < 0 && h == "source" {
			cols.Source = i
		}
	}
	if cols.Month < 0 || cols.Price < 0 {
		return cols, apperr.Malformed("MISSING_COLUMNS",
			"header must contain a month column (month, mes, mês) and a price column").
			WithDetails(map[string]any{"header": normalizeHeader(header)})
	}
	return cols, nil
}

// ParseText parses a delimited price sheet.
func ParseText(text string) (*Batch, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	var lines []record
	for i, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, record{line: i + 1, raw: l})
	}
	if len(lines) < 2 {
		return nil, apperr.Malformed("EMPTY_FILE", "file must contain a header and at least one data row")
	}

	delim := DetectDelimiter(lines[0].raw)
	header := strings.Split(lines[0].raw, delim)
	data := lines[1:]
	for i := range data {
		data[i].fields = strings.Split(data[i].raw, delim)
	}

	b, err := normalize(header, data)
	if err != nil {
		if e, ok := apperr.As(err); ok {
			e.WithDetails(map[string]any{"delimiter": delim})
		}
		return nil, err
	}
	b.Delimiter = delim
	return b, nil
}

func normalize(header []string, data []record) (*Batch, error) {
	cols, err := ResolveColumns(header)
	if err != nil {
		return nil, err
	}

	b := &Batch{Header: normalizeHeader(header), DataRows: len(data)}
	for _, r := range data {
		row, reason, ok := normalizeRow(cols, r.fields)
		if !ok {
			b.Skipped = append(b.Skipped, Skipped{Line: r.line, Raw: r.raw, Reason: reason})
			continue
		}
		b.Rows = append(b.Rows, row)
	}
	if len(b.Rows) == 0 {
		return nil, apperr.Malformed("NO_VALID_ROWS", "no valid rows found").
			WithDetails(map[string]any{"header": b.Header, "skipped": b.Skipped})
	}
	return b, nil
}

func normalizeRow(cols Columns, fields []string) (model.MonthlyPrice, SkipReason, bool) {
	if len(fields) < 2 {
		return model.MonthlyPrice{}, SkipTooFewFields, false
	}
	if cols.Month >= len(fields) || cols.Price >= len(fields) {
		return model.MonthlyPrice{}, SkipMissingField, false
	}

	month, ok := model.ParseMonthText(fields[cols.Month])
	if !ok {
		return model.MonthlyPrice{}, SkipBadMonth, false
	}
	price, err := model.ParsePrice(fields[cols.Price])
	if err != nil {
		return model.MonthlyPrice{}, SkipBadPrice, false
	}
	if price < 0 {
		return model.MonthlyPrice{}, SkipNegative, false
	}

	source := model.DefaultSource
	if cols.Source >= 0 && cols.Source < len(fields) {
		if s := strings.TrimSpace(fields[cols.Source]); s != "" {
			source = s
		}
	}
	return model.MonthlyPrice{Month: month, Price: price, Source: source}, "", true
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}
