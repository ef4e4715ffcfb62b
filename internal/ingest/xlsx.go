package ingest

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"omip-benchmark/internal/apperr"
)

var zipMagic = []byte("PK\x03\x04")

// IsWorkbook reports whether an upload should be read as XLSX rather than
// delimited text.
func IsWorkbook(name string, head []byte) bool {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return true
	}
	return bytes.HasPrefix(head, zipMagic)
}

// ParseWorkbook reads the first sheet of an XLSX workbook. The first non-empty
// row is the header; cell values are taken as displayed, so month cells
// formatted as text or dates both reach the month parser.
func ParseWorkbook(r io.Reader) (*Batch, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Malformed("UNREADABLE_FILE", "cannot open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Malformed("EMPTY_FILE", "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Malformed("UNREADABLE_FILE", "cannot read sheet %q: %v", sheets[0], err)
	}

	var recs []record
	for i, cells := range rows {
		trimmed := make([]string, len(cells))
		empty := true
		for j, c := range cells {
			trimmed[j] = strings.TrimSpace(c)
			if trimmed[j] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		recs = append(recs, record{line: i + 1, raw: strings.Join(trimmed, ";"), fields: trimmed})
	}
	if len(recs) < 2 {
		return nil, apperr.Malformed("EMPTY_FILE", "sheet %q must contain a header and at least one data row", sheets[0])
	}
	return normalize(recs[0].fields, recs[1:])
}
