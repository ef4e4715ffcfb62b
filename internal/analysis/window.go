package analysis

import (
	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/model"
)

// DefaultMaxMonths bounds the horizon when the caller does not configure one.
const DefaultMaxMonths = 120

// Window is the half-open month range [Start, End).
type Window struct {
	Start  model.Month
	End    model.Month
	Months int
}

// NewWindow validates a horizon and resolves its exclusive end.
func NewWindow(start model.Month, months, maxMonths int) (Window, error) {
	if maxMonths <= 0 {
		maxMonths = DefaultMaxMonths
	}
	if start.IsZero() {
		return Window{}, apperr.Malformed("INVALID_START", "start month is required")
	}
	if months < 1 || months > maxMonths {
		return Window{}, apperr.Malformed("INVALID_MONTHS", "months must be between 1 and %d, got %d", maxMonths, months)
	}
	return Window{Start: start, End: start.AddMonths(months), Months: months}, nil
}

// List returns every month in the window, in order.
func (w Window) List() []model.Month {
	return model.MonthsBetween(w.Start, w.End)
}

// Coverage splits the window's months into those present in rows and those
// missing, both as YYYY-MM strings.
func (w Window) Coverage(rows []model.MonthlyPrice) (used, missing []string) {
	have := make(map[model.Month]bool, len(rows))
	for _, r := range rows {
		have[r.Month] = true
	}
	used = []string{}
	missing = []string{}
	for _, m := range w.List() {
		if have[m] {
			used = append(used, m.String())
		} else {
			missing = append(missing, m.String())
		}
	}
	return used, missing
}
