// Package ingest turns uploaded OMIP price sheets into stored monthly prices.
package ingest

import (
	"bufio"
	"context"
	"io"
	"unicode/utf8"

	"go.uber.org/zap"

	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/model"
)

// PriceWriter persists a batch of monthly prices atomically and returns the
// number of rows written.
type PriceWriter interface {
	UpsertMonthlyPrices(ctx context.Context, rows []model.MonthlyPrice) (int, error)
}

// Invalidator drops derived results that depend on stored prices.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Recorder observes import outcomes.
type Recorder interface {
	ObserveImport(result string, upserted, skipped int)
}

// Result is what a finished import reports back.
type Result struct {
	Success      bool      `json:"success"`
	RowsUpserted int       `json:"rowsUpserted"`
	DataRows     int       `json:"dataRows"`
	Delimiter    string    `json:"delimiter,omitempty"`
	Format       string    `json:"format"`
	DryRun       bool      `json:"dryRun,omitempty"`
	Skipped      []Skipped `json:"skipped"`
}

// Importer parses sheets and writes them through a PriceWriter.
type Importer struct {
	store   PriceWriter
	cache   Invalidator
	metrics Recorder
	log     *zap.Logger
}

// NewImporter builds an Importer. cache and metrics may be nil.
func NewImporter(store PriceWriter, cache Invalidator, metrics Recorder, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{store: store, cache: cache, metrics: metrics, log: log}
}

// ImportFile reads an upload named name and imports it. XLSX is detected by
// extension or by its ZIP signature; everything else is read as UTF-8 text.
func (im *Importer) ImportFile(ctx context.Context, name string, r io.Reader, dryRun bool) (*Result, error) {
	if r == nil {
		return nil, im.fail(apperr.Malformed("MISSING_FILE", "no file provided"))
	}
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zipMagic))

	var (
		batch  *Batch
		err    error
		format string
	)
	if IsWorkbook(name, head) {
		format = "xlsx"
		batch, err = ParseWorkbook(br)
	} else {
		format = "text"
		var raw []byte
		raw, err = io.ReadAll(br)
		if err != nil {
			return nil, im.fail(apperr.Malformed("UNREADABLE_FILE", "cannot read file: %v", err))
		}
		if !utf8.Valid(raw) {
			return nil, im.fail(apperr.Malformed("UNREADABLE_FILE", "file is not valid UTF-8 text"))
		}
		batch, err = ParseText(string(raw))
	}
	if err != nil {
		return nil, im.fail(err)
	}
	return im.write(ctx, batch, format, dryRun)
}

// ImportText imports an already-decoded delimited sheet.
func (im *Importer) ImportText(ctx context.Context, text string, dryRun bool) (*Result, error) {
	batch, err := ParseText(text)
	if err != nil {
		return nil, im.fail(err)
	}
	return im.write(ctx, batch, "text", dryRun)
}

func (im *Importer) write(ctx context.Context, b *Batch, format string, dryRun bool) (*Result, error) {
	res := &Result{
		Success:   true,
		DataRows:  b.DataRows,
		Delimiter: b.Delimiter,
		Format:    format,
		DryRun:    dryRun,
		Skipped:   b.Skipped,
	}
	if res.Skipped == nil {
		res.Skipped = []Skipped{}
	}

	if dryRun {
		res.RowsUpserted = len(b.Rows)
		im.log.Info("import dry run",
			zap.Int("valid_rows", len(b.Rows)),
			zap.Int("skipped", len(b.Skipped)),
		)
		return res, nil
	}

	n, err := im.store.UpsertMonthlyPrices(ctx, b.Rows)
	if err != nil {
		im.log.Error("import upsert failed", zap.Int("rows", len(b.Rows)), zap.Error(err))
		return nil, im.fail(apperr.Unavailable("DB_ERROR", err))
	}
	res.RowsUpserted = n

	if im.cache != nil {
		if err := im.cache.Invalidate(ctx); err != nil {
			im.log.Warn("reference cache invalidation failed", zap.Error(err))
		}
	}
	if im.metrics != nil {
		im.metrics.ObserveImport("success", n, len(b.Skipped))
	}
	im.log.Info("omip prices imported",
		zap.String("format", format),
		zap.Int("rows_upserted", n),
		zap.Int("data_rows", b.DataRows),
		zap.Int("skipped", len(b.Skipped)),
	)
	return res, nil
}

func (im *Importer) fail(err error) error {
	if im.metrics != nil {
		im.metrics.ObserveImport(string(apperr.KindOf(err)), 0, 0)
	}
	im.log.Warn("import rejected", zap.Error(err))
	return err
}
