package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omip-benchmark/internal/analysis"
	"omip-benchmark/internal/api/models"
	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/ingest"
	"omip-benchmark/internal/model"
)

const latestMonths = 12

// PriceStatusReader summarizes the stored series.
type PriceStatusReader interface {
	PriceCoverage(ctx context.Context) (model.PriceCoverage, error)
	LatestMonthlyPrices(ctx context.Context, limit int) ([]model.MonthlyPrice, error)
}

// OMIPHandler serves the admin price upload and status endpoints.
type OMIPHandler struct {
	importer  *ingest.Importer
	prices    PriceStatusReader
	calc      *analysis.Calculator
	maxUpload int64
	log       *zap.Logger
}

func NewOMIPHandler(importer *ingest.Importer, prices PriceStatusReader, calc *analysis.Calculator, maxUpload int64, log *zap.Logger) *OMIPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OMIPHandler{importer: importer, prices: prices, calc: calc, maxUpload: maxUpload, log: log}
}

// Upload handles POST /api/admin/omip (multipart field "file").
func (h *OMIPHandler) Upload(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			respondError(c, apperr.Malformed("FILE_TOO_LARGE", "upload exceeds %d bytes", h.maxUpload))
			return
		}
		respondError(c, apperr.Malformed("MISSING_FILE", "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	dryRun := c.Query("dryRun") == "true"
	res, err := h.importer.ImportFile(c.Request.Context(), header.Filename, file, dryRun)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Status handles GET /api/admin/omip.
func (h *OMIPHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	cov, err := h.prices.PriceCoverage(ctx)
	if err != nil {
		respondError(c, apperr.Unavailable("DB_ERROR", err))
		return
	}
	latest, err := h.prices.LatestMonthlyPrices(ctx, latestMonths)
	if err != nil {
		respondError(c, apperr.Unavailable("DB_ERROR", err))
		return
	}
	if latest == nil {
		latest = []model.MonthlyPrice{}
	}

	resp := models.OMIPStatusResponse{Success: true, Total: cov.Total, Latest: latest}
	if cov.Total > 0 {
		resp.MinMonth = &cov.First
		resp.MaxMonth = &cov.Last
	}
	c.JSON(http.StatusOK, resp)
}

// Reference handles GET /api/admin/omip/ref and returns the raw window rows
// along with the computed reference.
func (h *OMIPHandler) Reference(c *gin.Context) {
	start, months, err := analysis.ParseQuery(c.Query("start"), c.Query("months"))
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.calc.Compute(c.Request.Context(), start, months)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ReferenceResponse{Success: true, Result: res})
}
