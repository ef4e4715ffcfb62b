package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"omip-benchmark/internal/analysis"
	"omip-benchmark/internal/api/models"
)

type QuoteHandler struct {
	calc *analysis.Calculator
}

func NewQuoteHandler(calc *analysis.Calculator) *QuoteHandler {
	return &QuoteHandler{calc: calc}
}

// MarketAverage handles GET /api/quote/market-average?start=YYYY-MM&months=N.
func (h *QuoteHandler) MarketAverage(c *gin.Context) {
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
	c.JSON(http.StatusOK, models.ReferenceResponse{Success: true, Result: res.Public()})
}
