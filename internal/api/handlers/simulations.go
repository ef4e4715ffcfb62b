package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"omip-benchmark/internal/api/models"
	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/auth"
	"omip-benchmark/internal/simulation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SimulationHandler struct {
	svc *simulation.Service
}

func NewSimulationHandler(svc *simulation.Service) *SimulationHandler {
	return &SimulationHandler{svc: svc}
}

// Simulate handles POST /api/simulations/simulate.
func (h *SimulationHandler) Simulate(c *gin.Context) {
	in, ok := h.bindOwnInput(c)
	if !ok {
		return
	}
	out, err := h.svc.Simulate(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SimulationResponse{Success: true, Outcome: out})
}

// Save handles POST /api/simulations.
func (h *SimulationHandler) Save(c *gin.Context) {
	in, ok := h.bindOwnInput(c)
	if !ok {
		return
	}
	out, err := h.svc.Save(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.SimulationResponse{Success: true, Outcome: out})
}

// ListMine handles GET /api/simulations?email=.
func (h *SimulationHandler) ListMine(c *gin.Context) {
	email := c.Query("email")
	if !auth.SameEmail(c, email) {
		respondError(c, apperr.Unauthorized("EMAIL_MISMATCH", "session does not belong to this email"))
		return
	}
	sims, err := h.svc.ListByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SimulationListResponse{Success: true, Simulations: sims})
}

// Get handles GET /api/simulations/:id.
func (h *SimulationHandler) Get(c *gin.Context) {
	sim, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SimulationDetailResponse{Success: true, Simulation: sim})
}

// Report handles GET /api/simulations/:id/report.pdf.
func (h *SimulationHandler) Report(c *gin.Context) {
	sim, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	pdf, err := simulation.BuildReportPDF(sim)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "simulation-"+sim.ID+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// AdminList handles GET /api/admin/simulations?limit=N.
func (h *SimulationHandler) AdminList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	sims, err := h.svc.ListAll(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SimulationListResponse{Success: true, Simulations: sims})
}

// AdminExport handles GET /api/admin/simulations/export.xlsx.
func (h *SimulationHandler) AdminExport(c *gin.Context) {
	sims, err := h.svc.ListAll(c.Request.Context(), 0)
	if err != nil {
		respondError(c, err)
		return
	}
	raw, err := simulation.BuildSimulationsXLSX(sims)
	if err != nil {
		respondError(c, err)
		return
	}
	name := "simulations-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, raw)
}

// bindOwnInput decodes a simulation request and checks that its email is
// the one confirmed by the session cookie.
func (h *SimulationHandler) bindOwnInput(c *gin.Context) (simulation.Input, bool) {
	var in simulation.Input
	if !bindJSON(c, &in) {
		return in, false
	}
	if !auth.SameEmail(c, in.Email) {
		respondError(c, apperr.Unauthorized("EMAIL_MISMATCH", "session does not belong to this email"))
		return in, false
	}
	return in, true
}
