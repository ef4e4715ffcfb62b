package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"omip-benchmark/internal/api/models"
	"omip-benchmark/internal/settings"
)

type SettingsHandler struct {
	svc *settings.Service
}

func NewSettingsHandler(svc *settings.Service) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// Current handles GET /api/admin/settings.
func (h *SettingsHandler) Current(c *gin.Context) {
	cur, err := h.svc.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SettingsResponse{
		Success:  true,
		Source:   cur.Source,
		Current:  cur.Settings,
		Fallback: cur.Fallback,
	})
}

// Versions handles GET /api/admin/settings/versions?limit=N.
func (h *SettingsHandler) Versions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SettingsVersionsResponse{Success: true, Versions: items})
}

// Create handles POST /api/admin/settings.
func (h *SettingsHandler) Create(c *gin.Context) {
	var req models.CreateSettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.svc.Create(c.Request.Context(), req.ToModel(), req.Activate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "settings": created, "activated": req.Activate})
}

// Activate handles PUT /api/admin/settings/current.
func (h *SettingsHandler) Activate(c *gin.Context) {
	var req models.ActivateSettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	activated, err := h.svc.Activate(c.Request.Context(), req.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": activated})
}
