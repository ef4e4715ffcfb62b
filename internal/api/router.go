// Package api wires the HTTP routes.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omip-benchmark/internal/analysis"
	"omip-benchmark/internal/api/handlers"
	"omip-benchmark/internal/api/middleware"
	"omip-benchmark/internal/api/models"
	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/auth"
	"omip-benchmark/internal/emailcheck"
	"omip-benchmark/internal/ingest"
	"omip-benchmark/internal/leads"
	"omip-benchmark/internal/metrics"
	"omip-benchmark/internal/settings"
	"omip-benchmark/internal/simulation"
)

// Store is everything the routes read directly from persistence.
type Store interface {
	handlers.Pinger
	handlers.PriceStatusReader
}

// Deps are the services behind the routes.
type Deps struct {
	Store       Store
	Importer    *ingest.Importer
	Calculator  *analysis.Calculator
	Settings    *settings.Service
	Simulations *simulation.Service
	Leads       *leads.Service
	EmailCheck  *emailcheck.Client
	Tokens      *auth.Tokens
	Metrics     *metrics.Metrics
	Log         *zap.Logger

	AdminKey       string
	Cookie         handlers.CookieConfig
	MaxUploadBytes int64
	AllowedOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS(d.AllowedOrigins))
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	router.GET("/health", handlers.Health)
	router.GET("/ready", handlers.Ready(d.Store))

	omip := handlers.NewOMIPHandler(d.Importer, d.Store, d.Calculator, d.MaxUploadBytes, log)
	quote := handlers.NewQuoteHandler(d.Calculator)
	settingsH := handlers.NewSettingsHandler(d.Settings)
	sims := handlers.NewSimulationHandler(d.Simulations)
	leadsH := handlers.NewLeadHandler(d.Leads, d.Tokens, d.EmailCheck, d.Cookie)

	api := router.Group("/api")
	{
		api.GET("/quote/market-average", quote.MarketAverage)

		api.POST("/send-confirmation", leadsH.SendConfirmation)
		api.GET("/confirm", leadsH.Confirm)
		api.GET("/confirm-status", leadsH.ConfirmStatus)
		api.GET("/user/status", leadsH.UserStatus)
		api.POST("/user/consent", leadsH.Consent)
		api.POST("/validate-email", leadsH.ValidateEmail)

		api.GET("/simulations/:id", sims.Get)
		api.GET("/simulations/:id/report.pdf", sims.Report)

		session := api.Group("/simulations", auth.RequireSession(d.Tokens, d.Cookie.Name))
		session.POST("/simulate", sims.Simulate)
		session.POST("", sims.Save)
		session.GET("", sims.ListMine)
	}

	admin := api.Group("/admin", auth.AdminKey(d.AdminKey, log))
	{
		admin.POST("/omip", omip.Upload)
		admin.GET("/omip", omip.Status)
		admin.GET("/omip/ref", omip.Reference)

		admin.GET("/settings", settingsH.Current)
		admin.GET("/settings/versions", settingsH.Versions)
		admin.POST("/settings", settingsH.Create)
		admin.PUT("/settings/current", settingsH.Activate)

		admin.GET("/simulations", sims.AdminList)
		admin.GET("/simulations/export.xlsx", sims.AdminExport)
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				ErrorKind: apperr.KindNotFound,
				Code:      "ROUTE_NOT_FOUND",
				Message:   "Not found",
			})
			return
		}
		c.Status(http.StatusNotFound)
	})

	return router
}
