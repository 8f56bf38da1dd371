// Package routes registers all HTTP routes for the API.
package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	infrahttp "github.com/sarifscope/api/internal/infra/http"
	"github.com/sarifscope/api/internal/infra/http/handler"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds all HTTP handlers for route registration.
type Handlers struct {
	Health *handler.HealthHandler
	Report *handler.ReportHandler // nil if not initialized (no database)
}

// Register wires all routes on the router.
func Register(router Router, h Handlers) {
	registerHealthRoutes(router, h.Health)

	if h.Report != nil {
		registerReportRoutes(router, h.Report)
	}
}

// registerHealthRoutes registers health check and metrics endpoints.
func registerHealthRoutes(router Router, h *handler.HealthHandler) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
}

// registerReportRoutes registers SARIF report and finding endpoints.
func registerReportRoutes(router Router, h *handler.ReportHandler) {
	router.Group("/api/v1/reports", func(r Router) {
		r.POST("/", h.Ingest)
		r.POST("/preview", h.Preview)
		r.POST("/validate", h.Validate)
		r.GET("/", h.List)
		r.GET("/{id}", h.Get)
		r.GET("/{id}/stats", h.ReportStats)
		r.DELETE("/{id}", h.Delete)
	})

	router.Group("/api/v1/findings", func(r Router) {
		r.GET("/", h.ListFindings)
		r.GET("/stats", h.GlobalStats)
		r.GET("/{id}", h.GetFinding)
	})
}
