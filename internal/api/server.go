// Package api exposes the significance engine over HTTP. The outer router is
// chi; the JSON API under /api is a gin engine.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wires the routers together
type Server struct {
	router   *chi.Mux
	engine   *gin.Engine
	handler  *CalculationHandler
	hub      *ScanHub
	archived bool
}

// NewServer builds the routes. archived reports whether a results archive is
// configured, for the health endpoint.
func NewServer(handler *CalculationHandler, hub *ScanHub, archived bool) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		engine:   gin.New(),
		handler:  handler,
		hub:      hub,
		archived: archived,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.engine.Use(gin.Recovery())
}

func (s *Server) setupRoutes() {
	// Compression wraps the writer and would hide gin's flushing from the
	// event stream, so it stays off the API mount.
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Get("/healthz", s.handleHealth)
	})

	v1 := s.engine.Group("/api/v1")
	v1.POST("/significance", s.handler.Calculate)
	v1.POST("/qmu", s.handler.QmuCurve)
	v1.GET("/calculations", s.handler.ListCalculations)
	v1.GET("/calculations/:id", s.handler.GetCalculation)
	v1.POST("/scans", s.handler.StartScan)
	v1.GET("/scans/:id/events", s.hub.HandleSSE)
	v1.GET("/scans/:id/points", s.handler.ScanPoints)

	// gin sees the full request path, so it is mounted without stripping.
	s.router.Mount("/api", s.engine)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"archive": s.archived,
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
