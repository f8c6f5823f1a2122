package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/status", s.handleGetStatus)
		r.Get("/device", s.handleGetDevice)
		r.Get("/hms/{code}", s.handleGetHMS)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/current", s.handleGetCurrentJob)
			r.Get("/last", s.handleGetLastJob)
		})

		r.Route("/commands", func(r chi.Router) {
			r.Post("/speed", s.handleSpeedCommand)
			r.Post("/state", s.handleStateCommand)
			r.Post("/light", s.handleLightCommand)
			r.Post("/fan", s.handleFanCommand)
			r.Post("/temperature", s.handleTemperatureCommand)
			r.Post("/gcode", s.handleGCodeCommand)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"connected": s.printer.Connected(),
	})
}
