package api

import (
	"net/http"
	"trip-console/internal/api/handlers"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// ws serves the live-update websocket; it may be nil.
func NewRouter(console handlers.Console, m handlers.MapSource, ws http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	consoleHandler := &handlers.ConsoleHandler{Console: console}
	tripHandler := &handlers.TripHandler{Console: console}
	mapHandler := &handlers.MapHandler{Map: m}

	r.Get("/health", handlers.Health)
	r.Get("/", consoleHandler.Page)
	r.Post("/", consoleHandler.Submit)

	if ws != nil {
		r.Method(http.MethodGet, "/ws", ws)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/trip", tripHandler.Get)
		r.Put("/trip/fields/{field}", tripHandler.UpdateField)
		r.Post("/trip/recalculate", tripHandler.Recalculate)
		r.Get("/map", mapHandler.Get)
	})

	return r
}
