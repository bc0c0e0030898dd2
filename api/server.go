/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontends
  5. Caller:     Copies X-Caller into the request context

ROUTE GROUPS:
  /api/config/*    Initialisation and admin rotation
  /api/streams/*   Stream lifecycle
  /api/admin/*     Admin-gated overrides
  /api/accounts/*  In-process bank (balances, dev funding)
  /ws/events       Live event feed

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, hub *Hub) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", CallerHeader},
		AllowCredentials: true,
	}))
	r.Use(CallerMiddleware)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/config", func(r chi.Router) {
			r.Post("/init", h.InitConfig)
			r.Get("/", h.GetConfig)
			r.Post("/admin", h.SetAdmin)
		})

		r.Route("/streams", func(r chi.Router) {
			r.Post("/", h.CreateStream)
			r.Post("/batch", h.CreateStreams)
			r.Get("/{id}", h.GetStream)
			r.Get("/{id}/accrued", h.GetAccrued)
			r.Post("/{id}/pause", h.PauseStream)
			r.Post("/{id}/resume", h.ResumeStream)
			r.Post("/{id}/cancel", h.CancelStream)
			r.Post("/{id}/withdraw", h.Withdraw)
		})

		r.Route("/admin/streams", func(r chi.Router) {
			r.Post("/{id}/pause", h.PauseStreamAsAdmin)
			r.Post("/{id}/resume", h.ResumeStreamAsAdmin)
			r.Post("/{id}/cancel", h.CancelStreamAsAdmin)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/{id}/balance", h.GetBalance)
			r.Post("/{id}/mint", h.Mint)
		})
	})

	// Live event feed
	if hub != nil {
		r.Get("/ws/events", hub.ServeWS)
	}

	return r
}
