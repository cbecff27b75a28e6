package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RouterDeps are the handlers and middleware the router mounts
type RouterDeps struct {
	Logger      zerolog.Logger
	Middleware  *Middleware
	RateLimited func(http.Handler) http.Handler
	Auth        *AuthHandler
	Family      *FamilyHandler
	Events      *EventHandler
}

// NewRouter builds the HTTP API
func NewRouter(deps RouterDeps) http.Handler {
	limited := deps.RateLimited
	if limited == nil {
		limited = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", deps.Auth.Routes(deps.Middleware.RequireAuth, limited))

		r.Group(func(r chi.Router) {
			r.Use(deps.Middleware.RequireAuth)

			r.Mount("/family", deps.Family.Routes())
			r.Get("/families/{familyID}/events", deps.Events.List)
			r.Mount("/events", deps.Events.Routes())
		})
	})

	return r
}
