package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"familyhub/internal/models"
	"familyhub/internal/security"
	"familyhub/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey        ContextKey = "user"
	FamilyStateContextKey ContextKey = "family_state"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	auth     *service.AuthService
	registry *service.SessionRegistry
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(auth *service.AuthService, registry *service.SessionRegistry) *Middleware {
	return &Middleware{auth: auth, registry: registry}
}

// RequireAuth rejects requests without a valid bearer token. The user and their
// FamilyState are put on the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondWithError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Missing authorization token", nil)
			return
		}

		user, err := m.auth.ValidateToken(r.Context(), token)
		if err != nil {
			respondWithServiceError(w, r, err)
			return
		}

		state := m.registry.Open(r.Context(), user)

		zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("user_id", user.ID)
		})

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, FamilyStateContextKey, state)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimit rejects clients that exceed the limiter's window
func RateLimit(rl *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(security.GetClientIP(r)) {
				respondWithError(w, r, http.StatusTooManyRequests, CodeRateLimited, "Too many requests, please try again later", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Logging attaches a request-scoped logger and logs each completed request
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})
	return func(next http.Handler) http.Handler {
		h := access(next)
		h = requestIDField(h)
		return hlog.NewHandler(logger)(h)
	}
}

// requestIDField copies chi's request id onto the request logger
func requestIDField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.UserProfile {
	user, ok := ctx.Value(UserContextKey).(*models.UserProfile)
	if !ok {
		return nil
	}
	return user
}

// GetFamilyStateFromContext retrieves the caller's FamilyState from the request context
func GetFamilyStateFromContext(ctx context.Context) *service.FamilyState {
	state, ok := ctx.Value(FamilyStateContextKey).(*service.FamilyState)
	if !ok {
		return nil
	}
	return state
}
