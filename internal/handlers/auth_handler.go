package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"familyhub/internal/security"
	"familyhub/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	registry    *service.SessionRegistry

	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	states               *security.StateSigner
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, registry *service.SessionRegistry, states *security.StateSigner, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		registry:             registry,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		states:               states,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

type signupCodeRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Routes mounts the /api/auth endpoints. Only logout needs a token;
// limited wraps the credential endpoints.
func (h *AuthHandler) Routes(requireAuth, limited func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(limited).Post("/register/otp", h.RequestSignupCode)
	r.With(limited).Post("/register", h.Register)
	r.With(limited).Post("/login", h.Login)
	r.With(requireAuth).Post("/logout", h.Logout)
	r.Get("/providers", h.Providers)
	r.Get("/{provider}/start", h.StartOAuth)
	r.Get("/{provider}/callback", h.OAuthCallback)
	return r
}

// RequestSignupCode emails a verification code that Register must be given
func (h *AuthHandler) RequestSignupCode(w http.ResponseWriter, r *http.Request) {
	var req signupCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.RequestSignupCode(r.Context(), req.Email); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"message": "Verification code sent"})
}

// Register creates a password account and returns a session
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password, req.Code)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.registry.Open(r.Context(), session.User)
	respondJSON(w, http.StatusCreated, session)
}

// Login checks credentials and returns a session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.registry.Open(r.Context(), session.User)
	respondJSON(w, http.StatusOK, session)
}

// Logout drops the caller's family state. Tokens are not revoked and stay valid until expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user := GetUserFromContext(r.Context()); user != nil {
		h.registry.Close(user.ID)
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
