package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"familyhub/internal/service"
	"familyhub/internal/validation"
)

// FamilyHandler exposes the caller's FamilyState
type FamilyHandler struct {
	email *service.EmailService
}

// NewFamilyHandler creates a new family handler. email may be disabled.
func NewFamilyHandler(email *service.EmailService) *FamilyHandler {
	return &FamilyHandler{email: email}
}

type createFamilyRequest struct {
	Name string `json:"name"`
}

type joinFamilyRequest struct {
	InviteCode string `json:"invite_code"`
	Relation   string `json:"relation"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

// Routes mounts the family endpoints. Callers must already be authenticated.
func (h *FamilyHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Post("/", h.Create)
	r.Post("/reload", h.Reload)
	r.Post("/join", h.Join)
	r.Post("/leave", h.Leave)
	r.Post("/invite", h.Invite)
	return r
}

// Get returns the current snapshot
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	state := h.state(w, r)
	if state == nil {
		return
	}
	respondJSON(w, http.StatusOK, state.Snapshot())
}

// Reload refetches the family and roster
func (h *FamilyHandler) Reload(w http.ResponseWriter, r *http.Request) {
	state := h.state(w, r)
	if state == nil {
		return
	}
	state.Reload(r.Context())
	respondJSON(w, http.StatusOK, state.Snapshot())
}

// Create makes a new family with the caller as admin
func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	state := h.state(w, r)
	if state == nil {
		return
	}
	var req createFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := state.CreateFamily(r.Context(), req.Name); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, state.Snapshot())
}

// Join adds the caller to the family an invite code belongs to
func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	state := h.state(w, r)
	if state == nil {
		return
	}
	var req joinFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := state.JoinFamily(r.Context(), req.InviteCode, req.Relation); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state.Snapshot())
}

// Leave removes the caller from their current family
func (h *FamilyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	state := h.state(w, r)
	if state == nil {
		return
	}
	if err := state.LeaveFamily(r.Context()); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state.Snapshot())
}

// Invite emails the current family's invite code
func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	state := h.state(w, r)
	if state == nil {
		return
	}
	if h.email == nil || !h.email.IsEnabled() {
		respondWithError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Email invites are not configured", nil)
		return
	}

	var req inviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	snap := state.Snapshot()
	if snap.Family == nil {
		respondWithError(w, r, http.StatusConflict, CodeNoFamily, "No family to invite to", nil)
		return
	}

	user := state.User()
	if err := h.email.SendFamilyInvite(r.Context(), req.Email, user.Username, snap.Family.Name, snap.Family.InviteCode); err != nil {
		respondWithError(w, r, http.StatusBadGateway, CodeUnavailable, "Failed to send invite", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Invite sent"})
}

func (h *FamilyHandler) state(w http.ResponseWriter, r *http.Request) *service.FamilyState {
	state := GetFamilyStateFromContext(r.Context())
	if state == nil || state.User() == nil {
		respondWithServiceError(w, r, service.ErrNotAuthenticated)
		return nil
	}
	return state
}
