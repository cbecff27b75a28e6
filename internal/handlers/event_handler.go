package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"familyhub/internal/models"
	"familyhub/internal/service"
)

// EventHandler serves family events and RSVPs
type EventHandler struct {
	events *service.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

type rsvpRequest struct {
	Status models.RSVPStatus `json:"status"`
}

// Routes mounts the /api/events endpoints
func (h *EventHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		r.Put("/rsvp", h.RSVP)
	})
	return r
}

// List returns a family's events, soonest first
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	events, err := h.events.List(r.Context(), user.ID, chi.URLParam(r, "familyID"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// Get returns one event
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	event, err := h.events.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// Create adds an event to one of the caller's families
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var input models.EventInput
	if !decodeJSON(w, r, &input) {
		return
	}
	event, err := h.events.Create(r.Context(), user.ID, input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// Update applies a partial update
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var update models.EventUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	event, err := h.events.Update(r.Context(), user.ID, chi.URLParam(r, "id"), update)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// Delete removes an event. Deleting a missing event succeeds.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if err := h.events.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RSVP records the caller's response
func (h *EventHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var req rsvpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	event, err := h.events.RSVP(r.Context(), user.ID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}
