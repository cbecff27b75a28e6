package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"familyhub/internal/models"
)

// SessionRegistry owns one FamilyState per logged-in user
type SessionRegistry struct {
	store FamilyStore
	log   zerolog.Logger

	mu     sync.Mutex
	states map[string]*FamilyState
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry(store FamilyStore, logger zerolog.Logger) *SessionRegistry {
	return &SessionRegistry{
		store:  store,
		log:    logger,
		states: make(map[string]*FamilyState),
	}
}

// Open returns the user's FamilyState, creating and logging it in on first use.
// A state is bound to its user before any other caller can see it.
func (r *SessionRegistry) Open(ctx context.Context, user *models.UserProfile) *FamilyState {
	r.mu.Lock()
	state, ok := r.states[user.ID]
	if !ok {
		state = NewFamilyState(r.store, r.log)
		state.bind(user)
		r.states[user.ID] = state
	}
	r.mu.Unlock()

	if !ok {
		state.Reload(ctx)
	}
	return state
}

// Get returns the user's FamilyState if one is open
func (r *SessionRegistry) Get(userID string) (*FamilyState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[userID]
	return state, ok
}

// Close logs the user's FamilyState out and drops it
func (r *SessionRegistry) Close(userID string) {
	r.mu.Lock()
	state, ok := r.states[userID]
	delete(r.states, userID)
	r.mu.Unlock()

	if ok {
		state.Logout()
	}
}

// Len returns the number of open states
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
