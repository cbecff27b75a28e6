package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"familyhub/internal/models"
	"familyhub/internal/repository"
	"familyhub/internal/validation"
)

var (
	ErrNotFamilyMember  = errors.New("not a member of this family")
	ErrInvalidEventType = errors.New("invalid event type")
	ErrInvalidRSVP      = errors.New("invalid rsvp status")
	ErrEventDateMissing = errors.New("event date is required")
	ErrNothingToUpdate  = errors.New("no fields to update")
)

// MembershipChecker reports whether a user belongs to a family
type MembershipChecker interface {
	IsMember(ctx context.Context, familyID, userID string) (bool, error)
}

// EventService guards event operations with validation and family membership
type EventService struct {
	events  *repository.EventRepository
	members MembershipChecker
}

// NewEventService creates a new event service
func NewEventService(events *repository.EventRepository, members MembershipChecker) *EventService {
	return &EventService{events: events, members: members}
}

// List returns the family's events, soonest first
func (s *EventService) List(ctx context.Context, userID, familyID string) ([]models.Event, error) {
	if err := s.requireMember(ctx, familyID, userID); err != nil {
		return nil, err
	}
	return s.events.List(ctx, familyID)
}

// Get returns one event the user can see. An id that is not a UUID cannot
// name a stored event and is reported as not found.
func (s *EventService) Get(ctx context.Context, userID, eventID string) (*models.Event, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, repository.ErrEventNotFound
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, event.FamilyID, userID); err != nil {
		return nil, err
	}
	return event, nil
}

// Create validates input and creates an event owned by userID
func (s *EventService) Create(ctx context.Context, userID string, input models.EventInput) (*models.Event, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validation.ValidateEventTitle(input.Title); err != nil {
		return nil, err
	}
	if input.EventDate.IsZero() {
		return nil, ErrEventDateMissing
	}
	if input.EventType != nil && !input.EventType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEventType, *input.EventType)
	}
	input.Description = absentIfEmpty(input.Description)
	input.Location = absentIfEmpty(input.Location)

	if err := s.requireMember(ctx, input.FamilyID, userID); err != nil {
		return nil, err
	}
	input.CreatedBy = userID
	return s.events.Create(ctx, input)
}

// Update applies a partial update to an event in one of the user's families
func (s *EventService) Update(ctx context.Context, userID, eventID string, update models.EventUpdate) (*models.Event, error) {
	if update.IsEmpty() {
		return nil, ErrNothingToUpdate
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if err := validation.ValidateEventTitle(title); err != nil {
			return nil, err
		}
		update.Title = &title
	}
	if update.EventDate != nil && update.EventDate.IsZero() {
		return nil, ErrEventDateMissing
	}
	if update.EventType != nil && *update.EventType != "" && !update.EventType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEventType, *update.EventType)
	}

	if _, err := s.Get(ctx, userID, eventID); err != nil {
		return nil, err
	}
	return s.events.Update(ctx, eventID, update)
}

// Delete removes an event in one of the user's families. A missing event is not an error.
func (s *EventService) Delete(ctx context.Context, userID, eventID string) error {
	if _, err := s.Get(ctx, userID, eventID); err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}
	return s.events.Delete(ctx, eventID)
}

// RSVP records the user's response and returns the refreshed event
func (s *EventService) RSVP(ctx context.Context, userID, eventID string, status models.RSVPStatus) (*models.Event, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRSVP, status)
	}
	if _, err := s.Get(ctx, userID, eventID); err != nil {
		return nil, err
	}
	if err := s.events.RSVP(ctx, eventID, userID, status); err != nil {
		return nil, err
	}
	return s.events.GetByID(ctx, eventID)
}

func (s *EventService) requireMember(ctx context.Context, familyID, userID string) error {
	if _, err := uuid.Parse(familyID); err != nil {
		return ErrNotFamilyMember
	}
	ok, err := s.members.IsMember(ctx, familyID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFamilyMember
	}
	return nil
}

func absentIfEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
