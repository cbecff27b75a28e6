package models

import "time"

// EventType classifies a family event
type EventType string

const (
	EventBirthday EventType = "birthday"
	EventWedding  EventType = "wedding"
	EventDinner   EventType = "dinner"
	EventFestival EventType = "festival"
	EventReunion  EventType = "reunion"
	EventOther    EventType = "other"
)

// Valid reports whether t is one of the known event types
func (t EventType) Valid() bool {
	switch t {
	case EventBirthday, EventWedding, EventDinner, EventFestival, EventReunion, EventOther:
		return true
	}
	return false
}

// RSVPStatus is a user's attendance response
type RSVPStatus string

const (
	RSVPGoing    RSVPStatus = "going"
	RSVPMaybe    RSVPStatus = "maybe"
	RSVPNotGoing RSVPStatus = "not_going"
)

// Valid reports whether s is one of the known RSVP statuses
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPGoing, RSVPMaybe, RSVPNotGoing:
		return true
	}
	return false
}

// Event is a family event with its RSVPs.
// Nil pointer fields are absent in the store; they are never mapped to "".
type Event struct {
	ID          string     `json:"id"`
	FamilyID    string     `json:"family_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	EventType   *EventType `json:"event_type,omitempty"`
	EventDate   time.Time  `json:"event_date"`
	Location    *string    `json:"location,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	ChatID      *string    `json:"chat_id,omitempty"`

	// Attendees is derived from event_rsvps and never nil
	Attendees []EventAttendee `json:"attendees"`
}

// Attendee returns the RSVP of userID, if any
func (e *Event) Attendee(userID string) (EventAttendee, bool) {
	for _, a := range e.Attendees {
		if a.UserID == userID {
			return a, true
		}
	}
	return EventAttendee{}, false
}

// EventAttendee is one user's RSVP to an event
type EventAttendee struct {
	UserID   string     `json:"user_id"`
	UserName string     `json:"user_name"`
	Status   RSVPStatus `json:"status"`
}

// EventInput carries the fields for a new event
type EventInput struct {
	FamilyID    string     `json:"family_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	EventType   *EventType `json:"event_type,omitempty"`
	EventDate   time.Time  `json:"event_date"`
	Location    *string    `json:"location,omitempty"`
	CreatedBy   string     `json:"-"`
}

// EventUpdate is a partial update. A nil field is left unchanged;
// a pointer to "" clears a nullable field.
type EventUpdate struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	EventDate   *time.Time `json:"event_date,omitempty"`
	Location    *string    `json:"location,omitempty"`
	EventType   *EventType `json:"event_type,omitempty"`
}

// IsEmpty reports whether the update changes no field
func (u EventUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.EventDate == nil &&
		u.Location == nil && u.EventType == nil
}
