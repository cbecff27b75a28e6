package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"familyhub/internal/database"
	"familyhub/internal/models"
)

// ErrEventNotFound is returned when a required event row does not exist
var ErrEventNotFound = fmt.Errorf("event not found: %w", sql.ErrNoRows)

// eventSelect loads events with their RSVPs and the responding user's name in one query.
// An event without RSVPs yields a single row whose rsvp columns are NULL.
const eventSelect = `
	SELECT e.id, e.family_id, e.title, e.description, e.event_type, e.event_date,
	       e.location, e.created_by, e.created_at, e.updated_at, e.chat_id,
	       r.user_id, r.status, u.username
	FROM events e
	LEFT JOIN event_rsvps r ON r.event_id = e.id
	LEFT JOIN user_profiles u ON u.id = r.user_id
`

// eventRow is the stored shape of an event
type eventRow struct {
	ID          string
	FamilyID    string
	Title       string
	Description sql.NullString
	EventType   sql.NullString
	EventDate   time.Time
	Location    sql.NullString
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   sql.NullTime
	ChatID      sql.NullString
}

// attendeeRow is the stored shape of an RSVP joined with its user
type attendeeRow struct {
	UserID   sql.NullString
	Status   sql.NullString
	Username sql.NullString
}

func (row eventRow) toModel() models.Event {
	event := models.Event{
		ID:          row.ID,
		FamilyID:    row.FamilyID,
		Title:       row.Title,
		Description: nullableString(row.Description),
		EventDate:   row.EventDate,
		Location:    nullableString(row.Location),
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   nullableTime(row.UpdatedAt),
		ChatID:      nullableString(row.ChatID),
		Attendees:   []models.EventAttendee{},
	}
	if row.EventType.Valid {
		t := models.EventType(row.EventType.String)
		event.EventType = &t
	}
	return event
}

// toModel reports false for the NULL row produced by an event with no RSVPs.
// A deleted user leaves an empty name.
func (row attendeeRow) toModel() (models.EventAttendee, bool) {
	if !row.UserID.Valid {
		return models.EventAttendee{}, false
	}
	return models.EventAttendee{
		UserID:   row.UserID.String,
		UserName: row.Username.String,
		Status:   models.RSVPStatus(row.Status.String),
	}, true
}

// EventRepository handles database operations for events and RSVPs
type EventRepository struct {
	db database.DBTX
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// List returns every event of a family, past ones included, ordered by event date
func (r *EventRepository) List(ctx context.Context, familyID string) ([]models.Event, error) {
	query := eventSelect + `
		WHERE e.family_id = ?
		ORDER BY e.event_date ASC, e.id ASC, r.responded_at ASC
	`
	events, err := r.query(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// ListAll returns every stored event
func (r *EventRepository) ListAll(ctx context.Context) ([]models.Event, error) {
	events, err := r.query(ctx, eventSelect+" ORDER BY e.event_date ASC, e.id ASC, r.responded_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// GetByID returns a single event. Returns ErrEventNotFound when absent.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := eventSelect + `
		WHERE e.id = ?
		ORDER BY r.responded_at ASC
	`
	events, err := r.query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrEventNotFound
	}
	return &events[0], nil
}

// query folds the joined rows into events, preserving the row order of the first sighting
func (r *EventRepository) query(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	index := make(map[string]int)
	for rows.Next() {
		var (
			er eventRow
			ar attendeeRow
		)
		if err := rows.Scan(
			&er.ID, &er.FamilyID, &er.Title, &er.Description, &er.EventType, &er.EventDate,
			&er.Location, &er.CreatedBy, &er.CreatedAt, &er.UpdatedAt, &er.ChatID,
			&ar.UserID, &ar.Status, &ar.Username,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		i, seen := index[er.ID]
		if !seen {
			i = len(events)
			index[er.ID] = i
			events = append(events, er.toModel())
		}
		if attendee, ok := ar.toModel(); ok {
			events[i].Attendees = append(events[i].Attendees, attendee)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Create inserts an event and returns it as stored
func (r *EventRepository) Create(ctx context.Context, input models.EventInput) (*models.Event, error) {
	id := uuid.NewString()
	var eventType *string
	if input.EventType != nil {
		s := string(*input.EventType)
		eventType = &s
	}

	query := `
		INSERT INTO events (id, family_id, title, description, event_type, event_date, location, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		id, input.FamilyID, input.Title, input.Description, eventType,
		input.EventDate.UTC(), input.Location, input.CreatedBy, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Update applies the non-nil fields of update and returns the event as stored.
// An empty string clears a nullable column. updated_at is always set.
func (r *EventRepository) Update(ctx context.Context, id string, update models.EventUpdate) (*models.Event, error) {
	var (
		sets []string
		args []any
	)
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, emptyToNull(*update.Description))
	}
	if update.EventDate != nil {
		sets = append(sets, "event_date = ?")
		args = append(args, update.EventDate.UTC())
	}
	if update.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, emptyToNull(*update.Location))
	}
	if update.EventType != nil {
		sets = append(sets, "event_type = ?")
		args = append(args, emptyToNull(string(*update.EventType)))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := "UPDATE events SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrEventNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes an event. Its RSVPs go with it through the foreign key cascade.
// Deleting a missing event is not an error.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// RSVP records userID's response to an event, replacing any earlier one
func (r *EventRepository) RSVP(ctx context.Context, eventID, userID string, status models.RSVPStatus) error {
	query := r.db.GetDialect().UpsertRSVPQuery()
	if _, err := r.db.ExecContext(ctx, query, eventID, userID, string(status), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to rsvp event: %w", err)
	}
	return nil
}

// RSVPRecord is a raw event_rsvps row
type RSVPRecord struct {
	EventID     string            `json:"event_id"`
	UserID      string            `json:"user_id"`
	Status      models.RSVPStatus `json:"status"`
	RespondedAt time.Time         `json:"responded_at"`
}

// ListAllRSVPs returns every stored RSVP
func (r *EventRepository) ListAllRSVPs(ctx context.Context) ([]RSVPRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT event_id, user_id, status, responded_at FROM event_rsvps ORDER BY responded_at, event_id, user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query rsvps: %w", err)
	}
	defer rows.Close()

	var records []RSVPRecord
	for rows.Next() {
		var rec RSVPRecord
		var status string
		if err := rows.Scan(&rec.EventID, &rec.UserID, &status, &rec.RespondedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		rec.Status = models.RSVPStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rsvps: %w", err)
	}
	return records, nil
}

func emptyToNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IsNotFound reports whether err means a required row was missing
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
