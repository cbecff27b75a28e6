package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"familyhub/internal/database"
	"familyhub/internal/models"
	"familyhub/internal/repository"
)

// BackupVersion is written to every export and checked on import
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string                  `json:"version"`
	ExportedAt   time.Time               `json:"exported_at"`
	DatabaseType string                  `json:"database_type"`
	Users        []UserBackup            `json:"users"`
	Families     []models.Family         `json:"families"`
	Members      []MemberBackup          `json:"members"`
	Events       []EventBackup           `json:"events"`
	RSVPs        []repository.RSVPRecord `json:"rsvps"`
}

// UserBackup is a user record including credentials
type UserBackup struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  *string   `json:"password_hash"`
	OAuthProvider *string   `json:"oauth_provider"`
	OAuthSubject  *string   `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
}

// MemberBackup is a family_members row
type MemberBackup struct {
	ID       string    `json:"id"`
	FamilyID string    `json:"family_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	Relation *string   `json:"relation"`
	JoinedAt time.Time `json:"joined_at"`
}

// EventBackup is an events row without derived attendees
type EventBackup struct {
	ID          string     `json:"id"`
	FamilyID    string     `json:"family_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	EventType   *string    `json:"event_type"`
	EventDate   time.Time  `json:"event_date"`
	Location    *string    `json:"location"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	ChatID      *string    `json:"chat_id"`
}

// backupTables lists tables in dependency order; clearing walks it backwards
var backupTables = []string{"user_profiles", "families", "family_members", "events", "event_rsvps"}

// BackupService handles database backup and restore operations
type BackupService struct {
	db  *database.DB
	log zerolog.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger zerolog.Logger) *BackupService {
	return &BackupService{db: db, log: logger.With().Str("component", "backup").Logger()}
}

// Export writes a complete backup of the database to outputPath
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}
	s.log.Info().Str("path", outputPath).Msg("database exported")
	return nil
}

// ExportToWriter writes a complete backup of the database to w as JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup, err := s.collect(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info().
		Int("users", len(backup.Users)).
		Int("families", len(backup.Families)).
		Int("members", len(backup.Members)).
		Int("events", len(backup.Events)).
		Int("rsvps", len(backup.RSVPs)).
		Msg("export complete")
	return nil
}

func (s *BackupService) collect(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.Name(),
	}

	users, err := repository.NewUserRepository(s.db).ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:            u.ID,
			Username:      u.Username,
			Email:         u.Email,
			PasswordHash:  u.PasswordHash,
			OAuthProvider: u.OAuthProvider,
			OAuthSubject:  u.OAuthSubject,
			CreatedAt:     u.CreatedAt,
		})
	}

	families := repository.NewFamilyRepository(s.db)
	if backup.Families, err = families.ListFamilies(ctx); err != nil {
		return nil, fmt.Errorf("failed to export families: %w", err)
	}
	members, err := families.ListAllMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export members: %w", err)
	}
	for _, m := range members {
		backup.Members = append(backup.Members, MemberBackup{
			ID:       m.ID,
			FamilyID: m.FamilyID,
			UserID:   m.UserID,
			Role:     string(m.Role),
			Relation: m.Relation,
			JoinedAt: m.JoinedAt,
		})
	}

	events := repository.NewEventRepository(s.db)
	all, err := events.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export events: %w", err)
	}
	for _, e := range all {
		eb := EventBackup{
			ID:          e.ID,
			FamilyID:    e.FamilyID,
			Title:       e.Title,
			Description: e.Description,
			EventDate:   e.EventDate,
			Location:    e.Location,
			CreatedBy:   e.CreatedBy,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.UpdatedAt,
			ChatID:      e.ChatID,
		}
		if e.EventType != nil {
			t := string(*e.EventType)
			eb.EventType = &t
		}
		backup.Events = append(backup.Events, eb)
	}
	if backup.RSVPs, err = events.ListAllRSVPs(ctx); err != nil {
		return nil, fmt.Errorf("failed to export rsvps: %w", err)
	}

	return backup, nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()
	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores a backup read from r. All rows are inserted in one
// transaction; nothing is written if any row fails.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, u := range backup.Users {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO user_profiles (id, username, email, password_hash, oauth_provider, oauth_subject, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
				u.ID, u.Username, u.Email, u.PasswordHash, u.OAuthProvider, u.OAuthSubject, u.CreatedAt.UTC()); err != nil {
				return fmt.Errorf("failed to import user %s: %w", u.ID, err)
			}
		}
		for _, f := range backup.Families {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO families (id, name, invite_code, created_by, created_at) VALUES (?, ?, ?, ?, ?)",
				f.ID, f.Name, f.InviteCode, f.CreatedBy, f.CreatedAt.UTC()); err != nil {
				return fmt.Errorf("failed to import family %s: %w", f.ID, err)
			}
		}
		for _, m := range backup.Members {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO family_members (id, family_id, user_id, role, relation, joined_at) VALUES (?, ?, ?, ?, ?, ?)",
				m.ID, m.FamilyID, m.UserID, m.Role, m.Relation, m.JoinedAt.UTC()); err != nil {
				return fmt.Errorf("failed to import member %s: %w", m.ID, err)
			}
		}
		for _, e := range backup.Events {
			var updatedAt *time.Time
			if e.UpdatedAt != nil {
				t := e.UpdatedAt.UTC()
				updatedAt = &t
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO events (id, family_id, title, description, event_type, event_date, location, created_by, created_at, updated_at, chat_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				e.ID, e.FamilyID, e.Title, e.Description, e.EventType, e.EventDate.UTC(), e.Location,
				e.CreatedBy, e.CreatedAt.UTC(), updatedAt, e.ChatID); err != nil {
				return fmt.Errorf("failed to import event %s: %w", e.ID, err)
			}
		}
		for _, rsvp := range backup.RSVPs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO event_rsvps (event_id, user_id, status, responded_at) VALUES (?, ?, ?, ?)",
				rsvp.EventID, rsvp.UserID, string(rsvp.Status), rsvp.RespondedAt.UTC()); err != nil {
				return fmt.Errorf("failed to import rsvp %s/%s: %w", rsvp.EventID, rsvp.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Int("users", len(backup.Users)).
		Int("families", len(backup.Families)).
		Int("events", len(backup.Events)).
		Msg("import complete")
	return nil
}

// ClearAll deletes every row from the backed up tables
func (s *BackupService) ClearAll(ctx context.Context) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		for i := len(backupTables) - 1; i >= 0; i-- {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+backupTables[i]); err != nil {
				return fmt.Errorf("failed to clear %s: %w", backupTables[i], err)
			}
		}
		return nil
	})
}
