package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// Name returns a short identifier such as "sqlite" or "postgres"
	Name() string

	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// UpsertRSVPQuery returns an insert-or-replace for event_rsvps keyed by (event_id, user_id).
	// Arguments: event_id, user_id, status, responded_at.
	UpsertRSVPQuery() string

	// UpsertSignupCodeQuery returns an insert-or-replace for signup_codes keyed by email.
	// Arguments: email, code_hash, expires_at, created_at. Replacing resets attempts.
	UpsertSignupCodeQuery() string

	// IsUniqueViolation reports whether err is a unique or primary key constraint failure
	IsUniqueViolation(err error) bool
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// placeholderRegexp matches ? placeholders
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// onConflictUpsertRSVP is shared by SQLite and PostgreSQL, which both accept ON CONFLICT ... excluded.
const onConflictUpsertRSVP = `
	INSERT INTO event_rsvps (event_id, user_id, status, responded_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (event_id, user_id)
	DO UPDATE SET status = excluded.status, responded_at = excluded.responded_at
`

const onConflictUpsertSignupCode = `
	INSERT INTO signup_codes (email, code_hash, attempts, expires_at, created_at)
	VALUES (?, ?, 0, ?, ?)
	ON CONFLICT (email)
	DO UPDATE SET code_hash = excluded.code_hash, attempts = 0,
		expires_at = excluded.expires_at, created_at = excluded.created_at
`
