package storage

import "time"

// IntegrationRecord is a stored OAuth credential set binding one user to one calendar provider.
type IntegrationRecord struct {
	ID           string // UUID
	UserID       string
	Provider     string // "google", "outlook" or "apple"
	AccessToken  string
	RefreshToken string     // empty when the provider never issued one
	TokenExpiry  *time.Time // nil when unknown
	CalendarID   string     // empty means the provider's primary calendar
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EventRecord is a locally mirrored calendar event owned by an integration.
type EventRecord struct {
	ID            string // UUID, regenerated on every sync
	IntegrationID string
	ExternalID    string // provider's event id, unique only within one sync batch
	Title         string
	Description   string
	StartTime     *time.Time
	EndTime       *time.Time
	AllDay        bool
	Location      string
	URL           string
	LastSynced    time.Time

	// Provider is filled by queries that join the owning integration.
	Provider string
}

// NoteRecord is the raw text a user spoke or typed.
type NoteRecord struct {
	ID        string // UUID
	UserID    string
	Content   string
	CreatedAt time.Time
}

// TaskRecord is a task extracted from a note.
type TaskRecord struct {
	ID          string // UUID
	UserID      string
	NoteID      string
	Title       string
	Description string
	DueDate     *time.Time
	Priority    string // "low", "medium" or "high"
	Category    string
	Completed   bool
	CreatedAt   time.Time
}
