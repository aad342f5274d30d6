package store

import (
	"encoding/json"
	"time"
)

// Client is a client record owned by a workspace owner. The display name
// also determines the client's folder slug in object storage, so renames
// here do not move existing files.
type Client struct {
	ID           string
	OwnerEmail   string
	DisplayName  string
	BusinessType string
	ContactEmail string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Report is a shareable client report. Body holds the report payload as
// produced by the reporting frontend; this service treats it as opaque
// JSON apart from rendering it for export.
type Report struct {
	ID             string
	OwnerEmail     string
	ClientID       string
	ClientName     string
	Title          string
	Period         string
	Body           json.RawMessage
	ShareToken     *string
	ShareExpiresAt *time.Time
	ViewCount      int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LoginEvent is one sign-in attempt, successful or not.
type LoginEvent struct {
	ID         int64
	Email      string
	Success    bool
	UserAgent  string
	RemoteAddr string
	CreatedAt  time.Time
}
