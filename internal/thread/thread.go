// Package thread manages persisted conversation records in object storage.
//
// A thread is one JSON document. Whether it is active or archived is
// carried entirely by the path that holds it: documents under a
// client-files folder are active, documents under an archive folder are
// archived. The document itself has no archived flag.
package thread

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidInput marks validation failures on create and update.
var ErrInvalidInput = errors.New("invalid input")

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Metadata is the descriptive half of a thread document. Timestamps are
// ISO-8601 strings so documents written by earlier versions of the product
// parse unchanged.
type Metadata struct {
	ClientName   string `json:"clientName"`
	Title        string `json:"title"`
	ProjectType  string `json:"projectType"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	CreatedAt    string `json:"createdAt"`
	LastUpdated  string `json:"lastUpdated"`
	MessageCount int    `json:"messageCount"`
	CreatedBy    string `json:"createdBy"`
}

// Document is the persisted thread format. Conversation entries are opaque
// to this service; order is preserved.
type Document struct {
	Metadata     Metadata          `json:"metadata"`
	Conversation []json.RawMessage `json:"conversation"`
	ThreadID     string            `json:"threadId"`
}

// MetadataPatch carries a partial metadata update. Nil fields are left
// untouched on merge.
type MetadataPatch struct {
	ClientName  *string `json:"clientName"`
	Title       *string `json:"title"`
	ProjectType *string `json:"projectType"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

func (p MetadataPatch) apply(m *Metadata) {
	if p.ClientName != nil {
		m.ClientName = *p.ClientName
	}
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.ProjectType != nil {
		m.ProjectType = *p.ProjectType
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.Priority != nil {
		m.Priority = *p.Priority
	}
}

// Summary is one row of a thread listing.
type Summary struct {
	ThreadID     string `json:"threadId"`
	Title        string `json:"title"`
	ClientName   string `json:"clientName"`
	ProjectType  string `json:"projectType"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	CreatedAt    string `json:"createdAt"`
	LastUpdated  string `json:"lastUpdated"`
	MessageCount int    `json:"messageCount"`
	Path         string `json:"filePath"`
	IsArchived   bool   `json:"isArchived"`
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newThreadID builds "thread_<epochMillis>_<9 base36 chars>".
func newThreadID(now time.Time) string {
	suffix := make([]byte, 9)
	random := make([]byte, 9)
	_, _ = rand.Read(random)
	for i, b := range random {
		suffix[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return "thread_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
