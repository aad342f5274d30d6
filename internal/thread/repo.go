package thread

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"peaksuite/api/internal/blobpath"
	"peaksuite/api/internal/objstore"
)

// Repository manages thread documents through the object store gateway.
// All writes are last-writer-wins; there is no version token, so two
// concurrent updates to the same path race and the later write survives.
type Repository struct {
	gw     objstore.Gateway
	layout blobpath.Layout
	now    func() time.Time
}

func NewRepository(gw objstore.Gateway, layout blobpath.Layout) *Repository {
	return &Repository{gw: gw, layout: layout, now: time.Now}
}

// SetClock overrides the timestamp source for deterministic tests.
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

// CreateInput holds the parameters for a new thread.
type CreateInput struct {
	Owner       string
	ClientName  string
	Title       string
	ProjectType string
	Status      string
	Priority    string
	CreatedBy   string
	Messages    []json.RawMessage
}

// Create writes a new thread document to the owner's active client folder
// and returns the generated thread id and the path it was stored at.
func (r *Repository) Create(ctx context.Context, in CreateInput) (string, string, error) {
	if in.Owner == "" {
		return "", "", invalidInput("owner identity is required")
	}
	if in.ClientName == "" {
		return "", "", invalidInput("client name is required")
	}
	if in.Title == "" {
		return "", "", invalidInput("title is required")
	}
	if len(in.Messages) == 0 {
		return "", "", invalidInput("at least one message is required")
	}
	if in.ProjectType == "" {
		in.ProjectType = "General"
	}
	if in.Status == "" {
		in.Status = "Active"
	}
	if in.Priority == "" {
		in.Priority = "Normal"
	}
	if in.CreatedBy == "" {
		in.CreatedBy = in.Owner
	}

	now := r.now()
	threadID := newThreadID(now)
	ts := formatTimestamp(now)

	doc := Document{
		Metadata: Metadata{
			ClientName:   in.ClientName,
			Title:        in.Title,
			ProjectType:  in.ProjectType,
			Status:       in.Status,
			Priority:     in.Priority,
			CreatedAt:    ts,
			LastUpdated:  ts,
			MessageCount: len(in.Messages),
			CreatedBy:    in.CreatedBy,
		},
		Conversation: in.Messages,
		ThreadID:     threadID,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", "", fmt.Errorf("marshal thread: %w", err)
	}

	filename := blobpath.ThreadFilename(in.Title, in.ProjectType, now)
	path := r.layout.ThreadPath(in.Owner, in.ClientName, filename, false)
	if err := r.gw.Write(ctx, path, data, "application/json", map[string]string{
		"thread-id":  threadID,
		"created-by": in.CreatedBy,
	}); err != nil {
		return "", "", err
	}
	return threadID, path, nil
}

// Load reads and parses the thread document at path.
func (r *Repository) Load(ctx context.Context, path string) (Document, error) {
	data, err := r.gw.Read(ctx, path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse thread %s: %w", path, err)
	}
	return doc, nil
}

// Update merges a partial metadata patch into the document at path,
// optionally replaces the conversation, and writes the result back to the
// same path. Update never moves a thread between active and archive.
func (r *Repository) Update(ctx context.Context, path string, patch MetadataPatch, messages []json.RawMessage) error {
	doc, err := r.Load(ctx, path)
	if err != nil {
		return err
	}

	patch.apply(&doc.Metadata)
	if messages != nil {
		doc.Conversation = messages
		doc.Metadata.MessageCount = len(messages)
	}
	doc.Metadata.LastUpdated = formatTimestamp(r.now())

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal thread: %w", err)
	}
	return r.gw.Write(ctx, path, data, "application/json", map[string]string{
		"thread-id": doc.ThreadID,
	})
}

// Archive moves the thread at path into the owner's archive folder and
// returns the new path. The store has no rename, so this is a copy followed
// by a delete: a crash between the two leaves the document at both paths
// and listings must tolerate the duplicate until the stale copy is removed.
func (r *Repository) Archive(ctx context.Context, path string) (string, error) {
	dest, err := blobpath.ArchivePath(path)
	if err != nil {
		return "", invalidInput(err.Error())
	}
	if err := r.gw.Copy(ctx, path, dest); err != nil {
		return "", err
	}
	if err := r.gw.Delete(ctx, path); err != nil {
		return "", fmt.Errorf("archived copy written but source not removed: %w", err)
	}
	return dest, nil
}

// List returns summaries of the owner's threads, newest update first.
// clientFilter narrows the listing to one client by display name; an empty
// filter covers every client. Individual documents that fail to read or
// parse are logged and skipped rather than failing the whole listing.
func (r *Repository) List(ctx context.Context, owner string, includeArchived bool, clientFilter string) ([]Summary, error) {
	if owner == "" {
		return nil, invalidInput("owner identity is required")
	}
	clientSlug := ""
	if clientFilter != "" {
		clientSlug = blobpath.SlugifyClientName(clientFilter)
	}

	prefixes := []string{r.layout.ThreadPrefix(owner, clientSlug, false)}
	if includeArchived {
		prefixes = append(prefixes, r.layout.ThreadPrefix(owner, clientSlug, true))
	}

	summaries := []Summary{}
	var listErr error
	for _, prefix := range prefixes {
		objects, err := r.gw.ListPrefix(ctx, prefix)
		if err != nil {
			log.Printf("thread: list %s: %v", prefix, err)
			listErr = err
			continue
		}
		for _, obj := range objects {
			if !blobpath.IsThreadObject(obj.Path) {
				continue
			}
			doc, err := r.Load(ctx, obj.Path)
			if err != nil {
				log.Printf("thread: skipping %s: %v", obj.Path, err)
				continue
			}
			summaries = append(summaries, Summary{
				ThreadID:     doc.ThreadID,
				Title:        doc.Metadata.Title,
				ClientName:   doc.Metadata.ClientName,
				ProjectType:  doc.Metadata.ProjectType,
				Status:       doc.Metadata.Status,
				Priority:     doc.Metadata.Priority,
				CreatedAt:    doc.Metadata.CreatedAt,
				LastUpdated:  doc.Metadata.LastUpdated,
				MessageCount: doc.Metadata.MessageCount,
				Path:         obj.Path,
				IsArchived:   blobpath.IsArchivedPath(obj.Path),
			})
		}
	}
	if len(summaries) == 0 && listErr != nil {
		return nil, listErr
	}

	// ISO-8601 timestamps in the same zone compare lexically
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastUpdated > summaries[j].LastUpdated
	})
	return summaries, nil
}
