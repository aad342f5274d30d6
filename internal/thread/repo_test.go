package thread

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"peaksuite/api/internal/blobpath"
	"peaksuite/api/internal/objstore"
)

func testRepo() (*Repository, *objstore.Memory) {
	gw := objstore.NewMemory()
	repo := NewRepository(gw, blobpath.NewLayout(""))
	return repo, gw
}

func rawMessages(bodies ...string) []json.RawMessage {
	msgs := make([]json.RawMessage, 0, len(bodies))
	for _, body := range bodies {
		raw, _ := json.Marshal(map[string]string{"role": "user", "content": body})
		msgs = append(msgs, raw)
	}
	return msgs
}

func mustCreate(t *testing.T, repo *Repository, in CreateInput) (string, string) {
	t.Helper()
	id, path, err := repo.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id, path
}

func TestCreateThreadIDFormat(t *testing.T) {
	repo, _ := testRepo()
	pattern := regexp.MustCompile(`^thread_\d+_[0-9a-z]{9}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id, _, err := repo.Create(context.Background(), CreateInput{
			Owner:      "jane.doe@firm.com",
			ClientName: "Acme Corp",
			Title:      "Q1 Review",
			Messages:   rawMessages("hello"),
		})
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("thread id %q does not match pattern", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate thread id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestCreateStoresAtExpectedPath(t *testing.T) {
	repo, gw := testRepo()
	repo.SetClock(func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) })

	_, path := mustCreate(t, repo, CreateInput{
		Owner:      "jane.doe@firm.com",
		ClientName: "Acme Corp",
		Title:      "Q1 Review",
		Messages:   rawMessages("hello"),
	})

	wantPrefix := "Reports-view/jane_doe_firm_com/client-files/acme-corp/threads/[THREAD] Q1 Review - General - "
	if !strings.HasPrefix(path, wantPrefix) || !strings.HasSuffix(path, ".json") {
		t.Errorf("unexpected path %q", path)
	}

	exists, err := gw.Exists(context.Background(), path)
	if err != nil || !exists {
		t.Errorf("thread not written at %q (exists=%v, err=%v)", path, exists, err)
	}

	if got := blobpath.DeriveClientDisplayName("acme-corp"); got != "Acme Corp" {
		t.Errorf("derived display name = %q, want Acme Corp", got)
	}
}

func TestCreateValidation(t *testing.T) {
	repo, _ := testRepo()
	ctx := context.Background()
	base := CreateInput{
		Owner:      "jane.doe@firm.com",
		ClientName: "Acme Corp",
		Title:      "Q1 Review",
		Messages:   rawMessages("hi"),
	}

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing owner", func(in *CreateInput) { in.Owner = "" }},
		{"missing client", func(in *CreateInput) { in.ClientName = "" }},
		{"missing title", func(in *CreateInput) { in.Title = "" }},
		{"empty messages", func(in *CreateInput) { in.Messages = nil }},
	}
	for _, tc := range cases {
		in := base
		tc.mutate(&in)
		if _, _, err := repo.Create(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestLoadNotFound(t *testing.T) {
	repo, _ := testRepo()
	_, err := repo.Load(context.Background(), "Reports-view/u/client-files/c/threads/[THREAD] x.json")
	if !errors.Is(err, objstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePreservesUnpatchedFields(t *testing.T) {
	repo, _ := testRepo()
	ctx := context.Background()

	created := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return created })
	_, path := mustCreate(t, repo, CreateInput{
		Owner:      "jane.doe@firm.com",
		ClientName: "Acme Corp",
		Title:      "Q1 Review",
		Status:     "Active",
		Priority:   "Normal",
		Messages:   rawMessages("one", "two"),
	})

	updated := created.Add(time.Hour)
	repo.SetClock(func() time.Time { return updated })

	closed := "Closed"
	if err := repo.Update(ctx, path, MetadataPatch{Status: &closed}, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	doc, err := repo.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Metadata.Status != "Closed" {
		t.Errorf("status = %q, want Closed", doc.Metadata.Status)
	}
	if doc.Metadata.Priority != "Normal" {
		t.Errorf("priority = %q, unpatched field must survive", doc.Metadata.Priority)
	}
	if doc.Metadata.MessageCount != 2 || len(doc.Conversation) != 2 {
		t.Errorf("conversation changed without a message patch: count=%d len=%d", doc.Metadata.MessageCount, len(doc.Conversation))
	}
	if doc.Metadata.LastUpdated <= doc.Metadata.CreatedAt {
		t.Errorf("lastUpdated not bumped: %q vs %q", doc.Metadata.LastUpdated, doc.Metadata.CreatedAt)
	}
}

func TestUpdateReplacesConversation(t *testing.T) {
	repo, _ := testRepo()
	ctx := context.Background()

	_, path := mustCreate(t, repo, CreateInput{
		Owner:      "jane.doe@firm.com",
		ClientName: "Acme Corp",
		Title:      "Q1 Review",
		Messages:   rawMessages("one"),
	})

	if err := repo.Update(ctx, path, MetadataPatch{}, rawMessages("a", "b", "c")); err != nil {
		t.Fatalf("Update: %v", err)
	}

	doc, err := repo.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Metadata.MessageCount != 3 || len(doc.Conversation) != 3 {
		t.Errorf("expected 3 messages, got count=%d len=%d", doc.Metadata.MessageCount, len(doc.Conversation))
	}
}

func TestUpdateNotFound(t *testing.T) {
	repo, _ := testRepo()
	err := repo.Update(context.Background(), "Reports-view/u/client-files/c/threads/[THREAD] x.json", MetadataPatch{}, nil)
	if !errors.Is(err, objstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestArchive(t *testing.T) {
	repo, _ := testRepo()
	ctx := context.Background()

	_, path := mustCreate(t, repo, CreateInput{
		Owner:      "jane.doe@firm.com",
		ClientName: "Acme Corp",
		Title:      "Q1 Review",
		Messages:   rawMessages("hello"),
	})
	before, err := repo.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load before archive: %v", err)
	}

	newPath, err := repo.Archive(ctx, path)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if newPath != strings.Replace(path, "/client-files/", "/archive/", 1) {
		t.Errorf("archive path %q does not mirror source %q", newPath, path)
	}

	if _, err := repo.Load(ctx, path); !errors.Is(err, objstore.ErrNotFound) {
		t.Errorf("source still readable after archive: %v", err)
	}

	after, err := repo.Load(ctx, newPath)
	if err != nil {
		t.Fatalf("Load archived copy: %v", err)
	}
	if after.ThreadID != before.ThreadID || after.Metadata.Title != before.Metadata.Title {
		t.Errorf("archived document differs from original")
	}

	// Archiving the same source again fails: the source is gone.
	if _, err := repo.Archive(ctx, path); !errors.Is(err, objstore.ErrNotFound) {
		t.Errorf("second archive: expected ErrNotFound, got %v", err)
	}
}

func TestListSortsByLastUpdatedDesc(t *testing.T) {
	repo, _ := testRepo()
	ctx := context.Background()

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		repo.SetClock(func() time.Time { return at })
		id, _ := mustCreate(t, repo, CreateInput{
			Owner:      "jane.doe@firm.com",
			ClientName: "Acme Corp",
			Title:      "Review",
			Messages:   rawMessages("hi"),
		})
		ids = append(ids, id)
	}

	summaries, err := repo.List(ctx, "jane.doe@firm.com", false, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
	// T3, T2, T1
	for i := 0; i < 3; i++ {
		if summaries[i].ThreadID != ids[2-i] {
			t.Errorf("position %d: expected %s, got %s", i, ids[2-i], summaries[i].ThreadID)
		}
	}
}

func TestListArchiveFiltering(t *testing.T) {
	repo, _ := testRepo()
	ctx := context.Background()

	_, activePath := mustCreate(t, repo, CreateInput{
		Owner:      "jane.doe@firm.com",
		ClientName: "Acme Corp",
		Title:      "Active One",
		Messages:   rawMessages("hi"),
	})
	_, toArchive := mustCreate(t, repo, CreateInput{
		Owner:      "jane.doe@firm.com",
		ClientName: "Acme Corp",
		Title:      "Old One",
		Messages:   rawMessages("hi"),
	})
	if _, err := repo.Archive(ctx, toArchive); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	activeOnly, err := repo.List(ctx, "jane.doe@firm.com", false, "")
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if len(activeOnly) != 1 || activeOnly[0].Path != activePath {
		t.Fatalf("expected only the active thread, got %+v", activeOnly)
	}
	for _, s := range activeOnly {
		if strings.Contains(s.Path, "/archive/") {
			t.Errorf("active listing leaked archived path %q", s.Path)
		}
	}

	all, err := repo.List(ctx, "jane.doe@firm.com", true, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 threads with archive included, got %d", len(all))
	}
	archivedSeen := false
	for _, s := range all {
		if s.IsArchived {
			archivedSeen = true
			if !strings.Contains(s.Path, "/archive/") {
				t.Errorf("summary marked archived but path is %q", s.Path)
			}
		}
	}
	if !archivedSeen {
		t.Error("archived thread missing from includeArchived listing")
	}
}

func TestListClientFilter(t *testing.T) {
	repo, _ := testRepo()
	ctx := context.Background()

	mustCreate(t, repo, CreateInput{
		Owner: "jane.doe@firm.com", ClientName: "Acme Corp", Title: "A", Messages: rawMessages("x"),
	})
	mustCreate(t, repo, CreateInput{
		Owner: "jane.doe@firm.com", ClientName: "Globex", Title: "B", Messages: rawMessages("x"),
	})

	summaries, err := repo.List(ctx, "jane.doe@firm.com", true, "Acme Corp")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ClientName != "Acme Corp" {
		t.Errorf("client filter failed: %+v", summaries)
	}
}

func TestListSkipsMalformedDocuments(t *testing.T) {
	repo, gw := testRepo()
	ctx := context.Background()

	mustCreate(t, repo, CreateInput{
		Owner: "jane.doe@firm.com", ClientName: "Acme Corp", Title: "Good", Messages: rawMessages("x"),
	})
	bad := "Reports-view/jane_doe_firm_com/client-files/acme-corp/threads/[THREAD] Bad - General - ts.json"
	if err := gw.Write(ctx, bad, []byte("{not json"), "application/json", nil); err != nil {
		t.Fatalf("write bad doc: %v", err)
	}

	summaries, err := repo.List(ctx, "jane.doe@firm.com", false, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Title != "Good" {
		t.Errorf("expected the parse failure to be skipped, got %+v", summaries)
	}
}

func TestListIgnoresNonThreadObjects(t *testing.T) {
	repo, gw := testRepo()
	ctx := context.Background()

	mustCreate(t, repo, CreateInput{
		Owner: "jane.doe@firm.com", ClientName: "Acme Corp", Title: "Good", Messages: rawMessages("x"),
	})
	for _, p := range []string{
		"Reports-view/jane_doe_firm_com/client-files/acme-corp/threads/notes.json",
		"Reports-view/jane_doe_firm_com/client-files/acme-corp/report.pdf",
	} {
		if err := gw.Write(ctx, p, []byte("{}"), "", nil); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	summaries, err := repo.List(ctx, "jane.doe@firm.com", false, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("expected 1 thread, got %d", len(summaries))
	}
}
