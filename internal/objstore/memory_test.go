package objstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryReadMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.Read(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryWriteOverwrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Write(ctx, "a/b", []byte("one"), "text/plain", nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := m.Write(ctx, "a/b", []byte("two"), "text/plain", nil); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	data, err := m.Read(ctx, "a/b")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "two" {
		t.Errorf("expected last write to win, got %q", data)
	}
}

func TestMemoryCopyAndDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Copy(ctx, "missing", "dest"); !errors.Is(err, ErrNotFound) {
		t.Errorf("copy of missing source: expected ErrNotFound, got %v", err)
	}

	if err := m.Write(ctx, "src", []byte("payload"), "application/json", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := m.Copy(ctx, "src", "dst"); err != nil {
		t.Fatalf("copy: %v", err)
	}

	data, err := m.Read(ctx, "dst")
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("copy content mismatch: %q", data)
	}

	if err := m.Delete(ctx, "src"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Delete(ctx, "src"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryListPrefix(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	paths := []string{"root/u/a/1", "root/u/a/2", "root/u/b/1", "other/x"}
	for _, p := range paths {
		if err := m.Write(ctx, p, []byte("x"), "", nil); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	objects, err := m.ListPrefix(ctx, "root/u/a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(objects))
	}
}

func TestMemoryListFolders(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, p := range []string{
		"root/u/client-files/acme-corp/threads/f1.json",
		"root/u/client-files/acme-corp/threads/f2.json",
		"root/u/client-files/globex/threads/f1.json",
		"root/u/archive/initech/threads/f1.json",
	} {
		if err := m.Write(ctx, p, []byte("x"), "", nil); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	folders, err := m.ListFolders(ctx, "root/u/client-files/")
	if err != nil {
		t.Fatalf("list folders: %v", err)
	}
	want := []string{"acme-corp", "globex"}
	if len(folders) != len(want) {
		t.Fatalf("expected %v, got %v", want, folders)
	}
	for i := range want {
		if folders[i] != want[i] {
			t.Errorf("folder %d: expected %q, got %q", i, want[i], folders[i])
		}
	}
}
