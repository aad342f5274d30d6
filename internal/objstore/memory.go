package objstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data         []byte
	contentType  string
	metadata     map[string]string
	lastModified time.Time
}

// Memory is an in-memory Gateway for tests. It mirrors the overwrite and
// not-found semantics of the real bucket.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

// SetClock overrides the timestamp source for deterministic tests.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Exists(_ context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[path]
	return ok, nil
}

func (m *Memory) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[path]
	if !ok {
		return nil, ErrNotFound
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, nil
}

func (m *Memory) Write(_ context.Context, path string, data []byte, contentType string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[path] = memoryObject{
		data:         stored,
		contentType:  contentType,
		metadata:     metadata,
		lastModified: m.now(),
	}
	return nil
}

func (m *Memory) Copy(_ context.Context, sourcePath, destPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.objects[sourcePath]
	if !ok {
		return ErrNotFound
	}
	data := make([]byte, len(src.data))
	copy(data, src.data)
	m.objects[destPath] = memoryObject{
		data:         data,
		contentType:  src.contentType,
		metadata:     src.metadata,
		lastModified: m.now(),
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return ErrNotFound
	}
	delete(m.objects, path)
	return nil
}

func (m *Memory) ListPrefix(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var objects []ObjectInfo
	for path, obj := range m.objects {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		objects = append(objects, ObjectInfo{
			Path:         path,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
			Metadata:     obj.metadata,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
	return objects, nil
}

func (m *Memory) ListFolders(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for path := range m.objects {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		idx := strings.Index(rest, "/")
		if idx <= 0 {
			continue
		}
		seen[rest[:idx]] = struct{}{}
	}
	folders := make([]string, 0, len(seen))
	for name := range seen {
		folders = append(folders, name)
	}
	sort.Strings(folders)
	return folders, nil
}
