package thread

import (
	"context"
	"sort"
	"strings"

	"peaksuite/api/internal/blobpath"
	"peaksuite/api/internal/objstore"
)

// Index derives the set of client names a workspace owner has from the
// folder structure under their client-files prefix. Nothing is stored: the
// folder tree is the source of truth.
type Index struct {
	gw     objstore.Gateway
	layout blobpath.Layout
}

func NewIndex(gw objstore.Gateway, layout blobpath.Layout) *Index {
	return &Index{gw: gw, layout: layout}
}

// ListClientNames returns the owner's distinct client display names,
// case-insensitively sorted. An owner with no clients yet gets an empty
// list, not an error.
func (i *Index) ListClientNames(ctx context.Context, owner string) ([]string, error) {
	if owner == "" {
		return nil, invalidInput("owner identity is required")
	}

	folders, err := i.gw.ListFolders(ctx, i.layout.ClientFilesPrefix(owner))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	names := []string{}
	for _, slug := range folders {
		name := blobpath.DeriveClientDisplayName(slug)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}

	sort.Slice(names, func(a, b int) bool {
		return strings.ToLower(names[a]) < strings.ToLower(names[b])
	})
	return names, nil
}
