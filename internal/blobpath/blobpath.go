// Package blobpath derives object storage paths for workspace files.
//
// Every path is built forward from a known owner identity and client
// display name. Identity encoding is lossy (both "@" and "." map to "_"),
// so nothing here attempts to decode an owner folder back to an email
// address; client folder slugs are decoded for display only.
package blobpath

import (
	"errors"
	"path"
	"strings"
	"time"
	"unicode"
)

// DefaultRoot is the top-level prefix all workspace files live under.
const DefaultRoot = "Reports-view"

const (
	activeSegment  = "client-files"
	archiveSegment = "archive"
	threadsSegment = "threads"

	threadFilePrefix = "[THREAD]"
	threadFileSuffix = ".json"
)

var ErrNotActivePath = errors.New("path is not under an active client-files folder")

// EncodeIdentity maps an email address to a folder-safe slug. Both "@" and
// "." become "_", which makes the encoding non-injective; callers must never
// try to reverse it.
func EncodeIdentity(identity string) string {
	return strings.NewReplacer("@", "_", ".", "_").Replace(identity)
}

// SlugifyClientName converts a client display name to its folder slug:
// lowercased, whitespace runs collapsed to single hyphens, everything
// outside [a-z0-9-] dropped.
func SlugifyClientName(displayName string) string {
	lower := strings.ToLower(strings.TrimSpace(displayName))

	var b strings.Builder
	lastHyphen := false
	for _, r := range lower {
		switch {
		case unicode.IsSpace(r), r == '-':
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// DeriveClientDisplayName reconstructs a display name from a folder slug.
// Display-only: "o-brien-co" comes back as "O Brien Co" regardless of what
// the original name looked like.
func DeriveClientDisplayName(folderSlug string) string {
	parts := strings.Split(folderSlug, "-")
	words := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		words = append(words, strings.ToUpper(part[:1])+part[1:])
	}
	return strings.Join(words, " ")
}

// ThreadFilename builds the canonical thread file name. Colons and dots in
// the timestamp are replaced with hyphens so the name stays portable.
func ThreadFilename(title, projectType string, t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return threadFilePrefix + " " + title + " - " + projectType + " - " + ts + threadFileSuffix
}

// IsThreadObject reports whether an object path looks like a persisted
// thread document.
func IsThreadObject(objectPath string) bool {
	if !strings.Contains(objectPath, "/"+threadsSegment+"/") {
		return false
	}
	name := path.Base(objectPath)
	return strings.HasPrefix(name, threadFilePrefix) && strings.HasSuffix(name, threadFileSuffix)
}

// IsArchivedPath reports whether a thread path lives under an archive
// folder. Archival state is carried entirely by the path; thread documents
// have no archived flag.
func IsArchivedPath(objectPath string) bool {
	return strings.Contains(objectPath, "/"+archiveSegment+"/")
}

// ArchivePath rewrites an active thread path to its archive location by
// substituting the first client-files segment.
func ArchivePath(objectPath string) (string, error) {
	needle := "/" + activeSegment + "/"
	if !strings.Contains(objectPath, needle) {
		return "", ErrNotActivePath
	}
	return strings.Replace(objectPath, needle, "/"+archiveSegment+"/", 1), nil
}

// Layout builds full paths under a configured root prefix.
type Layout struct {
	Root string
}

func NewLayout(root string) Layout {
	if root == "" {
		root = DefaultRoot
	}
	return Layout{Root: root}
}

// OwnerPrefix is the root folder for a workspace owner.
func (l Layout) OwnerPrefix(owner string) string {
	return l.Root + "/" + EncodeIdentity(owner) + "/"
}

// ClientFilesPrefix is the folder that holds one subfolder per client.
func (l Layout) ClientFilesPrefix(owner string) string {
	return l.OwnerPrefix(owner) + activeSegment + "/"
}

// ThreadPrefix is the listing prefix for an owner's threads. An empty
// clientSlug covers every client under the owner.
func (l Layout) ThreadPrefix(owner, clientSlug string, archived bool) string {
	family := activeSegment
	if archived {
		family = archiveSegment
	}
	prefix := l.OwnerPrefix(owner) + family + "/"
	if clientSlug != "" {
		prefix += clientSlug + "/"
	}
	return prefix
}

// ThreadPath is the full object path for a thread file.
func (l Layout) ThreadPath(owner, clientDisplayName, filename string, archived bool) string {
	family := activeSegment
	if archived {
		family = archiveSegment
	}
	return l.OwnerPrefix(owner) + family + "/" + SlugifyClientName(clientDisplayName) + "/" + threadsSegment + "/" + filename
}
