package domain

import (
	"path"
	"strings"
	"time"
)

// CatalogEntry describes one remote file from a single listing snapshot.
// Entries are immutable once listed; identity is Path.
type CatalogEntry struct {
	// Path is the slash separated path relative to the scanned source root
	Path string

	// Size in bytes as reported by the remote
	Size int64

	// ModTime is the remote modification time (zero if the backend omits it)
	ModTime time.Time

	// MimeType as reported by the backend, informational only
	MimeType string
}

// Segments splits Path into its components, dropping empty ones
func (e CatalogEntry) Segments() []string {
	return SplitPath(e.Path)
}

// Dir returns the directory segments (path minus file name)
func (e CatalogEntry) Dir() []string {
	segs := e.Segments()
	if len(segs) <= 1 {
		return nil
	}
	return segs[:len(segs)-1]
}

// Name returns the file name
func (e CatalogEntry) Name() string {
	segs := e.Segments()
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Depth returns the number of directory levels above the file
func (e CatalogEntry) Depth() int {
	return len(e.Dir())
}

// RemotePath returns the path of the entry on the remote, including the source root
func (e CatalogEntry) RemotePath(root string) string {
	return JoinRemote(root, e.Path)
}

// SplitPath splits a slash separated path into non-empty segments
func SplitPath(p string) []string {
	parts := strings.Split(p, "/")
	segs := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segs = append(segs, part)
		}
	}
	return segs
}

// CleanRoot normalizes a remote source directory: no leading or trailing slashes
func CleanRoot(root string) string {
	return strings.Join(SplitPath(root), "/")
}

// JoinRemote joins a remote root and a relative path with forward slashes
func JoinRemote(root, rel string) string {
	root = CleanRoot(root)
	if root == "" {
		return CleanRoot(rel)
	}
	return path.Join(root, rel)
}
