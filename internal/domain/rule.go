package domain

import (
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Category is the semantic file type derived from a file extension
type Category string

const (
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
	CategoryDoc   Category = "doc"
	CategoryAudio Category = "audio"
	CategoryOther Category = "other"
)

// FilterCategories are the categories a type filter may request, in display order
var FilterCategories = []Category{CategoryImage, CategoryVideo, CategoryDoc, CategoryAudio}

// AllCategories includes "other", in display order
var AllCategories = []Category{CategoryImage, CategoryVideo, CategoryDoc, CategoryAudio, CategoryOther}

// IsValid checks if the category is a known value
func (c Category) IsValid() bool {
	switch c {
	case CategoryImage, CategoryVideo, CategoryDoc, CategoryAudio, CategoryOther:
		return true
	}
	return false
}

// Plural returns the CLI spelling (images, videos, docs, audio)
func (c Category) Plural() string {
	switch c {
	case CategoryImage:
		return "images"
	case CategoryVideo:
		return "videos"
	case CategoryDoc:
		return "docs"
	default:
		return string(c)
	}
}

// ParseCategory accepts both the CLI spelling and the singular form.
// "other" is not requestable from a filter.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "images", "image":
		return CategoryImage, nil
	case "videos", "video":
		return CategoryVideo, nil
	case "docs", "doc":
		return CategoryDoc, nil
	case "audio", "audios":
		return CategoryAudio, nil
	}
	return "", fmt.Errorf("%w: %q (choose from images, videos, docs, audio)", ErrUnknownFileType, s)
}

// TypeFilter is the optional set of requested categories.
// The zero value (nil set) lets every category through, including "other".
type TypeFilter struct {
	set mapset.Set[Category]
}

// NewTypeFilter builds a filter from categories
func NewTypeFilter(categories ...Category) TypeFilter {
	if len(categories) == 0 {
		return TypeFilter{}
	}
	return TypeFilter{set: mapset.NewThreadUnsafeSet(categories...)}
}

// ParseTypeFilter builds a filter from CLI values
func ParseTypeFilter(values []string) (TypeFilter, error) {
	categories := make([]Category, 0, len(values))
	for _, v := range values {
		c, err := ParseCategory(v)
		if err != nil {
			return TypeFilter{}, err
		}
		categories = append(categories, c)
	}
	return NewTypeFilter(categories...), nil
}

// IsEmpty reports whether the filter lets everything through
func (f TypeFilter) IsEmpty() bool {
	return f.set == nil || f.set.Cardinality() == 0
}

// Allows reports whether a category passes the filter
func (f TypeFilter) Allows(c Category) bool {
	if f.IsEmpty() {
		return true
	}
	return f.set.Contains(c)
}

// Categories returns the requested categories in display order
func (f TypeFilter) Categories() []Category {
	if f.IsEmpty() {
		return nil
	}
	out := f.set.ToSlice()
	sort.Slice(out, func(i, j int) bool {
		return categoryOrder(out[i]) < categoryOrder(out[j])
	})
	return out
}

func categoryOrder(c Category) int {
	for i, known := range AllCategories {
		if known == c {
			return i
		}
	}
	return len(AllCategories)
}

// FlattenRule describes how remote paths map onto the destination
type FlattenRule struct {
	// Root is the remote source directory that was scanned
	Root string

	// DestRoot is the local destination directory
	DestRoot string

	// Separator joins directory segments when Flatten is set (non-empty)
	Separator string

	// Flatten collapses nested directories into one synthetic directory
	Flatten bool
}

// RemoteType identifies the storage backend kind
type RemoteType string

const (
	RemoteRclone RemoteType = "rclone"
	RemoteS3     RemoteType = "s3"
)

// IsValid checks if the remote type is a known value
func (t RemoteType) IsValid() bool {
	switch t {
	case RemoteRclone, RemoteS3:
		return true
	}
	return false
}

// RemoteInfo is one configured remote as shown by --show-remotes
type RemoteInfo struct {
	Name string
	// Type is the backend-specific kind (drive, dropbox, s3 ...)
	Type string
	// Backend is the adapter that serves the remote
	Backend RemoteType
}
