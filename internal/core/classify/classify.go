package classify

import (
	"fmt"
	"path"
	"strings"

	"github.com/Ning0612/unfold/internal/domain"
)

// Table maps a category to its file extensions (with or without leading dot)
type Table map[domain.Category][]string

// DefaultTable returns the built-in extension table
func DefaultTable() Table {
	return Table{
		domain.CategoryImage: {
			".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp", ".svg",
			".ico", ".heic", ".heif", ".raw", ".dng", ".cr2", ".nef", ".arw",
		},
		domain.CategoryVideo: {
			".mp4", ".avi", ".mov", ".wmv", ".flv", ".webm", ".mkv", ".m4v", ".3gp",
			".ogv", ".ts", ".mts", ".m2ts", ".vob", ".asf", ".rm", ".rmvb",
		},
		domain.CategoryDoc: {
			".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt", ".rtf",
			".odt", ".ods", ".odp", ".pages", ".numbers", ".key", ".csv", ".epub",
		},
		domain.CategoryAudio: {
			".mp3", ".wav", ".flac", ".aac", ".ogg", ".wma", ".m4a", ".opus", ".aiff",
			".au", ".ra", ".amr", ".3ga", ".mka",
		},
	}
}

// Classifier maps file names to categories. It is immutable after construction.
type Classifier struct {
	byExt map[string]domain.Category
}

// NewClassifier builds a classifier from a table.
// An extension listed under two categories is rejected.
func NewClassifier(table Table) (*Classifier, error) {
	byExt := make(map[string]domain.Category)
	for category, exts := range table {
		if !category.IsValid() || category == domain.CategoryOther {
			return nil, fmt.Errorf("classifier: unsupported category %q", category)
		}
		for _, ext := range exts {
			key := normalizeExt(ext)
			if key == "" {
				continue
			}
			if prev, ok := byExt[key]; ok && prev != category {
				return nil, fmt.Errorf("classifier: extension %s mapped to both %s and %s", key, prev, category)
			}
			byExt[key] = category
		}
	}
	return &Classifier{byExt: byExt}, nil
}

// NewDefaultClassifier creates a classifier over DefaultTable
func NewDefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultTable())
	if err != nil {
		panic(err) // the built-in table is consistent
	}
	return c
}

// Classify returns the category of a file name or path. Unknown → other.
func (c *Classifier) Classify(filename string) domain.Category {
	ext := normalizeExt(path.Ext(filename))
	if ext == "" {
		return domain.CategoryOther
	}
	if category, ok := c.byExt[ext]; ok {
		return category
	}
	return domain.CategoryOther
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
