package flatten

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Ning0612/unfold/internal/domain"
)

// Flattener computes local destination paths for remote relative paths
type Flattener struct {
	rule     domain.FlattenRule
	rootBase string
}

// New creates a flattener for a rule. The separator is validated only when
// flattening is enabled, since it is unused otherwise.
func New(rule domain.FlattenRule) (*Flattener, error) {
	if rule.Flatten {
		if err := ValidateSeparator(rule.Separator); err != nil {
			return nil, err
		}
	}
	rule.Root = domain.CleanRoot(rule.Root)

	var base string
	if segs := domain.SplitPath(rule.Root); len(segs) > 0 {
		base = segs[len(segs)-1]
	}

	return &Flattener{rule: rule, rootBase: base}, nil
}

// ValidateSeparator rejects separators that would reintroduce path structure
func ValidateSeparator(sep string) error {
	if sep == "" {
		return fmt.Errorf("%w: separator cannot be empty", domain.ErrInvalidSeparator)
	}
	if strings.ContainsAny(sep, "/\\\x00") {
		return fmt.Errorf("%w: %q contains a path separator", domain.ErrInvalidSeparator, sep)
	}
	return nil
}

// Rule returns the (normalized) rule
func (f *Flattener) Rule() domain.FlattenRule {
	return f.rule
}

// LocalPath maps a path relative to the source root onto the destination.
//
//	flatten=false:            dest/d1/.../dn/file
//	flatten=true, dirs:       dest/d1<sep>...<sep>dn/file
//	flatten=true, top level:  dest/<last segment of root>/file
func (f *Flattener) LocalPath(relPath string) string {
	segs := domain.SplitPath(relPath)
	if len(segs) == 0 {
		return filepath.Clean(f.rule.DestRoot)
	}
	name := segs[len(segs)-1]

	dir := f.SyntheticDir(relPath)
	if dir == "" {
		return filepath.Join(f.rule.DestRoot, name)
	}
	return filepath.Join(f.rule.DestRoot, dir, name)
}

// SyntheticDir returns the local directory component (relative to the
// destination, OS separators) that LocalPath places the file in.
func (f *Flattener) SyntheticDir(relPath string) string {
	segs := domain.SplitPath(relPath)
	if len(segs) <= 1 {
		if f.rule.Flatten {
			return f.rootBase
		}
		return ""
	}
	dirs := segs[:len(segs)-1]

	if !f.rule.Flatten {
		return filepath.Join(dirs...)
	}
	return strings.Join(dirs, f.rule.Separator)
}

// RemoteDir returns the slash separated source directory of relPath ("" at the root)
func RemoteDir(relPath string) string {
	segs := domain.SplitPath(relPath)
	if len(segs) <= 1 {
		return ""
	}
	return strings.Join(segs[:len(segs)-1], "/")
}
