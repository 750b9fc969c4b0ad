package flatten

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/unfold/internal/domain"
)

func mustNew(t *testing.T, rule domain.FlattenRule) *Flattener {
	t.Helper()
	f, err := New(rule)
	require.NoError(t, err)
	return f
}

func TestLocalPath_FlattenNestedScenario(t *testing.T) {
	f := mustNew(t, domain.FlattenRule{
		Root:      "Photos",
		DestRoot:  "dest",
		Separator: "_",
		Flatten:   true,
	})

	got := f.LocalPath("2023/01_January/vacation/IMG_001.jpg")
	assert.Equal(t, filepath.Join("dest", "2023_01_January_vacation", "IMG_001.jpg"), got)
}

func TestLocalPath_FlattenIndependentOfDepth(t *testing.T) {
	f := mustNew(t, domain.FlattenRule{Root: "r", DestRoot: "dest", Separator: "-", Flatten: true})

	for depth := 1; depth <= 8; depth++ {
		dirs := make([]string, depth)
		for i := range dirs {
			dirs[i] = "d" + strings.Repeat("x", i)
		}
		rel := strings.Join(append(append([]string{}, dirs...), "f.bin"), "/")

		want := filepath.Join("dest", strings.Join(dirs, "-"), "f.bin")
		assert.Equal(t, want, f.LocalPath(rel), "depth %d", depth)
	}
}

func TestLocalPath_FlattenTopLevelUsesRootBaseName(t *testing.T) {
	tests := []struct {
		root string
		want string
	}{
		{"media/misc", filepath.Join("dest", "misc", "file.jpg")},
		{"/media/misc/", filepath.Join("dest", "misc", "file.jpg")},
		{"Photos/2023/vacation/europe", filepath.Join("dest", "europe", "file.jpg")},
		{"misc", filepath.Join("dest", "misc", "file.jpg")},
	}

	for _, tt := range tests {
		t.Run(tt.root, func(t *testing.T) {
			f := mustNew(t, domain.FlattenRule{Root: tt.root, DestRoot: "dest", Separator: "_", Flatten: true})
			assert.Equal(t, tt.want, f.LocalPath("file.jpg"))
		})
	}
}

func TestLocalPath_MultiSegmentRootOnlyBelowRootParticipates(t *testing.T) {
	f := mustNew(t, domain.FlattenRule{
		Root:      "Photos/2023/vacation/europe",
		DestRoot:  "dest",
		Separator: "_",
		Flatten:   true,
	})

	assert.Equal(t, filepath.Join("dest", "paris_day1", "a.jpg"), f.LocalPath("paris/day1/a.jpg"))
}

func TestLocalPath_PreserveStructure(t *testing.T) {
	f := mustNew(t, domain.FlattenRule{Root: "Photos", DestRoot: "dest", Separator: "_"})

	assert.Equal(t,
		filepath.Join("dest", "2023", "01_January", "vacation", "IMG_001.jpg"),
		f.LocalPath("2023/01_January/vacation/IMG_001.jpg"))
	assert.Equal(t, filepath.Join("dest", "top.txt"), f.LocalPath("top.txt"))
}

func TestLocalPath_SeparatorNotValidatedWithoutFlatten(t *testing.T) {
	_, err := New(domain.FlattenRule{Root: "a", DestRoot: "dest"})
	assert.NoError(t, err)
}

func TestSyntheticDir(t *testing.T) {
	flat := mustNew(t, domain.FlattenRule{Root: "media/misc", DestRoot: "dest", Separator: "__", Flatten: true})
	assert.Equal(t, "a__b", flat.SyntheticDir("a/b/c.txt"))
	assert.Equal(t, "misc", flat.SyntheticDir("c.txt"))

	kept := mustNew(t, domain.FlattenRule{Root: "media/misc", DestRoot: "dest"})
	assert.Equal(t, filepath.Join("a", "b"), kept.SyntheticDir("a/b/c.txt"))
	assert.Equal(t, "", kept.SyntheticDir("c.txt"))
}

func TestValidateSeparator(t *testing.T) {
	for _, sep := range []string{"_", "-", " - ", "."} {
		assert.NoError(t, ValidateSeparator(sep), "separator %q", sep)
	}
	for _, sep := range []string{"", "/", "a/b", "\\", "x\x00"} {
		err := ValidateSeparator(sep)
		assert.True(t, errors.Is(err, domain.ErrInvalidSeparator), "separator %q", sep)
	}
}

func TestRemoteDir(t *testing.T) {
	assert.Equal(t, "", RemoteDir("a.txt"))
	assert.Equal(t, "x/y", RemoteDir("x/y/a.txt"))
}
