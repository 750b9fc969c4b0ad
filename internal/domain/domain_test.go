package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogEntry_PathParts(t *testing.T) {
	e := CatalogEntry{Path: "2023/01_January/vacation/IMG_001.jpg"}

	assert.Equal(t, []string{"2023", "01_January", "vacation"}, e.Dir())
	assert.Equal(t, "IMG_001.jpg", e.Name())
	assert.Equal(t, 3, e.Depth())
	assert.Equal(t, "Photos/2023/01_January/vacation/IMG_001.jpg", e.RemotePath("/Photos/"))

	top := CatalogEntry{Path: "file.txt"}
	assert.Empty(t, top.Dir())
	assert.Equal(t, 0, top.Depth())
	assert.Equal(t, "file.txt", top.RemotePath(""))
}

func TestCleanRoot(t *testing.T) {
	tests := map[string]string{
		"media/misc":   "media/misc",
		"/media/misc/": "media/misc",
		"media//misc":  "media/misc",
		"":             "",
		"/":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanRoot(in), "CleanRoot(%q)", in)
	}
}

func TestParseTypeFilter(t *testing.T) {
	f, err := ParseTypeFilter([]string{"videos", "images"})
	require.NoError(t, err)

	assert.False(t, f.IsEmpty())
	assert.True(t, f.Allows(CategoryImage))
	assert.True(t, f.Allows(CategoryVideo))
	assert.False(t, f.Allows(CategoryOther))
	assert.Equal(t, []Category{CategoryImage, CategoryVideo}, f.Categories())

	_, err = ParseTypeFilter([]string{"spreadsheets"})
	assert.True(t, errors.Is(err, ErrUnknownFileType))
}

func TestTypeFilter_ZeroValueAllowsEverything(t *testing.T) {
	var f TypeFilter
	for _, c := range AllCategories {
		assert.True(t, f.Allows(c), "category %s", c)
	}
	assert.Nil(t, f.Categories())
}

func TestRunTrail_Transitions(t *testing.T) {
	var trail RunTrail
	require.NoError(t, trail.Advance(StatePlanned))
	require.NoError(t, trail.Advance(StateTransferred))
	require.NoError(t, trail.Advance(StateValidated))
	require.NoError(t, trail.Advance(StateDeletionDecided))
	require.NoError(t, trail.Advance(StateBulkAttempted))
	require.NoError(t, trail.Advance(StateSelectiveFallback))
	require.NoError(t, trail.Advance(StateSelectiveExecuted))

	assert.True(t, trail.Current().IsTerminal())
	assert.Len(t, trail.States(), 7)
}

func TestRunTrail_RejectsIllegalTransition(t *testing.T) {
	var trail RunTrail
	require.NoError(t, trail.Advance(StatePlanned))

	err := trail.Advance(StateValidated)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.Equal(t, StatePlanned, trail.Current())
}
