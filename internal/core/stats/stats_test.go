package stats

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/unfold/internal/core/planner"
	"github.com/Ning0612/unfold/internal/domain"
)

func TestCollect(t *testing.T) {
	p, err := planner.NewDefaultPlanner(planner.Options{
		Rule:   domain.FlattenRule{Root: "Photos", DestRoot: "dest", Separator: "_", Flatten: true},
		Filter: domain.NewTypeFilter(domain.CategoryImage, domain.CategoryVideo),
	})
	require.NoError(t, err)

	plan := p.Plan([]domain.CatalogEntry{
		{Path: "2023/01/a.jpg", Size: 10},
		{Path: "2023/01/b.mov", Size: 20},
		{Path: "2023/notes.txt", Size: 5},
		{Path: "top.png", Size: 1},
	})

	included := plan.Included()
	transfers := []domain.TransferResult{
		{Path: included[0].Entry.Path, Outcome: domain.OutcomeCopied},
		{Path: included[1].Entry.Path, Outcome: domain.OutcomeFailed, Err: errors.New("boom")},
		{Path: included[2].Entry.Path, Outcome: domain.OutcomeCopied},
	}
	validations := []domain.Validation{
		{Entry: included[0], Verdict: domain.VerdictValid},
		{Entry: included[1], Verdict: domain.VerdictMissing},
		{Entry: included[2], Verdict: domain.VerdictValid},
	}
	deletion := &domain.DeletionResult{
		Decision: &domain.DeletionDecision{Strategy: domain.DeletionSelective, Paths: []string{"Photos/2023/01/a.jpg", "Photos/top.png"}},
		Deleted:  []string{"Photos/2023/01/a.jpg"},
		Failures: []domain.DeletionFailure{{Path: "Photos/top.png", Err: errors.New("denied")}},
	}

	s := Collect(Input{
		Plan:        plan,
		Flattener:   p.Flattener,
		Transfers:   transfers,
		Validations: validations,
		Deletion:    deletion,
		Elapsed:     2 * time.Second,
	})

	assert.Equal(t, 4, s.TotalFiles)
	assert.Equal(t, int64(36), s.TotalBytes)
	assert.Equal(t, int64(31), s.IncludedBytes)
	assert.Equal(t, 2, s.FilesByType[domain.CategoryImage])
	assert.Equal(t, 1, s.FilesByType[domain.CategoryVideo])
	assert.Equal(t, 1, s.FilesByType[domain.CategoryDoc])
	assert.Equal(t, 2, s.SourceDirs)
	assert.Equal(t, 2, s.MaxDepth)
	assert.Equal(t, 3, s.FilesIncluded)
	assert.Equal(t, 1, s.FilesExcluded)
	assert.Equal(t, []string{"2023/notes.txt"}, s.ExcludedPaths)
	// "2023/01" -> "2023_01" and top level -> "Photos"
	assert.Equal(t, 2, s.Transformed)
	assert.Equal(t, 2, s.DirsCreated)
	assert.Equal(t, 2, s.FilesCopied)
	assert.Equal(t, 1, s.FilesFailed)

	require.NotNil(t, s.Validation)
	assert.Equal(t, 2, s.Validation.Valid)
	assert.Len(t, s.Validation.MissingFiles, 1)

	require.NotNil(t, s.Deletion)
	assert.Equal(t, 2, s.Deletion.ToDelete)
	assert.Equal(t, 1, s.Deletion.Deleted)
	assert.Len(t, s.Deletion.Failed, 1)

	assert.False(t, s.Success())
}

func TestCollect_DryRunHasNoValidation(t *testing.T) {
	p, err := planner.NewDefaultPlanner(planner.Options{
		Rule: domain.FlattenRule{Root: "r", DestRoot: "dest"},
	})
	require.NoError(t, err)

	s := Collect(Input{Plan: p.Plan([]domain.CatalogEntry{{Path: "a.txt", Size: 1}}), DryRun: true})
	assert.True(t, s.DryRun)
	assert.Nil(t, s.Validation)
	assert.Nil(t, s.Deletion)
	assert.Equal(t, 0, s.Transformed)
	assert.True(t, s.Success())
}

func TestCollect_NilPlan(t *testing.T) {
	s := Collect(Input{})
	assert.Equal(t, 0, s.TotalFiles)
	assert.NotNil(t, s.FilesByType)
}
