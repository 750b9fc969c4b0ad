package deletion

import (
	"github.com/Ning0612/unfold/internal/core/validator"
	"github.com/Ning0612/unfold/internal/domain"
)

// Request describes whether and how deletion was asked for
type Request struct {
	Requested bool
	DryRun    bool
}

// Decide chooses between purging the source directory and deleting
// individually verified files. Returns nil when nothing should be deleted.
//
// Bulk requires the whole source to have been targeted (zero excluded entries)
// and every included entry to be valid. Otherwise the valid entries are
// deleted one by one. Excluded, missing and size-mismatched entries are never
// part of the deletion set.
func Decide(plan *domain.TransferPlan, validations []domain.Validation, req Request) *domain.DeletionDecision {
	if !req.Requested || req.DryRun || plan == nil || plan.Stats.Included == 0 {
		return nil
	}

	valid := ValidPaths(plan.Root, validations)
	if len(valid) == 0 {
		return nil
	}

	summary := validator.Summarize(validations)
	if plan.Stats.Excluded == 0 && summary.Total == plan.Stats.Included && summary.AllValid() {
		return &domain.DeletionDecision{
			Strategy: domain.DeletionBulk,
			Root:     plan.Root,
			Paths:    valid,
		}
	}

	return &domain.DeletionDecision{
		Strategy: domain.DeletionSelective,
		Root:     plan.Root,
		Paths:    valid,
	}
}

// Fallback converts a decision into per-file deletion over the same valid set,
// used when a purge fails
func Fallback(d *domain.DeletionDecision) *domain.DeletionDecision {
	if d == nil {
		return nil
	}
	paths := make([]string, len(d.Paths))
	copy(paths, d.Paths)
	return &domain.DeletionDecision{
		Strategy: domain.DeletionSelective,
		Root:     d.Root,
		Paths:    paths,
	}
}

// ValidPaths returns remote paths of valid entries, in plan order
func ValidPaths(root string, validations []domain.Validation) []string {
	var paths []string
	for _, v := range validations {
		if v.Verdict == domain.VerdictValid && v.Entry.Included {
			paths = append(paths, v.Entry.Entry.RemotePath(root))
		}
	}
	return paths
}
