package planner

import (
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Ning0612/unfold/internal/core/classify"
	"github.com/Ning0612/unfold/internal/core/flatten"
	"github.com/Ning0612/unfold/internal/domain"
)

// Planner turns a catalog snapshot into a transfer plan
type Planner interface {
	Plan(catalog []domain.CatalogEntry) *domain.TransferPlan
}

// Options configures a DefaultPlanner
type Options struct {
	Rule    domain.FlattenRule
	Filter  domain.TypeFilter
	Exclude []string
}

// DefaultPlanner combines the classifier and flattener.
// It never contacts a backend; it only works over the catalog it is given.
type DefaultPlanner struct {
	Classifier *classify.Classifier
	Flattener  *flatten.Flattener
	Filter     domain.TypeFilter
	Exclude    []string
}

// NewDefaultPlanner creates a planner with the default classifier
func NewDefaultPlanner(opts Options) (*DefaultPlanner, error) {
	return NewPlanner(classify.NewDefaultClassifier(), opts)
}

// NewPlanner creates a planner with a custom classifier
func NewPlanner(c *classify.Classifier, opts Options) (*DefaultPlanner, error) {
	f, err := flatten.New(opts.Rule)
	if err != nil {
		return nil, err
	}
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: bad exclude pattern %q", domain.ErrConfigInvalid, pattern)
		}
	}
	return &DefaultPlanner{
		Classifier: c,
		Flattener:  f,
		Filter:     opts.Filter,
		Exclude:    opts.Exclude,
	}, nil
}

// Plan builds one plan entry per catalog entry, in catalog order.
// Entries are never dropped, only marked excluded.
func (p *DefaultPlanner) Plan(catalog []domain.CatalogEntry) *domain.TransferPlan {
	plan := &domain.TransferPlan{
		Root:    p.Flattener.Rule().Root,
		Entries: make([]domain.PlanEntry, 0, len(catalog)),
	}

	for _, entry := range catalog {
		category := p.Classifier.Classify(entry.Name())
		pe := domain.PlanEntry{
			Entry:     entry,
			Category:  category,
			LocalPath: p.Flattener.LocalPath(entry.Path),
			Included:  true,
			Reason:    domain.ExclusionNone,
		}

		switch {
		case !p.Filter.Allows(category):
			pe.Included = false
			pe.Reason = domain.ExclusionTypeFilter
		case shouldExclude(entry.Path, p.Exclude):
			pe.Included = false
			pe.Reason = domain.ExclusionPattern
		}

		plan.Entries = append(plan.Entries, pe)
	}

	plan.Collisions = findCollisions(plan)
	calculateStats(plan)
	return plan
}

// shouldExclude checks a path against exclude globs, both on the full
// relative path and on the file name alone
func shouldExclude(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, path.Base(relPath)); err == nil && matched {
			return true
		}
	}
	return false
}

// findCollisions groups included entries by local path, keeping plan order
func findCollisions(plan *domain.TransferPlan) []domain.Collision {
	byLocal := make(map[string][]string)
	var order []string
	for _, e := range plan.Entries {
		if !e.Included {
			continue
		}
		if _, seen := byLocal[e.LocalPath]; !seen {
			order = append(order, e.LocalPath)
		}
		byLocal[e.LocalPath] = append(byLocal[e.LocalPath], e.Entry.RemotePath(plan.Root))
	}

	var collisions []domain.Collision
	for _, local := range order {
		if remotes := byLocal[local]; len(remotes) > 1 {
			collisions = append(collisions, domain.Collision{LocalPath: local, RemotePaths: remotes})
		}
	}
	return collisions
}

// calculateStats computes summary statistics for a plan
func calculateStats(plan *domain.TransferPlan) {
	for _, e := range plan.Entries {
		plan.Stats.TotalFiles++
		plan.Stats.BytesTotal += e.Entry.Size
		if e.Included {
			plan.Stats.Included++
			plan.Stats.BytesIncluded += e.Entry.Size
			continue
		}
		plan.Stats.Excluded++
		switch e.Reason {
		case domain.ExclusionTypeFilter:
			plan.Stats.ExcludedByType++
		case domain.ExclusionPattern:
			plan.Stats.ExcludedByPattern++
		}
	}
}
