package stats

import (
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Ning0612/unfold/internal/core/flatten"
	"github.com/Ning0612/unfold/internal/core/validator"
	"github.com/Ning0612/unfold/internal/domain"
)

// Statistics is the end-of-run summary
type Statistics struct {
	DryRun bool

	TotalFiles    int
	FilesByType   map[domain.Category]int
	TotalBytes    int64
	IncludedBytes int64
	SourceDirs    int
	MaxDepth      int
	FilesIncluded int
	FilesExcluded int
	ExcludedPaths []string
	Collisions    []domain.Collision
	Transformed   int
	DirsCreated   int
	FilesCopied   int
	FilesFailed   int
	FilesSkipped  int
	Validation    *ValidationStats
	Deletion      *DeletionStats
	ExecutionTime time.Duration
}

// ValidationStats summarizes verdicts, with the failing entries
type ValidationStats struct {
	validator.Summary
	MissingFiles      []domain.Validation
	SizeMismatchFiles []domain.Validation
}

// DeletionStats summarizes what deletion did
type DeletionStats struct {
	Strategy  domain.DeletionStrategy
	Fallback  bool
	Cancelled bool
	ToDelete  int
	Deleted   int
	Failed    []domain.DeletionFailure
}

// Input is everything a run produced; nil stages were not reached
type Input struct {
	Plan        *domain.TransferPlan
	Flattener   *flatten.Flattener
	Transfers   []domain.TransferResult
	Validations []domain.Validation
	Deletion    *domain.DeletionResult
	DryRun      bool
	Elapsed     time.Duration
}

// Collect folds a run into statistics. Pure summation.
func Collect(in Input) Statistics {
	s := Statistics{
		DryRun:        in.DryRun,
		FilesByType:   make(map[domain.Category]int),
		ExecutionTime: in.Elapsed,
	}
	if in.Plan == nil {
		return s
	}

	sourceDirs := mapset.NewThreadUnsafeSet[string]()
	localDirs := mapset.NewThreadUnsafeSet[string]()
	transformed := mapset.NewThreadUnsafeSet[string]()

	for _, e := range in.Plan.Entries {
		s.TotalFiles++
		s.TotalBytes += e.Entry.Size
		s.FilesByType[e.Category]++
		if d := e.Entry.Depth(); d > s.MaxDepth {
			s.MaxDepth = d
		}

		remoteDir := flatten.RemoteDir(e.Entry.Path)
		if remoteDir != "" {
			sourceDirs.Add(remoteDir)
		}

		if !e.Included {
			s.FilesExcluded++
			s.ExcludedPaths = append(s.ExcludedPaths, e.Entry.Path)
			continue
		}

		s.FilesIncluded++
		s.IncludedBytes += e.Entry.Size
		localDirs.Add(filepath.Dir(e.LocalPath))

		if in.Flattener != nil && in.Flattener.Rule().Flatten {
			synthetic := in.Flattener.SyntheticDir(e.Entry.Path)
			if synthetic != remoteDir {
				transformed.Add(synthetic)
			}
		}
	}

	s.SourceDirs = sourceDirs.Cardinality()
	s.DirsCreated = localDirs.Cardinality()
	s.Transformed = transformed.Cardinality()
	s.Collisions = in.Plan.Collisions

	for _, t := range in.Transfers {
		switch t.Outcome {
		case domain.OutcomeCopied:
			s.FilesCopied++
		case domain.OutcomeFailed:
			s.FilesFailed++
		case domain.OutcomeSkipped:
			s.FilesSkipped++
		}
	}

	if in.Validations != nil {
		vs := &ValidationStats{Summary: validator.Summarize(in.Validations)}
		for _, v := range in.Validations {
			switch v.Verdict {
			case domain.VerdictMissing:
				vs.MissingFiles = append(vs.MissingFiles, v)
			case domain.VerdictSizeMismatch:
				vs.SizeMismatchFiles = append(vs.SizeMismatchFiles, v)
			}
		}
		s.Validation = vs
	}

	if d := in.Deletion; d != nil && d.Decision != nil {
		s.Deletion = &DeletionStats{
			Strategy:  d.Decision.Strategy,
			Fallback:  d.Fallback,
			Cancelled: d.Cancelled,
			ToDelete:  len(d.Decision.Paths),
			Deleted:   len(d.Deleted),
			Failed:    d.Failures,
		}
	}

	return s
}

// Success reports whether the run left nothing unverified or undeleted
func (s Statistics) Success() bool {
	if s.FilesFailed > 0 {
		return false
	}
	if s.Validation != nil && s.Validation.Valid != s.Validation.Total {
		return false
	}
	if s.Deletion != nil && len(s.Deletion.Failed) > 0 {
		return false
	}
	return true
}
