package domain

// ExclusionReason explains why a plan entry is not transferred
type ExclusionReason string

const (
	ExclusionNone       ExclusionReason = "none"
	ExclusionTypeFilter ExclusionReason = "type-filter"
	ExclusionPattern    ExclusionReason = "pattern"
)

// PlanEntry is the planner's verdict for one catalog entry
type PlanEntry struct {
	Entry    CatalogEntry
	Category Category

	// LocalPath is computed for every entry, excluded ones included
	LocalPath string

	Included bool
	Reason   ExclusionReason
}

// Collision records included entries that resolve to the same local path.
// The last remote path in plan order is the one left on disk.
type Collision struct {
	LocalPath   string
	RemotePaths []string
}

// TransferPlan is the ordered result of planning; one entry per catalog entry
type TransferPlan struct {
	// Root is the remote source directory
	Root string

	// Entries preserve catalog order
	Entries []PlanEntry

	// Collisions among included entries
	Collisions []Collision

	Stats TransferPlanStats
}

// TransferPlanStats provides summary statistics for a plan
type TransferPlanStats struct {
	TotalFiles        int
	Included          int
	Excluded          int
	ExcludedByType    int
	ExcludedByPattern int
	BytesIncluded     int64
	BytesTotal        int64
}

// Included returns the committed transfer set in plan order
func (p *TransferPlan) Included() []PlanEntry {
	out := make([]PlanEntry, 0, p.Stats.Included)
	for _, e := range p.Entries {
		if e.Included {
			out = append(out, e)
		}
	}
	return out
}

// Excluded returns entries held back from transfer in plan order
func (p *TransferPlan) Excluded() []PlanEntry {
	out := make([]PlanEntry, 0, p.Stats.Excluded)
	for _, e := range p.Entries {
		if !e.Included {
			out = append(out, e)
		}
	}
	return out
}

// TransferOutcome is the per-entry result reported by a transfer sink
type TransferOutcome string

const (
	OutcomeCopied  TransferOutcome = "copied"
	OutcomeSkipped TransferOutcome = "skipped"
	OutcomeFailed  TransferOutcome = "failed"
)

// TransferResult is the outcome for one plan entry
type TransferResult struct {
	Path    string
	Outcome TransferOutcome
	Err     error
}

// Verdict is the post-transfer state of one included entry
type Verdict string

const (
	VerdictValid        Verdict = "valid"
	VerdictMissing      Verdict = "missing"
	VerdictSizeMismatch Verdict = "size-mismatch"
)

// Validation pairs an included entry with its verdict
type Validation struct {
	Entry        PlanEntry
	Verdict      Verdict
	ExpectedSize int64
	ActualSize   int64

	// Shadowed marks a missing entry whose local path was overwritten by a
	// later entry of the same plan. Its own content is not on disk.
	Shadowed bool

	// Err is the probe error that degraded the verdict to missing, if any
	Err error
}

// DeletionStrategy selects how the remote source is removed
type DeletionStrategy string

const (
	DeletionBulk      DeletionStrategy = "bulk"
	DeletionSelective DeletionStrategy = "selective"
)

// DeletionDecision is the single deletion decision of a run.
// Paths always holds the remote paths of valid entries, for bulk decisions too,
// so a failed purge can fall back without recomputation.
type DeletionDecision struct {
	Strategy DeletionStrategy
	Root     string
	Paths    []string
}

// DeletionFailure records a remote path that could not be deleted
type DeletionFailure struct {
	Path string
	Err  error
}

// DeletionResult is what the deletion sinks actually did
type DeletionResult struct {
	Decision  *DeletionDecision
	Purged    bool
	Fallback  bool
	Deleted   []string
	Failures  []DeletionFailure
	PurgeErr  error
	Cancelled bool
}
