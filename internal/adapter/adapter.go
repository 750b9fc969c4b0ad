package adapter

import (
	"context"

	"github.com/Ning0612/unfold/internal/domain"
	"github.com/Ning0612/unfold/internal/progress"
)

// CatalogSource lists a remote source directory
type CatalogSource interface {
	// ListRecursive returns every file under root with paths relative to root.
	// Returns domain.ErrNotFound if root doesn't exist; never a partial listing.
	ListRecursive(ctx context.Context, root string) ([]domain.CatalogEntry, error)
}

// TransferOptions configures a Copy call
type TransferOptions struct {
	// DryRun reports every entry as skipped without performing I/O
	DryRun bool

	// Reporter receives per-file progress; nil means no reporting
	Reporter progress.Reporter
}

// TransferSink copies planned entries to their computed local paths
type TransferSink interface {
	// Copy transfers entries (all included) from root and returns one result per
	// entry, in the same order. Per-entry failures are reported, not returned.
	Copy(ctx context.Context, root string, entries []domain.PlanEntry, opts TransferOptions) []domain.TransferResult
}

// DeletionSink removes remote data
type DeletionSink interface {
	// Purge removes a whole remote directory
	Purge(ctx context.Context, dir string) error

	// DeleteOne removes a single remote file
	DeleteOne(ctx context.Context, path string) error
}

// Remote is an opened remote with all collaborator capabilities
type Remote interface {
	CatalogSource
	TransferSink
	DeletionSink

	// Name returns the remote name as given by the operator
	Name() string

	// ListTopDirs returns the top-level directories of the remote, sorted
	ListTopDirs(ctx context.Context) ([]string, error)

	// Close releases any resources held by the remote
	Close() error
}

// Backend knows a family of remotes
type Backend interface {
	// Type identifies the backend
	Type() domain.RemoteType

	// Remotes returns the remotes this backend can open
	Remotes(ctx context.Context) ([]domain.RemoteInfo, error)

	// Open returns a remote by name.
	// Returns domain.ErrRemoteNotFound if the backend doesn't know the name.
	Open(ctx context.Context, name string) (Remote, error)
}

// LocalStat is what the probe knows about a local path
type LocalStat struct {
	Exists bool
	Size   int64
}

// LocalProbe inspects local storage after a transfer
type LocalProbe interface {
	// Stat returns Exists=false with a nil error when the path is absent
	Stat(path string) (LocalStat, error)
}
