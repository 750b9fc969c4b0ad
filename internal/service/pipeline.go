package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Ning0612/unfold/internal/adapter"
	"github.com/Ning0612/unfold/internal/config"
	"github.com/Ning0612/unfold/internal/core/deletion"
	"github.com/Ning0612/unfold/internal/core/planner"
	"github.com/Ning0612/unfold/internal/core/stats"
	"github.com/Ning0612/unfold/internal/core/validator"
	"github.com/Ning0612/unfold/internal/domain"
	"github.com/Ning0612/unfold/internal/lock"
	"github.com/Ning0612/unfold/internal/logger"
	"github.com/Ning0612/unfold/internal/progress"
	"github.com/Ning0612/unfold/internal/prompt"
	"github.com/Ning0612/unfold/internal/report"
	"github.com/Ning0612/unfold/internal/state"
)

// HistoryRecorder stores finished runs and returns the latest one per source
type HistoryRecorder interface {
	SaveRun(record state.RunRecord) (string, error)
	LastRun(remote, source string) (*state.RunRecord, error)
}

// Request is one run over one remote source directory
type Request struct {
	Source string
	Config *config.Config
}

// Result is everything a run produced. Stages that were not reached are nil.
type Result struct {
	RunID       string
	Plan        *domain.TransferPlan
	Transfers   []domain.TransferResult
	Validations []domain.Validation
	Decision    *domain.DeletionDecision
	Deletion    *domain.DeletionResult
	Stats       stats.Statistics
	States      []domain.RunState

	// Declined is set when the operator stopped the run at the configuration prompt
	Declined bool
}

// FinalState returns the last state reached, empty if nothing was planned
func (r *Result) FinalState() domain.RunState {
	if len(r.States) == 0 {
		return ""
	}
	return r.States[len(r.States)-1]
}

// Status maps the result onto a history status
func (r *Result) Status() state.RunStatus {
	switch {
	case r.Declined:
		return state.StatusCancelled
	case r.Stats.DryRun:
		return state.StatusDryRun
	case r.Stats.Success():
		return state.StatusSuccess
	default:
		return state.StatusPartial
	}
}

// Pipeline runs the single linear pass:
// list, plan, transfer, validate, decide, delete
type Pipeline struct {
	remote    adapter.Remote
	probe     adapter.LocalProbe
	confirmer prompt.Confirmer
	history   HistoryRecorder
	lockDir   string
	reporter  progress.Reporter
	out       io.Writer
}

// NewPipeline creates a pipeline over an opened remote and the local probe
func NewPipeline(remote adapter.Remote, probe adapter.LocalProbe) *Pipeline {
	return &Pipeline{
		remote: remote,
		probe:  probe,
		out:    io.Discard,
	}
}

// SetConfirmer sets the prompt used in interactive mode
func (p *Pipeline) SetConfirmer(c prompt.Confirmer) {
	p.confirmer = c
}

// SetHistory enables run history
func (p *Pipeline) SetHistory(h HistoryRecorder) {
	p.history = h
}

// SetLockDir enables the per-source run lock
func (p *Pipeline) SetLockDir(dir string) {
	p.lockDir = dir
}

// SetProgressReporter sets the progress reporter for transfers
func (p *Pipeline) SetProgressReporter(reporter progress.Reporter) {
	p.reporter = reporter
}

// SetOutput sets where the textual report is written
func (p *Pipeline) SetOutput(w io.Writer) {
	p.out = w
}

func (p *Pipeline) getConfirmer(cfg *config.Config) prompt.Confirmer {
	if !cfg.Interactive {
		return nil
	}
	if p.confirmer != nil {
		return p.confirmer
	}
	return prompt.Stdio()
}

// Run executes one run. Configuration and listing errors are returned before
// anything is transferred; per-file failures are recorded in the result.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	cfg := req.Config
	if cfg == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", domain.ErrConfigInvalid)
	}
	source := domain.CleanRoot(req.Source)
	remoteName := p.remote.Name()

	filter, err := cfg.TypeFilter()
	if err != nil {
		return nil, err
	}
	planr, err := planner.NewDefaultPlanner(planner.Options{
		Rule: domain.FlattenRule{
			Root:      source,
			DestRoot:  cfg.DestDir,
			Separator: cfg.Separator,
			Flatten:   cfg.Flatten,
		},
		Filter:  filter,
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: state.NewRunID()}
	log := logger.Get().With("run_id", res.RunID, "remote", remoteName, "source", source)
	start := time.Now()

	if p.lockDir != "" {
		fileLock, err := lock.NewFileLock(p.lockDir, remoteName, source)
		if err != nil {
			return nil, err
		}
		if err := fileLock.Acquire(res.RunID); err != nil {
			log.Error("failed to acquire run lock", "error", err)
			return nil, err
		}
		defer func() {
			if err := fileLock.Release(); err != nil {
				log.Error("failed to release run lock", "error", err)
			}
		}()
	}

	runErr := p.run(ctx, log, req, source, planr, res)
	res.Stats = stats.Collect(stats.Input{
		Plan:        res.Plan,
		Flattener:   planr.Flattener,
		Transfers:   res.Transfers,
		Validations: res.Validations,
		Deletion:    res.Deletion,
		DryRun:      cfg.DryRun,
		Elapsed:     time.Since(start),
	})

	if res.Plan != nil {
		report.Statistics(p.out, res.Stats, cfg.Flatten)
	}
	p.record(log, req, source, start, res, runErr)

	if runErr != nil {
		return res, runErr
	}

	log.Info("run finished",
		"state", res.FinalState(),
		"copied", res.Stats.FilesCopied,
		"failed", res.Stats.FilesFailed,
		"elapsed", res.Stats.ExecutionTime.Round(time.Millisecond),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log logger.Logger, req Request, source string, planr *planner.DefaultPlanner, res *Result) error {
	cfg := req.Config
	confirmer := p.getConfirmer(cfg)
	remoteName := p.remote.Name()

	report.Configuration(p.out, remoteName, source, cfg, p.lastRun(log, remoteName, source))
	if confirmer != nil {
		ok, err := confirmer.Confirm(ctx, "Do you want to proceed with these settings?", true)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("run declined at configuration prompt")
			fmt.Fprintln(p.out, "Operation cancelled by user.")
			res.Declined = true
			return nil
		}
	}

	log.Info("listing remote source")
	catalog, err := p.remote.ListRecursive(ctx, source)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("source directory %s:%s: %w", remoteName, source, err)
		}
		return fmt.Errorf("failed to list %s:%s: %w", remoteName, source, err)
	}

	trail := &domain.RunTrail{}
	defer func() { res.States = trail.States() }()

	res.Plan = planr.Plan(catalog)
	if err := trail.Advance(domain.StatePlanned); err != nil {
		return err
	}
	log.Info("run planned",
		"files", res.Plan.Stats.TotalFiles,
		"included", res.Plan.Stats.Included,
		"excluded", res.Plan.Stats.Excluded,
		"size", humanize.IBytes(uint64(res.Plan.Stats.BytesIncluded)),
	)
	for _, c := range res.Plan.Collisions {
		log.Warn("local path written more than once", "path", c.LocalPath, "sources", c.RemotePaths)
	}
	report.Plan(p.out, remoteName, res.Plan)

	included := res.Plan.Included()
	opts := adapter.TransferOptions{DryRun: cfg.DryRun, Reporter: progress.OrNull(p.reporter)}

	if cfg.DryRun {
		res.Transfers = p.remote.Copy(ctx, source, included, opts)
		fmt.Fprintln(p.out, "\n--- Dry Run Complete ---")
		fmt.Fprintln(p.out, "The above copy operations would be performed. No files were copied.")
		return trail.Advance(domain.StateSkipped)
	}

	res.Transfers = p.remote.Copy(ctx, source, included, opts)
	if err := trail.Advance(domain.StateTransferred); err != nil {
		return err
	}
	for _, t := range res.Transfers {
		if t.Outcome == domain.OutcomeFailed {
			log.Warn("transfer failed", "path", t.Path, "error", t.Err)
		}
	}

	res.Validations = validator.New(p.probe).Validate(ctx, res.Plan)
	if err := trail.Advance(domain.StateValidated); err != nil {
		return err
	}
	summary := validator.Summarize(res.Validations)
	log.Info("validation finished",
		"valid", summary.Valid,
		"missing", summary.Missing,
		"size_mismatch", summary.SizeMismatch,
	)

	// Never delete on an interrupted run
	if err := ctx.Err(); err != nil {
		return err
	}

	res.Decision = deletion.Decide(res.Plan, res.Validations, deletion.Request{
		Requested: cfg.DeleteAfterDownload,
		DryRun:    cfg.DryRun,
	})
	if res.Decision == nil {
		if cfg.DeleteAfterDownload {
			log.Warn("nothing validated, remote source left untouched")
		}
		return trail.Advance(domain.StateSkipped)
	}
	if err := trail.Advance(domain.StateDeletionDecided); err != nil {
		return err
	}
	log.Info("deletion decided", "strategy", res.Decision.Strategy, "files", len(res.Decision.Paths))

	if confirmer != nil {
		fmt.Fprintf(p.out, "\nAbout to delete %d validated files from remote '%s' (%s)\n",
			len(res.Decision.Paths), remoteName, res.Decision.Strategy)
		ok, err := confirmer.Confirm(ctx, "Are you sure you want to delete these files from the remote?", false)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("deletion declined, files remain on remote")
			res.Deletion = &domain.DeletionResult{Decision: res.Decision, Cancelled: true}
			return trail.Advance(domain.StateSkipped)
		}
	}

	res.Deletion = p.delete(ctx, log, trail, res.Decision)
	return nil
}

// delete carries out a decision. A failed purge falls back to deleting the
// same valid set one file at a time.
func (p *Pipeline) delete(ctx context.Context, log logger.Logger, trail *domain.RunTrail, decision *domain.DeletionDecision) *domain.DeletionResult {
	result := &domain.DeletionResult{Decision: decision}

	if decision.Strategy == domain.DeletionBulk {
		_ = trail.Advance(domain.StateBulkAttempted)

		log.Info("purging remote source", "dir", decision.Root)
		err := p.remote.Purge(ctx, decision.Root)
		if err == nil {
			result.Purged = true
			result.Deleted = append([]string(nil), decision.Paths...)
			_ = trail.Advance(domain.StateBulkExecuted)
			return result
		}

		log.Warn("purge failed, falling back to per-file deletion", "dir", decision.Root, "error", err)
		result.PurgeErr = err
		result.Fallback = true
		_ = trail.Advance(domain.StateSelectiveFallback)
		decision = deletion.Fallback(decision)
	}

	for _, path := range decision.Paths {
		if err := p.remote.DeleteOne(ctx, path); err != nil {
			log.Warn("failed to delete remote file", "path", path, "error", err)
			result.Failures = append(result.Failures, domain.DeletionFailure{Path: path, Err: err})
			continue
		}
		log.Debug("deleted remote file", "path", path)
		result.Deleted = append(result.Deleted, path)
	}
	_ = trail.Advance(domain.StateSelectiveExecuted)

	log.Info("deletion finished", "deleted", len(result.Deleted), "failed", len(result.Failures))
	return result
}

func (p *Pipeline) record(log logger.Logger, req Request, source string, start time.Time, res *Result, runErr error) {
	if p.history == nil {
		return
	}

	rec := state.RunRecord{
		RunID:         res.RunID,
		Remote:        p.remote.Name(),
		Source:        source,
		DestDir:       req.Config.DestDir,
		StartTime:     start,
		EndTime:       time.Now(),
		Status:        res.Status(),
		DryRun:        req.Config.DryRun,
		FilesIncluded: res.Stats.FilesIncluded,
		FilesCopied:   res.Stats.FilesCopied,
		FilesFailed:   res.Stats.FilesFailed,
		BytesCopied:   copiedBytes(res),
	}
	rec.FinalState = string(res.FinalState())
	if res.Deletion != nil {
		rec.FilesDeleted = len(res.Deletion.Deleted)
		rec.Strategy = string(res.Deletion.Decision.Strategy)
	}
	if runErr != nil {
		rec.Status = state.StatusFailed
		rec.Error = runErr.Error()
	}

	if _, err := p.history.SaveRun(rec); err != nil {
		log.Warn("failed to record run history", "error", err)
	}
}

// lastRun returns the previous run over the same source, if any
func (p *Pipeline) lastRun(log logger.Logger, remote, source string) *state.RunRecord {
	if p.history == nil {
		return nil
	}
	rec, err := p.history.LastRun(remote, source)
	if err != nil {
		log.Warn("failed to read run history", "error", err)
		return nil
	}
	return rec
}

func copiedBytes(res *Result) int64 {
	if res.Plan == nil {
		return 0
	}
	sizes := make(map[string]int64, len(res.Plan.Entries))
	for _, e := range res.Plan.Entries {
		sizes[e.Entry.Path] = e.Entry.Size
	}
	var total int64
	for _, t := range res.Transfers {
		if t.Outcome == domain.OutcomeCopied {
			total += sizes[t.Path]
		}
	}
	return total
}
