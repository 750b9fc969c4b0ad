package service

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Ning0612/unfold/internal/adapter"
	"github.com/Ning0612/unfold/internal/adapter/local"
	"github.com/Ning0612/unfold/internal/domain"
	"github.com/Ning0612/unfold/internal/state"
)

// fakeRemote serves files from memory and copies them into a local store
type fakeRemote struct {
	name  string
	store *local.Store

	// files maps the full remote path to its size
	files map[string]int64

	failCopy   map[string]bool // relative paths whose copy fails
	shortCopy  map[string]bool // relative paths written one byte short
	purgeErr   error
	deleteErrs map[string]error // full remote paths
	listErr    error

	listCalls   int
	copyCalls   int
	purged      []string
	deletedOnes []string
}

func newFakeRemote(store *local.Store) *fakeRemote {
	return &fakeRemote{
		name:       "gdrive",
		store:      store,
		files:      make(map[string]int64),
		failCopy:   make(map[string]bool),
		shortCopy:  make(map[string]bool),
		deleteErrs: make(map[string]error),
	}
}

var _ adapter.Remote = (*fakeRemote)(nil)

func (r *fakeRemote) add(path string, size int64) {
	r.files[path] = size
}

func (r *fakeRemote) Name() string { return r.name }

func (r *fakeRemote) Close() error { return nil }

func (r *fakeRemote) ListRecursive(_ context.Context, root string) ([]domain.CatalogEntry, error) {
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}

	prefix := domain.CleanRoot(root) + "/"
	var paths []string
	for p := range r.files {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Strings(paths)

	entries := make([]domain.CatalogEntry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, domain.CatalogEntry{Path: strings.TrimPrefix(p, prefix), Size: r.files[p]})
	}
	return entries, nil
}

func (r *fakeRemote) Copy(ctx context.Context, root string, entries []domain.PlanEntry, opts adapter.TransferOptions) []domain.TransferResult {
	r.copyCalls++
	results := make([]domain.TransferResult, len(entries))
	for i, e := range entries {
		results[i] = domain.TransferResult{Path: e.Entry.Path, Outcome: domain.OutcomeSkipped}
		if opts.DryRun {
			continue
		}
		if r.failCopy[e.Entry.Path] {
			results[i].Outcome = domain.OutcomeFailed
			results[i].Err = domain.ErrBackend
			continue
		}

		size := e.Entry.Size
		if r.shortCopy[e.Entry.Path] {
			size--
		}
		if _, err := r.store.Write(ctx, e.LocalPath, bytes.NewReader(bytes.Repeat([]byte("x"), int(size)))); err != nil {
			results[i].Outcome = domain.OutcomeFailed
			results[i].Err = err
			continue
		}
		results[i].Outcome = domain.OutcomeCopied
	}
	return results
}

func (r *fakeRemote) Purge(_ context.Context, dir string) error {
	r.purged = append(r.purged, dir)
	return r.purgeErr
}

func (r *fakeRemote) DeleteOne(_ context.Context, path string) error {
	if err := r.deleteErrs[path]; err != nil {
		return err
	}
	r.deletedOnes = append(r.deletedOnes, path)
	return nil
}

func (r *fakeRemote) ListTopDirs(context.Context) ([]string, error) {
	return nil, nil
}

// scriptedConfirmer answers prompts in order
type scriptedConfirmer struct {
	answers []bool
	asked   []string
}

func (c *scriptedConfirmer) Confirm(_ context.Context, message string, defaultYes bool) (bool, error) {
	c.asked = append(c.asked, message)
	if len(c.answers) == 0 {
		return defaultYes, nil
	}
	answer := c.answers[0]
	c.answers = c.answers[1:]
	return answer, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []state.RunRecord
	lastErr error
}

func (h *fakeHistory) SaveRun(record state.RunRecord) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
	return record.RunID, nil
}

func (h *fakeHistory) LastRun(remote, source string) (*state.RunRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastErr != nil {
		return nil, h.lastErr
	}
	for i := len(h.records) - 1; i >= 0; i-- {
		if h.records[i].Remote == remote && h.records[i].Source == source {
			rec := h.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}
