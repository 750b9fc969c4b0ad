package rclone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Ning0612/unfold/internal/adapter"
	"github.com/Ning0612/unfold/internal/adapter/local"
	"github.com/Ning0612/unfold/internal/core/flatten"
	"github.com/Ning0612/unfold/internal/domain"
	"github.com/Ning0612/unfold/internal/logger"
	"github.com/Ning0612/unfold/internal/progress"
)

// Remote is one rclone remote
type Remote struct {
	runner Runner
	store  *local.Store
	name   string
}

var _ adapter.Remote = (*Remote)(nil)

// Name implements adapter.Remote
func (r *Remote) Name() string {
	return r.name
}

// Close implements adapter.Remote
func (r *Remote) Close() error {
	return nil
}

// target builds the remote:path argument
func (r *Remote) target(p string) string {
	return r.name + ":" + domain.CleanRoot(p)
}

type lsjsonItem struct {
	Path     string    `json:"Path"`
	Name     string    `json:"Name"`
	Size     int64     `json:"Size"`
	MimeType string    `json:"MimeType"`
	ModTime  time.Time `json:"ModTime"`
	IsDir    bool      `json:"IsDir"`
}

// ListRecursive implements adapter.CatalogSource
func (r *Remote) ListRecursive(ctx context.Context, root string) ([]domain.CatalogEntry, error) {
	res, err := r.runner.Run(ctx, "lsjson", "-R", "--files-only", r.target(root))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.target(root), err)
	}

	var items []lsjsonItem
	if err := json.Unmarshal([]byte(res.Stdout), &items); err != nil {
		return nil, fmt.Errorf("%w: parsing listing of %s: %v", domain.ErrBackend, r.target(root), err)
	}

	entries := make([]domain.CatalogEntry, 0, len(items))
	for _, item := range items {
		if item.IsDir {
			continue
		}
		entries = append(entries, domain.CatalogEntry{
			Path:     item.Path,
			Size:     item.Size,
			ModTime:  item.ModTime,
			MimeType: item.MimeType,
		})
	}

	logger.Get().Debug("listed rclone source", "remote", r.name, "root", root, "files", len(entries))
	return entries, nil
}

// copyGroup is a maximal run of consecutive entries sharing a remote
// directory and a local directory; one rclone copy serves the whole group
type copyGroup struct {
	remoteDir string
	localDir  string
	indexes   []int
}

// Copy implements adapter.TransferSink.
// Groups run in plan order, so the last writer of a local path wins.
func (r *Remote) Copy(ctx context.Context, root string, entries []domain.PlanEntry, opts adapter.TransferOptions) []domain.TransferResult {
	results := make([]domain.TransferResult, len(entries))
	for i, e := range entries {
		results[i] = domain.TransferResult{Path: e.Entry.Path, Outcome: domain.OutcomeSkipped}
	}
	if opts.DryRun {
		return results
	}

	reporter := progress.OrNull(opts.Reporter)
	var totalBytes int64
	for _, e := range entries {
		totalBytes += e.Entry.Size
	}
	reporter.SetTotal(len(entries), totalBytes)

	groups := r.group(entries, results, reporter)
	for _, g := range groups {
		err := ctx.Err()
		if err == nil {
			err = r.copyGroup(ctx, root, g, entries)
		}
		if err != nil {
			logger.Get().Warn("rclone copy failed", "remote", r.name, "dir", g.remoteDir, "files", len(g.indexes), "error", err)
		}

		for _, idx := range g.indexes {
			reporter.Start(entries[idx].Entry.Path, entries[idx].Entry.Size)
			if err != nil {
				results[idx].Outcome = domain.OutcomeFailed
				results[idx].Err = err
				reporter.Fail(err)
				continue
			}
			results[idx].Outcome = domain.OutcomeCopied
			reporter.Complete()
		}
	}

	return results
}

// group splits entries into copy groups. Entries whose local path escapes the
// destination are failed immediately and left out of every group.
func (r *Remote) group(entries []domain.PlanEntry, results []domain.TransferResult, reporter progress.Reporter) []copyGroup {
	var groups []copyGroup
	for i, e := range entries {
		localPath, err := r.store.Resolve(e.LocalPath)
		if err != nil {
			results[i].Outcome = domain.OutcomeFailed
			results[i].Err = err
			reporter.Start(e.Entry.Path, e.Entry.Size)
			reporter.Fail(err)
			continue
		}

		remoteDir := flatten.RemoteDir(e.Entry.Path)
		localDir := filepath.Dir(localPath)
		if n := len(groups); n > 0 && groups[n-1].remoteDir == remoteDir && groups[n-1].localDir == localDir {
			groups[n-1].indexes = append(groups[n-1].indexes, i)
			continue
		}
		groups = append(groups, copyGroup{remoteDir: remoteDir, localDir: localDir, indexes: []int{i}})
	}
	return groups
}

func (r *Remote) copyGroup(ctx context.Context, root string, g copyGroup, entries []domain.PlanEntry) error {
	list, err := os.CreateTemp("", "unfold-files-*.txt")
	if err != nil {
		return fmt.Errorf("creating file list: %w", err)
	}
	defer os.Remove(list.Name())

	var names strings.Builder
	for _, idx := range g.indexes {
		names.WriteString(entries[idx].Entry.Name())
		names.WriteByte('\n')
	}
	_, writeErr := list.WriteString(names.String())
	closeErr := list.Close()
	if writeErr != nil {
		return fmt.Errorf("writing file list: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("writing file list: %w", closeErr)
	}

	source := r.target(domain.JoinRemote(root, g.remoteDir))
	logger.Get().Debug("rclone copy", "source", source, "dest", g.localDir, "files", len(g.indexes))

	if _, err := r.runner.Run(ctx, "copy", source, g.localDir, "--files-from-raw", list.Name(), "--no-traverse"); err != nil {
		return fmt.Errorf("copying %s: %w", source, err)
	}
	return nil
}

// Purge implements adapter.DeletionSink
func (r *Remote) Purge(ctx context.Context, dir string) error {
	if domain.CleanRoot(dir) == "" {
		return fmt.Errorf("%w: refusing to purge the root of %s", domain.ErrPermissionDenied, r.name)
	}
	if _, err := r.runner.Run(ctx, "purge", r.target(dir)); err != nil {
		return fmt.Errorf("purging %s: %w", r.target(dir), err)
	}
	return nil
}

// DeleteOne implements adapter.DeletionSink
func (r *Remote) DeleteOne(ctx context.Context, path string) error {
	if _, err := r.runner.Run(ctx, "deletefile", r.target(path)); err != nil {
		return fmt.Errorf("deleting %s: %w", r.target(path), err)
	}
	return nil
}

// ListTopDirs implements adapter.Remote
func (r *Remote) ListTopDirs(ctx context.Context) ([]string, error) {
	res, err := r.runner.Run(ctx, "lsf", r.target(""), "--dirs-only")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.target(""), err)
	}

	var dirs []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), "/")
		if line != "" {
			dirs = append(dirs, line)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
