package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"

	"github.com/Ning0612/unfold/internal/config"
	"github.com/Ning0612/unfold/internal/core/flatten"
	"github.com/Ning0612/unfold/internal/core/stats"
	"github.com/Ning0612/unfold/internal/domain"
	"github.com/Ning0612/unfold/internal/state"
)

// Display limits for long lists in the statistics report
const (
	MaxExcludedShown   = 20
	MaxMissingShown    = 10
	MaxMismatchShown   = 5
	MaxDelFailureShown = 5
)

const rule = "=================================================="

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Configuration prints the effective settings of a run. previous is the last
// recorded run over the same source, or nil.
func Configuration(w io.Writer, remote, source string, cfg *config.Config, previous *state.RunRecord) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "PROGRAM CONFIGURATION")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Remote name: %s\n", remote)
	fmt.Fprintf(w, "Source directory: %s\n", source)
	fmt.Fprintf(w, "Destination directory: %s\n", cfg.DestDir)
	fmt.Fprintf(w, "Flatten directories: %s\n", yesNo(cfg.Flatten))
	if cfg.Flatten {
		fmt.Fprintf(w, "Directory separator: '%s'\n", cfg.Separator)
	}

	filter := "All files"
	if len(cfg.FileTypes) > 0 {
		filter = strings.Join(cfg.FileTypes, ", ")
	}
	fmt.Fprintf(w, "File types filter: %s\n", filter)
	if len(cfg.Exclude) > 0 {
		fmt.Fprintf(w, "Exclude patterns: %s\n", strings.Join(cfg.Exclude, ", "))
	}
	fmt.Fprintf(w, "Dry run mode: %s\n", yesNo(cfg.DryRun))
	fmt.Fprintf(w, "Delete after download: %s\n", yesNo(cfg.DeleteAfterDownload))
	fmt.Fprintf(w, "Interactive mode: %s\n", yesNo(cfg.Interactive))
	if previous != nil {
		writePrevious(w, previous)
	}
	fmt.Fprintln(w, rule)
}

func writePrevious(w io.Writer, rec *state.RunRecord) {
	fmt.Fprintf(w, "Previous run: %s (%s, %d/%d files copied",
		humanize.Time(rec.StartTime), rec.Status, rec.FilesCopied, rec.FilesIncluded)
	if rec.FilesDeleted > 0 {
		fmt.Fprintf(w, ", %d deleted", rec.FilesDeleted)
	}
	fmt.Fprintln(w, ")")
}

// Plan prints one line per source directory with its destination directory,
// followed by any local path collisions
func Plan(w io.Writer, remote string, plan *domain.TransferPlan) {
	fmt.Fprintln(w, "\n--- Copy Plan ---")
	if plan == nil || plan.Stats.Included == 0 {
		fmt.Fprintln(w, "Nothing to copy.")
		return
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for _, e := range plan.Entries {
		if !e.Included {
			continue
		}
		remoteDir := flatten.RemoteDir(e.Entry.Path)
		if !seen.Add(remoteDir) {
			continue
		}

		src := remote + ":" + domain.JoinRemote(plan.Root, remoteDir)
		fmt.Fprintf(w, "Source: '%s' ==> Destination: '%s'\n", src, filepath.Dir(e.LocalPath))
	}

	fmt.Fprintf(w, "%d of %d files (%s) will be copied\n",
		plan.Stats.Included, plan.Stats.TotalFiles, humanize.IBytes(uint64(plan.Stats.BytesIncluded)))

	if len(plan.Collisions) > 0 {
		fmt.Fprintf(w, "\nWarning: %d local paths are written more than once; the last copy wins:\n", len(plan.Collisions))
		for _, c := range plan.Collisions {
			fmt.Fprintf(w, "  %s <= %s\n", c.LocalPath, strings.Join(c.RemotePaths, ", "))
		}
	}
}

// Statistics prints the end-of-run report
func Statistics(w io.Writer, s stats.Statistics, flattened bool) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "OPERATION STATISTICS")
	fmt.Fprintln(w, rule)

	fmt.Fprintln(w, "\nFile Statistics:")
	if s.DryRun {
		fmt.Fprintf(w, "  - Total files found: %d\n", s.TotalFiles)
	} else {
		fmt.Fprintf(w, "  - Total files listed: %d\n", s.TotalFiles)
	}

	var byType []string
	for _, c := range domain.AllCategories {
		if n := s.FilesByType[c]; n > 0 {
			byType = append(byType, fmt.Sprintf("%s: %d", c.Plural(), n))
		}
	}
	if len(byType) > 0 {
		fmt.Fprintf(w, "  - Files by type: %s\n", strings.Join(byType, ", "))
	}
	if s.TotalBytes > 0 {
		fmt.Fprintf(w, "  - Total data size: %s\n", humanize.IBytes(uint64(s.TotalBytes)))
	}
	fmt.Fprintf(w, "  - Number of directories processed: %d\n", s.SourceDirs)

	fmt.Fprintln(w, "\nPerformance Statistics:")
	fmt.Fprintf(w, "  - Execution time: %.2f seconds\n", s.ExecutionTime.Seconds())

	if s.FilesExcluded > 0 {
		fmt.Fprintln(w, "\nFilter Statistics:")
		fmt.Fprintf(w, "  - Files included: %d\n", s.FilesIncluded)
		fmt.Fprintf(w, "  - Files excluded: %d\n", s.FilesExcluded)
		fmt.Fprintln(w, "  - Excluded file paths:")
		writeLimited(w, s.ExcludedPaths, MaxExcludedShown, "files", func(p string) string { return p })
	}

	if !s.DryRun {
		fmt.Fprintln(w, "\nOperation Statistics:")
		fmt.Fprintf(w, "  - Files successfully copied: %d\n", s.FilesCopied)
		fmt.Fprintf(w, "  - Files failed: %d\n", s.FilesFailed)
		fmt.Fprintf(w, "  - Files skipped: %d\n", s.FilesSkipped)
		fmt.Fprintf(w, "  - Directories created: %d\n", s.DirsCreated)

		if v := s.Validation; v != nil {
			fmt.Fprintln(w, "\nValidation Results:")
			fmt.Fprintf(w, "  - Files validated: %d\n", v.Total)
			fmt.Fprintf(w, "  - Files valid: %d\n", v.Valid)
			fmt.Fprintf(w, "  - Files missing: %d\n", v.Missing)
			fmt.Fprintf(w, "  - Files with size mismatch: %d\n", v.SizeMismatch)
			if v.Shadowed > 0 {
				fmt.Fprintf(w, "  - Missing because a later file took the same local path: %d\n", v.Shadowed)
			}
			if len(v.MissingFiles) > 0 {
				fmt.Fprintln(w, "  - Missing files:")
				writeLimited(w, v.MissingFiles, MaxMissingShown, "missing files", func(m domain.Validation) string {
					if m.Shadowed {
						return m.Entry.Entry.Path + " (overwritten by a later file)"
					}
					return m.Entry.Entry.Path
				})
			}
			if len(v.SizeMismatchFiles) > 0 {
				fmt.Fprintln(w, "  - Size mismatch files:")
				writeLimited(w, v.SizeMismatchFiles, MaxMismatchShown, "size mismatches", func(m domain.Validation) string {
					return fmt.Sprintf("%s (expected: %d bytes, actual: %d bytes)", m.Entry.Entry.Path, m.ExpectedSize, m.ActualSize)
				})
			}
		}

		if d := s.Deletion; d != nil {
			fmt.Fprintln(w, "\nDeletion Results:")
			fmt.Fprintf(w, "  - Strategy: %s", d.Strategy)
			if d.Fallback {
				fmt.Fprint(w, " (fell back from bulk)")
			}
			fmt.Fprintln(w)
			if d.Cancelled {
				fmt.Fprintln(w, "  - Deletion cancelled by user. Files remain on remote.")
			} else {
				fmt.Fprintf(w, "  - Files deleted from remote: %d\n", d.Deleted)
				fmt.Fprintf(w, "  - Files failed to delete: %d\n", len(d.Failed))
			}
			if len(d.Failed) > 0 {
				fmt.Fprintln(w, "  - Failed deletions:")
				writeLimited(w, d.Failed, MaxDelFailureShown, "failed deletions", func(f domain.DeletionFailure) string {
					return fmt.Sprintf("%s: %v", f.Path, f.Err)
				})
			}
		}
	}

	if len(s.Collisions) > 0 {
		fmt.Fprintf(w, "\nCollisions: %d local paths written more than once (last copy kept)\n", len(s.Collisions))
	}

	if flattened {
		fmt.Fprintln(w, "\nFlattened Operations:")
		fmt.Fprintf(w, "  - Original directory structure depth: %d levels\n", s.MaxDepth)
		fmt.Fprintf(w, "  - Directory name transformations applied: %d\n", s.Transformed)
	}

	fmt.Fprintln(w, rule)
}

func writeLimited[T any](w io.Writer, items []T, limit int, noun string, format func(T) string) {
	shown := items
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for _, item := range shown {
		fmt.Fprintf(w, "    - %s\n", format(item))
	}
	if rest := len(items) - len(shown); rest > 0 {
		fmt.Fprintf(w, "    ... and %d more %s\n", rest, noun)
	}
}

// Remotes prints the configured remotes as a table
func Remotes(w io.Writer, remotes []domain.RemoteInfo) {
	if len(remotes) == 0 {
		fmt.Fprintln(w, "No remotes configured.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tBACKEND")
	fmt.Fprintln(tw, "----\t----\t-------")
	for _, r := range remotes {
		fmt.Fprintf(tw, "%s:\t%s\t%s\n", r.Name, r.Type, r.Backend)
	}
	tw.Flush()
}

// TopDirs prints the top-level directories of a remote
func TopDirs(w io.Writer, remote string, dirs []string) {
	fmt.Fprintf(w, "Top-level directories in '%s:':\n", remote)
	if len(dirs) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, d := range dirs {
		fmt.Fprintf(w, "  %s/\n", d)
	}
}

// History prints recorded runs as a table, newest first
func History(w io.Writer, records []state.RunRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSOURCE\tSTATUS\tCOPIED\tSIZE\tDELETED\tDURATION")
	fmt.Fprintln(tw, "-------\t------\t------\t------\t----\t-------\t--------")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s:%s\t%s\t%d/%d\t%s\t%d\t%s\n",
			humanize.Time(r.StartTime),
			r.Remote, r.Source,
			r.Status,
			r.FilesCopied, r.FilesIncluded,
			humanize.IBytes(uint64(r.BytesCopied)),
			r.FilesDeleted,
			r.EndTime.Sub(r.StartTime).Round(time.Second),
		)
	}
	tw.Flush()
}
