package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Ning0612/unfold/internal/adapter/local"
	"github.com/Ning0612/unfold/internal/config"
	"github.com/Ning0612/unfold/internal/domain"
	"github.com/Ning0612/unfold/internal/logger"
	"github.com/Ning0612/unfold/internal/prompt"
	"github.com/Ning0612/unfold/internal/report"
	"github.com/Ning0612/unfold/internal/service"
	"github.com/Ning0612/unfold/internal/state"
)

// flag name -> config key
var boundFlags = map[string]string{
	"dest-dir":              "dest_dir",
	"flatten":               "flatten",
	"separator":             "separator",
	"dry-run":               "dry_run",
	"file-types":            "file_types",
	"delete-after-download": "delete_after_download",
	"interactive":           "interactive",
	"exclude":               "exclude",
	"log-level":             "log.level",
	"log-format":            "log.format",
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "unfold remote_name source_dir",
		Short: "Copy or move a remote directory tree to local storage, optionally flattened",
		Long: `unfold lists a remote source directory, plans where every file lands locally,
copies the planned files, verifies them by size and optionally deletes the
verified files from the remote.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			showRemotes, _ := cmd.Flags().GetBool("show-remotes")
			listTopDirs, _ := cmd.Flags().GetBool("list-remote-top-dirs")

			switch {
			case listTopDirs && len(args) < 1:
				return fmt.Errorf("%w: remote_name is required with --list-remote-top-dirs", domain.ErrConfigInvalid)
			case !showRemotes && !listTopDirs && len(args) != 2:
				return fmt.Errorf("%w: the following arguments are required: remote_name, source_dir", domain.ErrConfigInvalid)
			}

			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			if err := initLogger(cfg); err != nil {
				return err
			}
			defer logger.Shutdown()

			ctx := cmd.Context()
			store, err := local.New(cfg.DestDir)
			if err != nil {
				return err
			}
			reg := newRegistry(cfg, store)
			out := cmd.OutOrStdout()

			if showRemotes {
				remotes, err := reg.remotes(ctx)
				if err != nil {
					return err
				}
				report.Remotes(out, remotes)
			}
			if listTopDirs {
				if err := listRemoteTopDirs(ctx, cmd, reg, args[0]); err != nil {
					return err
				}
			}
			if showRemotes || listTopDirs {
				return nil
			}

			return runPipeline(ctx, cmd, cfg, reg, store, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.StringP("dest-dir", "d", "", "local destination directory (default ~/Downloads)")
	flags.Bool("flatten", false, "collapse nested directories into one directory per source directory")
	flags.StringP("separator", "s", "", "separator joining directory names when flattening (default \"_\")")
	flags.Bool("dry-run", false, "show the plan without copying or deleting anything")
	flags.Bool("show-remotes", false, "list configured remotes and exit")
	flags.BoolP("list-remote-top-dirs", "l", false, "list the top-level directories of remote_name and exit")
	flags.StringSliceP("file-types", "f", nil, "only copy these file types: images, videos, docs, audio")
	flags.Bool("delete-after-download", false, "delete verified files from the remote after copying")
	flags.BoolP("interactive", "i", false, "ask for confirmation before copying and before deleting")
	flags.StringSlice("exclude", nil, "glob of remote paths to skip (repeatable)")
	flags.Bool("no-history", false, "do not record this run in the history database")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: pretty, text, json")
	cmd.PersistentFlags().StringP("config", "c", "", "config file (default: unfold.yaml in the config search path)")

	cmd.AddCommand(newHistoryCmd(v))
	return cmd
}

// loadConfig binds the command's flags on top of file and environment values
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	for name, key := range boundFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, err
	}

	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.History = false
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) error {
	lc := logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Format:  logger.ParseFormat(cfg.Log.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}
	if cfg.Log.File != "" {
		lc.Outputs = append(lc.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		lc.File = logger.FileConfig{
			Enabled:    true,
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		}
	}
	return logger.Init(lc)
}

func listRemoteTopDirs(ctx context.Context, cmd *cobra.Command, reg *registry, name string) error {
	remote, err := reg.open(ctx, name)
	if err != nil {
		return err
	}
	defer remote.Close()

	dirs, err := remote.ListTopDirs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list top-level directories of %s: %w", name, err)
	}
	report.TopDirs(cmd.OutOrStdout(), remote.Name(), dirs)
	return nil
}

func runPipeline(ctx context.Context, cmd *cobra.Command, cfg *config.Config, reg *registry, store *local.Store, remoteName, source string) error {
	remote, err := reg.open(ctx, remoteName)
	if err != nil {
		return err
	}
	defer remote.Close()

	if !cfg.DryRun {
		if err := store.EnsureRoot(); err != nil {
			return err
		}
	}
	cfg.DestDir = store.Root()

	p := service.NewPipeline(remote, store)
	p.SetOutput(cmd.OutOrStdout())
	p.SetLockDir(cfg.LockDir())
	p.SetProgressReporter(newLogReporter())
	if cfg.Interactive {
		p.SetConfirmer(prompt.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout()))
	}

	if cfg.History {
		history, err := state.NewManager(cfg.HistoryPath())
		if err != nil {
			logger.Get().Warn("run history disabled", "error", err)
		} else {
			defer history.Close()
			p.SetHistory(history)
		}
	}

	_, err = p.Run(ctx, service.Request{Source: source, Config: cfg})
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, domain.ErrCancelled) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Operation cancelled.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
