package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ning0612/unfold/internal/adapter"
	"github.com/Ning0612/unfold/internal/adapter/local"
	"github.com/Ning0612/unfold/internal/adapter/rclone"
	"github.com/Ning0612/unfold/internal/adapter/s3"
	"github.com/Ning0612/unfold/internal/config"
	"github.com/Ning0612/unfold/internal/domain"
	"github.com/Ning0612/unfold/internal/logger"
)

// registry resolves remote names across backends. Remotes declared in the
// config file take precedence over rclone remotes of the same name.
type registry struct {
	cfg      *config.Config
	declared *s3.Backend
	rclone   *rclone.Backend

	rcloneChecked bool
	rcloneErr     error
}

func newRegistry(cfg *config.Config, store *local.Store) *registry {
	var s3Remotes []s3.Config
	for _, name := range cfg.RemoteNames() {
		rc := cfg.Remotes[name]
		s3Remotes = append(s3Remotes, s3.Config{
			Name:            name,
			Bucket:          rc.Bucket,
			Region:          rc.Region,
			Endpoint:        rc.Endpoint,
			PathStyle:       rc.PathStyle,
			AccessKeyID:     rc.AccessKeyID,
			SecretAccessKey: rc.SecretAccessKey,
		})
	}

	return &registry{
		cfg:      cfg,
		declared: s3.New(s3Remotes, store),
		rclone:   rclone.New(rclone.NewExecRunner(cfg.RcloneBinary), store),
	}
}

// checkRclone runs `rclone version` once per registry
func (r *registry) checkRclone(ctx context.Context) error {
	if r.rcloneChecked {
		return r.rcloneErr
	}
	r.rcloneChecked = true

	version, err := r.rclone.CheckInstalled(ctx)
	if err != nil {
		r.rcloneErr = fmt.Errorf("'%s' command not found. Is rclone installed and in your PATH? %w", r.cfg.RcloneBinary, err)
		return r.rcloneErr
	}
	logger.Get().Debug("rclone found", "version", version)
	return nil
}

// remotes lists declared remotes followed by rclone's. rclone is skipped with
// a warning when it isn't installed.
func (r *registry) remotes(ctx context.Context) ([]domain.RemoteInfo, error) {
	all, err := r.declared.Remotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s remotes: %w", r.declared.Type(), err)
	}

	if err := r.checkRclone(ctx); err != nil {
		logger.Get().Warn("backend unavailable", "backend", r.rclone.Type(), "error", err)
		return all, nil
	}
	remotes, err := r.rclone.Remotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s remotes: %w", r.rclone.Type(), err)
	}
	return append(all, remotes...), nil
}

// open returns the named remote. Names declared in the config file match
// case-insensitively; rclone names are passed through as typed.
func (r *registry) open(ctx context.Context, name string) (adapter.Remote, error) {
	if _, err := r.cfg.GetRemote(name); err == nil {
		remote, err := r.declared.Open(ctx, name)
		if err != nil {
			return nil, err
		}
		logger.Get().Debug("remote opened", "remote", name, "backend", r.declared.Type())
		return remote, nil
	}

	if err := r.checkRclone(ctx); err != nil {
		return nil, err
	}
	remote, err := r.rclone.Open(ctx, name)
	if errors.Is(err, domain.ErrRemoteNotFound) {
		return nil, fmt.Errorf("%w: %s (see --show-remotes)", domain.ErrRemoteNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	logger.Get().Debug("remote opened", "remote", name, "backend", r.rclone.Type())
	return remote, nil
}
