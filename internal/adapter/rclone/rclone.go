package rclone

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Ning0612/unfold/internal/adapter"
	"github.com/Ning0612/unfold/internal/adapter/local"
	"github.com/Ning0612/unfold/internal/domain"
	"github.com/Ning0612/unfold/internal/logger"
)

// Backend serves every remote configured in rclone
type Backend struct {
	runner Runner
	store  *local.Store
}

var _ adapter.Backend = (*Backend)(nil)

// New creates an rclone backend. store is the local destination that copies
// are confined to.
func New(runner Runner, store *local.Store) *Backend {
	return &Backend{runner: runner, store: store}
}

// Type implements adapter.Backend
func (b *Backend) Type() domain.RemoteType {
	return domain.RemoteRclone
}

// CheckInstalled verifies the binary can be executed and returns its version line
func (b *Backend) CheckInstalled(ctx context.Context) (string, error) {
	res, err := b.runner.Run(ctx, "version")
	if err != nil {
		if errors.Is(err, domain.ErrBackendUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: checking rclone version: %v", domain.ErrBackendUnavailable, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n")
	return strings.TrimSpace(line), nil
}

type remoteConfig struct {
	Type string `json:"type"`
}

// Remotes lists configured remotes from `rclone config dump`, sorted by name
func (b *Backend) Remotes(ctx context.Context) ([]domain.RemoteInfo, error) {
	res, err := b.runner.Run(ctx, "config", "dump")
	if err != nil {
		return nil, fmt.Errorf("reading rclone config: %w", err)
	}

	var dump map[string]remoteConfig
	if err := json.Unmarshal([]byte(res.Stdout), &dump); err != nil {
		return nil, fmt.Errorf("%w: parsing rclone config: %v", domain.ErrBackend, err)
	}

	remotes := make([]domain.RemoteInfo, 0, len(dump))
	for name, cfg := range dump {
		remotes = append(remotes, domain.RemoteInfo{
			Name:    name,
			Type:    cfg.Type,
			Backend: domain.RemoteRclone,
		})
	}
	sort.Slice(remotes, func(i, j int) bool { return remotes[i].Name < remotes[j].Name })

	return remotes, nil
}

// Open returns the named remote.
// Returns domain.ErrRemoteNotFound if rclone has no such remote.
func (b *Backend) Open(ctx context.Context, name string) (adapter.Remote, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ":")
	if name == "" {
		return nil, fmt.Errorf("%w: empty remote name", domain.ErrRemoteNotFound)
	}

	remotes, err := b.Remotes(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range remotes {
		if r.Name == name {
			logger.Get().Debug("opened rclone remote", "remote", name, "type", r.Type)
			return &Remote{runner: b.runner, store: b.store, name: name}, nil
		}
	}

	return nil, fmt.Errorf("%w: %q is not configured in rclone", domain.ErrRemoteNotFound, name)
}
