package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"github.com/Ning0612/unfold/internal/domain"
)

const (
	lockSuffix = ".lock"
	infoSuffix = ".info"
)

// LockInfo describes the run holding a lock
type LockInfo struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartTime time.Time `json:"start_time"`
	RunID     string    `json:"run_id,omitempty"`
	Remote    string    `json:"remote"`
	Source    string    `json:"source"`
}

// FileLock guards one remote source directory against concurrent runs.
// It is an OS advisory lock, so a crashed holder releases it implicitly.
type FileLock struct {
	path   string
	flock  *flock.Flock
	remote string
	source string
	info   *LockInfo
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Name returns the lock file name for a remote source. The readable part is
// sanitized; the hash keeps distinct sources apart after sanitizing.
func Name(remote, source string) string {
	source = domain.CleanRoot(source)
	sum := sha256.Sum256([]byte(remote + ":" + source))
	readable := unsafeChars.ReplaceAllString(remote+"_"+source, "_")
	if len(readable) > 64 {
		readable = readable[:64]
	}
	return readable + "-" + hex.EncodeToString(sum[:4]) + lockSuffix
}

// NewFileLock creates a lock for remote:source inside lockDir
func NewFileLock(lockDir, remote, source string) (*FileLock, error) {
	if lockDir == "" {
		return nil, fmt.Errorf("lock directory cannot be empty")
	}
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	path := filepath.Join(lockDir, Name(remote, source))
	return &FileLock{
		path:   path,
		flock:  flock.New(path),
		remote: remote,
		source: domain.CleanRoot(source),
	}, nil
}

// Path returns the lock file path
func (l *FileLock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking.
// Returns a *LockError wrapping domain.ErrSourceLocked if another run holds it.
func (l *FileLock) Acquire(runID string) error {
	if l.flock.Locked() {
		return nil
	}

	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}
	if !locked {
		holder, _ := l.readInfo()
		return &LockError{Holder: holder, Remote: l.remote, Source: l.source}
	}

	hostname, _ := os.Hostname()
	info := &LockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
		RunID:     runID,
		Remote:    l.remote,
		Source:    l.source,
	}
	if err := l.writeInfo(info); err != nil {
		_ = l.flock.Unlock()
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.info = info
	return nil
}

// Release unlocks and removes the lock files. Releasing a lock that isn't
// held is a no-op.
func (l *FileLock) Release() error {
	if !l.flock.Locked() {
		return nil
	}

	_ = os.Remove(l.infoPath())
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.path, err)
	}
	l.info = nil

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// IsHeld reports whether this instance holds the lock
func (l *FileLock) IsHeld() bool {
	return l.flock.Locked()
}

// Holder returns information about the current holder, if any
func (l *FileLock) Holder() (*LockInfo, error) {
	return l.readInfo()
}

func (l *FileLock) infoPath() string {
	return l.path + infoSuffix
}

func (l *FileLock) readInfo() (*LockInfo, error) {
	data, err := os.ReadFile(l.infoPath())
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid lock info format: %w", err)
	}
	return &info, nil
}

func (l *FileLock) writeInfo(info *LockInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.infoPath(), data, 0644)
}

// LockError is returned when another run holds the lock
type LockError struct {
	Holder *LockInfo
	Remote string
	Source string
}

func (e *LockError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("%s:%s is locked by another run (PID %d on %s since %s)",
			e.Remote, e.Source,
			e.Holder.PID,
			e.Holder.Hostname,
			e.Holder.StartTime.Format(time.RFC3339),
		)
	}
	return fmt.Sprintf("%s:%s is locked by another run", e.Remote, e.Source)
}

// Unwrap lets errors.Is match domain.ErrSourceLocked
func (e *LockError) Unwrap() error {
	return domain.ErrSourceLocked
}

// IsLockError checks if an error is a LockError
func IsLockError(err error) bool {
	var lockErr *LockError
	return errors.As(err, &lockErr)
}
