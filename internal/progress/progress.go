package progress

import (
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Reporter receives transfer progress, one file at a time
type Reporter interface {
	// SetTotal sets the number of files and bytes the transfer will handle
	SetTotal(totalFiles int, totalBytes int64)
	// Start begins tracking a file
	Start(path string, totalBytes int64)
	// Update reports bytes transferred so far for the current file
	Update(bytesTransferred int64)
	// Complete marks the current file as transferred
	Complete()
	// Fail marks the current file as failed
	Fail(err error)
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update represents a progress update
type Update struct {
	Type           UpdateType
	CurrentFile    string
	CurrentBytes   int64
	CurrentTotal   int64
	FilesCompleted int
	FilesFailed    int
	FilesTotal     int
	BytesCompleted int64
	BytesTotal     int64
	BytesPerSecond float64
	Err            error
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateStart UpdateType = iota
	UpdateProgress
	UpdateComplete
	UpdateFailed
)

// String returns the name of the update type
func (t UpdateType) String() string {
	switch t {
	case UpdateStart:
		return "start"
	case UpdateProgress:
		return "progress"
	case UpdateComplete:
		return "complete"
	case UpdateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CallbackReporter implements Reporter with a callback function.
// The callback runs outside the lock.
type CallbackReporter struct {
	callback       Callback
	mu             sync.Mutex
	currentFile    string
	currentTotal   int64
	currentBytes   int64
	filesTotal     int
	bytesTotal     int64
	filesCompleted int
	filesFailed    int
	bytesCompleted int64
	startTime      time.Time
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{
		callback: callback,
	}
}

// SetTotal sets the total number of files and bytes
func (r *CallbackReporter) SetTotal(totalFiles int, totalBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filesTotal = totalFiles
	r.bytesTotal = totalBytes
}

// Start begins tracking a new file transfer
func (r *CallbackReporter) Start(path string, totalBytes int64) {
	r.mu.Lock()
	r.currentFile = path
	r.currentTotal = totalBytes
	r.currentBytes = 0
	r.startTime = time.Now()
	update := r.snapshot(UpdateStart)
	r.mu.Unlock()

	r.emit(update)
}

// Update reports progress on the current file
func (r *CallbackReporter) Update(bytesTransferred int64) {
	r.mu.Lock()
	r.currentBytes = bytesTransferred
	update := r.snapshot(UpdateProgress)
	update.BytesCompleted += bytesTransferred
	if elapsed := time.Since(r.startTime).Seconds(); elapsed > 0 {
		update.BytesPerSecond = float64(bytesTransferred) / elapsed
	}
	r.mu.Unlock()

	r.emit(update)
}

// Complete marks the current file as transferred
func (r *CallbackReporter) Complete() {
	r.mu.Lock()
	r.filesCompleted++
	r.bytesCompleted += r.currentTotal
	r.currentBytes = r.currentTotal
	update := r.snapshot(UpdateComplete)
	r.mu.Unlock()

	r.emit(update)
}

// Fail marks the current file as failed
func (r *CallbackReporter) Fail(err error) {
	r.mu.Lock()
	r.filesFailed++
	update := r.snapshot(UpdateFailed)
	update.Err = err
	r.mu.Unlock()

	r.emit(update)
}

// snapshot must be called with r.mu held
func (r *CallbackReporter) snapshot(t UpdateType) Update {
	return Update{
		Type:           t,
		CurrentFile:    r.currentFile,
		CurrentBytes:   r.currentBytes,
		CurrentTotal:   r.currentTotal,
		FilesCompleted: r.filesCompleted,
		FilesFailed:    r.filesFailed,
		FilesTotal:     r.filesTotal,
		BytesCompleted: r.bytesCompleted,
		BytesTotal:     r.bytesTotal,
	}
}

func (r *CallbackReporter) emit(update Update) {
	if r.callback != nil {
		r.callback(update)
	}
}

// ProgressReader wraps an io.Reader to track read progress
type ProgressReader struct {
	reader      io.Reader
	reporter    Reporter
	transferred int64
}

// NewProgressReader creates a new progress-tracking reader
func NewProgressReader(r io.Reader, reporter Reporter) *ProgressReader {
	return &ProgressReader{
		reader:   r,
		reporter: reporter,
	}
}

// Read implements io.Reader
func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.transferred += int64(n)
		if pr.reporter != nil {
			pr.reporter.Update(pr.transferred)
		}
	}
	return n, err
}

// Transferred returns the number of bytes read so far
func (pr *ProgressReader) Transferred() int64 {
	return pr.transferred
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) SetTotal(totalFiles int, totalBytes int64) {}
func (NullReporter) Start(path string, totalBytes int64)       {}
func (NullReporter) Update(bytesTransferred int64)             {}
func (NullReporter) Complete()                                 {}
func (NullReporter) Fail(err error)                            {}

// OrNull returns r, or a NullReporter when r is nil
func OrNull(r Reporter) Reporter {
	if r == nil {
		return NullReporter{}
	}
	return r
}

// FormatBytes formats bytes into a human-readable string
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatSpeed formats bytes per second into a human-readable string
func FormatSpeed(bytesPerSecond float64) string {
	return FormatBytes(int64(bytesPerSecond)) + "/s"
}
