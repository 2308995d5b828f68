package progress

import (
	"fmt"
	"sync"

	"github.com/Ning0612/Gitpush/internal/domain"
	"github.com/Ning0612/Gitpush/internal/logger"
)

// Reporter handles progress reporting for sync operations
type Reporter interface {
	// SetTotal sets the total number of paths to apply
	SetTotal(totalFiles int)
	// Start marks one path as in flight
	Start(path string, status domain.ChangeStatus)
	// Finish records the outcome of the path started last
	Finish(result domain.SyncResult)
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update represents a progress update
type Update struct {
	Type   UpdateType
	Path   string
	Status domain.ChangeStatus
	Result domain.SyncResult
	Done   int
	Failed int
	Total  int
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateStart UpdateType = iota
	UpdateFinish
)

// CallbackReporter implements Reporter with a callback function
type CallbackReporter struct {
	callback Callback
	mu       sync.Mutex
	status   domain.ChangeStatus
	total    int
	done     int
	failed   int
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{
		callback: callback,
	}
}

// SetTotal sets the total number of paths to apply
func (r *CallbackReporter) SetTotal(totalFiles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = totalFiles
	r.done = 0
	r.failed = 0
}

// Start marks one path as in flight
func (r *CallbackReporter) Start(path string, status domain.ChangeStatus) {
	r.mu.Lock()
	r.status = status

	// Capture values for callback outside lock
	update := Update{
		Type:   UpdateStart,
		Path:   path,
		Status: status,
		Done:   r.done,
		Failed: r.failed,
		Total:  r.total,
	}
	callback := r.callback
	r.mu.Unlock()

	// Call callback outside lock to prevent deadlock
	if callback != nil {
		callback(update)
	}
}

// Finish records the outcome of the current path
func (r *CallbackReporter) Finish(result domain.SyncResult) {
	r.mu.Lock()
	r.done++
	if result.Failed() {
		r.failed++
	}

	update := Update{
		Type:   UpdateFinish,
		Path:   result.Path,
		Status: r.status,
		Result: result,
		Done:   r.done,
		Failed: r.failed,
		Total:  r.total,
	}
	callback := r.callback
	r.mu.Unlock()

	if callback != nil {
		callback(update)
	}
}

// LogReporter writes each outcome to the global logger
type LogReporter struct {
	mu    sync.Mutex
	total int
	done  int
}

// NewLogReporter creates a new LogReporter
func NewLogReporter() *LogReporter {
	return &LogReporter{}
}

// SetTotal sets the total number of paths to apply
func (r *LogReporter) SetTotal(totalFiles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = totalFiles
	r.done = 0
}

// Start logs at debug level
func (r *LogReporter) Start(path string, status domain.ChangeStatus) {
	logger.Get().Debug("Applying change", "path", path, "status", status.String())
}

// Finish logs the outcome
func (r *LogReporter) Finish(result domain.SyncResult) {
	r.mu.Lock()
	r.done++
	step := fmt.Sprintf("%d/%d", r.done, r.total)
	r.mu.Unlock()

	if result.Failed() {
		logger.Get().Warn("Change failed",
			"path", result.Path,
			"progress", step,
			"detail", result.Detail)
		return
	}
	logger.Get().Info("Change applied",
		"path", result.Path,
		"outcome", result.Outcome.String(),
		"progress", step)
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) SetTotal(totalFiles int)                       {}
func (NullReporter) Start(path string, status domain.ChangeStatus) {}
func (NullReporter) Finish(result domain.SyncResult)               {}

// Multi fans every call out to several reporters
type Multi []Reporter

func (m Multi) SetTotal(totalFiles int) {
	for _, r := range m {
		r.SetTotal(totalFiles)
	}
}

func (m Multi) Start(path string, status domain.ChangeStatus) {
	for _, r := range m {
		r.Start(path, status)
	}
}

func (m Multi) Finish(result domain.SyncResult) {
	for _, r := range m {
		r.Finish(result)
	}
}

// FormatProgress returns a progress bar string
func FormatProgress(current, total, width int) string {
	if total == 0 {
		return ""
	}

	percent := float64(current) / float64(total)
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}

	bar := make([]byte, width)
	for i := 0; i < width; i++ {
		if i < filled {
			bar[i] = '='
		} else if i == filled {
			bar[i] = '>'
		} else {
			bar[i] = ' '
		}
	}

	return fmt.Sprintf("[%s] %5.1f%%", string(bar), percent*100)
}
