package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// TotalTasks is the total number of download tasks in the run.
	TotalTasks int

	// Workers is the number of parallel workers.
	Workers int

	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// Root is the destination being mirrored into (for display).
	Root string
}

// Reporter outputs human-readable progress information.
type Reporter struct {
	opts Options

	mu         sync.Mutex
	published  atomic.Int32
	skipped    atomic.Int32
	failed     atomic.Int32
	inProgress atomic.Int32
	bytes      atomic.Int64
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
	stopCh     chan struct{}
	stopped    bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.startTime = time.Now()
	r.lastUpdate = r.startTime

	// Print header
	fmt.Fprintf(r.opts.Output, "[canvasdl] Mirroring into: %s\n", r.opts.Root)
	fmt.Fprintf(r.opts.Output, "[canvasdl] Tasks: %d | Workers: %d\n",
		r.opts.TotalTasks,
		r.opts.Workers,
	)

	go r.updateLoop()
}

// Stop stops the progress reporter.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
}

// TaskStarted marks a task as in progress.
func (r *Reporter) TaskStarted() {
	r.inProgress.Add(1)
}

// TaskPublished marks a task as published with the artifact size.
func (r *Reporter) TaskPublished(size int64) {
	r.bytes.Add(size)
	r.published.Add(1)
	r.inProgress.Add(-1)
}

// TaskSkipped marks a task as skipped because its artifact already existed.
func (r *Reporter) TaskSkipped() {
	r.skipped.Add(1)
	r.inProgress.Add(-1)
}

// TaskFailed marks a task as failed.
func (r *Reporter) TaskFailed() {
	r.failed.Add(1)
	r.inProgress.Add(-1)
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	now := time.Now()
	bytes := r.bytes.Load()
	published := int(r.published.Load())
	skipped := int(r.skipped.Load())
	failed := int(r.failed.Load())
	inProgress := int(r.inProgress.Load())
	done := published + skipped + failed

	// Calculate speed
	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	bytesThisPeriod := bytes - r.lastBytes
	speed := float64(bytesThisPeriod) / elapsed

	r.lastUpdate = now
	r.lastBytes = bytes

	// Calculate percentage and ETA from the task rate so far
	var percent float64
	eta := "calculating..."
	if r.opts.TotalTasks > 0 {
		percent = float64(done) / float64(r.opts.TotalTasks) * 100
		if done > 0 {
			perTask := time.Since(r.startTime) / time.Duration(done)
			eta = formatDuration(perTask * time.Duration(r.opts.TotalTasks-done))
		}
	}

	fmt.Fprintf(r.opts.Output, "\r[canvasdl] Progress: %.1f%% | %d/%d tasks | Speed: %s/s | ETA: %s    ",
		percent,
		done,
		r.opts.TotalTasks,
		formatBytes(int64(speed)),
		eta,
	)
	fmt.Fprintf(r.opts.Output, "\n[canvasdl] Tasks: %d published | %d skipped | %d failed | %d in-progress    \033[A",
		published,
		skipped,
		failed,
		inProgress,
	)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	bytes := r.bytes.Load()
	published := int(r.published.Load())
	skipped := int(r.skipped.Load())
	failed := int(r.failed.Load())
	done := published + skipped + failed
	duration := time.Since(r.startTime)
	avgSpeed := float64(bytes) / duration.Seconds()

	var percent float64
	if r.opts.TotalTasks > 0 {
		percent = float64(done) / float64(r.opts.TotalTasks) * 100
	}

	fmt.Fprintf(r.opts.Output, "\r[canvasdl] Progress: %.1f%% | %d/%d tasks | %s fetched    \n",
		percent,
		done,
		r.opts.TotalTasks,
		formatBytes(bytes),
	)
	fmt.Fprintf(r.opts.Output, "[canvasdl] Tasks: %d published | %d skipped | %d failed    \n",
		published,
		skipped,
		failed,
	)
	fmt.Fprintf(r.opts.Output, "[canvasdl] Total time: %s | Average speed: %s/s\n",
		formatDuration(duration),
		formatBytes(int64(avgSpeed)),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

// ParseBytes parses a human-readable byte string (e.g., "8KB").
func ParseBytes(s string) (int64, error) {
	var multiplier int64 = 1
	s = trimSuffix(s, " ")

	switch {
	case hasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "KB"):
		multiplier = 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "B"):
		s = s[:len(s)-1]
	}

	var value float64
	_, err := fmt.Sscanf(s, "%f", &value)
	if err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}

	return int64(value * float64(multiplier)), nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func trimSuffix(s, suffix string) string {
	for hasSuffix(s, suffix) {
		s = s[:len(s)-len(suffix)]
	}
	return s
}
