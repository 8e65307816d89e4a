// Package progress renders byte progress for file transfers.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// Tracker hands out one progress bar per transferred file.
type Tracker struct {
	mu      sync.Mutex
	output  io.Writer
	enabled bool
	bars    []*progressbar.ProgressBar
}

// NewTracker creates a tracker that draws on stderr so stdout stays clean.
func NewTracker(enabled bool) *Tracker {
	return NewTrackerWriter(os.Stderr, enabled)
}

// NewTrackerWriter creates a tracker drawing on w.
func NewTrackerWriter(w io.Writer, enabled bool) *Tracker {
	return &Tracker{output: w, enabled: enabled}
}

// Enabled reports whether bars are drawn.
func (t *Tracker) Enabled() bool {
	return t.enabled
}

// Bar returns a writer that advances a bar for name. A negative total
// draws a spinner. A disabled tracker returns io.Discard.
func (t *Tracker) Bar(name string, total int64) io.Writer {
	if !t.enabled {
		return io.Discard
	}

	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(t.output),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(t.output, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)

	t.mu.Lock()
	t.bars = append(t.bars, bar)
	t.mu.Unlock()
	return bar
}

// Finish completes every bar still running.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, bar := range t.bars {
		if !bar.IsFinished() {
			_ = bar.Finish()
		}
	}
	t.bars = nil
}

// Summary formats a one-line transfer summary, e.g.
// "12 MiB in 3.2s (3.8 MiB/s)".
func Summary(bytes int64, elapsed time.Duration) string {
	s := fmt.Sprintf("%s in %s", FormatBytes(bytes), formatDuration(elapsed))
	if elapsed > 0 && bytes > 0 {
		rate := int64(float64(bytes) / elapsed.Seconds())
		s += fmt.Sprintf(" (%s/s)", FormatBytes(rate))
	}
	return s
}

// FormatBytes renders n in IEC units.
func FormatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}
