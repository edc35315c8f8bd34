package utils

import (
	"fmt"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"boxfetch/internal"
)

// ProgressTracker renders download progress. When the total size is unknown
// (total < 0) it falls back to a counter-only bar instead of a percentage.
type ProgressTracker struct {
	bar       *pb.ProgressBar
	quiet     bool
	startTime time.Time
	total     int64
	current   int64
	mutex     sync.RWMutex
}

// DownloadSummary contains final download statistics
type DownloadSummary struct {
	TotalBytes   int64
	TotalTime    time.Duration
	AverageSpeed float64 // bytes per second
	Filename     string
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int64, quiet bool) *ProgressTracker {
	tracker := &ProgressTracker{
		quiet:     quiet,
		startTime: time.Now(),
		total:     total,
	}

	if !quiet {
		var bar *pb.ProgressBar
		if total >= 0 {
			tmpl := `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}`
			bar = pb.ProgressBarTemplate(tmpl).Start64(total)
		} else {
			// No declared content length: render an indeterminate counter.
			tmpl := `{{string . "prefix"}}{{counters . }} {{speed . }}`
			bar = pb.ProgressBarTemplate(tmpl).Start64(0)
		}
		bar.Set(pb.Bytes, true)
		bar.Set(pb.SIBytesPrefix, true)
		bar.Set("prefix", "Downloading: ")
		tracker.bar = bar
	}

	return tracker
}

// Update updates the progress bar with the current byte count
func (p *ProgressTracker) Update(current int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.current = current
	if p.bar != nil {
		p.bar.SetCurrent(current)
	}
}

// Callback returns a progress function that feeds this tracker from
// transfer state snapshots.
func (p *ProgressTracker) Callback() internal.ProgressFunc {
	return func(state internal.TransferState) {
		p.Update(state.BytesDownloaded)
	}
}

// Finish completes the progress bar and returns the download summary
func (p *ProgressTracker) Finish() *DownloadSummary {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	totalTime := time.Since(p.startTime)

	if p.bar != nil {
		p.bar.Finish()
	}

	var averageSpeed float64
	if totalTime.Seconds() > 0 {
		averageSpeed = float64(p.current) / totalTime.Seconds()
	}

	summary := &DownloadSummary{
		TotalBytes:   p.current,
		TotalTime:    totalTime,
		AverageSpeed: averageSpeed,
	}

	if !p.quiet {
		p.displaySummary(summary)
	}

	return summary
}

// displaySummary prints the download summary statistics
func (p *ProgressTracker) displaySummary(summary *DownloadSummary) {
	fmt.Printf("\n")
	fmt.Printf("Download completed successfully!\n")
	fmt.Printf("Total size: %s\n", FormatBytes(summary.TotalBytes))
	fmt.Printf("Total time: %v\n", summary.TotalTime.Round(time.Millisecond))
	fmt.Printf("Average speed: %s/s\n", FormatBytes(int64(summary.AverageSpeed)))
}

// Current returns the last reported byte count
func (p *ProgressTracker) Current() int64 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.current
}

// IsQuiet returns whether the tracker is in quiet mode
func (p *ProgressTracker) IsQuiet() bool {
	return p.quiet
}

// FormatBytes formats byte count as human-readable string
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
