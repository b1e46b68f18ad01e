package progress

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/collabspace/assetkit/internal/exporter"
)

// Options configures the progress reporter.
type Options struct {
	// TotalAssets is the number of assets submitted for export.
	TotalAssets int

	// BatchSize is the exporter batch size (for display).
	BatchSize int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Reporter outputs human-readable progress information.
type Reporter struct {
	opts Options

	mu             sync.Mutex
	fetched        atomic.Int32
	skipped        atomic.Int32
	completedBytes atomic.Int64
	percent        atomic.Uint64 // math.Float64bits
	startTime      time.Time
	stopCh         chan struct{}
	doneCh         chan struct{}
	started        bool
	stopped        bool
}

var _ exporter.Observer = (*Reporter)(nil)

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.startTime = time.Now()
	r.mu.Unlock()

	fmt.Fprintf(r.opts.Output, "[collabspace] Exporting %d assets in batches of %d\n",
		r.opts.TotalAssets, r.opts.BatchSize)

	go r.updateLoop()
}

// Stop stops the reporter and prints the final status.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	r.mu.Unlock()

	close(r.stopCh)
	if started {
		<-r.doneCh
	}
}

// AssetFetched records a retrieved asset.
func (r *Reporter) AssetFetched(_ exporter.Asset, size int64) {
	r.fetched.Add(1)
	r.completedBytes.Add(size)
}

// AssetSkipped records an asset that was left out.
func (r *Reporter) AssetSkipped(_ exporter.Asset, _ error) {
	r.skipped.Add(1)
}

// Percent records overall progress. It has the exporter.ProgressFunc signature.
func (r *Reporter) Percent(p float64) {
	r.percent.Store(math.Float64bits(p))
}

// current returns the last reported percentage.
func (r *Reporter) current() float64 {
	return math.Float64frombits(r.percent.Load())
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

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
	fetched := int(r.fetched.Load())
	skipped := int(r.skipped.Load())

	pending := r.opts.TotalAssets - fetched - skipped
	if pending < 0 {
		pending = 0
	}

	fmt.Fprintf(r.opts.Output, "\r[collabspace] Progress: %.1f%% | %d fetched | %d skipped | %d pending | %s    ",
		r.current(),
		fetched,
		skipped,
		pending,
		formatBytes(r.completedBytes.Load()),
	)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	fetched := int(r.fetched.Load())
	skipped := int(r.skipped.Load())
	duration := time.Since(r.startTime)

	fmt.Fprintf(r.opts.Output, "\r[collabspace] Progress: %.1f%% | %d fetched | %d skipped | %s    \n",
		r.current(),
		fetched,
		skipped,
		formatBytes(r.completedBytes.Load()),
	)
	fmt.Fprintf(r.opts.Output, "[collabspace] %d/%d assets in %s\n",
		fetched,
		r.opts.TotalAssets,
		formatDuration(duration),
	)
}

// formatBytes formats bytes using binary units.
func formatBytes(b int64) string {
	const (
		KiB = 1024
		MiB = KiB * 1024
		GiB = MiB * 1024
		TiB = GiB * 1024
	)

	switch {
	case b >= TiB:
		return fmt.Sprintf("%.2f TiB", float64(b)/float64(TiB))
	case b >= GiB:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(GiB))
	case b >= MiB:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(MiB))
	case b >= KiB:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(KiB))
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

// ParseBytes parses a human-readable byte string. Binary suffixes (KiB, MiB,
// GiB) are powers of 1024, SI suffixes (KB, MB, GB) powers of 1000.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)

	units := []struct {
		suffix     string
		multiplier float64
	}{
		{"TiB", 1 << 40}, {"GiB", 1 << 30}, {"MiB", 1 << 20}, {"KiB", 1 << 10},
		{"TB", 1e12}, {"GB", 1e9}, {"MB", 1e6}, {"KB", 1e3},
		{"B", 1},
	}

	multiplier := 1.0
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			multiplier = u.multiplier
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}

	return int64(value * multiplier), nil
}
