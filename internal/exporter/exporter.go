package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/collabspace/assetkit/internal/archive"
	"github.com/collabspace/assetkit/internal/retry"
)

// Asset describes one asset selected for export. The exporter only reads it.
type Asset struct {
	ID          string `json:"id" yaml:"id"`
	SourceURL   string `json:"source_url" yaml:"source_url"`
	DisplayName string `json:"display_name" yaml:"display_name"`
}

// Blob is the result of a single fetch.
type Blob struct {
	Bytes       []byte
	ContentType string
}

// Fetcher retrieves the bytes behind a URL. Implementations must return an
// error for network failures and non-2xx responses.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) (Blob, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc func(ctx context.Context, url string) (Blob, error)

// FetchBytes calls f.
func (f FetchFunc) FetchBytes(ctx context.Context, url string) (Blob, error) {
	return f(ctx, url)
}

// ProgressFunc receives the overall completion percentage in [0, 100].
type ProgressFunc func(percent float64)

// Observer is notified about individual assets. Calls come from the goroutine
// running Export, never concurrently.
type Observer interface {
	AssetFetched(a Asset, size int64)
	AssetSkipped(a Asset, err error)
}

// State is the phase of an export.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateAssembling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateAssembling:
		return "assembling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const fetchShare = 90.0

// Options configures the exporter.
type Options struct {
	// BatchSize is the number of assets fetched concurrently.
	// Default: 2
	BatchSize int

	// BatchPause is the wait between two batches. Negative disables it.
	// Default: 1s
	BatchPause time.Duration

	// Retry is the per-asset retry policy.
	// Default: retry.Default()
	Retry retry.Policy

	// AcceptContentType decides whether a fetched Content-Type is usable.
	// Default: AcceptBinary
	AcceptContentType func(contentType string) bool

	// Duplicates decides how two assets with the same entry name are stored.
	// Default: archive.Overwrite
	Duplicates archive.DuplicatePolicy

	// Logger receives diagnostics. Default: slog.Default()
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics

	// Observer is optional.
	Observer Observer
}

// SkippedAsset is an asset left out of the archive.
type SkippedAsset struct {
	ID       string
	Attempts int
	Err      error
}

// Result is the outcome of a successful export.
type Result struct {
	ExportID     string
	SuccessCount int
	Total        int
	Archive      []byte
	Entries      []string
	Skipped      []SkippedAsset
	Duration     time.Duration
}

// Exporter runs bulk exports. An Exporter may be reused for sequential
// exports; overlapping calls fail with ErrBusy.
type Exporter struct {
	fetcher Fetcher
	opts    Options

	mu    sync.Mutex
	state State
	smu   sync.Mutex
}

// New creates an Exporter that retrieves bytes through fetcher.
func New(fetcher Fetcher, opts Options) *Exporter {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 2
	}
	if opts.BatchPause == 0 {
		opts.BatchPause = time.Second
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = retry.Default()
	}
	if opts.AcceptContentType == nil {
		opts.AcceptContentType = AcceptBinary
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Exporter{
		fetcher: fetcher,
		opts:    opts,
	}
}

// State returns the phase of the current or last export.
func (e *Exporter) State() State {
	e.smu.Lock()
	defer e.smu.Unlock()
	return e.state
}

func (e *Exporter) setState(s State, log *slog.Logger) {
	e.smu.Lock()
	prev := e.state
	e.state = s
	e.smu.Unlock()

	if prev != s {
		log.Debug("export state", "from", prev.String(), "to", s.String())
	}
}

// run holds the state of a single Export call. It is only touched by the
// goroutine driving the batches.
type run struct {
	total    int
	builder  *archive.Builder
	skipped  []*AssetError
	success  int
	progress *progressTracker
}

// Export fetches assets batch by batch and packs the retrieved ones into a
// ZIP archive. It returns ErrEmptyInput for an empty selection, an
// *AllFailedError when nothing could be retrieved and an *AssemblyError when
// compression fails. ctx is checked between batches.
func (e *Exporter) Export(ctx context.Context, assets []Asset, onProgress ProgressFunc) (*Result, error) {
	if len(assets) == 0 {
		return nil, ErrEmptyInput
	}

	if !e.mu.TryLock() {
		return nil, ErrBusy
	}
	defer e.mu.Unlock()

	started := time.Now()
	exportID := uuid.NewString()
	log := e.opts.Logger.With("export_id", exportID)

	r := &run{
		total:    len(assets),
		builder:  archive.NewBuilder(archive.WithDuplicatePolicy(e.opts.Duplicates)),
		progress: &progressTracker{fn: onProgress},
	}

	batches := partition(assets, e.opts.BatchSize)
	log.Info("export started", "assets", len(assets), "batches", len(batches), "batch_size", e.opts.BatchSize)

	fail := func(outcome string, err error) (*Result, error) {
		e.setState(StateFailed, log)
		e.opts.Metrics.finished(outcome, time.Since(started), 0)
		return nil, err
	}

	e.setState(StateFetching, log)
	for i, batch := range batches {
		if i > 0 {
			if err := pause(ctx, e.opts.BatchPause); err != nil {
				log.Warn("export cancelled", "completed_batches", i, "batches", len(batches))
				return fail("cancelled", fmt.Errorf("exporter: cancelled after batch %d of %d: %w", i, len(batches), err))
			}
		}
		if err := ctx.Err(); err != nil {
			return fail("cancelled", fmt.Errorf("exporter: cancelled before batch %d of %d: %w", i+1, len(batches), err))
		}

		log.Debug("fetching batch", "batch", i+1, "of", len(batches), "size", len(batch))
		e.fetchBatch(ctx, batch, r, log)
	}
	if err := ctx.Err(); err != nil {
		return fail("cancelled", fmt.Errorf("exporter: cancelled: %w", err))
	}

	if r.success == 0 {
		log.Error("export failed: no asset retrieved", "assets", r.total)
		return fail("all_failed", &AllFailedError{Failures: r.skipped})
	}

	e.setState(StateAssembling, log)
	data, err := r.builder.Finalize(func(done, total int) {
		r.progress.report(fetchShare + (100-fetchShare)*float64(done)/float64(total))
	})
	if err != nil {
		log.Error("archive assembly failed", "error", err)
		return fail("assembly_failed", &AssemblyError{SuccessCount: r.success, Err: err})
	}
	r.progress.report(100)

	e.setState(StateDone, log)
	elapsed := time.Since(started)
	e.opts.Metrics.finished(outcomeFor(r), elapsed, len(data))

	res := &Result{
		ExportID:     exportID,
		SuccessCount: r.success,
		Total:        r.total,
		Archive:      data,
		Entries:      r.builder.Names(),
		Duration:     elapsed,
	}
	for _, ae := range r.skipped {
		res.Skipped = append(res.Skipped, SkippedAsset{ID: ae.Asset.ID, Attempts: ae.Attempts, Err: ae.Err})
	}

	log.Info("export complete",
		"fetched", r.success,
		"skipped", len(r.skipped),
		"entries", len(res.Entries),
		"bytes", len(data),
		"elapsed", elapsed.Round(time.Millisecond),
	)
	return res, nil
}

func outcomeFor(r *run) string {
	if len(r.skipped) > 0 {
		return "partial"
	}
	return "complete"
}

type outcome struct {
	asset Asset
	blob  Blob
	err   *AssetError
}

// fetchBatch fetches every member of batch concurrently and folds the
// outcomes into r in completion order.
func (e *Exporter) fetchBatch(ctx context.Context, batch []Asset, r *run, log *slog.Logger) {
	results := make(chan outcome, len(batch))

	// Workers never return errors: failures travel as outcomes so that one
	// bad asset does not cancel its siblings. The group joins the batch and
	// caps concurrency at BatchSize.
	var g errgroup.Group
	g.SetLimit(e.opts.BatchSize)
	for _, a := range batch {
		g.Go(func() error {
			blob, err := e.fetchAsset(ctx, a, log)
			results <- outcome{asset: a, blob: blob, err: err}
			return nil
		})
	}

	for range batch {
		o := <-results
		if o.err != nil {
			e.skip(r, o.err, log)
			continue
		}
		e.add(r, o.asset, o.blob, log)
	}
	g.Wait()
}

// fetchAsset retrieves one asset under the retry policy.
func (e *Exporter) fetchAsset(ctx context.Context, a Asset, log *slog.Logger) (Blob, *AssetError) {
	if strings.TrimSpace(a.SourceURL) == "" {
		return Blob{}, &AssetError{Asset: a, Err: ErrMissingURL}
	}

	var (
		blob     Blob
		attempts int
	)
	err := retry.Do(ctx, e.opts.Retry, func(ctx context.Context) error {
		attempts++
		e.opts.Metrics.attempt()

		b, err := e.fetcher.FetchBytes(ctx, a.SourceURL)
		if err != nil {
			return err
		}
		if !e.opts.AcceptContentType(b.ContentType) {
			return fmt.Errorf("%w: %q", ErrUnexpectedContentType, b.ContentType)
		}
		if len(b.Bytes) == 0 {
			return ErrEmptyBody
		}
		blob = b
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		log.Debug("asset fetch failed, retrying", "asset", a.ID, "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		return Blob{}, &AssetError{Asset: a, Attempts: attempts, Err: err}
	}
	return blob, nil
}

func (e *Exporter) add(r *run, a Asset, b Blob, log *slog.Logger) {
	name := entryName(a)
	stored, err := r.builder.Add(name, b.Bytes)
	if err != nil {
		e.skip(r, &AssetError{Asset: a, Attempts: 1, Err: err}, log)
		return
	}
	if stored != name {
		log.Debug("entry renamed", "asset", a.ID, "name", stored)
	}

	r.success++
	e.opts.Metrics.asset("fetched")
	if e.opts.Observer != nil {
		e.opts.Observer.AssetFetched(a, int64(len(b.Bytes)))
	}
	r.progress.report(min(fetchShare, float64(r.success)/float64(r.total)*fetchShare))
}

func (e *Exporter) skip(r *run, ae *AssetError, log *slog.Logger) {
	r.skipped = append(r.skipped, ae)
	e.opts.Metrics.asset("skipped")
	if e.opts.Observer != nil {
		e.opts.Observer.AssetSkipped(ae.Asset, ae.Err)
	}
	log.Warn("asset skipped", "asset", ae.Asset.ID, "url", ae.Asset.SourceURL, "attempts", ae.Attempts, "error", ae.Err)
}

// entryName falls back to the asset ID when the display name is blank.
func entryName(a Asset) string {
	if strings.TrimSpace(a.DisplayName) == "" {
		return archive.EntryName(a.ID)
	}
	return archive.EntryName(a.DisplayName)
}

// AcceptBinary accepts image/*, application/octet-stream and
// binary/octet-stream. HTML or JSON error pages served with 200 are rejected.
func AcceptBinary(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	mediaType = strings.ToLower(mediaType)

	return strings.HasPrefix(mediaType, "image/") ||
		mediaType == "application/octet-stream" ||
		mediaType == "binary/octet-stream"
}

// partition splits assets into consecutive batches of at most size.
func partition(assets []Asset, size int) [][]Asset {
	batches := make([][]Asset, 0, (len(assets)+size-1)/size)
	for start := 0; start < len(assets); start += size {
		end := min(start+size, len(assets))
		batches = append(batches, assets[start:end])
	}
	return batches
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// progressTracker forwards percentages to fn, never going backwards.
type progressTracker struct {
	fn   ProgressFunc
	last float64
}

func (p *progressTracker) report(pct float64) {
	if p.fn == nil {
		return
	}
	pct = max(p.last, min(100, pct))
	p.last = pct
	p.fn(pct)
}

// IsCancelled reports whether err was caused by context cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
