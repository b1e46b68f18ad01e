package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/collabspace/assetkit/internal/catalog"
	"github.com/collabspace/assetkit/internal/config"
	"github.com/collabspace/assetkit/internal/exporter"
	"github.com/collabspace/assetkit/internal/fetch"
	"github.com/collabspace/assetkit/internal/logging"
	"github.com/collabspace/assetkit/internal/progress"
	"github.com/collabspace/assetkit/internal/rights"
	"github.com/collabspace/assetkit/pkg/archivestore"
)

// catalogFs is the filesystem catalogs are read from.
var catalogFs afero.Fs = afero.NewOsFs()

// runExport reads a catalog, keeps the assets whose rights window is active,
// fetches them in small batches and stores the resulting ZIP archive.
func runExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "YAML configuration file")
	envFile := fs.String("env-file", ".env", "Optional .env file with COLLABSPACE_ variables")
	catalogPath := fs.String("catalog", "", "Asset catalog file (required)")
	bucket := fs.String("bucket", "", "Destination bucket URL (required)")
	object := fs.String("object", "", "Destination object path (required)")
	ids := fs.String("ids", "", "Comma-separated asset IDs to export (default: all)")
	batchSize := fs.Int("batch-size", 0, "Assets fetched concurrently (default 2)")
	batchPause := fs.Duration("batch-pause", 0, "Pause between batches (default 1s)")
	timeout := fs.Duration("timeout", 0, "Per-request timeout (default 60s)")
	maxAssetSize := fs.String("max-asset-size", "", "Largest accepted asset, e.g. 512MiB (KiB/MiB/GiB are binary, KB/MB/GB decimal)")
	retryAttempts := fs.Int("retry-attempts", 0, "Attempts per asset (default 3)")
	retryDelay := fs.Duration("retry-delay", 0, "Delay before the first retry, doubled each time (default 1s)")
	duplicates := fs.String("duplicates", "", "Duplicate entry names: overwrite or suffix")
	timezone := fs.String("timezone", "", "Timezone for date-only rights values (default Local)")
	showProgress := fs.Bool("progress", false, "Show progress output")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "Log format: text or json")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus metrics to this textfile after the run")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: collabspace export [options]

Fetch every catalog asset whose usage rights are active and store the
result as a ZIP archive plus a JSON manifest in object storage.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	override := config.Config{
		Catalog:    *catalogPath,
		Bucket:     *bucket,
		Object:     *object,
		BatchSize:  *batchSize,
		BatchPause: *batchPause,
		Timeout:    *timeout,
		Progress:   *showProgress,
		LogLevel:   *logLevel,
		LogFormat:  *logFormat,
		Timezone:   *timezone,
		Duplicates: *duplicates,
		Retry: config.RetryConfig{
			Attempts:  *retryAttempts,
			BaseDelay: *retryDelay,
		},
	}
	if *maxAssetSize != "" {
		size, err := progress.ParseBytes(*maxAssetSize)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid max asset size: %v\n", err)
			return ExitInvalidArgs
		}
		override.MaxAssetSize = size
	}
	cfg = cfg.Merge(override)

	// Merge ignores zero values; an explicit -batch-pause 0 disables the pause.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "batch-pause" {
			cfg.BatchPause = *batchPause
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	loc, err := cfg.Location()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	cat, err := catalog.Load(catalogFs, cfg.Catalog)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCatalogError
	}
	cat, err = cat.Select(splitIDs(*ids))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCatalogError
	}

	ev := &rights.Evaluator{Location: loc, Logger: log}
	assets, restricted := cat.Authorized(ev)
	for _, e := range restricted {
		log.Info("asset excluded, rights window inactive",
			slog.String("asset", e.ID),
			slog.String("start", e.Rights.Start),
			slog.String("end", e.Rights.End))
	}
	if len(assets) == 0 {
		fmt.Fprintf(stderr, "[collabspace] Nothing to export: %d of %d assets have inactive rights\n",
			len(restricted), len(cat.Assets))
		return ExitNothingToExport
	}

	ctx, cancel := signalContext()
	defer cancel()

	bkt, code := openBucket(ctx, cfg.Bucket)
	if code != ExitSuccess {
		return code
	}
	defer bkt.Close()

	reg := prometheus.NewRegistry()
	metrics := exporter.MustNewMetrics(reg)

	fetchOpts := fetch.DefaultOptions()
	fetchOpts.MaxIdleConnsPerHost = cfg.BatchSize * 2
	fetchOpts.Timeout = cfg.Timeout
	fetchOpts.MaxBytes = cfg.MaxAssetSize

	batchPauseOpt := cfg.BatchPause
	if batchPauseOpt == 0 {
		batchPauseOpt = -1
	}

	opts := exporter.Options{
		BatchSize:  cfg.BatchSize,
		BatchPause: batchPauseOpt,
		Retry:      cfg.Retry.Policy(),
		Duplicates: cfg.DuplicatePolicy(),
		Logger:     log,
		Metrics:    metrics,
	}

	var onProgress exporter.ProgressFunc
	if cfg.Progress {
		reporter := progress.NewReporter(progress.Options{
			TotalAssets:    len(assets),
			BatchSize:      cfg.BatchSize,
			Output:         stderr,
			UpdateInterval: 2 * time.Second,
		})
		reporter.Start()
		defer reporter.Stop()
		opts.Observer = reporter
		onProgress = reporter.Percent
	}

	exp := exporter.New(fetch.NewClient(fetchOpts), opts)
	res, err := exp.Export(ctx, assets, onProgress)
	writeMetrics(*metricsFile, reg, log)
	if err != nil {
		return exportErrorCode(err)
	}

	manifest, err := archivestore.Save(ctx, bkt, cfg.Object, res, archivestore.WithMetadata(map[string]string{
		"catalog": cfg.Catalog,
	}))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	for _, s := range res.Skipped {
		fmt.Fprintf(stderr, "[collabspace] Skipped %s after %d attempts: %v\n", s.ID, s.Attempts, s.Err)
	}
	fmt.Fprintf(stderr, "[collabspace] Export complete: %d/%d assets, %s\n",
		res.SuccessCount, res.Total, progress.FormatBytes(manifest.Size))
	fmt.Fprintf(stderr, "[collabspace] Archive: %s/%s\n", cfg.Bucket, cfg.Object)
	fmt.Fprintf(stderr, "[collabspace] Manifest: %s/%s\n", cfg.Bucket, archivestore.ManifestKey(cfg.Object))

	return ExitSuccess
}

func exportErrorCode(err error) int {
	var allFailed *exporter.AllFailedError
	switch {
	case errors.As(err, &allFailed):
		fmt.Fprintf(stderr, "Error: all %d assets failed\n", len(allFailed.Failures))
		for _, f := range allFailed.Failures {
			fmt.Fprintf(stderr, "  - %s: %v\n", f.Asset.ID, f.Err)
		}
		return ExitAllFailed
	case errors.Is(err, exporter.ErrEmptyInput):
		fmt.Fprintln(stderr, "[collabspace] Nothing to export")
		return ExitNothingToExport
	case exporter.IsCancelled(err):
		fmt.Fprintln(stderr, "[collabspace] Export interrupted")
		return ExitGeneralError
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
}

func writeMetrics(path string, reg *prometheus.Registry, log *slog.Logger) {
	if path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		log.Warn("write metrics textfile", slog.String("path", path), slog.Any("error", err))
	}
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
