// Package progress provides terminal progress reporting for exports.
//
// A Reporter is both an exporter.Observer (per-asset events) and, through
// Percent, an exporter.ProgressFunc.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    TotalAssets: len(assets),
//	    BatchSize:   2,
//	    Output:      os.Stderr,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	opts.Observer = reporter
//	res, err := exp.Export(ctx, assets, reporter.Percent)
//
// # Output Format
//
//	[collabspace] Exporting 120 assets in batches of 2
//	[collabspace] Progress: 45.0% | 54 fetched | 1 skipped | 65 pending | 48.20 MiB
package progress
