// Package exporter fetches a selection of assets and packs them into one ZIP
// archive.
//
// # Usage
//
//	exp := exporter.New(fetch.NewClient(fetch.DefaultOptions()), exporter.Options{})
//	res, err := exp.Export(ctx, assets, func(pct float64) {
//	    fmt.Printf("%.0f%%\n", pct)
//	})
//
// # Batches
//
// Assets are split into batches of Options.BatchSize (default 2). The members
// of a batch are fetched concurrently; batches run strictly one after another
// with Options.BatchPause (default 1s) between them. This bounds the number of
// open connections for large selections.
//
// # Retries and partial failure
//
// Each asset gets up to three attempts with 1s, 2s backoff (see package retry).
// An attempt fails on a fetch error, a non-binary Content-Type or an empty
// body. An asset that exhausts its attempts is logged at warn level and
// skipped; the export carries on. Export fails with [ErrAllFailed] only when
// no asset at all could be retrieved.
//
// # Progress
//
// The progress callback receives non-decreasing percentages. Retrieval covers
// 0-90, archive assembly 90-100.
//
// Callers are expected to drop rights-expired assets before calling Export;
// the exporter does not evaluate rights windows.
package exporter
