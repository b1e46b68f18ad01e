// Package fetch retrieves asset bytes over HTTP.
//
// This package handles:
//   - Connection pooling for many small concurrent downloads
//   - Mapping HTTP status codes to typed errors
//   - Reporting the Content-Type alongside the body
//
// It makes exactly one request per call. Retries are applied by the caller
// through package retry so that a single policy governs every asset.
//
// # Usage
//
//	client := fetch.NewClient(fetch.DefaultOptions())
//	blob, err := client.FetchBytes(ctx, url)
//	// blob.Bytes, blob.ContentType
package fetch
