package exporter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput is returned when Export is called without assets.
	ErrEmptyInput = errors.New("exporter: no assets to export")

	// ErrAllFailed matches *AllFailedError via errors.Is.
	ErrAllFailed = errors.New("exporter: every asset failed")

	// ErrBusy is returned when Export is called while another export on the
	// same Exporter is still running.
	ErrBusy = errors.New("exporter: export already in progress")

	// ErrUnexpectedContentType is returned for responses that are not binary.
	ErrUnexpectedContentType = errors.New("exporter: unexpected content type")

	// ErrEmptyBody is returned for zero-length responses.
	ErrEmptyBody = errors.New("exporter: empty body")

	// ErrMissingURL is returned for assets without a source URL.
	ErrMissingURL = errors.New("exporter: asset has no source url")
)

// AssetError records an asset that could not be retrieved.
type AssetError struct {
	Asset    Asset
	Attempts int
	Err      error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s: failed after %d attempt(s): %v", e.Asset.ID, e.Attempts, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// AllFailedError is returned when no asset could be retrieved.
// No archive is produced.
//
// Use errors.As to extract this error and inspect Failures for details.
type AllFailedError struct {
	Failures []*AssetError
}

func (e *AllFailedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "exporter: all %d asset(s) failed", len(e.Failures))
	if len(e.Failures) > 0 {
		fmt.Fprintf(&sb, " (first: %v)", e.Failures[0])
	}
	return sb.String()
}

// Is reports whether target is ErrAllFailed.
func (e *AllFailedError) Is(target error) bool {
	return target == ErrAllFailed
}

// AssemblyError is returned when compressing the archive fails, even if
// assets were retrieved.
type AssemblyError struct {
	SuccessCount int
	Err          error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("exporter: assemble archive of %d asset(s): %v", e.SuccessCount, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
