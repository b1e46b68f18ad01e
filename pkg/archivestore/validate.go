package archivestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	"gocloud.dev/blob"

	"github.com/collabspace/assetkit/internal/archive"
)

// ValidationResult contains the results of validating a stored archive.
type ValidationResult struct {
	Valid            bool     // true if the archive exists and matches the manifest
	Size             int64    // size from manifest
	EntryCount       int      // number of entries in manifest
	MissingArchive   bool     // archive object does not exist
	SizeMismatch     bool     // stored size differs from manifest
	ChecksumMismatch bool     // stored bytes hash differently
	EntryMismatch    bool     // ZIP directory differs from manifest entries
	Errors           []string // detailed error messages
}

// Validate checks that the archive for key exists and matches its manifest:
// size, SHA-256 checksum and ZIP entry names.
//
// Returns an error if:
//   - The manifest doesn't exist (error wraps gcerrors.NotFound)
//   - The manifest JSON is malformed (encoding/json error)
//   - The object store cannot be read (network/permission error)
//   - The context is cancelled (context.Canceled or context.DeadlineExceeded)
//
// Note: mismatches are NOT returned as errors. They are reported in the
// ValidationResult with Valid=false.
func Validate(ctx context.Context, bucket *blob.Bucket, key string) (*ValidationResult, error) {
	m, err := ReadManifest(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{
		Valid:      true,
		Size:       m.Size,
		EntryCount: len(m.Entries),
		Errors:     make([]string, 0),
	}

	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		if isNotExist(err) {
			result.Valid = false
			result.MissingArchive = true
			result.Errors = append(result.Errors, fmt.Sprintf("archive missing: %s", key))
			return result, nil
		}
		return nil, fmt.Errorf("archivestore: check archive: %w", err)
	}

	if attrs.Size != m.Size {
		result.Valid = false
		result.SizeMismatch = true
		result.Errors = append(result.Errors,
			fmt.Sprintf("size mismatch: expected %d, got %d", m.Size, attrs.Size))
		return result, nil
	}

	data, err := bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("archivestore: read archive: %w", err)
	}

	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); m.Checksum != "" && got != m.Checksum {
		result.Valid = false
		result.ChecksumMismatch = true
		result.Errors = append(result.Errors,
			fmt.Sprintf("checksum mismatch: expected %s, got %s", m.Checksum, got))
	}

	names, err := archive.List(data)
	if err != nil {
		result.Valid = false
		result.EntryMismatch = true
		result.Errors = append(result.Errors, fmt.Sprintf("unreadable archive: %v", err))
		return result, nil
	}
	if !slices.Equal(names, m.Entries) {
		result.Valid = false
		result.EntryMismatch = true
		result.Errors = append(result.Errors,
			fmt.Sprintf("entry mismatch: manifest lists %d, archive has %d", len(m.Entries), len(names)))
	}

	return result, nil
}
