package archivestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"path"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/collabspace/assetkit/internal/exporter"
)

// ContentType of stored archives.
const ContentType = "application/zip"

// ErrChecksumMismatch is returned when archive bytes do not match the manifest.
var ErrChecksumMismatch = errors.New("archivestore: checksum mismatch")

// Manifest describes a stored archive.
type Manifest struct {
	ExportID     string            `json:"export_id"`
	Archive      string            `json:"archive"`
	Size         int64             `json:"size"`
	Checksum     string            `json:"checksum"`
	Entries      []string          `json:"entries"`
	SuccessCount int               `json:"success_count"`
	Total        int               `json:"total"`
	Skipped      []SkippedInfo     `json:"skipped,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// SkippedInfo records an asset that was left out of the archive.
type SkippedInfo struct {
	ID       string `json:"id"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// Options configures Save.
type Options struct {
	Metadata map[string]string
	Now      func() time.Time
}

// Option is a functional option for Save.
type Option func(*Options)

// WithMetadata sets caller-defined metadata stored in the manifest.
func WithMetadata(metadata map[string]string) Option {
	return func(o *Options) {
		o.Metadata = metadata
	}
}

// WithClock overrides the time stamped into the manifest.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// ManifestKey returns the manifest object key for an archive key.
func ManifestKey(key string) string {
	return key + ".manifest.json"
}

// Save uploads res.Archive to key and then writes its manifest.
func Save(ctx context.Context, bucket *blob.Bucket, key string, res *exporter.Result, options ...Option) (*Manifest, error) {
	opts := Options{Now: time.Now}
	for _, opt := range options {
		opt(&opts)
	}

	if res == nil || len(res.Archive) == 0 {
		return nil, errors.New("archivestore: empty archive")
	}

	sum := sha256.Sum256(res.Archive)
	m := &Manifest{
		ExportID:     res.ExportID,
		Archive:      key,
		Size:         int64(len(res.Archive)),
		Checksum:     hex.EncodeToString(sum[:]),
		Entries:      res.Entries,
		SuccessCount: res.SuccessCount,
		Total:        res.Total,
		Metadata:     opts.Metadata,
		CreatedAt:    opts.Now().UTC(),
	}
	for _, s := range res.Skipped {
		info := SkippedInfo{ID: s.ID, Attempts: s.Attempts}
		if s.Err != nil {
			info.Error = s.Err.Error()
		}
		m.Skipped = append(m.Skipped, info)
	}

	err := bucket.WriteAll(ctx, key, res.Archive, &blob.WriterOptions{
		ContentType:        ContentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("archivestore: write archive: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("archivestore: marshal manifest: %w", err)
	}
	err = bucket.WriteAll(ctx, ManifestKey(key), data, &blob.WriterOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("archivestore: write manifest: %w", err)
	}

	return m, nil
}

// ReadManifest loads the manifest for key.
func ReadManifest(ctx context.Context, bucket *blob.Bucket, key string) (*Manifest, error) {
	data, err := bucket.ReadAll(ctx, ManifestKey(key))
	if err != nil {
		return nil, fmt.Errorf("archivestore: read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("archivestore: unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Open returns a reader over the stored archive together with its manifest.
// With verify set, the reader returns ErrChecksumMismatch at EOF if the bytes
// do not hash to the manifest checksum.
func Open(ctx context.Context, bucket *blob.Bucket, key string, verify bool) (io.ReadCloser, *Manifest, error) {
	m, err := ReadManifest(ctx, bucket, key)
	if err != nil {
		return nil, nil, err
	}

	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("archivestore: open archive: %w", err)
	}

	if !verify || m.Checksum == "" {
		return r, m, nil
	}
	return &verifyingReader{r: r, hash: sha256.New(), want: m.Checksum}, m, nil
}

type verifyingReader struct {
	r    io.ReadCloser
	hash hash.Hash
	want string
}

func (v *verifyingReader) Read(p []byte) (int, error) {
	n, err := v.r.Read(p)
	if n > 0 {
		v.hash.Write(p[:n])
	}
	if err == io.EOF && hex.EncodeToString(v.hash.Sum(nil)) != v.want {
		return n, ErrChecksumMismatch
	}
	return n, err
}

func (v *verifyingReader) Close() error {
	return v.r.Close()
}

func isNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
