package archivestore

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/collabspace/assetkit/internal/archive"
	"github.com/collabspace/assetkit/internal/exporter"
)

func openBucket(t *testing.T) *blob.Bucket {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { bucket.Close() })
	return bucket
}

func testResult(t *testing.T) *exporter.Result {
	t.Helper()
	b := archive.NewBuilder()
	b.Add("sunset.jpg", []byte("sunset-bytes"))
	b.Add("beach.jpg", []byte("beach-bytes"))
	data, err := b.Finalize(nil)
	require.NoError(t, err)

	return &exporter.Result{
		ExportID:     "export-1",
		SuccessCount: 2,
		Total:        3,
		Archive:      data,
		Entries:      b.Names(),
		Skipped: []exporter.SkippedAsset{
			{ID: "recX", Attempts: 3, Err: errors.New("fetch: resource not found")},
		},
	}
}

func TestSaveAndReadManifest(t *testing.T) {
	ctx := context.Background()
	bucket := openBucket(t)
	res := testResult(t)
	created := time.Date(2024, 4, 1, 10, 30, 0, 0, time.UTC)

	m, err := Save(ctx, bucket, "exports/summer.zip", res,
		WithMetadata(map[string]string{"requested_by": "client-42"}),
		WithClock(func() time.Time { return created }),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(len(res.Archive)), m.Size)
	assert.Len(t, m.Checksum, 64)

	attrs, err := bucket.Attributes(ctx, "exports/summer.zip")
	require.NoError(t, err)
	assert.Equal(t, ContentType, attrs.ContentType)

	got, err := ReadManifest(ctx, bucket, "exports/summer.zip")
	require.NoError(t, err)
	assert.Equal(t, "export-1", got.ExportID)
	assert.Equal(t, []string{"sunset.jpg", "beach.jpg"}, got.Entries)
	assert.Equal(t, 2, got.SuccessCount)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, "client-42", got.Metadata["requested_by"])
	assert.True(t, created.Equal(got.CreatedAt))
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, SkippedInfo{ID: "recX", Attempts: 3, Error: "fetch: resource not found"}, got.Skipped[0])
}

func TestSaveEmpty(t *testing.T) {
	_, err := Save(context.Background(), openBucket(t), "x.zip", &exporter.Result{})
	assert.Error(t, err)
}

func TestOpenVerify(t *testing.T) {
	ctx := context.Background()
	bucket := openBucket(t)
	res := testResult(t)

	_, err := Save(ctx, bucket, "a.zip", res)
	require.NoError(t, err)

	r, m, err := Open(ctx, bucket, "a.zip", true)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	r.Close()
	assert.Equal(t, res.Archive, data)
	assert.Equal(t, "export-1", m.ExportID)

	// Corrupt the archive behind the manifest's back.
	require.NoError(t, bucket.WriteAll(ctx, "a.zip", []byte("tampered"), nil))

	r, _, err = Open(ctx, bucket, "a.zip", true)
	require.NoError(t, err)
	defer r.Close()
	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestOpenMissingManifest(t *testing.T) {
	_, _, err := Open(context.Background(), openBucket(t), "none.zip", false)
	require.Error(t, err)
	assert.Equal(t, gcerrors.NotFound, gcerrors.Code(err))
}
