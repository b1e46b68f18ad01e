package archivestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/gcerrors"
)

func TestDelete(t *testing.T) {
	ctx := context.Background()
	bucket := openBucket(t)

	_, err := Save(ctx, bucket, "d.zip", testResult(t))
	require.NoError(t, err)

	require.NoError(t, Delete(ctx, bucket, "d.zip"))

	for _, key := range []string{"d.zip", ManifestKey("d.zip")} {
		exists, err := bucket.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists, "%s should be gone", key)
	}
}

func TestDeleteArchiveAlreadyGone(t *testing.T) {
	ctx := context.Background()
	bucket := openBucket(t)

	_, err := Save(ctx, bucket, "half.zip", testResult(t))
	require.NoError(t, err)
	require.NoError(t, bucket.Delete(ctx, "half.zip"))

	require.NoError(t, Delete(ctx, bucket, "half.zip"))
	exists, err := bucket.Exists(ctx, ManifestKey("half.zip"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteNotFound(t *testing.T) {
	err := Delete(context.Background(), openBucket(t), "none.zip")
	require.Error(t, err)
	assert.Equal(t, gcerrors.NotFound, gcerrors.Code(err))
}
