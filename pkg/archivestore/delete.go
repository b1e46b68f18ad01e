package archivestore

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
)

// Delete removes a stored archive and its manifest. A missing archive object
// is tolerated so that half-deleted exports can be cleaned up.
//
// Returns an error if:
//   - The manifest doesn't exist (error wraps gcerrors.NotFound)
//   - An object cannot be deleted (permission denied, network error)
//   - The context is cancelled (context.Canceled or context.DeadlineExceeded)
func Delete(ctx context.Context, bucket *blob.Bucket, key string) error {
	manifestKey := ManifestKey(key)

	if _, err := bucket.Attributes(ctx, manifestKey); err != nil {
		return fmt.Errorf("archivestore: read manifest: %w", err)
	}

	if err := bucket.Delete(ctx, key); err != nil && !isNotExist(err) {
		return fmt.Errorf("archivestore: delete archive %s: %w", key, err)
	}

	if err := bucket.Delete(ctx, manifestKey); err != nil {
		return fmt.Errorf("archivestore: delete manifest: %w", err)
	}

	return nil
}
