// Package archivestore delivers export archives to object storage.
//
// It is storage-agnostic via gocloud.dev/blob: the same code writes to a
// local directory (file://), S3 (s3://), GCS (gs://) or memory (mem://).
//
// # Storage Layout
//
//	{bucket}/{key}                  the ZIP archive
//	{bucket}/{key}.manifest.json    metadata written after the archive
//
// # Manifest Format
//
//	{
//	  "export_id": "7b0c...",
//	  "archive": "exports/2024-04-01/summer.zip",
//	  "size": 10485760,
//	  "checksum": "sha256 hex",
//	  "entries": ["sunset.jpg", "beach.jpg"],
//	  "success_count": 2,
//	  "total": 3,
//	  "skipped": [{"id": "recX", "attempts": 3, "error": "..."}],
//	  "created_at": "2024-04-01T10:30:00Z"
//	}
//
// The manifest is written last, so its presence means the archive upload
// finished. [Validate] checks the archive against it; [Delete] removes both.
package archivestore
