//go:build integration

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	_ "gocloud.dev/blob/s3blob"

	"github.com/collabspace/assetkit/internal/archive"
	"github.com/collabspace/assetkit/internal/testutils"
	"github.com/collabspace/assetkit/pkg/archivestore"
)

func TestCLIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	assets := []testutils.TestAsset{
		{Name: "beach.jpg", Data: testutils.JPEG(256 * 1024)},
		{Name: "forest.jpg", Data: testutils.JPEG(64 * 1024), FailFirst: 1},
		{Name: "city.jpg", Data: testutils.JPEG(128 * 1024)},
	}

	t.Log("Starting asset server...")
	server := testutils.StartAssetServer(t, assets)

	t.Log("Starting Minio container...")
	minio := testutils.StartMinioContainer(t, ctx, "collabspace-exports")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	}()

	fs := afero.NewMemMapFs()
	catalogYAML := `
assets:
  - id: recBeach
    source_url: ` + server.URLFor("beach.jpg") + `
    display_name: Plage été
  - id: recForest
    source_url: ` + server.URLFor("forest.jpg") + `
    display_name: Forest
  - id: recCity
    source_url: ` + server.URLFor("city.jpg") + `
    display_name: City
    rights:
      start: 01/01/2000
      end: 31/12/2001
  - id: recGone
    source_url: ` + server.URLFor("gone.jpg") + `
    display_name: Gone
`
	if err := afero.WriteFile(fs, "catalog.yaml", []byte(catalogYAML), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	old := catalogFs
	catalogFs = fs
	defer func() { catalogFs = old }()

	objectPath := "exports/integration.zip"

	t.Run("export", func(t *testing.T) {
		exitCode := runExport([]string{
			"-catalog", "catalog.yaml",
			"-bucket", minio.BucketURL,
			"-object", objectPath,
			"-batch-pause", "50ms",
			"-retry-delay", "10ms",
			"-env-file", filepath.Join(t.TempDir(), "none.env"),
		})
		if exitCode != ExitSuccess {
			t.Fatalf("export failed with exit code %d", exitCode)
		}

		if n := server.Requests("/city.jpg"); n != 0 {
			t.Errorf("asset with expired rights was fetched %d times", n)
		}
		if n := server.Requests("/forest.jpg"); n != 2 {
			t.Errorf("expected forest.jpg to be fetched twice, got %d", n)
		}
		if n := server.Requests("/gone.jpg"); n != 3 {
			t.Errorf("expected gone.jpg to be tried 3 times, got %d", n)
		}
	})

	t.Run("manifest", func(t *testing.T) {
		bkt, err := minio.OpenBucket(ctx)
		if err != nil {
			t.Fatalf("open bucket: %v", err)
		}
		defer bkt.Close()

		m, err := archivestore.ReadManifest(ctx, bkt, objectPath)
		if err != nil {
			t.Fatalf("read manifest: %v", err)
		}
		if m.SuccessCount != 2 || m.Total != 3 {
			t.Errorf("expected 2/3 assets, got %d/%d", m.SuccessCount, m.Total)
		}
		if len(m.Skipped) != 1 || m.Skipped[0].ID != "recGone" {
			t.Errorf("expected recGone to be skipped, got %+v", m.Skipped)
		}
	})

	t.Run("validate", func(t *testing.T) {
		exitCode := runValidate([]string{
			"-bucket", minio.BucketURL,
			"-object", objectPath,
		})
		if exitCode != ExitSuccess {
			t.Fatalf("validate failed with exit code %d", exitCode)
		}
	})

	t.Run("get_to_file", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "integration.zip")

		exitCode := runGet([]string{
			"-bucket", minio.BucketURL,
			"-object", objectPath,
			"-output", tmpFile,
			"-verify",
		})
		if exitCode != ExitSuccess {
			t.Fatalf("get failed with exit code %d", exitCode)
		}

		data, err := os.ReadFile(tmpFile)
		if err != nil {
			t.Fatalf("read archive: %v", err)
		}
		names, err := archive.List(data)
		if err != nil {
			t.Fatalf("list archive: %v", err)
		}

		want := map[string]bool{"plage_ete.jpg": true, "forest.jpg": true}
		if len(names) != len(want) {
			t.Fatalf("expected %d entries, got %v", len(want), names)
		}
		for _, n := range names {
			if !want[n] {
				t.Errorf("unexpected entry %q", n)
			}
		}
	})

	t.Run("get_to_stdout", func(t *testing.T) {
		var buf bytes.Buffer
		oldOut := stdout
		stdout = &buf
		defer func() { stdout = oldOut }()

		exitCode := runGet([]string{
			"-bucket", minio.BucketURL,
			"-object", objectPath,
			"-output", "-",
		})
		if exitCode != ExitSuccess {
			t.Fatalf("get failed with exit code %d", exitCode)
		}
		if _, err := archive.List(buf.Bytes()); err != nil {
			t.Fatalf("stdout is not a zip archive: %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		exitCode := runDelete([]string{
			"-bucket", minio.BucketURL,
			"-object", objectPath,
			"-force",
		})
		if exitCode != ExitSuccess {
			t.Fatalf("delete failed with exit code %d", exitCode)
		}

		exitCode = runValidate([]string{
			"-bucket", minio.BucketURL,
			"-object", objectPath,
		})
		if exitCode == ExitSuccess {
			t.Fatal("validate should have failed after delete")
		}
	})
}
