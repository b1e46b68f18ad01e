package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/collabspace/assetkit/internal/progress"
	"github.com/collabspace/assetkit/pkg/archivestore"
)

// runGet copies a stored archive to a local file, or to stdout when -output
// is "-".
func runGet(args []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(stderr)

	bucket := fs.String("bucket", "", "Source bucket URL (required)")
	object := fs.String("object", "", "Archive object path (required)")
	output := fs.String("output", "", "Output file path, or - for stdout (required)")
	verify := fs.Bool("verify", false, "Verify the manifest checksum while reading")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: collabspace get [options]

Copy a stored archive from object storage to a local file.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	if *bucket == "" || *object == "" || *output == "" {
		fmt.Fprintln(stderr, "Error: -bucket, -object, and -output are required")
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	bkt, code := openBucket(ctx, *bucket)
	if code != ExitSuccess {
		return code
	}
	defer bkt.Close()

	r, manifest, err := archivestore.Open(ctx, bkt, *object, *verify)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitStorageError
	}
	defer r.Close()

	if *output == "-" {
		if _, err := io.Copy(stdout, r); err != nil {
			return copyErrorCode(err)
		}
		return ExitSuccess
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating file: %v\n", err)
		return ExitGeneralError
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(*output)
		return copyErrorCode(err)
	}

	fmt.Fprintf(stderr, "[collabspace] Wrote %s (%d entries) to %s\n",
		progress.FormatBytes(n), len(manifest.Entries), *output)
	return ExitSuccess
}

func copyErrorCode(err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	if errors.Is(err, archivestore.ErrChecksumMismatch) {
		return ExitValidationFailed
	}
	return ExitStorageError
}
