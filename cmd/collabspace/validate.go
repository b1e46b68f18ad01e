package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/collabspace/assetkit/pkg/archivestore"
)

// runValidate checks that a stored archive matches its manifest: the object
// exists, its size and checksum agree and its ZIP directory lists the
// recorded entries.
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	bucket := fs.String("bucket", "", "Bucket URL (required)")
	object := fs.String("object", "", "Archive object path (required)")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: collabspace validate [options]

Verify that a stored archive exists and matches its manifest.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	if *bucket == "" || *object == "" {
		fmt.Fprintln(stderr, "Error: -bucket and -object are required")
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

	result, err := archivestore.Validate(ctx, bkt, *object)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	fmt.Fprintf(stdout, "Archive: %s\n", *object)
	fmt.Fprintf(stdout, "Size: %d bytes\n", result.Size)
	fmt.Fprintf(stdout, "Entries: %d\n", result.EntryCount)

	if result.Valid {
		fmt.Fprintln(stdout, "Status: VALID")
		return ExitSuccess
	}

	fmt.Fprintln(stdout, "Status: INVALID")
	if len(result.Errors) > 0 {
		fmt.Fprintln(stdout, "\nErrors:")
		for _, e := range result.Errors {
			fmt.Fprintf(stdout, "  - %s\n", e)
		}
	}

	return ExitValidationFailed
}
