package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/collabspace/assetkit/pkg/archivestore"
)

// runDelete removes a stored archive and its manifest.
// By default prompts for confirmation unless -force is specified.
func runDelete(args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(stderr)

	bucket := fs.String("bucket", "", "Bucket URL (required)")
	object := fs.String("object", "", "Archive object path (required)")
	force := fs.Bool("force", false, "Skip confirmation prompt")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: collabspace delete [options]

Remove a stored archive and its manifest from object storage.

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

	if !*force {
		fmt.Fprintf(stdout, "Delete archive %s from %s? [y/N]: ", *object, *bucket)
		response, _ := bufio.NewReader(stdin).ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(stderr, "Cancelled")
			return ExitSuccess
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	bkt, code := openBucket(ctx, *bucket)
	if code != ExitSuccess {
		return code
	}
	defer bkt.Close()

	if err := archivestore.Delete(ctx, bkt, *object); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	fmt.Fprintf(stderr, "[collabspace] Deleted: %s/%s\n", *bucket, *object)
	return ExitSuccess
}
