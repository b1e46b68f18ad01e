package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInvalidArgs      = 2
	ExitCatalogError     = 3
	ExitNothingToExport  = 4
	ExitStorageError     = 5
	ExitAllFailed        = 6
	ExitValidationFailed = 7
)

// ExitInactive is returned by the rights command for a closed window.
const ExitInactive = ExitGeneralError

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "export":
		return runExport(cmdArgs)
	case "rights":
		return runRights(cmdArgs)
	case "validate":
		return runValidate(cmdArgs)
	case "get":
		return runGet(cmdArgs)
	case "delete":
		return runDelete(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(stderr, `Usage: collabspace <command> [options]

Commands:
  export    Fetch catalog assets with active rights and store them as a ZIP archive
  rights    Evaluate a usage-rights window
  validate  Verify a stored archive against its manifest
  get       Copy a stored archive to a local file or stdout
  delete    Remove a stored archive and its manifest

Run 'collabspace <command> -h' for command-specific help.`)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(stderr, "\n[collabspace] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func openBucket(ctx context.Context, bucketURL string) (*blob.Bucket, int) {
	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening bucket: %v\n", err)
		return nil, ExitStorageError
	}
	return bkt, ExitSuccess
}
