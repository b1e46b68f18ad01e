package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/collabspace/assetkit/internal/config"
	"github.com/collabspace/assetkit/internal/logging"
	"github.com/collabspace/assetkit/internal/rights"
)

// runRights evaluates a single usage-rights window. Exits 0 when the window
// is active and ExitInactive when it is not.
func runRights(args []string) int {
	fs := flag.NewFlagSet("rights", flag.ContinueOnError)
	fs.SetOutput(stderr)

	start := fs.String("start", "", "Window start (DD/MM/YYYY or ISO-8601)")
	end := fs.String("end", "", "Window end (DD/MM/YYYY or ISO-8601)")
	now := fs.String("now", "", "Evaluate at this instant instead of the current time")
	timezone := fs.String("timezone", "Local", "Timezone for date-only values")
	logLevel := fs.String("log-level", "warn", "Log level: debug, info, warn, error")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: collabspace rights [options]

Evaluate whether a usage-rights window is active. Both bounds are inclusive.
A window without start and end is always active; a window with only one
bound, or with an unparseable bound, is never active.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	cfg := config.Default()
	cfg.Timezone = *timezone
	loc, err := cfg.Location()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	log, err := logging.New(logging.Options{Level: *logLevel, Output: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	at := time.Now()
	if *now != "" {
		t, ok := rights.ParseDate(*now, loc)
		if !ok {
			fmt.Fprintf(stderr, "Error: cannot parse -now %q\n", *now)
			return ExitInvalidArgs
		}
		at = t
	}

	ev := &rights.Evaluator{Location: loc, Logger: log}
	if ev.ActiveAt(rights.Window{Start: *start, End: *end}, at) {
		fmt.Fprintln(stdout, "active")
		return ExitSuccess
	}
	fmt.Fprintln(stdout, "inactive")
	return ExitInactive
}
