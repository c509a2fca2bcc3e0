package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/minervarr/CanvasDownloader/internal/model"
)

// runVerify checks that every artifact named by the stored run summary
// exists in the mirror root with the recorded size. Reads only object
// metadata, never artifact data.
func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)

	root := fs.String("root", "", "Mirror root: directory or bucket URL (required)")
	summary := fs.String("summary", model.SummaryKey, "Summary object key")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: canvasdl verify -root <dir-or-url> [options]

Verify that every artifact in the stored run summary is present in the
mirror root with the recorded size.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *root == "" {
		fmt.Fprintln(os.Stderr, "Error: -root is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	bkt, err := openRoot(ctx, *root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening root: %v\n", err)
		return ExitStorageError
	}
	defer bkt.Close()

	result, err := model.Verify(ctx, bkt, *summary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	fmt.Printf("Summary: %s\n", *summary)
	fmt.Printf("Artifacts: %d\n", result.Artifacts)

	if result.Valid {
		fmt.Println("Status: VALID")
		return ExitSuccess
	}

	fmt.Println("Status: INVALID")
	fmt.Printf("Missing: %d\n", result.Missing)
	fmt.Printf("Size mismatches: %d\n", result.SizeMismatches)

	if len(result.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	return ExitVerifyFailed
}
