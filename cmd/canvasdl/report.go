package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/minervarr/CanvasDownloader/internal/model"
	"github.com/minervarr/CanvasDownloader/internal/progress"
)

// runReport prints the stored run summary in human-readable form.
func runReport(args []string) int {
	fs := flag.NewFlagSet("report", flag.ExitOnError)

	root := fs.String("root", "", "Mirror root: directory or bucket URL (required)")
	summary := fs.String("summary", model.SummaryKey, "Summary object key")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: canvasdl report -root <dir-or-url> [options]

Print the run summary stored in the mirror root.

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

	ctx := context.Background()

	bkt, err := openRoot(ctx, *root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening root: %v\n", err)
		return ExitStorageError
	}
	defer bkt.Close()

	rep, err := model.ReadSummary(ctx, bkt, *summary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	fmt.Printf("Run started: %s\n", rep.StartedAt.Format(time.RFC3339))
	fmt.Printf("Duration: %s\n", rep.Duration().Round(time.Millisecond))
	fmt.Printf("Tasks: %d total, %d published, %d skipped, %d failed\n",
		rep.Total(), rep.Published, rep.Skipped, rep.Failed)
	fmt.Printf("Bytes written: %s\n", progress.FormatBytes(rep.Bytes))
	fmt.Printf("Success rate: %.1f%%\n", rep.SuccessRate())

	if len(rep.Failures) > 0 {
		fmt.Println("\nFailures:")
		for _, f := range rep.Failures {
			fmt.Printf("  - %s [%s] %s after %d attempts: %s\n",
				f.TaskID, f.ContentType, f.Kind, f.Attempts, f.Err)
		}
	}

	return ExitSuccess
}
