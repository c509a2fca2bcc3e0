package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// Exit codes
const (
	ExitSuccess        = 0
	ExitGeneralError   = 1
	ExitInvalidArgs    = 2
	ExitConfigError    = 3
	ExitPlanError      = 4
	ExitStorageError   = 5
	ExitPartialFailure = 6
	ExitVerifyFailed   = 7
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
	case "mirror":
		return runMirror(cmdArgs)
	case "verify":
		return runVerify(cmdArgs)
	case "report":
		return runReport(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: canvasdl <command> [options]

Commands:
  mirror    Download a plan of Canvas artifacts into the mirror root
  verify    Check every artifact in the stored summary against the root
  report    Print the stored run summary

Run 'canvasdl <command> -h' for command-specific help.`)
}

// openRoot opens the mirror root as a blob bucket. Roots without a URL
// scheme are treated as local directories and created when absent.
func openRoot(ctx context.Context, root string) (*blob.Bucket, error) {
	if !strings.Contains(root, "://") {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root: %w", err)
		}
		root = "file://" + filepath.ToSlash(abs) + "?create_dir=true&metadata=skip"
	}
	return blob.OpenBucket(ctx, root)
}
