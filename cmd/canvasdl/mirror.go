package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minervarr/CanvasDownloader/internal/canvas"
	"github.com/minervarr/CanvasDownloader/internal/config"
	"github.com/minervarr/CanvasDownloader/internal/layout"
	"github.com/minervarr/CanvasDownloader/internal/mirror"
	"github.com/minervarr/CanvasDownloader/internal/model"
	"github.com/minervarr/CanvasDownloader/internal/progress"
)

func runMirror(args []string) int {
	fs := flag.NewFlagSet("mirror", flag.ExitOnError)
	planPath := fs.String("plan", "", "Download plan JSON file, or '-' for stdin (required)")
	root := fs.String("root", "", "Mirror root: directory or bucket URL")
	configPath := fs.String("config", "", "Configuration YAML file")
	baseURL := fs.String("base-url", "", "Canvas base URL for relative source refs")
	token := fs.String("token", "", "API bearer token (overrides CANVASDL_TOKEN)")
	workers := fs.Int("workers", 0, "Number of parallel download workers")
	skipExisting := fs.Bool("skip-existing", true, "Skip tasks whose artifact already exists")
	showProgress := fs.Bool("progress", false, "Show progress output")
	dryRun := fs.Bool("dry-run", false, "Resolve and print destination keys without downloading")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: canvasdl mirror -plan <file> -root <dir-or-url> [options]

Downloads every task in the plan into the mirror root, ordered by
priority group, and writes a run summary object next to the artifacts.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Environment:
  CANVASDL_TOKEN    API bearer token (never read from config files)
  CANVASDL_*        Overrides for config file settings

Examples:
  canvasdl mirror -plan plan.json -root ./courses
  canvasdl mirror -plan plan.json -root s3://bucket/courses -workers 8
  generate-plan | canvasdl mirror -plan - -root ./courses -progress`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *planPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -plan is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			return ExitConfigError
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading environment: %v\n", err)
		return ExitConfigError
	}

	override := config.Config{Root: *root}
	override.API.BaseURL = *baseURL
	override.Download.Parallel = *workers
	cfg = cfg.Merge(override)

	// Merge ignores false bools; apply an explicit -skip-existing directly.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "skip-existing" {
			cfg.Download.SkipExisting = *skipExisting
		}
	})

	tasks, err := loadPlan(*planPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading plan: %v\n", err)
		return ExitPlanError
	}
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "[canvasdl] Plan is empty, nothing to do")
		return ExitSuccess
	}

	if *dryRun {
		return runDryRun(tasks, layoutOptions(cfg.Layout))
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return ExitConfigError
	}

	apiToken := *token
	if apiToken == "" {
		apiToken = os.Getenv("CANVASDL_TOKEN")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[canvasdl] Received interrupt, shutting down...")
		cancel()
	}()

	bkt, err := openRoot(ctx, cfg.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening root: %v\n", err)
		return ExitStorageError
	}
	defer bkt.Close()

	client, err := canvas.NewClient(canvas.Options{
		BaseURL:             cfg.API.BaseURL,
		Token:               apiToken,
		UserAgent:           cfg.API.UserAgent,
		Timeout:             cfg.API.Timeout,
		MaxParallel:         cfg.Download.Parallel,
		MinInterval:         cfg.Download.RateInterval,
		MaxIdleConnsPerHost: cfg.Download.Parallel * 2,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating fetch client: %v\n", err)
		return ExitConfigError
	}

	var reporter *progress.Reporter
	if *showProgress {
		reporter = progress.NewReporter(progress.Options{
			TotalTasks:     len(tasks),
			Workers:        cfg.Download.Parallel,
			Root:           cfg.Root,
			UpdateInterval: 5 * time.Second,
		})
		reporter.Start()
		defer reporter.Stop()
	}

	taskPtrs := make([]*model.Task, len(tasks))
	for i := range tasks {
		taskPtrs[i] = &tasks[i]
	}

	report, runErr := mirror.Run(ctx, bkt, taskPtrs, mirror.Options{
		Workers:       cfg.Download.Parallel,
		ChunkSize:     cfg.Download.ChunkSize,
		SkipExisting:  cfg.Download.SkipExisting,
		RetryAttempts: cfg.Download.Retry.Attempts,
		RetryDelay:    cfg.Download.Retry.Delay,
		Fetcher:       client,
		Layout:        layoutOptions(cfg.Layout),
		Progress:      reporter,
	})
	if report == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return ExitGeneralError
	}

	if reporter != nil {
		reporter.Stop()
	}

	// Write the summary even when the run was interrupted.
	if err := report.WriteSummary(context.Background(), bkt, cfg.Report.Summary); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing summary: %v\n", err)
		return ExitStorageError
	}

	fmt.Fprintf(os.Stderr, "[canvasdl] Done: %d published, %d skipped, %d failed in %s\n",
		report.Published, report.Skipped, report.Failed,
		report.Duration().Round(time.Millisecond))

	if runErr != nil {
		fmt.Fprintln(os.Stderr, "[canvasdl] Run interrupted; rerun with skip-existing to resume")
		return ExitGeneralError
	}
	if report.Failed > 0 {
		return ExitPartialFailure
	}
	return ExitSuccess
}

// loadPlan reads the download plan from a file or stdin.
func loadPlan(path string) ([]model.Task, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return model.LoadPlan(r)
}

// runDryRun resolves every task and prints the key it would land at,
// applying the same collision suffixes a real run would.
func runDryRun(tasks []model.Task, opts layout.Options) int {
	resolver := layout.NewResolver(opts)
	claimed := make(map[string]bool)
	unresolved := 0

	for i := range tasks {
		t := &tasks[i]
		p, err := resolver.Resolve(t)
		if err != nil {
			fmt.Printf("!! %-13s %s: %v\n", t.ContentType, t.ID, err)
			unresolved++
			continue
		}
		key := p.Key()
		for n := 1; claimed[key]; n++ {
			key = layout.WithSuffix(p.Key(), n)
		}
		claimed[key] = true
		fmt.Printf("   %-13s %s\n", t.ContentType, key)
	}

	fmt.Fprintf(os.Stderr, "[canvasdl] Dry run: %d tasks, %d unresolvable\n",
		len(tasks), unresolved)
	if unresolved > 0 {
		return ExitPlanError
	}
	return ExitSuccess
}

func layoutOptions(cfg config.LayoutConfig) layout.Options {
	return layout.Options{
		FolderTemplate: cfg.FolderTemplate,
		FilePattern:    cfg.FilePattern,
		NumberWidth:    cfg.NumberWidth,
		MaxNameLength:  cfg.MaxNameLength,
		MaxDepth:       cfg.MaxDepth,
	}
}
