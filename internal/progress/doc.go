// Package progress provides progress reporting for mirror runs.
//
// This package outputs human-readable progress information to stdout,
// including completion percentage, transfer speed, and ETA.
//
// # Usage
//
//	reporter := progress.NewReporter(Options{
//	    TotalTasks: len(tasks),
//	    Workers:    workers,
//	    Output:     os.Stdout,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	// Update as tasks finish
//	reporter.TaskPublished(artifactSize)
//
// # Output Format
//
//	[canvasdl] Mirroring into: /srv/mirror/canvas
//	[canvasdl] Tasks: 128 | Workers: 4
//	[canvasdl] Progress: 45.3% | 58/128 tasks | Speed: 1.2 MB/s | ETA: 1m 12s
//	[canvasdl] Tasks: 52 published | 4 skipped | 2 failed | 4 in-progress
package progress
