// Package mirror orchestrates Canvas download tasks into cloud storage.
//
// This package coordinates the fetch client, path resolution, and staged
// writes to turn a batch of tasks into a deterministic artifact tree. It
// manages the worker pool and produces exactly one outcome per task.
//
// # Usage
//
// The main entry point is the Run function:
//
//	report, err := mirror.Run(ctx, bucket, tasks, mirror.Options{
//	    Workers:      4,
//	    SkipExisting: true,
//	    Fetcher:      client,
//	})
//
// # Priority Groups
//
// Tasks are bucketed by effective priority and groups run in ascending
// order. A group must drain completely, including failures, before the
// next group starts.
//
// # Claiming
//
// Before downloading, each task claims its final key. Existing artifacts
// the task recognizes as its own are skipped or overwritten in place;
// anything else pushes the task to the next numeric suffix. Claims are
// held for the rest of the run, so no two tasks ever write the same key.
//
// # Crash Safety
//
// Fetched bytes land in a staging area and reach their final key only
// through an atomic publish. A run that dies mid-download leaves staging
// droppings behind; the next run sweeps them before starting.
package mirror
