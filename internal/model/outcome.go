package model

import "time"

// Status is the terminal state of a task.
type Status string

const (
	// StatusPublished means the artifact was fetched and now sits at its
	// final path.
	StatusPublished Status = "published"
	// StatusSkipped means an existing artifact satisfied the task.
	StatusSkipped Status = "skipped"
	// StatusFailed means the task exhausted its options.
	StatusFailed Status = "failed"
)

// FailureKind classifies why a task failed.
type FailureKind string

const (
	// FailurePath means the task metadata could not produce a usable path.
	FailurePath FailureKind = "path"
	// FailureTransient means retryable errors persisted through every attempt.
	FailureTransient FailureKind = "transient"
	// FailurePermanent means the fetch failed in a way retry cannot cure.
	FailurePermanent FailureKind = "permanent"
	// FailurePublish means the staged bytes could not be moved into place.
	FailurePublish FailureKind = "publish"
	// FailureCancelled means the run was cancelled before the task finished.
	FailureCancelled FailureKind = "cancelled"
)

// Outcome records the terminal state of a single task. Every task of a run
// produces exactly one.
type Outcome struct {
	TaskID      string
	ContentType ContentType
	Status      Status

	// Path is the final object key, empty when resolution failed.
	Path string

	// Bytes is the published size, or the existing size for skips.
	Bytes int64

	// Reason explains a skip.
	Reason string

	// Failure and Err are set only when Status is StatusFailed.
	Failure FailureKind
	Err     string

	Attempts int
	Elapsed  time.Duration
}

// Published returns the outcome for an artifact that reached its final path.
func Published(t *Task, path string, bytes int64, elapsed time.Duration) Outcome {
	return Outcome{
		TaskID:      t.ID,
		ContentType: t.ContentType,
		Status:      StatusPublished,
		Path:        path,
		Bytes:       bytes,
		Attempts:    t.Attempts,
		Elapsed:     elapsed,
	}
}

// Skipped returns the outcome for a task satisfied by an existing artifact.
func Skipped(t *Task, path string, size int64) Outcome {
	reason := "existing artifact is non-empty"
	if t.SizeKnown() {
		reason = "existing artifact matches expected size"
	}
	return Outcome{
		TaskID:      t.ID,
		ContentType: t.ContentType,
		Status:      StatusSkipped,
		Path:        path,
		Bytes:       size,
		Reason:      reason,
		Attempts:    t.Attempts,
	}
}

// Failed returns the outcome for a task that could not be completed.
func Failed(t *Task, path string, kind FailureKind, err error, elapsed time.Duration) Outcome {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Outcome{
		TaskID:      t.ID,
		ContentType: t.ContentType,
		Status:      StatusFailed,
		Path:        path,
		Failure:     kind,
		Err:         msg,
		Attempts:    t.Attempts,
		Elapsed:     elapsed,
	}
}
