package model

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gocloud.dev/blob"

	"github.com/minervarr/CanvasDownloader/pkg/staged"
)

// SummaryKey is the default object key for the run summary inside the
// mirror root.
const SummaryKey = "download_summary.json"

// Artifact records one mirrored object for later verification.
type Artifact struct {
	TaskID      string      `json:"task_id"`
	ContentType ContentType `json:"content_type"`
	Path        string      `json:"path"`
	Size        int64       `json:"size"`
	Skipped     bool        `json:"skipped,omitempty"`
}

// TaskError records one failed task.
type TaskError struct {
	TaskID      string      `json:"task_id"`
	ContentType ContentType `json:"content_type"`
	Kind        FailureKind `json:"kind"`
	Attempts    int         `json:"attempts"`
	Err         string      `json:"error"`
	At          time.Time   `json:"at"`
}

// Report aggregates the outcomes of a mirror run.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Published int   `json:"published"`
	Skipped   int   `json:"skipped"`
	Failed    int   `json:"failed"`
	Bytes     int64 `json:"bytes_written"`

	Artifacts []Artifact  `json:"artifacts"`
	Failures  []TaskError `json:"failures,omitempty"`
}

// NewReport returns an empty report stamped with the current time.
func NewReport() *Report {
	return &Report{StartedAt: time.Now().UTC()}
}

// Add folds one outcome into the report. Not safe for concurrent use; the
// orchestrator aggregates from a single goroutine.
func (r *Report) Add(o Outcome) {
	switch o.Status {
	case StatusPublished:
		r.Published++
		r.Bytes += o.Bytes
		r.Artifacts = append(r.Artifacts, Artifact{
			TaskID:      o.TaskID,
			ContentType: o.ContentType,
			Path:        o.Path,
			Size:        o.Bytes,
		})
	case StatusSkipped:
		r.Skipped++
		r.Artifacts = append(r.Artifacts, Artifact{
			TaskID:      o.TaskID,
			ContentType: o.ContentType,
			Path:        o.Path,
			Size:        o.Bytes,
			Skipped:     true,
		})
	case StatusFailed:
		r.Failed++
		r.Failures = append(r.Failures, TaskError{
			TaskID:      o.TaskID,
			ContentType: o.ContentType,
			Kind:        o.Failure,
			Attempts:    o.Attempts,
			Err:         o.Err,
			At:          time.Now().UTC(),
		})
	}
}

// Finish stamps the end of the run.
func (r *Report) Finish() {
	r.FinishedAt = time.Now().UTC()
}

// Total returns the number of tasks accounted for.
func (r *Report) Total() int {
	return r.Published + r.Skipped + r.Failed
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SuccessRate returns the percentage of tasks that published or skipped.
func (r *Report) SuccessRate() float64 {
	total := r.Total()
	if total == 0 {
		return 0
	}
	return float64(r.Published+r.Skipped) / float64(total) * 100
}

// WriteSummary stores the report as JSON in the bucket.
func (r *Report) WriteSummary(ctx context.Context, bucket *blob.Bucket, key string) error {
	if key == "" {
		key = SummaryKey
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := bucket.WriteAll(ctx, key, data, nil); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// ReadSummary loads a previously written report from the bucket.
func ReadSummary(ctx context.Context, bucket *blob.Bucket, key string) (*Report, error) {
	if key == "" {
		key = SummaryKey
	}
	data, err := bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &r, nil
}

// VerifyResult reports whether the artifacts a summary names are all in
// place with the recorded sizes.
type VerifyResult struct {
	Artifacts      int
	Missing        int
	SizeMismatches int
	Valid          bool
	Errors         []string
}

// Verify checks every artifact in the stored summary against the bucket.
// It reads only object metadata, never artifact data.
func Verify(ctx context.Context, bucket *blob.Bucket, key string) (*VerifyResult, error) {
	report, err := ReadSummary(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Artifacts: len(report.Artifacts)}
	for _, a := range report.Artifacts {
		size, ok, err := staged.Stat(ctx, bucket, a.Path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", a.Path, err)
		}
		if !ok {
			result.Missing++
			result.Errors = append(result.Errors, fmt.Sprintf("missing: %s", a.Path))
			continue
		}
		if size != a.Size {
			result.SizeMismatches++
			result.Errors = append(result.Errors, fmt.Sprintf("size mismatch: %s (expected %d, got %d)", a.Path, a.Size, size))
		}
	}

	result.Valid = result.Missing == 0 && result.SizeMismatches == 0
	return result, nil
}
