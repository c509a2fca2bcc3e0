package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minervarr/CanvasDownloader/internal/canvas"
	"github.com/minervarr/CanvasDownloader/internal/layout"
	"github.com/minervarr/CanvasDownloader/internal/model"
	"github.com/minervarr/CanvasDownloader/pkg/staged"
)

// execute drives one task to its outcome.
func (r *run) execute(ctx context.Context, t *model.Task) model.Outcome {
	if r.opts.Progress != nil {
		r.opts.Progress.TaskStarted()
	}

	// Tasks picked up after cancellation fail without touching the
	// network.
	if ctx.Err() != nil {
		return model.Failed(t, "", model.FailureCancelled, ctx.Err(), 0)
	}

	start := time.Now()

	key, verdict, size, err := r.claim(ctx, t)
	if err != nil {
		var resErr *layout.ResolutionError
		if errors.As(err, &resErr) {
			return model.Failed(t, "", model.FailurePath, err, time.Since(start))
		}
		if ctx.Err() != nil {
			return model.Failed(t, key, model.FailureCancelled, err, time.Since(start))
		}
		return model.Failed(t, key, model.FailureTransient, err, time.Since(start))
	}

	if verdict == claimSkip {
		return model.Skipped(t, key, size)
	}

	// claimFresh downloads onto an empty key, claimOwn over the task's
	// own stale artifact.
	return r.download(ctx, t, key, start)
}

// download fetches the task with retries and publishes the result.
func (r *run) download(ctx context.Context, t *model.Task, key string, start time.Time) model.Outcome {
	var lastErr error

	for attempt := 0; attempt <= r.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := r.backoff(ctx, attempt); err != nil {
				return model.Failed(t, key, model.FailureCancelled, err, time.Since(start))
			}
		}

		t.Attempts++
		size, err := r.attempt(ctx, t, key)
		if err == nil {
			return model.Published(t, key, size, time.Since(start))
		}
		lastErr = err

		if ctx.Err() != nil {
			return model.Failed(t, key, model.FailureCancelled, err, time.Since(start))
		}

		switch failureKind(err) {
		case model.FailurePublish:
			return model.Failed(t, key, model.FailurePublish, err, time.Since(start))
		case model.FailurePermanent:
			return model.Failed(t, key, model.FailurePermanent, err, time.Since(start))
		}
	}

	return model.Failed(t, key, model.FailureTransient, lastErr, time.Since(start))
}

// attempt performs one fetch, staging write, and publish cycle.
func (r *run) attempt(ctx context.Context, t *model.Task, key string) (int64, error) {
	body, _, err := r.fetcherFor(t).Fetch(ctx, t.SourceRef)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	f, err := staged.Create(r.bucket, key,
		staged.WithStagingPrefix(r.opts.StagingPrefix),
		staged.WithRun(r.opts.RunID),
	)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, r.opts.ChunkSize)
	if _, err := io.CopyBuffer(f, body, buf); err != nil {
		f.Abort()
		return 0, fmt.Errorf("stage %s: %w", key, err)
	}

	size, err := f.Publish(ctx)
	if err == nil {
		return size, nil
	}

	// The staged bytes are intact; the publish alone gets one more chance.
	if waitErr := r.backoff(ctx, 1); waitErr != nil {
		f.Abort()
		return 0, err
	}
	size, retryErr := f.Publish(ctx)
	if retryErr != nil {
		f.Abort()
		return 0, retryErr
	}
	return size, nil
}

// backoff waits before retry number attempt. The wait grows linearly with
// the attempts already made.
func (r *run) backoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.opts.RetryDelay * time.Duration(attempt)):
		return nil
	}
}

// failureKind classifies a failed attempt. Publish failures and permanent
// fetch errors end the task; everything else stays retryable.
func failureKind(err error) model.FailureKind {
	var pubErr *staged.PublishError
	if errors.As(err, &pubErr) {
		return model.FailurePublish
	}
	if canvas.IsPermanent(err) {
		return model.FailurePermanent
	}
	return model.FailureTransient
}
