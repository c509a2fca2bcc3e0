package mirror

import (
	"context"

	"github.com/google/uuid"

	"github.com/minervarr/CanvasDownloader/internal/layout"
	"github.com/minervarr/CanvasDownloader/internal/model"
	"github.com/minervarr/CanvasDownloader/pkg/staged"
)

// claimVerdict says what the worker should do with a claimed key.
type claimVerdict int

const (
	// claimFresh means nothing sits at the key; download and publish.
	claimFresh claimVerdict = iota
	// claimOwn means an artifact satisfying the task sits at the key and
	// skipping is off; overwrite it in place.
	claimOwn
	// claimSkip means an existing artifact satisfies the task.
	claimSkip
)

// maxSuffix bounds the numeric disambiguation walk before falling back to
// an opaque fragment.
const maxSuffix = 1000

// claim picks the final key for a task. It walks suffix candidates until
// one is usable:
//
//   - an unclaimed, absent key is taken as is,
//   - an existing artifact the task recognizes as its own is reused,
//   - anything else belongs to a different artifact and forces the next
//     numeric suffix.
//
// A key claimed in this run stays claimed even when its task later fails,
// so two tasks can never target the same key. The returned size is the
// existing artifact's size, meaningful for claimSkip and claimOwn.
func (r *run) claim(ctx context.Context, t *model.Task) (string, claimVerdict, int64, error) {
	base, err := r.resolver.Resolve(t)
	if err != nil {
		return "", claimFresh, 0, err
	}

	baseKey := base.Key()
	for n := 0; ; n++ {
		var key string
		switch {
		case n == 0:
			key = baseKey
		case n <= maxSuffix:
			key = layout.WithSuffix(baseKey, n)
		default:
			// Numeric candidates exhausted.
			key = layout.WithUnique(baseKey, uuid.NewString()[:8])
		}

		verdict, size, ok, err := r.inspect(ctx, t, key)
		if err != nil {
			return key, claimFresh, 0, err
		}
		if ok {
			return key, verdict, size, nil
		}
	}
}

// inspect decides whether the task may use key. ok=false means the key
// serves a different artifact and the caller should try the next
// candidate.
func (r *run) inspect(ctx context.Context, t *model.Task, key string) (claimVerdict, int64, bool, error) {
	r.mu.Lock()
	owner, taken := r.claims[key]
	if !taken {
		r.claims[key] = t.ID
	}
	r.mu.Unlock()

	if taken && owner != t.ID {
		return claimFresh, 0, false, nil
	}

	size, exists, err := staged.Stat(ctx, r.bucket, key)
	if err != nil {
		return claimFresh, 0, false, err
	}
	if !exists {
		return claimFresh, 0, true, nil
	}
	if !ownsArtifact(t, size) {
		// A foreign artifact occupies the key. The reservation stays.
		return claimFresh, 0, false, nil
	}
	if r.opts.SkipExisting {
		return claimSkip, size, true, nil
	}
	return claimOwn, size, true, nil
}

// ownsArtifact reports whether an existing artifact of the given size
// satisfies the task: the expected size matches exactly, or the expected
// size is unknown and the artifact is non-empty.
func ownsArtifact(t *model.Task, size int64) bool {
	if t.SizeKnown() {
		return size == t.ExpectedSize
	}
	return size > 0
}
