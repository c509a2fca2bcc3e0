package mirror

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocloud.dev/blob"

	"github.com/minervarr/CanvasDownloader/internal/layout"
	"github.com/minervarr/CanvasDownloader/internal/model"
	"github.com/minervarr/CanvasDownloader/internal/progress"
	"github.com/minervarr/CanvasDownloader/pkg/staged"
)

// Fetcher retrieves artifact bytes by source ref. *canvas.Client satisfies
// this; tests substitute their own.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (io.ReadCloser, int64, error)
}

// Options configures a mirror run.
type Options struct {
	// Workers is the number of parallel task workers.
	Workers int

	// ChunkSize is the copy buffer size used when streaming fetched
	// bytes into staging.
	ChunkSize int64

	// SkipExisting satisfies tasks whose artifact already sits at the
	// resolved key.
	SkipExisting bool

	// RetryAttempts is the number of retries after the first try.
	RetryAttempts int

	// RetryDelay scales the linear backoff between attempts.
	RetryDelay time.Duration

	// Fetcher retrieves artifact bytes. Required, even when Fetchers
	// overrides specific content types.
	Fetcher Fetcher

	// Fetchers overrides Fetcher per content type.
	Fetchers map[model.ContentType]Fetcher

	// Layout controls path resolution.
	Layout layout.Options

	// Progress is an optional progress reporter.
	Progress *progress.Reporter

	// OnOutcome observes each outcome as it is recorded. Called from a
	// single goroutine.
	OnOutcome func(model.Outcome)

	// RunID namespaces staging keys. Default: random.
	RunID string

	// StagingPrefix overrides the staging area prefix.
	StagingPrefix string
}

// run carries the shared state of one mirror invocation.
type run struct {
	bucket   *blob.Bucket
	opts     Options
	resolver *layout.Resolver

	mu     sync.Mutex
	claims map[string]string // final key -> task ID
}

// Run mirrors tasks into the bucket, lowest priority group first. The
// returned report holds exactly one outcome per task. When the context is
// cancelled mid-run, remaining tasks fail as cancelled, the report still
// covers every task, and the context error is returned alongside it.
func Run(ctx context.Context, bucket *blob.Bucket, tasks []*model.Task, opts Options) (*model.Report, error) {
	// Apply defaults
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 8 * 1024
	}
	if opts.RetryAttempts < 0 {
		opts.RetryAttempts = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.StagingPrefix == "" {
		opts.StagingPrefix = staged.DefaultStagingPrefix
	}
	if opts.Fetcher == nil {
		return nil, errors.New("mirror: fetcher is required")
	}

	// Droppings from crashed runs.
	staged.SweepStaging(ctx, bucket, opts.StagingPrefix) // Best effort, ignore errors

	r := &run{
		bucket:   bucket,
		opts:     opts,
		resolver: layout.NewResolver(opts.Layout),
		claims:   make(map[string]string),
	}

	report := model.NewReport()
	outcomes := make(chan model.Outcome)

	// A single goroutine owns the report and the observers.
	var aggWg sync.WaitGroup
	aggWg.Add(1)
	go func() {
		defer aggWg.Done()
		for o := range outcomes {
			report.Add(o)
			if opts.OnOutcome != nil {
				opts.OnOutcome(o)
			}
			if opts.Progress != nil {
				switch o.Status {
				case model.StatusPublished:
					opts.Progress.TaskPublished(o.Bytes)
				case model.StatusSkipped:
					opts.Progress.TaskSkipped()
				default:
					opts.Progress.TaskFailed()
				}
			}
		}
	}()

	for _, group := range groupByPriority(tasks) {
		r.runGroup(ctx, group, outcomes)
	}

	close(outcomes)
	aggWg.Wait()
	report.Finish()

	return report, ctx.Err()
}

// runGroup executes one priority group on a bounded worker pool. It
// returns only once every task of the group has produced an outcome,
// which makes each group a barrier for the next.
func (r *run) runGroup(ctx context.Context, tasks []*model.Task, outcomes chan<- model.Outcome) {
	workers := r.opts.Workers
	if len(tasks) < workers {
		workers = len(tasks)
	}

	jobs := make(chan *model.Task, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				outcomes <- r.execute(ctx, t)
			}
		}()
	}

	// Feed every task even after cancellation: a cancelled run still owes
	// each task its outcome.
	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)

	wg.Wait()
}

// groupByPriority buckets tasks by effective priority, ascending.
func groupByPriority(tasks []*model.Task) [][]*model.Task {
	byPriority := make(map[int][]*model.Task)
	for _, t := range tasks {
		p := t.EffectivePriority()
		byPriority[p] = append(byPriority[p], t)
	}

	priorities := make([]int, 0, len(byPriority))
	for p := range byPriority {
		priorities = append(priorities, p)
	}
	sort.Ints(priorities)

	groups := make([][]*model.Task, 0, len(priorities))
	for _, p := range priorities {
		groups = append(groups, byPriority[p])
	}
	return groups
}

// fetcherFor picks the fetcher for a task's content type.
func (r *run) fetcherFor(t *model.Task) Fetcher {
	if f, ok := r.opts.Fetchers[t.ContentType]; ok {
		return f
	}
	return r.opts.Fetcher
}
