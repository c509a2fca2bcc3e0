package staged

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// DefaultStagingPrefix is where in-progress writes live inside a bucket.
const DefaultStagingPrefix = ".staging/"

// ErrClosed is returned when writing to or publishing a finished file.
var ErrClosed = errors.New("staged: file is closed")

// Options configures staged writes.
type Options struct {
	StagingPrefix string
	Run           string
}

// Option is a functional option for staged writes.
type Option func(*Options)

// WithStagingPrefix overrides the staging area prefix.
func WithStagingPrefix(prefix string) Option {
	return func(o *Options) {
		o.StagingPrefix = prefix
	}
}

// WithRun namespaces staging keys by a run identifier so that staging
// objects from distinct runs cannot collide.
func WithRun(id string) Option {
	return func(o *Options) {
		o.Run = id
	}
}

// PublishError reports a failed publication. The staged bytes were written
// but the artifact did not reach its final key.
type PublishError struct {
	Key string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("staged: publish %s: %v", e.Key, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// File is an artifact being written to staging before publication.
type File struct {
	bucket     *blob.Bucket
	finalKey   string
	stagingKey string

	mu           sync.Mutex
	writer       *blob.Writer
	writerCancel context.CancelFunc
	size         int64
	committed    bool
	commitErr    error
	closed       bool
}

// Create starts a staged write destined for finalKey. No storage is touched
// until the first write.
func Create(bucket *blob.Bucket, finalKey string, options ...Option) (*File, error) {
	opts := Options{StagingPrefix: DefaultStagingPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.StagingPrefix == "" {
		opts.StagingPrefix = DefaultStagingPrefix
	}
	if !strings.HasSuffix(opts.StagingPrefix, "/") {
		opts.StagingPrefix += "/"
	}
	if finalKey == "" {
		return nil, errors.New("staged: final key must not be empty")
	}

	stagingKey := opts.StagingPrefix
	if opts.Run != "" {
		stagingKey += opts.Run + "/"
	}
	stagingKey += finalKey + ".part"

	return &File{
		bucket:     bucket,
		finalKey:   finalKey,
		stagingKey: stagingKey,
	}, nil
}

// FinalKey returns the destination key.
func (f *File) FinalKey() string {
	return f.finalKey
}

// StagingKey returns the staging object key.
func (f *File) StagingKey() string {
	return f.stagingKey
}

// Size returns the number of bytes written so far.
func (f *File) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// Write streams artifact bytes to the staging object.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.committed {
		return 0, ErrClosed
	}

	// Lazy initialization
	if f.writer == nil {
		if err := f.initWriter(); err != nil {
			return 0, err
		}
	}

	n, err := f.writer.Write(p)
	f.size += int64(n)
	return n, err
}

// initWriter creates the staging writer. Must be called with f.mu held.
func (f *File) initWriter() error {
	ctx, cancel := context.WithCancel(context.Background())

	w, err := f.bucket.NewWriter(ctx, f.stagingKey, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("create staging writer: %w", err)
	}
	f.writer = w
	f.writerCancel = cancel
	return nil
}

// Abort cancels the staged write and removes the staging object.
// Safe to call multiple times or after Publish.
func (f *File) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true

	if f.writer == nil {
		return
	}

	if !f.committed && f.commitErr == nil {
		// Cancel the context first to abort the upload
		if f.writerCancel != nil {
			f.writerCancel()
		}
		f.writer.Close()
	}

	// Partial data may have been committed before cancellation.
	f.bucket.Delete(context.Background(), f.stagingKey) // Best effort, ignore errors
}

// Publish commits the staged bytes to the final key and removes the staging
// copy. The final key becomes visible only through a completed copy, so a
// crash mid-publish never leaves a truncated artifact there.
//
// On failure the staging object survives and Publish may be called again.
// Returns the number of bytes published.
func (f *File) Publish(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosed
	}
	if f.commitErr != nil {
		return 0, &PublishError{Key: f.finalKey, Err: f.commitErr}
	}

	if !f.committed {
		// A file without writes still publishes as an empty artifact.
		if f.writer == nil {
			if err := f.initWriter(); err != nil {
				f.commitErr = err
				return 0, &PublishError{Key: f.finalKey, Err: err}
			}
		}
		// Closing the writer commits the staging object.
		if err := f.writer.Close(); err != nil {
			f.commitErr = err
			return 0, &PublishError{Key: f.finalKey, Err: fmt.Errorf("commit staging object: %w", err)}
		}
		f.committed = true
	}

	if err := f.bucket.Copy(ctx, f.finalKey, f.stagingKey, nil); err != nil {
		return 0, &PublishError{Key: f.finalKey, Err: err}
	}

	// The artifact is in place; a leftover staging copy falls to the next sweep.
	f.bucket.Delete(ctx, f.stagingKey) // Best effort, ignore errors

	f.closed = true
	return f.size, nil
}

// Stat reports whether key exists in the bucket, and its size.
func Stat(ctx context.Context, bucket *blob.Bucket, key string) (int64, bool, error) {
	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		if isNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("staged: stat %s: %w", key, err)
	}
	return attrs.Size, true, nil
}

// isNotExist returns true if the error indicates the object doesn't exist.
func isNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
