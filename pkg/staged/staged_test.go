package staged

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
)

func openTestBucket(t *testing.T) *blob.Bucket {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	t.Cleanup(func() { bucket.Close() })
	return bucket
}

func TestWriteAndPublish(t *testing.T) {
	ctx := context.Background()
	bucket := openTestBucket(t)

	f, err := Create(bucket, "course/files/a.pdf", WithRun("run1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	data := []byte("artifact body")
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	n, err := f.Publish(ctx)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != int64(len(data)) {
		t.Errorf("published %d bytes, want %d", n, len(data))
	}

	got, err := bucket.ReadAll(ctx, "course/files/a.pdf")
	if err != nil {
		t.Fatalf("read final key: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("final content = %q, want %q", got, data)
	}

	exists, err := bucket.Exists(ctx, f.StagingKey())
	if err != nil {
		t.Fatalf("check staging: %v", err)
	}
	if exists {
		t.Errorf("staging object %s should be removed after publish", f.StagingKey())
	}
}

func TestStagingKeyNamespacedByRun(t *testing.T) {
	bucket := openTestBucket(t)

	f1, err := Create(bucket, "a/b.pdf", WithRun("run1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f2, err := Create(bucket, "a/b.pdf", WithRun("run2"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if f1.StagingKey() == f2.StagingKey() {
		t.Errorf("staging keys should differ per run, both %q", f1.StagingKey())
	}
	if !strings.HasPrefix(f1.StagingKey(), DefaultStagingPrefix+"run1/") {
		t.Errorf("staging key = %q, want prefix %q", f1.StagingKey(), DefaultStagingPrefix+"run1/")
	}
}

func TestAbortRemovesStaging(t *testing.T) {
	ctx := context.Background()
	bucket := openTestBucket(t)

	f, err := Create(bucket, "a/b.pdf")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.Write([]byte("partial")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f.Abort()
	f.Abort() // second call is a no-op

	for _, key := range []string{"a/b.pdf", f.StagingKey()} {
		exists, err := bucket.Exists(ctx, key)
		if err != nil {
			t.Fatalf("check %s: %v", key, err)
		}
		if exists {
			t.Errorf("%s should not exist after abort", key)
		}
	}

	if _, err := f.Write([]byte("more")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Abort = %v, want ErrClosed", err)
	}
	if _, err := f.Publish(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after Abort = %v, want ErrClosed", err)
	}
}

func TestPublishEmptyFile(t *testing.T) {
	ctx := context.Background()
	bucket := openTestBucket(t)

	f, err := Create(bucket, "a/empty.txt")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := f.Publish(ctx)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 0 {
		t.Errorf("published %d bytes, want 0", n)
	}

	size, ok, err := Stat(ctx, bucket, "a/empty.txt")
	if err != nil || !ok {
		t.Fatalf("Stat = (%d, %v, %v), want empty artifact present", size, ok, err)
	}
	if size != 0 {
		t.Errorf("size = %d, want 0", size)
	}
}

func TestPublishOverwritesExisting(t *testing.T) {
	ctx := context.Background()
	bucket := openTestBucket(t)

	if err := bucket.WriteAll(ctx, "a/b.pdf", []byte("old"), nil); err != nil {
		t.Fatalf("seed existing: %v", err)
	}

	f, err := Create(bucket, "a/b.pdf")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.Write([]byte("replacement")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := f.Publish(ctx); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := bucket.ReadAll(ctx, "a/b.pdf")
	if err != nil {
		t.Fatalf("read final key: %v", err)
	}
	if string(got) != "replacement" {
		t.Errorf("final content = %q, want replacement", got)
	}
}

func TestPublishAfterPublishFails(t *testing.T) {
	ctx := context.Background()
	bucket := openTestBucket(t)

	f, err := Create(bucket, "a/b.pdf")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := f.Publish(ctx); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := f.Publish(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("second Publish = %v, want ErrClosed", err)
	}
}

func TestCreateRejectsEmptyKey(t *testing.T) {
	bucket := openTestBucket(t)
	if _, err := Create(bucket, ""); err == nil {
		t.Fatal("expected error for empty final key")
	}
}

func TestUnpublishedNeverVisibleAtFinalKey(t *testing.T) {
	ctx := context.Background()
	bucket := openTestBucket(t)

	// A run that died mid-task leaves only a staging object behind.
	stale := DefaultStagingPrefix + "deadrun/a/b.pdf.part"
	if err := bucket.WriteAll(ctx, stale, []byte("half written"), nil); err != nil {
		t.Fatalf("seed staging: %v", err)
	}

	exists, err := bucket.Exists(ctx, "a/b.pdf")
	if err != nil {
		t.Fatalf("check final key: %v", err)
	}
	if exists {
		t.Error("final key must not exist without a publish")
	}
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	bucket := openTestBucket(t)

	size, ok, err := Stat(ctx, bucket, "missing.bin")
	if err != nil {
		t.Fatalf("Stat missing: %v", err)
	}
	if ok || size != 0 {
		t.Errorf("Stat missing = (%d, %v), want (0, false)", size, ok)
	}

	if err := bucket.WriteAll(ctx, "present.bin", make([]byte, 42), nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	size, ok, err = Stat(ctx, bucket, "present.bin")
	if err != nil {
		t.Fatalf("Stat present: %v", err)
	}
	if !ok || size != 42 {
		t.Errorf("Stat present = (%d, %v), want (42, true)", size, ok)
	}
}

func TestSweepStaging(t *testing.T) {
	ctx := context.Background()
	bucket := openTestBucket(t)

	staging := []string{
		DefaultStagingPrefix + "run1/a/b.pdf.part",
		DefaultStagingPrefix + "run2/c.txt.part",
	}
	for _, key := range staging {
		if err := bucket.WriteAll(ctx, key, []byte("leftover"), nil); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
	if err := bucket.WriteAll(ctx, "published/keep.pdf", []byte("keep"), nil); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	removed, err := SweepStaging(ctx, bucket, "")
	if err != nil {
		t.Fatalf("SweepStaging: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	for _, key := range staging {
		exists, err := bucket.Exists(ctx, key)
		if err != nil {
			t.Fatalf("check %s: %v", key, err)
		}
		if exists {
			t.Errorf("%s should be swept", key)
		}
	}

	exists, err := bucket.Exists(ctx, "published/keep.pdf")
	if err != nil || !exists {
		t.Errorf("published artifact must survive the sweep (exists=%v, err=%v)", exists, err)
	}
}

func TestSweepStagingEmpty(t *testing.T) {
	bucket := openTestBucket(t)

	removed, err := SweepStaging(context.Background(), bucket, "")
	if err != nil {
		t.Fatalf("SweepStaging: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestPublishErrorUnwrap(t *testing.T) {
	cause := errors.New("copy refused")
	err := &PublishError{Key: "a/b.pdf", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("PublishError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "a/b.pdf") {
		t.Errorf("Error() = %q, want key included", err.Error())
	}
}
