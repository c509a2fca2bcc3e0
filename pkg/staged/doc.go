// Package staged provides crash-safe artifact writes over cloud storage.
//
// Bytes are streamed to a staging object first and moved to their final key
// only by an explicit publish. A reader of the bucket therefore never
// observes a partially written artifact: the final key either holds a
// complete copy or nothing at all. The package is storage-agnostic via
// gocloud.dev/blob.
//
// # Writing
//
// Use [Create] to start a staged write, stream data with [File.Write], then
// call [File.Publish] to commit:
//
//	f, err := staged.Create(bucket, "course/files/files_001_syllabus.pdf",
//	    staged.WithRun(runID),
//	)
//	if _, err := io.Copy(f, body); err != nil {
//	    f.Abort()
//	    return err
//	}
//	n, err := f.Publish(ctx)
//
// [File.Abort] discards the staged bytes; call it on any failure before
// publish. Publish failures leave the staging object intact, so Publish may
// be retried.
//
// # Storage Layout
//
//	{bucket}/.staging/{run}/{final key}.part   (during writes)
//	{bucket}/{final key}                       (after publish)
//
// Staging keys are namespaced by run ID so staging objects from distinct
// runs cannot collide.
//
// # Housekeeping
//
// A process that dies between write and publish leaves its staging objects
// behind. [SweepStaging] removes everything under the staging prefix; run it
// before starting fresh work. [Stat] reports existence and size of any key
// without reading data.
package staged
