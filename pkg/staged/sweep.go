package staged

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
)

// SweepStaging removes leftover staging objects under prefix. Runs that die
// between write and publish leave their staging objects behind; a sweep at
// the start of a fresh run reclaims the space. Returns the number of
// objects removed.
func SweepStaging(ctx context.Context, bucket *blob.Bucket, prefix string) (int, error) {
	if prefix == "" {
		prefix = DefaultStagingPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	removed := 0
	iter := bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("staged: list staging: %w", err)
		}
		if obj.IsDir {
			continue
		}
		if err := bucket.Delete(ctx, obj.Key); err != nil && !isNotExist(err) {
			return removed, fmt.Errorf("staged: delete %s: %w", obj.Key, err)
		}
		removed++
	}

	return removed, nil
}
