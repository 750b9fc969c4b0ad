package s3

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Ning0612/unfold/internal/adapter"
	"github.com/Ning0612/unfold/internal/adapter/local"
	"github.com/Ning0612/unfold/internal/domain"
	"github.com/Ning0612/unfold/internal/logger"
	"github.com/Ning0612/unfold/internal/progress"
)

// deleteBatchSize is the DeleteObjects per-request limit
const deleteBatchSize = 1000

// Remote is one bucket. Remote paths are object keys.
type Remote struct {
	client API
	store  *local.Store
	name   string
	bucket string
}

var _ adapter.Remote = (*Remote)(nil)

// Name implements adapter.Remote
func (r *Remote) Name() string {
	return r.name
}

// Close implements adapter.Remote
func (r *Remote) Close() error {
	return nil
}

// dirPrefix returns the key prefix for a directory ("" for the bucket root)
func dirPrefix(dir string) string {
	dir = domain.CleanRoot(dir)
	if dir == "" {
		return ""
	}
	return dir + "/"
}

// listKeys walks every object under prefix
func (r *Remote) listKeys(ctx context.Context, prefix string, fn func(obj types.Object)) error {
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return mapError(err)
		}
		for _, obj := range page.Contents {
			fn(obj)
		}
	}
	return nil
}

// ListRecursive implements adapter.CatalogSource. A prefix with no objects
// is reported as not found.
func (r *Remote) ListRecursive(ctx context.Context, root string) ([]domain.CatalogEntry, error) {
	prefix := dirPrefix(root)

	var entries []domain.CatalogEntry
	err := r.listKeys(ctx, prefix, func(obj types.Object) {
		key := aws.ToString(obj.Key)
		if strings.HasSuffix(key, "/") {
			// directory marker
			return
		}
		entries = append(entries, domain.CatalogEntry{
			Path:    strings.TrimPrefix(key, prefix),
			Size:    aws.ToInt64(obj.Size),
			ModTime: aws.ToTime(obj.LastModified),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing s3://%s/%s: %w", r.bucket, prefix, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: s3://%s/%s", domain.ErrNotFound, r.bucket, prefix)
	}

	logger.Get().Debug("listed s3 source", "remote", r.name, "prefix", prefix, "files", len(entries))
	return entries, nil
}

// Copy implements adapter.TransferSink. Objects are streamed into the local
// store one at a time in plan order.
func (r *Remote) Copy(ctx context.Context, root string, entries []domain.PlanEntry, opts adapter.TransferOptions) []domain.TransferResult {
	results := make([]domain.TransferResult, len(entries))
	for i, e := range entries {
		results[i] = domain.TransferResult{Path: e.Entry.Path, Outcome: domain.OutcomeSkipped}
	}
	if opts.DryRun {
		return results
	}

	reporter := progress.OrNull(opts.Reporter)
	var totalBytes int64
	for _, e := range entries {
		totalBytes += e.Entry.Size
	}
	reporter.SetTotal(len(entries), totalBytes)

	for i, e := range entries {
		reporter.Start(e.Entry.Path, e.Entry.Size)
		if err := r.copyOne(ctx, root, e, reporter); err != nil {
			logger.Get().Warn("s3 download failed", "remote", r.name, "key", e.Entry.RemotePath(root), "error", err)
			results[i].Outcome = domain.OutcomeFailed
			results[i].Err = err
			reporter.Fail(err)
			continue
		}
		results[i].Outcome = domain.OutcomeCopied
		reporter.Complete()
	}

	return results
}

func (r *Remote) copyOne(ctx context.Context, root string, e domain.PlanEntry, reporter progress.Reporter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.store.Resolve(e.LocalPath); err != nil {
		return err
	}

	key := e.Entry.RemotePath(root)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("getting s3://%s/%s: %w", r.bucket, key, mapError(err))
	}
	defer out.Body.Close()

	if _, err := r.store.Write(ctx, e.LocalPath, progress.NewProgressReader(out.Body, reporter)); err != nil {
		return fmt.Errorf("writing %s: %w", e.LocalPath, err)
	}
	return nil
}

// DeleteOne implements adapter.DeletionSink
func (r *Remote) DeleteOne(ctx context.Context, path string) error {
	key := domain.CleanRoot(path)
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting s3://%s/%s: %w", r.bucket, key, mapError(err))
	}
	return nil
}

// Purge implements adapter.DeletionSink. Every object under dir is deleted
// in batches; the first failing key is reported.
func (r *Remote) Purge(ctx context.Context, dir string) error {
	prefix := dirPrefix(dir)
	if prefix == "" {
		return fmt.Errorf("%w: refusing to purge bucket %s", domain.ErrPermissionDenied, r.bucket)
	}

	var keys []string
	if err := r.listKeys(ctx, prefix, func(obj types.Object) {
		keys = append(keys, aws.ToString(obj.Key))
	}); err != nil {
		return fmt.Errorf("listing s3://%s/%s: %w", r.bucket, prefix, err)
	}

	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := r.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(r.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("purging s3://%s/%s: %w", r.bucket, prefix, mapError(err))
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("%w: purging s3://%s/%s: %d objects not deleted, first %s: %s",
				domain.ErrBackend, r.bucket, prefix, len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}

	logger.Get().Debug("purged s3 prefix", "remote", r.name, "prefix", prefix, "objects", len(keys))
	return nil
}

// ListTopDirs implements adapter.Remote
func (r *Remote) ListTopDirs(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(r.bucket),
		Delimiter: aws.String("/"),
	})

	var dirs []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s: %w", r.bucket, mapError(err))
		}
		for _, p := range page.CommonPrefixes {
			if dir := strings.TrimSuffix(aws.ToString(p.Prefix), "/"); dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
