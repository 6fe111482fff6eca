// Package s3 provides an S3-backed snapshot archive.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/gezibash/hookmeta/internal/archive"
)

const (
	KeyBucket          = "bucket"
	KeyRegion          = "region"
	KeyEndpoint        = "endpoint"
	KeyPrefix          = "prefix"
	KeyAccessKeyID     = "access_key_id"
	KeySecretAccessKey = "secret_access_key"
	KeyForcePathStyle  = "force_path_style"
)

func init() {
	archive.Register("s3", NewFactory, Defaults)
}

// Defaults returns the default options for the S3 backend.
func Defaults() archive.Options {
	return archive.Options{
		KeyRegion:         "us-east-1",
		KeyPrefix:         "hookmeta/",
		KeyForcePathStyle: "false",
	}
}

// NewFactory builds an S3 client and checks the bucket is reachable.
func NewFactory(ctx context.Context, opts archive.Options) (archive.Backend, error) {
	r := opts.Read("s3")
	bucket := r.Required(KeyBucket)
	region := r.String(KeyRegion, "us-east-1")
	endpoint := r.String(KeyEndpoint, "")
	prefix := r.String(KeyPrefix, "")
	accessKeyID := r.String(KeyAccessKeyID, "")
	secretAccessKey := r.String(KeySecretAccessKey, "")
	forcePathStyle := r.Bool(KeyForcePathStyle, false)
	if err := r.Err(); err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = forcePathStyle
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return nil, &archive.OptionError{Backend: "s3", Key: KeyBucket, Value: bucket, Reason: "bucket not accessible", Cause: err}
	}

	slog.Debug("s3 archive opened", "bucket", bucket, "region", region, "prefix", prefix)
	return &Backend{client: client, bucket: bucket, prefix: prefix}, nil
}

// Backend is an S3 implementation of archive.Backend. Each record is written
// twice: once under its ID for Get and once under its sort key so a
// lexical listing returns the newest first.
type Backend struct {
	client *s3.Client
	bucket string
	prefix string
	closed atomic.Bool
}

func (b *Backend) idKey(id string) string { return b.prefix + "snapshots/by-id/" + id + ".json" }
func (b *Backend) timePrefix() string     { return b.prefix + "snapshots/by-time/" }

func (b *Backend) timeKey(r *archive.Record) string {
	return b.timePrefix() + archive.SortKey(r) + ".json"
}

// Put stores r, dropping the time entry of a previous record with the same ID.
func (b *Backend) Put(ctx context.Context, r *archive.Record) error {
	if b.closed.Load() {
		return archive.ErrClosed
	}
	if err := r.Validate(); err != nil {
		return err
	}
	data, err := r.Marshal()
	if err != nil {
		return err
	}

	prev, err := b.Get(ctx, r.ID)
	switch {
	case err == nil:
		if oldKey := b.timeKey(prev); oldKey != b.timeKey(r) {
			if err := b.delete(ctx, oldKey); err != nil {
				return err
			}
		}
	case !errors.Is(err, archive.ErrNotFound):
		return err
	}

	if err := b.put(ctx, b.timeKey(r), data); err != nil {
		return err
	}
	return b.put(ctx, b.idKey(r.ID), data)
}

// Get returns the record of a snapshot ID.
func (b *Backend) Get(ctx context.Context, id string) (*archive.Record, error) {
	if b.closed.Load() {
		return nil, archive.ErrClosed
	}
	data, err := b.get(ctx, b.idKey(id))
	if err != nil {
		return nil, err
	}
	return archive.Unmarshal(data)
}

// List returns up to limit records, newest first.
func (b *Backend) List(ctx context.Context, limit int) ([]*archive.Record, error) {
	if b.closed.Load() {
		return nil, archive.ErrClosed
	}

	var keys []string
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.timePrefix()),
	}
	if limit > 0 {
		in.MaxKeys = aws.Int32(int32(min(limit, 1000)))
	}
	p := s3.NewListObjectsV2Paginator(b.client, in)
	for p.HasMorePages() && (limit <= 0 || len(keys) < limit) {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	records := make([]*archive.Record, 0, len(keys))
	for _, key := range keys {
		data, err := b.get(ctx, key)
		if errors.Is(err, archive.ErrNotFound) {
			// replaced between the listing and the read
			continue
		}
		if err != nil {
			return nil, err
		}
		rec, err := archive.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close marks the backend closed. The S3 client holds no resources.
func (b *Backend) Close() error {
	b.closed.Store(true)
	return nil
}

func (b *Backend) put(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (b *Backend) get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, archive.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: read body: %w", key, err)
	}
	return data, nil
}

func (b *Backend) delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var respErr interface{ HTTPStatusCode() int }
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404
}
