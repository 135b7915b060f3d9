// Package s3 implements a volume backed by an S3 bucket (or any
// S3-compatible service). Each file is one object under an optional key
// prefix.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/marmos91/fstool/internal/logger"
	"github.com/marmos91/fstool/pkg/volume"
)

const (
	// minPartSize is the smallest multipart part S3 accepts.
	minPartSize = 5 * 1024 * 1024

	// maxPartSize is the largest multipart part S3 accepts.
	maxPartSize = 5 * 1024 * 1024 * 1024

	defaultPartSize = 10 * 1024 * 1024
)

// Config contains configuration for an S3 volume.
type Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// KeyPrefix is prepended to every file name to form the object key.
	KeyPrefix string `mapstructure:"key_prefix"`

	// PartSize is the multipart part size (default 10MB, 5MB to 5GB).
	// Files larger than one part are uploaded with a multipart upload.
	PartSize int64 `mapstructure:"part_size"`

	MaxRetries int `mapstructure:"max_retries"`
}

// FileSystem implements volume.FileSystem on top of S3.
//
// S3 objects cannot be modified in place, so writable handles stage the
// object in memory (read-modify-write) and upload it when closed. Data
// written past one part size is streamed as multipart parts while writing,
// so a created file costs about one part of memory however large it grows.
// Opening an existing non-empty object for writing still loads it whole on
// the first write. Read-only handles serve ranged GETs directly.
type FileSystem struct {
	client    API
	bucket    string
	keyPrefix string
	partSize  int64
}

var _ volume.FileSystem = (*FileSystem)(nil)

// New creates an S3 volume and verifies that the bucket is reachable.
// The bucket must already exist.
func New(ctx context.Context, client API, cfg Config) (*FileSystem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 volume: bucket is required")
	}

	partSize := cfg.PartSize
	if partSize == 0 {
		partSize = defaultPartSize
	}
	if partSize < minPartSize {
		return nil, fmt.Errorf("part size must be at least 5MB, got %d bytes", partSize)
	}
	if partSize > maxPartSize {
		return nil, fmt.Errorf("part size must be at most 5GB, got %d bytes", partSize)
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &FileSystem{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		partSize:  partSize,
	}, nil
}

// Name implements volume.FileSystem.
func (s *FileSystem) Name() string { return "s3" }

// OpenVolume implements volume.FileSystem.
func (s *FileSystem) OpenVolume(ctx context.Context) (volume.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &rootDir{fs: s}, nil
}

func (s *FileSystem) key(name string) string {
	return s.keyPrefix + name
}

// ============================================================================
// Directory
// ============================================================================

type rootDir struct {
	fs     *FileSystem
	closed bool
}

func (d *rootDir) Open(ctx context.Context, name string, mode volume.OpenMode) (volume.File, error) {
	if d.closed {
		return nil, volume.NewError(volume.StatusNotReady, "open", name, nil)
	}
	if err := volume.CheckOpen(ctx, name, mode); err != nil {
		return nil, err
	}

	f := &file{
		Handle: volume.NewHandle(name, mode),
		fs:     d.fs,
		key:    d.fs.key(name),
	}

	if mode.Creates() {
		// Creating replaces any existing object with an empty one.
		_, err := d.fs.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(d.fs.bucket),
			Key:    aws.String(f.key),
			Body:   bytes.NewReader(nil),
		})
		if err != nil {
			return nil, mapError("open", name, err)
		}
		f.staged = []byte{}
		return f, nil
	}

	out, err := d.fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.fs.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		return nil, mapError("open", name, err)
	}
	f.size = uint64(aws.ToInt64(out.ContentLength))

	logger.Debug("s3 volume: opened s3://%s/%s (%d bytes, %s)", d.fs.bucket, f.key, f.size, mode)
	return f, nil
}

func (d *rootDir) Close() error {
	if d.closed {
		return volume.NewError(volume.StatusInvalidParameter, "close", "", nil)
	}
	d.closed = true
	return nil
}

// mapError translates S3 API errors into volume statuses.
func mapError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return volume.NewError(volume.StatusNotFound, op, name, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return volume.NewError(volume.StatusNotFound, op, name, err)
		case "AccessDenied", "Forbidden":
			return volume.NewError(volume.StatusAccessDenied, op, name, err)
		case "NoSuchBucket":
			return volume.NewError(volume.StatusNotReady, op, name, err)
		case "EntityTooLarge", "QuotaExceeded":
			return volume.NewError(volume.StatusVolumeFull, op, name, err)
		}
	}

	return volume.NewError(volume.StatusDeviceError, op, name, err)
}
