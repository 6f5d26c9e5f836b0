// Package s3 provides an S3 (or MinIO) storage backend for the mirror.
package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/BgWv3/procore-doc-downloader/internal/logging"
	"github.com/BgWv3/procore-doc-downloader/internal/metrics"
)

// BackendConfig holds S3 backend settings.
type BackendConfig struct {
	Endpoint  string // empty = AWS
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string // empty = default credential chain
	SecretKey string
}

// putObjectAPI is the subset of the S3 client the backend uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Backend uploads mirrored files as objects. Directories are implicit.
type S3Backend struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewBackend creates a new S3 backend from a BackendConfig.
func NewBackend(ctx context.Context, cfg BackendConfig) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func newWithClient(client putObjectAPI, bucket, prefix string) *S3Backend {
	return &S3Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (b *S3Backend) objectKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return path.Join(b.prefix, key)
}

// MakeDir is a no-op: S3 has no directories.
func (b *S3Backend) MakeDir(context.Context, string) error {
	return nil
}

// PutObject uploads content to S3. The SDK needs a seekable body to compute
// checksums over plain HTTP and to rewind on retries, so anything that is not
// an io.ReadSeeker of known size is spooled to a temporary file first.
func (b *S3Backend) PutObject(ctx context.Context, key string, body io.Reader, size int64) error {
	rs, seekable := body.(io.ReadSeeker)
	if !seekable || size < 0 {
		spool, n, err := spoolToTemp(body)
		if err != nil {
			return fmt.Errorf("spool %s: %w", key, err)
		}
		defer func() {
			spool.Close()
			os.Remove(spool.Name())
		}()
		if size >= 0 && n != size {
			return fmt.Errorf("spool %s: read %d bytes, expected %d", key, n, size)
		}
		rs, size = spool, n
	}

	start := time.Now()
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.objectKey(key)),
		Body:          rs,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		metrics.RecordStorageOperation(b.Type(), "put_object", time.Since(start), false)
		return fmt.Errorf("put object %s: %w", key, err)
	}

	metrics.RecordStorageOperation(b.Type(), "put_object", time.Since(start), true)
	logging.Debug("S3 put object", zap.String("key", b.objectKey(key)), zap.Int64("size", size))
	return nil
}

func spoolToTemp(body io.Reader) (*os.File, int64, error) {
	f, err := os.CreateTemp("", "docmirror-s3-*")
	if err != nil {
		return nil, 0, err
	}
	n, err := io.Copy(f, body)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, 0, err
	}
	return f, n, nil
}

// Location returns the s3:// URL for key.
func (b *S3Backend) Location(key string) string {
	return "s3://" + b.bucket + "/" + b.objectKey(key)
}

// Type returns "s3".
func (b *S3Backend) Type() string {
	return "s3"
}
