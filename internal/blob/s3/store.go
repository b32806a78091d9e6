// Package s3blob keeps cold copies of the bot's append-only JSONL logs in an
// S3-compatible bucket. Local files stay untouched; the bucket only ever
// gains objects.
package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// S3 multipart parts must be at least 5 MiB.
const minPartSize int64 = 5 * 1024 * 1024

// StoreConfig describes the target bucket. Endpoint stays empty for AWS
// proper; MinIO, iDrive e2 and R2 need it set, usually together with
// PathStyle.
type StoreConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

// Store is a thin bucket handle for uploading, probing and listing archived
// log objects.
type Store struct {
	api    *s3.Client
	bucket string
}

// Open dials the configured bucket. Credentials are always static key pairs;
// the bot never runs with instance-profile auth.
func Open(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("s3blob: bucket and region are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("s3blob: aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(withScheme(cfg.Endpoint, cfg.UseSSL))
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &Store{api: api, bucket: cfg.Bucket}, nil
}

// Health probes the bucket with HeadBucket so archive mode can fail before
// uploading anything.
func (s *Store) Health(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("s3blob: head bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Upload writes body to key in one PutObject call.
func (s *Store) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", key, err)
	}
	return nil
}

// UploadLarge streams body through the multipart manager for logs that have
// grown past the single-shot threshold.
func (s *Store) UploadLarge(ctx context.Context, key string, body io.Reader) error {
	up := manager.NewUploader(s.api, func(u *manager.Uploader) {
		u.PartSize = minPartSize
	})
	_, err := up.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key already holds an object. The daily archive pass
// uses it to stay idempotent.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("s3blob: head %s: %w", key, err)
	}
}

// List walks every object under prefix, following pagination to the end.
func (s *Store) List(ctx context.Context, prefix string) ([]domain.ArchiveObject, error) {
	var objs []domain.ArchiveObject
	pager := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list %s: %w", prefix, err)
		}
		for _, o := range page.Contents {
			obj := domain.ArchiveObject{
				Key:   aws.ToString(o.Key),
				Bytes: aws.ToInt64(o.Size),
			}
			if o.LastModified != nil {
				obj.StoredAt = o.LastModified.UTC()
			}
			objs = append(objs, obj)
		}
	}
	return objs, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	// HeadObject against some compatible providers surfaces only a bare 404.
	var httpErr interface{ HTTPStatusCode() int }
	return errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == 404
}

func withScheme(endpoint string, ssl bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	if ssl {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
