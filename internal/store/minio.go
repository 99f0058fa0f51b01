package store

import (
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

const bundleContentType = "application/gzip"

// MinioStore uploads bundles to an S3 compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioStore creates the client. No request is sent before the first upload.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid minio configuration")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create minio client")
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrapf(err, "unable to check bucket %s", s.bucket)
	}
	if exists {
		return nil
	}

	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region})
	if err != nil {
		return errors.Wrapf(err, "unable to create bucket %s", s.bucket)
	}

	return nil
}

// Location returns the URL a bundle stored under name is reachable at.
func (s *MinioStore) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

func (s *MinioStore) key(name string) string {
	if s.prefix == "" {
		return name
	}

	return path.Join(s.prefix, name)
}

// Put uploads body under the store prefix.
func (s *MinioStore) Put(ctx context.Context, name string, body io.Reader, size int64) (string, error) {
	if name == "" {
		return "", ErrNameMustBeSet
	}

	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), body, size, minio.PutObjectOptions{ContentType: bundleContentType})
	if err != nil {
		return "", errors.Wrapf(err, "unable to upload %s", name)
	}

	return s.Location(name), nil
}
