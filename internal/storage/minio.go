package storage

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/huangang/projecthub/internal/config"
	"github.com/huangang/projecthub/pkg/logger"
)

// Minio stores blobs as objects in a single bucket.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio connects and creates the bucket when it does not exist yet.
func NewMinio(ctx context.Context, cfg config.MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create minio client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "check bucket")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "create bucket")
		}
		logger.Info().Str("bucket", cfg.Bucket).Msg("created storage bucket")
	}
	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

func (m *Minio) Save(ctx context.Context, originalName, contentType string, r io.Reader, size int64) (string, error) {
	key := NewKey(originalName)
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrap(err, "put object")
	}
	return key, nil
}

func (m *Minio) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	// GetObject is lazy; stat first so a missing key surfaces here.
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "stat object")
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "get object")
	}
	return obj, nil
}

func (m *Minio) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, "remove object")
	}
	return nil
}

func (m *Minio) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	_, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, errors.Wrap(err, "stat object")
}

func (m *Minio) List(ctx context.Context) ([]string, error) {
	var keys []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, "list objects")
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
