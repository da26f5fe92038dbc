package cache

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
)

// BucketStore keeps one object per key in an S3-compatible bucket.
type BucketStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewBucketStore wraps an existing client.
func NewBucketStore(client *minio.Client, bucket, prefix string) (*BucketStore, error) {
	if client == nil {
		return nil, fmt.Errorf("minio client is required")
	}
	return &BucketStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *BucketStore) object(key string) string {
	return path.Join(s.prefix, key+blobExt)
}

// Get implements Store.
func (s *BucketStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	name := s.object(key)
	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Put implements Store.
func (s *BucketStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	opts := minio.PutObjectOptions{ContentType: "application/zstd"}
	_, err := s.client.PutObject(ctx, s.bucket, s.object(key), r, size, opts)
	return err
}
