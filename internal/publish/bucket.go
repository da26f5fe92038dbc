package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/objectstore"
)

type objectPutter interface {
	StatObject(ctx context.Context, bucket, name string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucket, name string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Bucket publishes to an S3-compatible bucket under <prefix>/<tag>/. The
// credential has the form "ACCESS_KEY:SECRET_KEY".
type Bucket struct {
	cfg       objectstore.Config
	newClient func(objectstore.Config) (objectPutter, error)
}

// NewBucket creates a bucket provider. Keys in cfg are ignored; they come
// from the request credential.
func NewBucket(cfg objectstore.Config) (*Bucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Bucket{
		cfg: cfg,
		newClient: func(c objectstore.Config) (objectPutter, error) {
			return objectstore.NewMinIOClient(c)
		},
	}, nil
}

// Publish implements Publisher.
func (b *Bucket) Publish(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	access, secret, ok := strings.Cut(req.Credential, ":")
	if !ok {
		return nil, errors.New("bucket credential must be ACCESS_KEY:SECRET_KEY")
	}
	cfg := b.cfg
	cfg.AccessKey, cfg.SecretKey = access, secret
	client, err := b.newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("bucket client: %w", err)
	}
	logger := ctxlog.FromContext(ctx).With("provider", "s3", "bucket", cfg.Bucket, "tag", req.Tag)

	res := &Result{Location: fmt.Sprintf("s3://%s/%s", cfg.Bucket, path.Join(cfg.Prefix, req.Tag))}
	var errs []error
	for _, f := range req.Files {
		name := objectName(cfg.Prefix, req.Tag, f)
		if err := putFile(ctx, client, cfg.Bucket, name, f); err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", filepath.Base(f), err))
			continue
		}
		logger.Info("⬆️ Uploaded asset.", "object", name)
		res.Uploaded = append(res.Uploaded, f)
	}
	return res, errors.Join(errs...)
}

func objectName(prefix, tag, file string) string {
	return path.Join(prefix, tag, filepath.Base(file))
}

// putFile refuses to overwrite an existing object.
func putFile(ctx context.Context, client objectPutter, bucket, name, file string) error {
	_, err := client.StatObject(ctx, bucket, name, minio.StatObjectOptions{})
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrAssetExists, name)
	case minio.ToErrorResponse(err).Code != "NoSuchKey":
		return err
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, bucket, name, f, info.Size(), minio.PutObjectOptions{ContentType: contentType(file)})
	return err
}
