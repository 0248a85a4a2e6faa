package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cozy-creator/product-studio/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioFileStorage struct {
	client *minio.Client
	cfg    *config.MinioConfig
}

func NewMinioFileStorage(ctx context.Context, cfg *config.Config) (*MinioFileStorage, error) {
	if cfg.Minio == nil {
		return nil, fmt.Errorf("minio config is not set")
	}

	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Minio.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Minio.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Minio.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Minio.Bucket, err)
		}
	}

	return &MinioFileStorage{client: client, cfg: cfg.Minio}, nil
}

func (u *MinioFileStorage) Upload(ctx context.Context, file FileInfo) (string, error) {
	_, err := u.client.PutObject(
		ctx,
		u.cfg.Bucket,
		file.Path,
		bytes.NewReader(file.Content),
		int64(len(file.Content)),
		minio.PutObjectOptions{ContentType: contentType(file)},
	)
	if err != nil {
		return "", fmt.Errorf("failed to put %s: %w", file.Path, err)
	}

	base := u.cfg.PublicUrl
	if base == "" {
		scheme := "http"
		if u.cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, u.cfg.Endpoint, u.cfg.Bucket)
	}

	return fmt.Sprintf("%s/%s", strings.TrimSuffix(base, "/"), file.Path), nil
}

func (u *MinioFileStorage) GetFile(ctx context.Context, path string) (*FileInfo, error) {
	object, err := u.client.GetObject(ctx, u.cfg.Bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	content, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}

	return NewFileInfo(path, content), nil
}
