package filestorage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cozy-creator/product-studio/internal/config"

	"github.com/gabriel-vasile/mimetype"
)

var ErrFileNotFound = errors.New("file not found")

// FileInfo is one object. Path is the deterministic object key, relative to
// the storage root.
type FileInfo struct {
	Path        string
	Content     []byte
	ContentType string
}

type FileStorage interface {
	Upload(ctx context.Context, file FileInfo) (string, error)
	GetFile(ctx context.Context, path string) (*FileInfo, error)
}

func NewFileInfo(path string, content []byte) *FileInfo {
	return &FileInfo{
		Path:        path,
		Content:     content,
		ContentType: mimetype.Detect(content).String(),
	}
}

func NewFileStorage(ctx context.Context, cfg *config.Config) (FileStorage, error) {
	switch strings.ToLower(cfg.Filesystem) {
	case config.FilesystemLocal:
		return NewLocalFileStorage(cfg)
	case config.FilesystemS3:
		return NewS3FileStorage(ctx, cfg)
	case config.FilesystemMinio:
		return NewMinioFileStorage(ctx, cfg)
	}

	return nil, fmt.Errorf("invalid filesystem type %s", cfg.Filesystem)
}

func contentType(file FileInfo) string {
	if file.ContentType != "" {
		return file.ContentType
	}
	return mimetype.Detect(file.Content).String()
}
