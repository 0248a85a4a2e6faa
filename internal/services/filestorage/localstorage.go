package filestorage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cozy-creator/product-studio/internal/config"
)

type LocalFileStorage struct {
	assetsDir string
	baseURL   string
}

func NewLocalFileStorage(cfg *config.Config) (*LocalFileStorage, error) {
	if cfg.AssetsDir == "" {
		return nil, fmt.Errorf("assets directory is not set")
	}

	baseURL := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	if cfg.Assets != nil && cfg.Assets.PublicOrigin != "" {
		baseURL = strings.TrimSuffix(cfg.Assets.PublicOrigin, "/")
	}

	return &LocalFileStorage{
		assetsDir: cfg.AssetsDir,
		baseURL:   baseURL + "/files",
	}, nil
}

func (u *LocalFileStorage) Upload(_ context.Context, file FileInfo) (string, error) {
	filedest, err := u.resolve(file.Path)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(filedest), os.ModePerm); err != nil {
		return "", err
	}

	if err := os.WriteFile(filedest, file.Content, os.FileMode(0644)); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", file.Path, err)
	}

	return fmt.Sprintf("%s/%s", u.baseURL, filepath.ToSlash(file.Path)), nil
}

func (u *LocalFileStorage) GetFile(_ context.Context, path string) (*FileInfo, error) {
	filename, err := u.resolve(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}

	return NewFileInfo(path, content), nil
}

// resolve keeps every path inside the assets directory.
func (u *LocalFileStorage) resolve(path string) (string, error) {
	root := filepath.Clean(u.assetsDir)
	full := filepath.Join(root, filepath.FromSlash(path))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the assets directory", path)
	}

	return full, nil
}
