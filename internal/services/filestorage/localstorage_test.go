package filestorage

import (
	"context"
	"testing"

	"github.com/cozy-creator/product-studio/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileStorage_UploadAndGet(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalFileStorage(&config.Config{
		AssetsDir: t.TempDir(),
		Assets:    &config.AssetsConfig{PublicOrigin: "https://studio.example.com/"},
	})
	require.NoError(t, err)

	url, err := storage.Upload(ctx, FileInfo{
		Path:        "tenants/t1/variants/v1/jobs/j1/variation-1.png",
		Content:     []byte("payload"),
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://studio.example.com/files/tenants/t1/variants/v1/jobs/j1/variation-1.png", url)

	file, err := storage.GetFile(ctx, "tenants/t1/variants/v1/jobs/j1/variation-1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), file.Content)

	_, err = storage.GetFile(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalFileStorage_RejectsEscapingPaths(t *testing.T) {
	storage, err := NewLocalFileStorage(&config.Config{AssetsDir: t.TempDir()})
	require.NoError(t, err)

	_, err = storage.Upload(context.Background(), FileInfo{Path: "../../etc/passwd", Content: []byte("x")})
	assert.Error(t, err)
}

func TestNewFileStorage_Invalid(t *testing.T) {
	_, err := NewFileStorage(context.Background(), &config.Config{Filesystem: "ftp"})
	assert.Error(t, err)
}

func TestLocalFileStorage_GetFileDetectsContentType(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalFileStorage(&config.Config{AssetsDir: t.TempDir()})
	require.NoError(t, err)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")
	_, err = storage.Upload(ctx, FileInfo{Path: "uploads/a.png", Content: png})
	require.NoError(t, err)

	var file *FileInfo
	file, err = storage.GetFile(ctx, "uploads/a.png")
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, "uploads/a.png", file.Path)
	assert.Equal(t, "image/png", file.ContentType)
}
