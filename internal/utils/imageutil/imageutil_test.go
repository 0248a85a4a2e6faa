package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngImage(t *testing.T, w, h int) types.Image {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return types.Image{Data: buf.Bytes(), MIMEType: "image/png"}
}

func TestDetect(t *testing.T) {
	mime, err := Detect(pngImage(t, 4, 4).Data)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = Detect([]byte(`{"not":"an image"}`))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestConvert(t *testing.T) {
	src := pngImage(t, 8, 8)

	same, err := Convert(src, types.OutputFormatPNG)
	require.NoError(t, err)
	assert.Equal(t, src.Data, same.Data)

	jpg, err := Convert(src, types.OutputFormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", jpg.MIMEType)

	mime, err := Detect(jpg.Data)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
}

func TestDownscale(t *testing.T) {
	src := pngImage(t, 40, 20)

	out, err := Downscale(src, 10)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)

	untouched, err := Downscale(src, 100)
	require.NoError(t, err)
	assert.Equal(t, src.Data, untouched.Data)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", Extension(""))
	assert.Equal(t, ".jpg", Extension(types.OutputFormatJPEG))
	assert.Equal(t, ".webp", Extension(types.OutputFormatWebP))
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, types.OutputFormatJPEG, FormatOf("image/jpeg"))
	assert.Equal(t, types.OutputFormatWebP, FormatOf("image/webp"))
	assert.Equal(t, types.OutputFormatPNG, FormatOf("image/png"))
	assert.Equal(t, types.OutputFormatPNG, FormatOf(""))
}
