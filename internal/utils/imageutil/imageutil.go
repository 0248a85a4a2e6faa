package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/anthonynsimon/bild/transform"
	"github.com/gabriel-vasile/mimetype"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	_ "golang.org/x/image/webp"
)

var ErrNotImage = errors.New("content is not an image")

const (
	jpegQuality = 90
	webpQuality = 90
)

// Detect returns the MIME type of data, or ErrNotImage.
func Detect(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	if !isImageMIME(mtype.String()) {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}

	return mtype.String(), nil
}

func isImageMIME(m string) bool {
	return len(m) > 6 && m[:6] == "image/"
}

func MIMEType(format types.OutputFormat) string {
	switch format {
	case types.OutputFormatJPEG:
		return "image/jpeg"
	case types.OutputFormatWebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// FormatOf maps a MIME type back to an output format, defaulting to PNG.
func FormatOf(mime string) types.OutputFormat {
	switch mime {
	case "image/jpeg":
		return types.OutputFormatJPEG
	case "image/webp":
		return types.OutputFormatWebP
	default:
		return types.OutputFormatPNG
	}
}

func Extension(format types.OutputFormat) string {
	switch format {
	case types.OutputFormatJPEG:
		return ".jpg"
	case types.OutputFormatWebP:
		return ".webp"
	default:
		return ".png"
	}
}

// Convert re-encodes img into format. Images already in the target format
// are returned untouched.
func Convert(img types.Image, format types.OutputFormat) (types.Image, error) {
	if format == "" {
		format = types.OutputFormatPNG
	}

	target := MIMEType(format)
	if img.MIMEType == target {
		return img, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return types.Image{}, fmt.Errorf("failed to decode %s: %w", img.MIMEType, err)
	}

	data, err := encode(decoded, format)
	if err != nil {
		return types.Image{}, err
	}

	return types.Image{Data: data, MIMEType: target}, nil
}

func encode(img image.Image, format types.OutputFormat) ([]byte, error) {
	var output bytes.Buffer
	var err error

	switch format {
	case types.OutputFormatJPEG:
		err = jpeg.Encode(&output, img, &jpeg.Options{Quality: jpegQuality})
	case types.OutputFormatWebP:
		options, oerr := encoder.NewLossyEncoderOptions(encoder.PresetDefault, webpQuality)
		if oerr != nil {
			return nil, fmt.Errorf("failed to create webp encoder options: %w", oerr)
		}
		err = webp.Encode(&output, img, options)
	default:
		err = png.Encode(&output, img)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}

	return output.Bytes(), nil
}

// Downscale shrinks img so that its longest side is at most maxDim,
// preserving aspect ratio. Smaller images are returned untouched.
func Downscale(img types.Image, maxDim int) (types.Image, error) {
	if maxDim <= 0 {
		return img, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return types.Image{}, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= maxDim && cfg.Height <= maxDim {
		return img, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return types.Image{}, fmt.Errorf("failed to decode image: %w", err)
	}

	width, height := fit(cfg.Width, cfg.Height, maxDim)
	resized := transform.Resize(decoded, width, height, transform.Linear)

	data, err := encode(resized, types.OutputFormatPNG)
	if err != nil {
		return types.Image{}, err
	}

	return types.Image{Data: data, MIMEType: "image/png"}, nil
}

func fit(width, height, maxDim int) (int, int) {
	if width >= height {
		return maxDim, max(1, height*maxDim/width)
	}
	return max(1, width*maxDim/height), maxDim
}
