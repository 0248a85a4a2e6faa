package inference

import (
	"context"
	"errors"

	"github.com/cozy-creator/product-studio/internal/types"
)

var (
	ErrNoImage         = errors.New("model returned no image")
	ErrEmptyResponse   = errors.New("model returned an empty response")
	ErrMalformedOutput = errors.New("model output is not valid JSON")
)

// TextGenerator is image-in/text-out inference.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, images []types.Image) (string, error)
}

// ImageGenerator is text-and-image-in/image-out inference.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, images []types.Image, aspectRatio string) (types.Image, error)
}

type Backend interface {
	TextGenerator
	ImageGenerator
}

// SplitBackend serves text and image calls from different providers.
type SplitBackend struct {
	Text  TextGenerator
	Image ImageGenerator
}

func (b SplitBackend) GenerateText(ctx context.Context, prompt string, images []types.Image) (string, error) {
	return b.Text.GenerateText(ctx, prompt, images)
}

func (b SplitBackend) GenerateImage(ctx context.Context, prompt string, images []types.Image, aspectRatio string) (types.Image, error) {
	return b.Image.GenerateImage(ctx, prompt, images, aspectRatio)
}
