package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/cozy-creator/product-studio/internal/types"
	"github.com/cozy-creator/product-studio/internal/utils/imageutil"
)

// SynthesisCaller issues one image call and validates what comes back.
type SynthesisCaller struct {
	backend ImageGenerator
}

func NewSynthesisCaller(backend ImageGenerator) *SynthesisCaller {
	return &SynthesisCaller{backend: backend}
}

// Synthesize never substitutes a placeholder: a reply without image bytes
// is ErrNoImage.
func (c *SynthesisCaller) Synthesize(ctx context.Context, prompt string, images []types.Image, aspectRatio string) (types.Image, error) {
	img, err := c.backend.GenerateImage(ctx, prompt, images, aspectRatio)
	if err != nil {
		return types.Image{}, err
	}

	if len(img.Data) == 0 {
		return types.Image{}, ErrNoImage
	}

	// The declared type is often missing or generic, so sniff the bytes.
	mime, err := imageutil.Detect(img.Data)
	if err != nil {
		if strings.HasPrefix(img.MIMEType, "image/") {
			return types.Image{}, fmt.Errorf("%w: declared %s but %w", ErrNoImage, img.MIMEType, err)
		}
		return types.Image{}, fmt.Errorf("%w: %w", ErrNoImage, err)
	}

	return types.Image{Data: img.Data, MIMEType: mime}, nil
}
