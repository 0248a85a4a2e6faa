package inference

import (
	"context"
	"fmt"

	"github.com/cozy-creator/product-studio/internal/types"
	"github.com/cozy-creator/product-studio/internal/utils/jsonutil"
)

// StructuredCaller issues one text call and decodes the reply as JSON,
// tolerating objects wrapped in prose or code fences.
type StructuredCaller struct {
	backend TextGenerator
}

func NewStructuredCaller(backend TextGenerator) *StructuredCaller {
	return &StructuredCaller{backend: backend}
}

func (c *StructuredCaller) Call(ctx context.Context, prompt string, images []types.Image, out interface{}) error {
	text, err := c.backend.GenerateText(ctx, prompt, images)
	if err != nil {
		return err
	}

	if err := jsonutil.Decode(text, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}

	return nil
}
