package garment

import (
	"context"
	"fmt"

	"github.com/cozy-creator/product-studio/internal/types"
)

// Caller is the structured-output model call.
type Caller interface {
	Call(ctx context.Context, prompt string, images []types.Image, out interface{}) error
}

// Synthesizer is the image-out model call.
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string, images []types.Image, aspectRatio string) (types.Image, error)
}

const classifyPrompt = "The images are photos of one garment, numbered from 0 in the order given. " +
	"Identify which image shows the full front, the full back, a close-up of the front and a close-up of the back. " +
	"Use null for any view that is not present. Set need_masking to true if the garment is not already isolated on a clean, plain background. " +
	`Reply with JSON only: {"front": int|null, "back": int|null, "front_close": int|null, "back_close": int|null, "need_masking": bool}`

// Views holds zero-based indices into the supplied images. A nil index means
// the view was not found.
type Views struct {
	Front       *int `json:"front"`
	Back        *int `json:"back"`
	FrontClose  *int `json:"front_close"`
	BackClose   *int `json:"back_close"`
	NeedMasking bool `json:"need_masking"`
}

type Classifier struct {
	caller Caller
}

func NewClassifier(caller Caller) *Classifier {
	return &Classifier{caller: caller}
}

// Classify makes one call over every image. Missing views are not an error;
// only a failed or unparseable call is.
func (c *Classifier) Classify(ctx context.Context, images []types.Image) (*Views, error) {
	if len(images) == 0 {
		return &Views{}, nil
	}

	views := &Views{}
	if err := c.caller.Call(ctx, classifyPrompt, images, views); err != nil {
		return nil, fmt.Errorf("failed to classify garment views: %w", err)
	}

	views.clamp(len(images))
	return views, nil
}

func (v *Views) clamp(n int) {
	for _, idx := range []**int{&v.Front, &v.Back, &v.FrontClose, &v.BackClose} {
		if *idx != nil && (**idx < 0 || **idx >= n) {
			*idx = nil
		}
	}
}

func (v *Views) Found() int {
	n := 0
	for _, idx := range []*int{v.Front, v.Back, v.FrontClose, v.BackClose} {
		if idx != nil {
			n++
		}
	}
	return n
}
