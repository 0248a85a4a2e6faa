package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/cozy-creator/product-studio/internal/types"
)

// PNG encodes a solid w×h image.
func PNG(w, h int, c color.Color) types.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return types.Image{Data: buf.Bytes(), MIMEType: "image/png"}
}

type Call struct {
	Kind        string
	Prompt      string
	Images      []types.Image
	AspectRatio string
}

// FakeBackend records every inference call and answers through the
// configured funcs. Image calls default to a fresh 4×4 PNG.
type FakeBackend struct {
	TextFunc  func(prompt string, images []types.Image) (string, error)
	ImageFunc func(prompt string, images []types.Image) (types.Image, error)

	mu    sync.Mutex
	calls []Call
	seq   int
}

func (f *FakeBackend) GenerateText(_ context.Context, prompt string, images []types.Image) (string, error) {
	f.record(Call{Kind: "text", Prompt: prompt, Images: images})
	if f.TextFunc == nil {
		return "{}", nil
	}
	return f.TextFunc(prompt, images)
}

func (f *FakeBackend) GenerateImage(_ context.Context, prompt string, images []types.Image, aspectRatio string) (types.Image, error) {
	n := f.record(Call{Kind: "image", Prompt: prompt, Images: images, AspectRatio: aspectRatio})
	if f.ImageFunc == nil {
		return PNG(4, 4, color.RGBA{R: uint8(n * 40), G: 10, B: 10, A: 255}), nil
	}
	return f.ImageFunc(prompt, images)
}

func (f *FakeBackend) record(c Call) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	f.seq++
	return f.seq
}

// Calls returns the recorded calls of the given kind ("text" or "image");
// an empty kind returns all of them.
func (f *FakeBackend) Calls(kind string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Call
	for _, c := range f.calls {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
