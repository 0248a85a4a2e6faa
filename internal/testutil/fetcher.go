package testutil

import (
	"context"
	"fmt"
	"image/color"

	"github.com/cozy-creator/product-studio/internal/types"
)

// StaticFetcher serves upload references from memory.
type StaticFetcher struct {
	Images map[string]types.Image
}

// NewStaticFetcher registers a small distinct PNG for every upload id.
func NewStaticFetcher(uploadIDs ...string) *StaticFetcher {
	f := &StaticFetcher{Images: map[string]types.Image{}}
	for i, id := range uploadIDs {
		f.Images[types.AssetRef{UploadID: id}.String()] = PNG(2, 2, color.RGBA{R: uint8(10 + i*30), G: 99, A: 255})
	}
	return f
}

func (f *StaticFetcher) Fetch(_ context.Context, ref types.AssetRef) (types.Image, error) {
	img, ok := f.Images[ref.String()]
	if !ok {
		return types.Image{}, fmt.Errorf("unknown asset %s", ref)
	}
	return img, nil
}
