package garment

import (
	"context"
	"fmt"

	"github.com/cozy-creator/product-studio/internal/services/filestorage"
	"github.com/cozy-creator/product-studio/internal/types"
	"github.com/cozy-creator/product-studio/internal/utils/hashutil"
	"github.com/cozy-creator/product-studio/internal/utils/imageutil"
	"github.com/cozy-creator/product-studio/internal/utils/pathutil"

	"go.uber.org/zap"
)

const maskPrompt = "Remove the background from this garment photo. Keep the garment exactly as it is, " +
	"with every seam, print and colour untouched, and place it on a pure white background. Output only the garment."

type Cutout struct {
	Image types.Image
	URL   string
	Path  string
}

type Cutouts struct {
	Front *Cutout
	Back  *Cutout
}

type Masker struct {
	synth   Synthesizer
	storage filestorage.FileStorage
	logger  *zap.Logger
}

func NewMasker(synth Synthesizer, storage filestorage.FileStorage, logger *zap.Logger) *Masker {
	return &Masker{synth: synth, storage: storage, logger: logger}
}

// Mask cuts out the front and back views that were found and stores them
// under prefix. Views that were not found are skipped. Any failure is
// returned as is; there is no retry.
func (m *Masker) Mask(ctx context.Context, prefix string, images []types.Image, views *Views) (*Cutouts, error) {
	out := &Cutouts{}
	if views == nil || !views.NeedMasking {
		return out, nil
	}

	targets := []struct {
		name string
		idx  *int
		dst  **Cutout
	}{
		{"front", views.Front, &out.Front},
		{"back", views.Back, &out.Back},
	}

	for _, target := range targets {
		if target.idx == nil {
			continue
		}

		cutout, err := m.cut(ctx, prefix, target.name, images[*target.idx])
		if err != nil {
			return nil, fmt.Errorf("failed to mask %s view: %w", target.name, err)
		}
		*target.dst = cutout
	}

	return out, nil
}

func (m *Masker) cut(ctx context.Context, prefix, view string, img types.Image) (*Cutout, error) {
	result, err := m.synth.Synthesize(ctx, maskPrompt, []types.Image{img}, "")
	if err != nil {
		return nil, err
	}

	ext := imageutil.Extension(imageutil.FormatOf(result.MIMEType))
	key := pathutil.ObjectKey(prefix, "cutouts", view+"-"+hashutil.Fingerprint(result.Data)+ext)
	url, err := m.storage.Upload(ctx, filestorage.FileInfo{Path: key, Content: result.Data, ContentType: result.MIMEType})
	if err != nil {
		return nil, fmt.Errorf("failed to store cutout: %w", err)
	}

	m.logger.Debug("stored garment cutout", zap.String("view", view), zap.String("path", key))
	return &Cutout{Image: result, URL: url, Path: key}, nil
}

// References returns the product images with found views replaced by their
// cutouts, keeping the original order.
func References(images []types.Image, views *Views, cutouts *Cutouts) []types.Image {
	out := append([]types.Image(nil), images...)
	if views == nil || cutouts == nil {
		return out
	}

	if views.Front != nil && cutouts.Front != nil {
		out[*views.Front] = cutouts.Front.Image
	}
	if views.Back != nil && cutouts.Back != nil {
		out[*views.Back] = cutouts.Back.Image
	}
	return out
}

// BestFront picks the image the analyzer should look at: the front cutout,
// then the front view, then the first image.
func BestFront(images []types.Image, views *Views, cutouts *Cutouts) (types.Image, bool) {
	if cutouts != nil && cutouts.Front != nil {
		return cutouts.Front.Image, true
	}
	if views != nil && views.Front != nil {
		return images[*views.Front], true
	}
	if len(images) > 0 {
		return images[0], true
	}
	return types.Image{}, false
}
