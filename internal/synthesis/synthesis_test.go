package synthesis

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"testing"

	"github.com/cozy-creator/product-studio/internal/inference"
	"github.com/cozy-creator/product-studio/internal/testutil"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLoop(fake *testutil.FakeBackend, storage *testutil.MemoryStorage) *Loop {
	return NewLoop(inference.NewSynthesisCaller(fake), storage, zap.NewNop())
}

func prompts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("prompt %d", i+1)
	}
	return out
}

func basePlan(n int) Plan {
	return Plan{
		TenantID:      "t1",
		VariantID:     "v1",
		JobID:         "j1",
		Prompts:       prompts(n),
		Count:         n,
		Format:        types.OutputFormatPNG,
		ProductImages: []types.Image{testutil.PNG(2, 2, color.White), testutil.PNG(2, 2, color.Black)},
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(0))
	assert.Equal(t, 1, Clamp(-3))
	assert.Equal(t, 7, Clamp(7))
	assert.Equal(t, 10, Clamp(25))
}

func TestRun_ProducesExactlyN(t *testing.T) {
	for n := 1; n <= 10; n++ {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			storage := testutil.NewMemoryStorage()
			result, err := newLoop(&testutil.FakeBackend{}, storage).Run(context.Background(), basePlan(n))
			require.NoError(t, err)
			require.Len(t, result.Outputs, n)

			for i, out := range result.Outputs {
				assert.Equal(t, i+1, out.Index)
				assert.Equal(t, fmt.Sprintf("prompt %d", i+1), out.Prompt)
				assert.Equal(t, OutputPath("t1", "v1", "j1", i+1, types.OutputFormatPNG), out.Path)
				assert.Equal(t, "mem://"+out.Path, out.URL)
			}
			assert.Len(t, storage.Paths(), n)
		})
	}
}

func TestRun_AnchorCarriesForward(t *testing.T) {
	fake := &testutil.FakeBackend{}
	plan := basePlan(3)
	plan.UseAnchor = true
	model := testutil.PNG(3, 3, color.Gray{Y: 100})
	plan.ModelReference = &model

	_, err := newLoop(fake, testutil.NewMemoryStorage()).Run(context.Background(), plan)
	require.NoError(t, err)

	calls := fake.Calls("image")
	require.Len(t, calls, 3)

	// model + 2 products on the first call, anchor in front afterwards
	require.Len(t, calls[0].Images, 3)
	assert.Equal(t, model.Data, calls[0].Images[0].Data)

	first := testutil.PNG(4, 4, color.RGBA{R: 40, G: 10, B: 10, A: 255})
	for _, c := range calls[1:] {
		require.Len(t, c.Images, 4)
		assert.Equal(t, first.Data, c.Images[0].Data)
		assert.Equal(t, model.Data, c.Images[1].Data)
	}
}

func TestRun_NoAnchorKeepsVariationsIndependent(t *testing.T) {
	fake := &testutil.FakeBackend{}
	plan := basePlan(3)

	_, err := newLoop(fake, testutil.NewMemoryStorage()).Run(context.Background(), plan)
	require.NoError(t, err)

	for _, c := range fake.Calls("image") {
		require.Len(t, c.Images, 2)
		assert.Equal(t, plan.ProductImages[0].Data, c.Images[0].Data)
		assert.Equal(t, plan.ProductImages[1].Data, c.Images[1].Data)
	}
}

func TestReferences_GroupsByRole(t *testing.T) {
	plan := basePlan(1)
	pos := testutil.PNG(1, 1, color.RGBA{G: 255, A: 255})
	neg := testutil.PNG(1, 1, color.RGBA{B: 255, A: 255})
	plan.StyleReferences = []types.Image{pos}
	plan.NegativeReferences = []types.Image{neg}

	groups := References(plan, nil)
	require.Len(t, groups, 3)
	assert.Equal(t, RoleProduct, groups[0].Role)
	assert.Len(t, groups[0].Images, 2)
	assert.Equal(t, RoleStyle, groups[1].Role)
	assert.Equal(t, RoleAvoid, groups[2].Role)
	assert.Equal(t, neg.Data, groups[2].Images[0].Data)

	flat := Flatten(groups)
	require.Len(t, flat, 4)
	assert.Equal(t, pos.Data, flat[2].Data)
	assert.Equal(t, neg.Data, flat[3].Data)
}

func TestLegend_LabelsNegativesSeparately(t *testing.T) {
	plan := basePlan(1)
	model := testutil.PNG(3, 3, color.Gray{Y: 100})
	anchor := testutil.PNG(4, 4, color.Gray{Y: 10})
	plan.ModelReference = &model
	plan.StyleReferences = []types.Image{testutil.PNG(1, 1, color.White)}
	plan.NegativeReferences = []types.Image{testutil.PNG(1, 1, color.Black), testutil.PNG(2, 1, color.Black)}

	lines := strings.Split(Legend(References(plan, &anchor)), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[1], "- Image 1: an earlier shot"))
	assert.True(t, strings.HasPrefix(lines[2], "- Image 2: the model"))
	assert.True(t, strings.HasPrefix(lines[3], "- Images 3-4: the product. The product fidelity rules apply to these images only."))
	assert.True(t, strings.HasPrefix(lines[4], "- Image 5: style reference"))
	assert.True(t, strings.HasPrefix(lines[5], "- Images 6-7: avoid."))
	assert.Contains(t, lines[5], "It is not the product")

	for _, line := range lines[1:] {
		if !strings.Contains(line, "the product.") {
			assert.NotContains(t, line, "fidelity", line)
		}
	}
}

func TestRun_SendsLegendWithPrompt(t *testing.T) {
	fake := &testutil.FakeBackend{}
	plan := basePlan(1)
	plan.NegativeReferences = []types.Image{testutil.PNG(1, 1, color.Black)}

	result, err := newLoop(fake, testutil.NewMemoryStorage()).Run(context.Background(), plan)
	require.NoError(t, err)

	calls := fake.Calls("image")
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Images, 3)
	assert.True(t, strings.HasPrefix(calls[0].Prompt, "Reference images, in the order attached:"))
	assert.Contains(t, calls[0].Prompt, "- Images 1-2: the product.")
	assert.Contains(t, calls[0].Prompt, "- Image 3: avoid.")
	assert.True(t, strings.HasSuffix(calls[0].Prompt, "prompt 1"))

	// the stored prompt is the assembled one, without the legend
	assert.Equal(t, "prompt 1", result.Outputs[0].Prompt)
}

func TestRun_FailureKeepsPartialOutputs(t *testing.T) {
	calls := 0
	fake := &testutil.FakeBackend{ImageFunc: func(string, []types.Image) (types.Image, error) {
		calls++
		if calls == 3 {
			return types.Image{Data: []byte("not an image"), MIMEType: "text/plain"}, nil
		}
		return testutil.PNG(2, 2, color.White), nil
	}}

	var persisted []int
	plan := basePlan(5)
	plan.OnOutput = func(_ context.Context, out Output) error {
		persisted = append(persisted, out.Index)
		return nil
	}

	result, err := newLoop(fake, testutil.NewMemoryStorage()).Run(context.Background(), plan)

	var verr *VariationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 3, verr.Index)
	assert.Equal(t, StageSynthesize, verr.Stage)
	assert.ErrorIs(t, err, inference.ErrNoImage)

	assert.Len(t, result.Outputs, 2)
	assert.Equal(t, []int{1, 2}, persisted)
}

func TestRun_StorageFailure(t *testing.T) {
	storage := testutil.NewMemoryStorage()
	storage.FailAfter = 2

	result, err := newLoop(&testutil.FakeBackend{}, storage).Run(context.Background(), basePlan(3))

	var verr *VariationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Index)
	assert.Equal(t, StageStore, verr.Stage)
	assert.Len(t, result.Outputs, 1)
}

func TestRun_ConvertsFormat(t *testing.T) {
	plan := basePlan(1)
	plan.Format = types.OutputFormatJPEG

	storage := testutil.NewMemoryStorage()
	result, err := newLoop(&testutil.FakeBackend{}, storage).Run(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, "image/jpeg", result.Outputs[0].MIMEType)
	assert.Equal(t, "tenants/t1/variants/v1/jobs/j1/variation-1.jpg", result.Outputs[0].Path)
}
