package workflow

import (
	"errors"
	"testing"

	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalInput(d *Descriptor) *types.JobInput {
	return &types.JobInput{
		TenantID:      "tenant-a",
		VariantID:     "variant-1",
		Family:        d.Family,
		Purpose:       d.Purpose,
		ProductImages: []types.AssetRef{{UploadID: "up_1"}},
		Variations:    1,
		OutputFormat:  types.OutputFormatPNG,
	}
}

func TestResolve_Table(t *testing.T) {
	tests := []struct {
		category string
		purpose  string
		want     Key
	}{
		{"apparel", "catalog", ApparelCatalog},
		{"apparel", "ads", ApparelAds},
		{"apparel", "infographics", ApparelInfographics},
		{"Apparel", "", ApparelCatalog},
		{"footwear", "catalog", NonApparelCatalog},
		{"electronics", "ads", NonApparelAds},
		{"", "infographics", NonApparelInfographics},
		{"home", "poster", NonApparelCatalog},
	}

	for _, tt := range tests {
		t.Run(tt.category+"/"+tt.purpose, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.category, tt.purpose))
		})
	}
}

func TestRegistry_EveryPairResolvesAndRoundTrips(t *testing.T) {
	for _, family := range types.Families {
		for _, purpose := range types.Purposes {
			key := For(family, purpose)
			d, err := Lookup(key)
			require.NoError(t, err, key)
			assert.Equal(t, family, d.Family)
			assert.Equal(t, purpose, d.Purpose)
			assert.NoError(t, d.Validate(minimalInput(d)), key)
		}
	}

	assert.Len(t, All(), len(types.Families)*len(types.Purposes))
}

func TestRegistry_ExecutorKinds(t *testing.T) {
	for _, d := range All() {
		if d.Key == ApparelCatalog {
			assert.Equal(t, ExecutorMultiStep, d.Executor)
		} else {
			assert.Equal(t, ExecutorInline, d.Executor, d.Key)
		}
	}
}

func TestLookup_Unsupported(t *testing.T) {
	_, err := Lookup("apparel.catalog.v9")
	assert.ErrorIs(t, err, ErrUnsupportedWorkflow)
}

func TestValidate_Rejects(t *testing.T) {
	d, err := Lookup(NonApparelAds)
	require.NoError(t, err)

	tests := map[string]func(in *types.JobInput){
		"no images":       func(in *types.JobInput) { in.ProductImages = nil },
		"too many images": func(in *types.JobInput) { in.ProductImages = make([]types.AssetRef, 5) },
		"zero variations": func(in *types.JobInput) { in.Variations = 0 },
		"11 variations":   func(in *types.JobInput) { in.Variations = 11 },
		"wrong purpose":   func(in *types.JobInput) { in.Purpose = types.PurposeCatalog },
		"bad aspect":      func(in *types.JobInput) { in.AspectRatio = "square" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := minimalInput(d)
			mutate(in)

			err := d.Validate(in)
			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "got %v", err)
			assert.NotEmpty(t, schemaErr.Issues)
		})
	}
}

func TestBuildPrompts_MatchesVariations(t *testing.T) {
	d, err := Lookup(NonApparelCatalog)
	require.NoError(t, err)

	for n := 1; n <= 10; n++ {
		in := minimalInput(d)
		in.Variations = n
		prompts := d.BuildPrompts(in, Resolved{Background: "a seamless light grey studio sweep"})
		assert.Len(t, prompts, n)
	}
}

func TestBuildPrompts_CarriesRequestInstructions(t *testing.T) {
	d, err := Lookup(NonApparelCatalog)
	require.NoError(t, err)

	in := minimalInput(d)
	in.Variations = 2
	in.Instructions = "show the bottle tilted 30 degrees"
	in.VariationInstructions = []string{"", "from a low angle"}

	prompts := d.BuildPrompts(in, Resolved{Background: "a seamless light grey studio sweep"})
	require.Len(t, prompts, 2)
	for _, p := range prompts {
		assert.Contains(t, p, "Instructions: show the bottle tilted 30 degrees")
	}
	assert.Contains(t, prompts[1], "show the bottle tilted 30 degrees from a low angle")
}
