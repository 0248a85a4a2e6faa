package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePurpose(t *testing.T) {
	tests := map[string]Purpose{
		"catalog":       PurposeCatalog,
		"ADS":           PurposeAds,
		" infographics": PurposeInfographics,
		"":              PurposeCatalog,
		"billboard":     PurposeCatalog,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParsePurpose(in), in)
	}
}

func TestFamilyOf(t *testing.T) {
	assert.Equal(t, FamilyApparel, FamilyOf("apparel"))
	assert.Equal(t, FamilyApparel, FamilyOf("Apparel "))
	assert.Equal(t, FamilyNonApparel, FamilyOf("footwear"))
	assert.Equal(t, FamilyNonApparel, FamilyOf(""))
}

func TestAssetRef(t *testing.T) {
	assert.True(t, AssetRef{}.IsZero())
	assert.Equal(t, "upload:abc", AssetRef{UploadID: "abc"}.String())
	assert.Equal(t, "products/a.png", AssetRef{Path: "products/a.png"}.String())
}
