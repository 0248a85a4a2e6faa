package types

import "strings"

type Purpose string

const (
	PurposeCatalog      Purpose = "catalog"
	PurposeAds          Purpose = "ads"
	PurposeInfographics Purpose = "infographics"
)

var Purposes = []Purpose{PurposeCatalog, PurposeAds, PurposeInfographics}

// ParsePurpose falls back to catalog for anything it does not recognise.
func ParsePurpose(s string) Purpose {
	switch p := Purpose(strings.ToLower(strings.TrimSpace(s))); p {
	case PurposeCatalog, PurposeAds, PurposeInfographics:
		return p
	default:
		return PurposeCatalog
	}
}

type Family string

const (
	FamilyApparel    Family = "apparel"
	FamilyNonApparel Family = "non_apparel"
)

var Families = []Family{FamilyApparel, FamilyNonApparel}

func FamilyOf(category string) Family {
	if strings.EqualFold(strings.TrimSpace(category), "apparel") {
		return FamilyApparel
	}
	return FamilyNonApparel
}

type Strength string

const (
	StrengthStrict   Strength = "strict"
	StrengthInspired Strength = "inspired"
)

type OutputFormat string

const (
	OutputFormatPNG  OutputFormat = "png"
	OutputFormatJPEG OutputFormat = "jpeg"
	OutputFormatWebP OutputFormat = "webp"
)

type UnitType string

const (
	UnitImage UnitType = "image"
	UnitText  UnitType = "text"
)

// AssetRef points at an upload-backed image. Exactly one field is set.
type AssetRef struct {
	UploadID string `json:"upload_id,omitempty" validate:"required_without_all=URL Path"`
	URL      string `json:"url,omitempty" validate:"omitempty,url"`
	Path     string `json:"path,omitempty"`
}

func (a AssetRef) IsZero() bool {
	return a.UploadID == "" && a.URL == "" && a.Path == ""
}

func (a AssetRef) String() string {
	switch {
	case a.UploadID != "":
		return "upload:" + a.UploadID
	case a.URL != "":
		return a.URL
	default:
		return a.Path
	}
}

type VariantTarget struct {
	VariantID     string     `json:"variant_id" validate:"required"`
	ProductImages []AssetRef `json:"product_images" validate:"required,min=1,max=4,dive"`
}

// GenerationRequest is what a caller submits. It is never mutated after
// admission; jobs carry their own enriched copy.
type GenerationRequest struct {
	TenantID              string          `json:"tenant_id" validate:"required"`
	ProductID             string          `json:"product_id" validate:"required"`
	Category              string          `json:"category"`
	Purpose               Purpose         `json:"purpose"`
	Variants              []VariantTarget `json:"variants" validate:"required,min=1,max=100,unique=VariantID,dive"`
	ModelImage            *AssetRef       `json:"model_image,omitempty" validate:"omitempty"`
	BackgroundImage       *AssetRef       `json:"background_image,omitempty" validate:"omitempty"`
	ModelEnabled          bool            `json:"model_enabled"`
	MoodboardID           string          `json:"moodboard_id,omitempty" validate:"omitempty,uuid"`
	MoodboardStrength     Strength        `json:"moodboard_strength,omitempty" validate:"omitempty,oneof=strict inspired"`
	Variations            int             `json:"variations" validate:"min=1,max=10"`
	Instructions          string          `json:"instructions,omitempty" validate:"max=2000"`
	VariationInstructions []string        `json:"variation_instructions,omitempty" validate:"max=10"`
	OutputFormat          OutputFormat    `json:"output_format,omitempty" validate:"omitempty,oneof=png jpeg webp"`
	AspectRatio           string          `json:"aspect_ratio,omitempty" validate:"omitempty,oneof=1:1 2:3 3:2 3:4 4:3 4:5 5:4 9:16 16:9 21:9"`
}

type AssetKind string

const (
	AssetKindBackground AssetKind = "background"
	AssetKindModel      AssetKind = "model"
	AssetKindPositive   AssetKind = "positive"
	AssetKindNegative   AssetKind = "negative"
)

// MoodboardSnapshot is a point-in-time copy of a moodboard, embedded into
// every job created from it.
type MoodboardSnapshot struct {
	MoodboardID       string     `json:"moodboard_id"`
	Name              string     `json:"name"`
	Tone              string     `json:"tone,omitempty"`
	FontFamily        string     `json:"font_family,omitempty"`
	TextCase          string     `json:"text_case,omitempty"`
	TypographyRules   []string   `json:"typography_rules,omitempty"`
	DoNot             []string   `json:"do_not,omitempty"`
	PositiveSummary   string     `json:"positive_summary,omitempty"`
	NegativeSummary   string     `json:"negative_summary,omitempty"`
	BackgroundSummary string     `json:"background_summary,omitempty"`
	ModelSummary      string     `json:"model_summary,omitempty"`
	Backgrounds       []AssetRef `json:"backgrounds,omitempty"`
	Models            []AssetRef `json:"models,omitempty"`
	Positives         []AssetRef `json:"positives,omitempty"`
	Negatives         []AssetRef `json:"negatives,omitempty"`
}

// JobInput is the validated and enriched input stored on a job.
type JobInput struct {
	TenantID              string             `json:"tenant_id"`
	ProductID             string             `json:"product_id"`
	VariantID             string             `json:"variant_id"`
	Category              string             `json:"category"`
	Family                Family             `json:"family"`
	Purpose               Purpose            `json:"purpose"`
	ProductImages         []AssetRef         `json:"product_images"`
	ModelImage            *AssetRef          `json:"model_image,omitempty"`
	BackgroundImage       *AssetRef          `json:"background_image,omitempty"`
	ModelEnabled          bool               `json:"model_enabled"`
	Instructions          string             `json:"instructions,omitempty"`
	VariationInstructions []string           `json:"variation_instructions,omitempty"`
	Variations            int                `json:"variations"`
	OutputFormat          OutputFormat       `json:"output_format"`
	AspectRatio           string             `json:"aspect_ratio,omitempty"`
	Strength              Strength           `json:"strength,omitempty"`
	Moodboard             *MoodboardSnapshot `json:"moodboard,omitempty"`
	StyleAppendix         string             `json:"style_appendix,omitempty"`
}

// Image is raw image bytes with their MIME type.
type Image struct {
	Data     []byte
	MIMEType string
}
