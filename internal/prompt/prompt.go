package prompt

import (
	"fmt"
	"strings"

	"github.com/cozy-creator/product-studio/internal/types"
)

const FidelityConstraints = "Reproduce the product exactly as it appears in the product images. " +
	"Keep its shape, proportions, colours, materials, stitching, logos, labels and printed text unchanged. " +
	"Do not add, remove or restyle any part of the product."

var purposeGuidelines = map[types.Purpose]string{
	types.PurposeCatalog: "Purpose: e-commerce catalog image. Clean, evenly lit, product centred and fully visible, " +
		"true-to-life colour, no text overlays, no props that compete with the product.",
	types.PurposeAds: "Purpose: advertising creative. Editorial composition with a clear focal point, " +
		"dramatic but flattering light, room for a headline, aspirational lifestyle context.",
	types.PurposeInfographics: "Purpose: product infographic. Leave clear negative space around the product for callouts, " +
		"flat or softly graded background, product shown at a legible scale, no invented text.",
}

var categoryGuidelines = map[types.Family]string{
	types.FamilyApparel: "Category: apparel. Show natural fabric drape and true garment fit, " +
		"preserve print placement and trims, keep the garment wrinkle-free unless the style requires otherwise.",
	types.FamilyNonApparel: "Category: product. Keep geometry and surface finish exact. " +
		"When an earlier shot from the same set is attached, match its lighting, camera angle and colour grade.",
}

// Segments are the resolved inputs shared by every variation of a job.
type Segments struct {
	Purpose       types.Purpose
	Family        types.Family
	StyleAppendix string
	Background    string
	ModelGuidance string
	Attributes    []string

	// Instructions is the request-level free text. A variation's own
	// instruction is added after it.
	Instructions string
}

// Assemble joins the non-empty segments in a fixed order. It is a pure
// function of its arguments.
func Assemble(s Segments, instruction string) string {
	purpose, ok := purposeGuidelines[s.Purpose]
	if !ok {
		purpose = purposeGuidelines[types.PurposeCatalog]
	}

	category, ok := categoryGuidelines[s.Family]
	if !ok {
		category = categoryGuidelines[types.FamilyNonApparel]
	}

	sections := []string{
		FidelityConstraints,
		purpose,
		category,
		s.StyleAppendix,
		labelled("Background", s.Background),
		labelled("Model", s.ModelGuidance),
		labelled("Product facts", strings.Join(nonEmpty(s.Attributes), "; ")),
		labelled("Instructions", strings.Join(nonEmpty([]string{s.Instructions, instruction}), " ")),
	}

	return strings.Join(nonEmpty(sections), "\n\n")
}

// BuildAll builds one prompt per variation. Variation i adds instructions[i]
// when present; every other segment is shared.
func BuildAll(s Segments, instructions []string, count int) []string {
	prompts := make([]string, count)
	for i := range prompts {
		var instruction string
		if i < len(instructions) {
			instruction = instructions[i]
		}
		prompts[i] = Assemble(s, instruction)
	}
	return prompts
}

func labelled(label, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return fmt.Sprintf("%s: %s", label, text)
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
