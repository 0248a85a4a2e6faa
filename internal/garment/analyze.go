package garment

import (
	"context"
	"strings"

	"github.com/cozy-creator/product-studio/internal/types"

	"go.uber.org/zap"
)

const analyzePrompt = "Analyse the garment in this photo. " +
	"gender is one of men, women, unisex, kids. category is one of top, bottom, dress, outerwear, set, accessory. " +
	"garment_type is a short noun phrase such as \"denim jacket\". occasion is one of casual, formal, party, sport, work, lounge. " +
	"styling is up to three short styling suggestions. is_jean_type is true only for jeans or denim bottoms. " +
	"Use null for anything you cannot tell. " +
	`Reply with JSON only: {"gender": string|null, "category": string|null, "garment_type": string|null, "occasion": string|null, "styling": [string], "is_jean_type": bool|null}`

// Attributes are optional facts about a garment. Every field may be empty.
type Attributes struct {
	Gender      *string  `json:"gender"`
	Category    *string  `json:"category"`
	GarmentType *string  `json:"garment_type"`
	Occasion    *string  `json:"occasion"`
	Styling     []string `json:"styling"`
	IsJeanType  *bool    `json:"is_jean_type"`
}

// Facts renders the known attributes as short prompt facts.
func (a *Attributes) Facts() []string {
	if a == nil {
		return nil
	}

	var facts []string
	add := func(label string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			facts = append(facts, label+": "+strings.TrimSpace(*v))
		}
	}

	add("garment", a.GarmentType)
	add("category", a.Category)
	add("for", a.Gender)
	add("occasion", a.Occasion)

	var styling []string
	for _, s := range a.Styling {
		if s = strings.TrimSpace(s); s != "" {
			styling = append(styling, s)
		}
	}
	if len(styling) > 0 {
		facts = append(facts, "styling: "+strings.Join(styling, ", "))
	}

	if a.IsJeanType != nil && *a.IsJeanType {
		facts = append(facts, "denim bottom: keep wash, fading and whiskering exactly as shown")
	}
	return facts
}

type Analyzer struct {
	caller Caller
	logger *zap.Logger
}

func NewAnalyzer(caller Caller, logger *zap.Logger) *Analyzer {
	return &Analyzer{caller: caller, logger: logger}
}

// Analyze never fails: on any error it logs and returns empty attributes.
func (a *Analyzer) Analyze(ctx context.Context, img types.Image) *Attributes {
	attrs := &Attributes{}
	if len(img.Data) == 0 {
		return attrs
	}

	if err := a.caller.Call(ctx, analyzePrompt, []types.Image{img}, attrs); err != nil {
		a.logger.Warn("garment analysis failed, continuing without attributes", zap.Error(err))
		return &Attributes{}
	}
	return attrs
}
