package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/cozy-creator/product-studio/internal/types"

	"go.uber.org/zap"
)

// StudioDefaultBackground is the answer of last resort.
const StudioDefaultBackground = "Seamless light grey studio backdrop with a soft floor-to-wall sweep, " +
	"large diffused key light from the front left, gentle fill, subtle natural contact shadow under the product."

type Source string

const (
	SourceUploaded     Source = "uploaded"
	SourceInstructions Source = "instructions"
	SourceMoodboard    Source = "moodboard"
	SourceReference    Source = "reference"
	SourceDefault      Source = "default"
	SourceNone         Source = "none"
)

// Caller is the structured-output model call the resolvers depend on.
type Caller interface {
	Call(ctx context.Context, prompt string, images []types.Image, out interface{}) error
}

type Resolution struct {
	Text   string
	Source Source
}

type BackgroundInput struct {
	Uploaded         *types.Image
	Instructions     string
	MoodboardSummary string
}

const describeBackgroundPrompt = "You are given a photograph of a background. Describe it so precisely that it " +
	"could be rebuilt for a product photoshoot: surfaces, materials, colours, lighting direction and quality, " +
	"depth and any props. Do not describe any product. " +
	`Reply with JSON only: {"background_description": string}`

const chooseBackgroundPrompt = "Pick the single best background direction for a product photo from the options below. " +
	"Choose exactly one source and never blend them. If neither option describes a usable background, choose \"default\".\n\n" +
	"Customer instructions: %s\n\nMoodboard background summary: %s\n\n" +
	`Reply with JSON only: {"chosen_source": "instructions"|"moodboard"|"default", "background_description": string, "confidence": number}`

type describedBackground struct {
	Description string `json:"background_description"`
}

// choice is the reply shape of both "pick one" calls; each resolver reads
// its own description field.
type choice struct {
	ChosenSource          string  `json:"chosen_source"`
	BackgroundDescription string  `json:"background_description"`
	ModelDescription      string  `json:"model_description"`
	Confidence            float64 `json:"confidence"`
}

type BackgroundResolver struct {
	cascade *Cascade[BackgroundInput, Resolution]
}

func NewBackgroundResolver(caller Caller, logger *zap.Logger) *BackgroundResolver {
	uploaded := Tier[BackgroundInput, Resolution]{
		Name: string(SourceUploaded),
		Run: func(ctx context.Context, in BackgroundInput) (Resolution, bool, error) {
			if in.Uploaded == nil {
				return Resolution{}, false, nil
			}

			var out describedBackground
			if err := caller.Call(ctx, describeBackgroundPrompt, []types.Image{*in.Uploaded}, &out); err != nil {
				return Resolution{}, false, err
			}
			if IsTrivial(out.Description) {
				return Resolution{}, false, nil
			}
			return Resolution{Text: strings.TrimSpace(out.Description), Source: SourceUploaded}, true, nil
		},
	}

	choose := Tier[BackgroundInput, Resolution]{
		Name: "choose",
		Run: func(ctx context.Context, in BackgroundInput) (Resolution, bool, error) {
			return choose(ctx, caller, chooseBackgroundPrompt, in.Instructions, in.MoodboardSummary, func(c choice) string {
				return c.BackgroundDescription
			})
		},
	}

	fallback := Tier[BackgroundInput, Resolution]{
		Name: string(SourceDefault),
		Run: func(context.Context, BackgroundInput) (Resolution, bool, error) {
			return Resolution{Text: StudioDefaultBackground, Source: SourceDefault}, true, nil
		},
	}

	return &BackgroundResolver{cascade: NewCascade("background", logger, uploaded, choose, fallback)}
}

// Resolve always produces a background; the last tier cannot fail.
func (r *BackgroundResolver) Resolve(ctx context.Context, in BackgroundInput) (Resolution, error) {
	res, _, err := r.cascade.Resolve(ctx, in)
	return res, err
}

// choose issues the shared "pick one, never blend" call used by both
// resolvers.
func choose(ctx context.Context, caller Caller, template, instructions, summary string, text func(choice) string) (Resolution, bool, error) {
	instructions = strings.TrimSpace(instructions)
	summary = strings.TrimSpace(summary)
	if instructions == "" && summary == "" {
		return Resolution{}, false, nil
	}

	var out choice
	prompt := fmt.Sprintf(template, orNone(instructions), orNone(summary))
	if err := caller.Call(ctx, prompt, nil, &out); err != nil {
		return Resolution{}, false, err
	}

	var source Source
	switch strings.ToLower(strings.TrimSpace(out.ChosenSource)) {
	case string(SourceInstructions):
		source = SourceInstructions
	case string(SourceMoodboard):
		source = SourceMoodboard
	default:
		return Resolution{}, false, nil
	}

	description := text(out)
	if IsTrivial(description) {
		return Resolution{}, false, nil
	}
	return Resolution{Text: strings.TrimSpace(description), Source: source}, true, nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
