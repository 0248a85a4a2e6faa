package resolver

import (
	"context"

	"go.uber.org/zap"
)

// ModelReferenceGuidance is used verbatim when a model photo was supplied.
const ModelReferenceGuidance = "Use the person in the supplied model reference image. " +
	"Keep their face, body shape, skin tone and hair exactly as shown."

// DefaultModelGuidance is used when models are enabled but neither the
// instructions nor the moodboard describe one.
const DefaultModelGuidance = "Show the product worn or held by a professional model suited to the product. " +
	"Natural pose, the product stays the focal point."

const chooseModelPrompt = "Pick the single best direction for the human model wearing or holding the product. " +
	"Choose exactly one source and never blend them. If neither option describes a usable model, choose \"default\".\n\n" +
	"Customer instructions: %s\n\nMoodboard model summary: %s\n\n" +
	`Reply with JSON only: {"chosen_source": "instructions"|"moodboard"|"default", "model_description": string, "confidence": number}`

type ModelInput struct {
	Enabled          bool
	HasReference     bool
	Instructions     string
	MoodboardSummary string
}

type ModelResolver struct {
	cascade *Cascade[ModelInput, Resolution]
}

func NewModelResolver(caller Caller, logger *zap.Logger) *ModelResolver {
	custom := Tier[ModelInput, Resolution]{
		Name: "choose",
		Run: func(ctx context.Context, in ModelInput) (Resolution, bool, error) {
			return choose(ctx, caller, chooseModelPrompt, in.Instructions, in.MoodboardSummary, func(c choice) string {
				return c.ModelDescription
			})
		},
	}

	generic := Tier[ModelInput, Resolution]{
		Name: string(SourceDefault),
		Run: func(context.Context, ModelInput) (Resolution, bool, error) {
			return Resolution{Text: DefaultModelGuidance, Source: SourceDefault}, true, nil
		},
	}

	return &ModelResolver{cascade: NewCascade("model", logger, custom, generic)}
}

// Resolve returns model guidance. It never calls the model when models are
// disabled or a reference photo is present.
func (r *ModelResolver) Resolve(ctx context.Context, in ModelInput) (Resolution, error) {
	if !in.Enabled {
		return Resolution{Source: SourceNone}, nil
	}
	if in.HasReference {
		return Resolution{Text: ModelReferenceGuidance, Source: SourceReference}, nil
	}

	res, _, err := r.cascade.Resolve(ctx, in)
	return res, err
}
