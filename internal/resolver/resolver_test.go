package resolver

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/cozy-creator/product-studio/internal/inference"
	"github.com/cozy-creator/product-studio/internal/testutil"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestIsTrivial(t *testing.T) {
	trivial := []string{"", "studio", "  Default. ", "n/a", "white wall", "unknown"}
	for _, text := range trivial {
		assert.True(t, IsTrivial(text), "%q", text)
	}

	useful := []string{"plain white seamless wall", "warm oak table in a sunlit kitchen"}
	for _, text := range useful {
		assert.False(t, IsTrivial(text), "%q", text)
	}
}

func TestCascade_FirstAnswerWins(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	var ran []string
	tier := func(name string, ok bool, err error) Tier[int, string] {
		return Tier[int, string]{Name: name, Run: func(context.Context, int) (string, bool, error) {
			ran = append(ran, name)
			return name, ok, err
		}}
	}

	c := NewCascade("test", zap.New(core),
		tier("a", false, nil),
		tier("b", false, errors.New("boom")),
		tier("c", true, nil),
		tier("d", true, nil),
	)

	answer, name, err := c.Resolve(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "c", answer)
	assert.Equal(t, "c", name)
	assert.Equal(t, []string{"a", "b", "c"}, ran)

	assert.Equal(t, 1, logs.FilterMessage("resolver tier failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("resolution degraded").Len())
}

func TestCascade_NoAnswer(t *testing.T) {
	c := NewCascade[int, string]("empty", zap.NewNop())
	_, _, err := c.Resolve(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNoTierMatched)
}

func newBackground(fake *testutil.FakeBackend) *BackgroundResolver {
	return NewBackgroundResolver(inference.NewStructuredCaller(fake), zap.NewNop())
}

func TestBackground_UploadedWins(t *testing.T) {
	fake := &testutil.FakeBackend{TextFunc: func(string, []types.Image) (string, error) {
		return `{"background_description": "weathered concrete floor against a teal painted brick wall"}`, nil
	}}

	img := testutil.PNG(2, 2, color.White)
	res, err := newBackground(fake).Resolve(context.Background(), BackgroundInput{
		Uploaded:     &img,
		Instructions: "beach at sunset",
	})
	require.NoError(t, err)
	assert.Equal(t, SourceUploaded, res.Source)
	assert.Contains(t, res.Text, "teal painted brick")

	calls := fake.Calls("text")
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].Images, 1)
}

func TestBackground_ChoosesInstructions(t *testing.T) {
	fake := &testutil.FakeBackend{TextFunc: func(prompt string, _ []types.Image) (string, error) {
		return "Sure! ```json\n" +
			`{"chosen_source": "instructions", "background_description": "sandy beach at golden hour with soft surf", "confidence": 0.8}` +
			"\n```", nil
	}}

	res, err := newBackground(fake).Resolve(context.Background(), BackgroundInput{
		Instructions:     "on a beach at sunset",
		MoodboardSummary: "pale plaster walls",
	})
	require.NoError(t, err)
	assert.Equal(t, SourceInstructions, res.Source)
	assert.Equal(t, "sandy beach at golden hour with soft surf", res.Text)

	calls := fake.Calls("text")
	require.Len(t, calls, 1)
	assert.True(t, strings.Contains(calls[0].Prompt, "on a beach at sunset"))
	assert.True(t, strings.Contains(calls[0].Prompt, "pale plaster walls"))
}

func TestBackground_TrivialAnswerFallsToDefault(t *testing.T) {
	replies := []string{
		`{"chosen_source": "moodboard", "background_description": "studio"}`,
		`{"chosen_source": "default", "background_description": "a long and detailed description"}`,
		`{"chosen_source": "instructions", "background_description": ""}`,
		`not json at all`,
	}

	for _, reply := range replies {
		fake := &testutil.FakeBackend{TextFunc: func(string, []types.Image) (string, error) { return reply, nil }}

		res, err := newBackground(fake).Resolve(context.Background(), BackgroundInput{Instructions: "something nice"})
		require.NoError(t, err)
		assert.Equal(t, SourceDefault, res.Source, reply)
		assert.Equal(t, StudioDefaultBackground, res.Text)
	}
}

func TestBackground_NothingToChooseFrom(t *testing.T) {
	fake := &testutil.FakeBackend{}

	res, err := newBackground(fake).Resolve(context.Background(), BackgroundInput{})
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, res.Source)
	assert.Empty(t, fake.Calls(""))
}

func TestModel_Resolve(t *testing.T) {
	fake := &testutil.FakeBackend{TextFunc: func(string, []types.Image) (string, error) {
		return `{"chosen_source": "moodboard", "model_description": "woman in her thirties with short curly hair, relaxed pose", "confidence": 0.9}`, nil
	}}
	r := NewModelResolver(inference.NewStructuredCaller(fake), zap.NewNop())
	ctx := context.Background()

	disabled, err := r.Resolve(ctx, ModelInput{Enabled: false, Instructions: "x"})
	require.NoError(t, err)
	assert.Equal(t, SourceNone, disabled.Source)

	ref, err := r.Resolve(ctx, ModelInput{Enabled: true, HasReference: true, Instructions: "x"})
	require.NoError(t, err)
	assert.Equal(t, SourceReference, ref.Source)
	assert.Equal(t, ModelReferenceGuidance, ref.Text)
	assert.Empty(t, fake.Calls(""))

	chosen, err := r.Resolve(ctx, ModelInput{Enabled: true, MoodboardSummary: "women in their thirties"})
	require.NoError(t, err)
	assert.Equal(t, SourceMoodboard, chosen.Source)
	assert.Contains(t, chosen.Text, "short curly hair")

	generic, err := r.Resolve(ctx, ModelInput{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, generic.Source)
	assert.Equal(t, DefaultModelGuidance, generic.Text)
}

func TestModel_EnabledWithoutDirectionStillAsksForModel(t *testing.T) {
	fake := &testutil.FakeBackend{TextFunc: func(string, []types.Image) (string, error) {
		return `{"chosen_source": "default", "model_description": "", "confidence": 0.2}`, nil
	}}
	r := NewModelResolver(inference.NewStructuredCaller(fake), zap.NewNop())

	res, err := r.Resolve(context.Background(), ModelInput{Enabled: true, Instructions: "make the bottle shine"})
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, res.Source)
	assert.Contains(t, res.Text, "professional model")
	assert.Len(t, fake.Calls("text"), 1)
}
