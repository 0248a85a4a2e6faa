package inference

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/cozy-creator/product-studio/internal/config"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend serves text calls only. It always asks for a JSON object
// response, since every text call in the pipeline is structured.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

func NewOpenAIBackend(cfg *config.OpenAIConfig) (*OpenAIBackend, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is not set")
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}

	return &OpenAIBackend{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}, nil
}

func (b *OpenAIBackend) GenerateText(ctx context.Context, prompt string, images []types.Image) (string, error) {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(images)+1)
	for _, img := range images {
		dataURL := fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
		parts = append(parts, openai.ImagePart(dataURL))
	}
	parts = append(parts, openai.TextPart(prompt))

	completion, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a product photography analyst. Reply with a single JSON object."),
			openai.UserMessageParts(parts...),
		}),
		ResponseFormat: openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONObjectParam{
				Type: openai.F(openai.ResponseFormatJSONObjectTypeJSONObject),
			},
		),
		Model:       openai.F(openai.ChatModel(b.model)),
		Temperature: openai.F(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("openai %s call failed: %w", b.model, err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return completion.Choices[0].Message.Content, nil
}
