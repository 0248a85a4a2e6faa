package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cozy-creator/product-studio/internal/config"
	"github.com/cozy-creator/product-studio/internal/types"
	"github.com/cozy-creator/product-studio/internal/utils/randutil"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultRetryDelay = 2 * time.Second

type geminiClient struct {
	client *genai.Client
	key    string
}

// GeminiBackend calls the Gemini API. Rate-limited calls are retried on the
// same key a few times and then moved to the next configured key.
type GeminiBackend struct {
	clients    []geminiClient
	textModel  string
	imageModel string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewGeminiBackend(ctx context.Context, cfg *config.GeminiConfig, logger *zap.Logger) (*GeminiBackend, error) {
	if cfg == nil || len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("gemini api keys are not set")
	}

	clients := make([]geminiClient, 0, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		clients = append(clients, geminiClient{client: client, key: key})
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &GeminiBackend{
		clients:    clients,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		maxRetries: maxRetries,
		retryDelay: defaultRetryDelay,
		logger:     logger,
	}, nil
}

func (b *GeminiBackend) GenerateText(ctx context.Context, prompt string, images []types.Image) (string, error) {
	result, err := b.generate(ctx, b.textModel, buildParts(prompt, images), &genai.GenerateContentConfig{
		Temperature: float32Ptr(0.2),
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
		break
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}

	return sb.String(), nil
}

func (b *GeminiBackend) GenerateImage(ctx context.Context, prompt string, images []types.Image, aspectRatio string) (types.Image, error) {
	cfg := &genai.GenerateContentConfig{Temperature: float32Ptr(0.45)}
	if aspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: aspectRatio}
	}

	result, err := b.generate(ctx, b.imageModel, buildParts(prompt, images), cfg)
	if err != nil {
		return types.Image{}, err
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return types.Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
			}
		}
	}

	return types.Image{}, ErrNoImage
}

func (b *GeminiBackend) generate(ctx context.Context, model string, parts []*genai.Part, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	var lastErr error
	for _, c := range b.clients {
		for attempt := 1; attempt <= b.maxRetries; attempt++ {
			result, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
			if err == nil {
				return result, nil
			}

			lastErr = err
			if !isRateLimited(err) {
				return nil, fmt.Errorf("gemini %s call failed: %w", model, err)
			}

			b.logger.Warn("gemini rate limited",
				zap.String("model", model),
				zap.String("key", randutil.MaskString(c.key, 4, 4)),
				zap.Int("attempt", attempt),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.retryDelay):
			}
		}
	}

	return nil, fmt.Errorf("gemini %s rate limited on every key: %w", model, lastErr)
}

// Images go first so the prompt can refer to them by position.
func buildParts(prompt string, images []types.Image) []*genai.Part {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	return append(parts, genai.NewPartFromText(prompt))
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted")
}

func float32Ptr(f float32) *float32 {
	return &f
}
