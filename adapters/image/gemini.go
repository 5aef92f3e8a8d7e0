package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
)

const (
	defaultModel = "gemini-2.5-flash-image"
	promptSuffix = " - professional industrial safety style"
)

// GeminiImageGenerator implements ImageGenerator using Gemini image models.
type GeminiImageGenerator struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

var _ repositories.ImageGenerator = (*GeminiImageGenerator)(nil)

// NewGeminiImageGenerator creates a new Gemini image generator instance
func NewGeminiImageGenerator(logger *zap.Logger) (*GeminiImageGenerator, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := os.Getenv("GEMINI_IMAGE_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &GeminiImageGenerator{
		client: client,
		logger: logger,
		model:  model,
	}, nil
}

// GenerateImage renders the prompt as a safety illustration and returns it as
// a PNG data URI. A response without inline image data yields "" (no image),
// not an error.
func (g *GeminiImageGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt+promptSuffix, genai.RoleUser),
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate safety image: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		g.logger.Warn("Image response had no candidates", zap.String("prompt", prompt))
		return "", nil
	}
	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return "data:image/png;base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
		}
	}

	g.logger.Warn("Image response had no inline data", zap.String("prompt", prompt))
	return "", nil
}
