package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mustafaiq320-svg/salamatuk/domain/entities"
	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
)

// GeminiConfig holds configuration for the Gemini assistant adapter
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int
	TimeoutSeconds  int
}

// NewGeminiConfigFromEnv creates a GeminiConfig from environment variables
func NewGeminiConfigFromEnv() GeminiConfig {
	config := GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  os.Getenv("GEMINI_MODEL"),
	}
	if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil && timeout > 0 {
			config.TimeoutSeconds = timeout
		}
	}
	return config
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("gemini API key is required")
	}
	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 1) {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}
	if config.TopP != 0 && (config.TopP < 0 || config.TopP > 1) {
		return fmt.Errorf("topP must be between 0 and 1, got %f", config.TopP)
	}
	if config.TopK < 0 {
		return fmt.Errorf("topK must be positive, got %f", config.TopK)
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// GeminiAssistant implements the Assistant interface using Google's Gemini API
type GeminiAssistant struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	topP            float32
	topK            float32
	maxOutputTokens int
	timeout         time.Duration
}

var _ repositories.Assistant = (*GeminiAssistant)(nil)

// NewGeminiAssistant creates a new Gemini assistant instance
func NewGeminiAssistant(config GeminiConfig, logger *zap.Logger) (*GeminiAssistant, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}
	temperature := config.Temperature
	if temperature == 0 {
		temperature = float32(defaultTemperature)
	}
	topP := config.TopP
	if topP == 0 {
		topP = float32(defaultTopP)
	}
	topK := config.TopK
	if topK == 0 {
		topK = float32(defaultTopK)
	}
	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxTokens
	}
	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return &GeminiAssistant{
		client:          client,
		logger:          logger,
		model:           model,
		temperature:     temperature,
		topP:            topP,
		topK:            topK,
		maxOutputTokens: maxOutputTokens,
		timeout:         time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// replySchema forces the model to answer with the structured turn shape.
var replySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"assistantText": {Type: genai.TypeString},
		"imagePrompt":   {Type: genai.TypeString},
		"suggestions":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"assistantText", "imagePrompt", "suggestions"},
}

// Reply sends the user's message with the conversation history and returns
// the structured assistant turn. A malformed model response degrades to a
// plain-text reply rather than an error; transport failures are retried and
// then surfaced to the caller.
func (g *GeminiAssistant) Reply(ctx context.Context, history []entities.Message, userText string) (repositories.AssistantReply, error) {
	contents := historyToContents(history, userText)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		TopP:              genai.Ptr(g.topP),
		TopK:              genai.Ptr(g.topK),
		MaxOutputTokens:   int32(g.maxOutputTokens),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    replySchema,
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}
		g.logger.Warn("Failed to generate assistant reply, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return repositories.AssistantReply{}, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}
	if err != nil {
		return repositories.AssistantReply{}, fmt.Errorf("generate assistant reply: %w", err)
	}

	return parseReply(response.Text()), nil
}

// historyToContents maps prior turns onto the wire roles and appends the new
// user message.
func historyToContents(history []entities.Message, userText string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Role == entities.MessageRoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return append(contents, genai.NewContentFromText(userText, genai.RoleUser))
}

// parseReply extracts the structured turn, falling back to a degraded reply
// when the model ignored the schema.
func parseReply(text string) repositories.AssistantReply {
	var reply repositories.AssistantReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		degraded := text
		if degraded == "" {
			degraded = fallbackParseText
		}
		return repositories.AssistantReply{
			Text:        degraded,
			ImagePrompt: fallbackImagePrompt,
		}
	}
	if reply.Text == "" {
		reply.Text = fallbackText
	}
	if reply.ImagePrompt == "" {
		reply.ImagePrompt = fallbackImagePrompt
	}
	return reply
}
