package speech

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
	defaultTTSModel = "gemini-2.5-flash-preview-tts"
	defaultVoice    = "Kore"
)

// GeminiSynthesizer implements SpeechSynthesizer using Gemini TTS models.
// Output is base64 16-bit PCM at 24 kHz mono, ready for the playback engine.
type GeminiSynthesizer struct {
	client *genai.Client
	logger *zap.Logger
	model  string
	voice  string
}

var _ repositories.SpeechSynthesizer = (*GeminiSynthesizer)(nil)

// NewGeminiSynthesizer creates a new Gemini speech synthesizer instance
func NewGeminiSynthesizer(logger *zap.Logger) (*GeminiSynthesizer, error) {
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

	model := os.Getenv("GEMINI_TTS_MODEL")
	if model == "" {
		model = defaultTTSModel
	}
	voice := os.Getenv("GEMINI_TTS_VOICE")
	if voice == "" {
		voice = defaultVoice
	}

	return &GeminiSynthesizer{
		client: client,
		logger: logger,
		model:  model,
		voice:  voice,
	}, nil
}

// Synthesize converts assistant text to speech. A response without audio
// data yields "" (message stays text-only), not an error.
func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.voice},
			},
		},
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("synthesize speech: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		g.logger.Warn("Speech response had no candidates")
		return "", nil
	}
	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
		}
	}

	g.logger.Warn("Speech response had no inline audio")
	return "", nil
}
