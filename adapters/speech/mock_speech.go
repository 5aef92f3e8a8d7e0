package speech

import (
	"context"

	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
	"github.com/mustafaiq320-svg/salamatuk/internal/audio"
)

// MockSynthesizer is a placeholder implementation for text-to-speech,
// used when no TTS credentials are configured.
type MockSynthesizer struct {
	logger *zap.Logger
}

// NewMockSynthesizer creates a new mock synthesizer
func NewMockSynthesizer(logger *zap.Logger) repositories.SpeechSynthesizer {
	return &MockSynthesizer{
		logger: logger,
	}
}

// Synthesize implements repositories.SpeechSynthesizer
func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	m.logger.Info("Synthesizing mock speech", zap.Int("textLength", len(text)))

	// Roughly 50ms of audio per character, so progress ticks have something
	// to walk through during manual testing.
	samples := make([]float32, len(text)*1200)
	return audio.EncodePCM16Base64(samples), nil
}
