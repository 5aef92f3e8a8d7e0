package stt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
)

// MockSpeechToText is a placeholder implementation for dictation,
// used when no Google Cloud credentials are configured.
type MockSpeechToText struct {
	logger *zap.Logger
}

// MockSpeechToTextStream is a mock implementation of streaming dictation
type MockSpeechToTextStream struct {
	logger        *zap.Logger
	audioReceived bool
	transcription string
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// InitTranscribeStreaming creates a new mock streaming session
func (s *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s.logger.Info("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	return &MockSpeechToTextStream{
		logger: s.logger,
	}, nil
}

// Stream implements mock streaming audio processing
func (m *MockSpeechToTextStream) Stream(data []byte) error {
	m.logger.Info("Processing mock audio chunk", zap.Int("size", len(data)))

	if len(data) > 0 {
		m.audioReceived = true
		// Mock different dictations based on chunk size
		switch {
		case len(data) > 10000:
			m.transcription = "ما هي إجراءات السلامة عند العمل في المناطق الصحراوية؟"
		case len(data) > 5000:
			m.transcription = "أريد معلومات عن معدات الوقاية الشخصية."
		default:
			m.transcription = "مرحباً سلامتك"
		}
	}

	return nil
}

// End returns the mock transcription result
func (m *MockSpeechToTextStream) End() (string, error) {
	m.logger.Info("Ending mock transcription stream", zap.String("result", m.transcription))

	if !m.audioReceived {
		return "", fmt.Errorf("no audio data received")
	}

	return m.transcription, nil
}

// TranscribeAudio implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	s.logger.Info("Processing speech-to-text",
		zap.Int("audioSize", len(audioData)),
		zap.Int("sampleRate", config.SampleRate))

	switch {
	case len(audioData) > 10000:
		return "ما هي إجراءات السلامة عند العمل في المناطق الصحراوية؟", nil
	case len(audioData) > 5000:
		return "أريد معلومات عن معدات الوقاية الشخصية.", nil
	default:
		return "مرحباً سلامتك", nil
	}
}
