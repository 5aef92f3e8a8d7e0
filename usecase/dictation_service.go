package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
	"github.com/mustafaiq320-svg/salamatuk/internal/live"
)

var ErrDictationActive = errors.New("dictation already in progress")
var ErrNoDictation = errors.New("no dictation in progress")

// DictationService turns one recorded utterance into composer text. The
// client streams base64 microphone chunks between Begin and Finish; the
// transcription comes back when the stream ends.
type DictationService struct {
	speechToText repositories.SpeechToText
	logger       *zap.Logger

	mu     sync.Mutex
	stream repositories.SpeechToTextStreaming
}

// NewDictationService creates a new dictation service
func NewDictationService(stt repositories.SpeechToText, logger *zap.Logger) *DictationService {
	return &DictationService{
		speechToText: stt,
		logger:       logger,
	}
}

// Begin opens a streaming transcription session. Only one dictation can run
// at a time.
func (s *DictationService) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return ErrDictationActive
	}

	stream, err := s.speechToText.InitTranscribeStreaming(ctx, repositories.AudioConfig{
		SampleRate: live.CaptureSampleRate,
		Encoding:   "LINEAR16",
		Language:   "ar-SA",
	})
	if err != nil {
		return fmt.Errorf("begin dictation: %w", err)
	}

	s.stream = stream
	s.logger.Info("Dictation started")
	return nil
}

// Feed pushes one base64 audio chunk into the running dictation.
func (s *DictationService) Feed(chunk string) error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()

	if stream == nil {
		return ErrNoDictation
	}

	data, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return fmt.Errorf("decode dictation chunk: %w", err)
	}
	return stream.Stream(data)
}

// Finish ends the dictation and returns the transcription.
func (s *DictationService) Finish() (string, error) {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream == nil {
		return "", ErrNoDictation
	}

	text, err := stream.End()
	if err != nil {
		s.logger.Warn("Dictation ended without a transcription", zap.Error(err))
		return "", err
	}

	s.logger.Info("Dictation completed", zap.Int("length", len(text)))
	return text, nil
}
