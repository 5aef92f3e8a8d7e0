package live

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
	defaultLiveModel = "gemini-2.5-flash-native-audio-preview-12-2025"
	defaultLiveVoice = "Puck"

	liveSystemPrompt = "أنت (سلامتك)، مساعد صوتي للصحة والسلامة المهنية في الفرقة الزلزالية الثامنة. " +
		"تحدث بالعربية بوضوح وإيجاز، وأجب عن أسئلة السلامة في مواقع العمل الزلزالية والصحراوية."

	// Events are buffered so a slow consumer does not stall the receive loop
	// mid-utterance.
	eventBufferSize = 64
)

// GeminiLiveDialer implements LiveDialer on the Gemini Live API.
type GeminiLiveDialer struct {
	client *genai.Client
	logger *zap.Logger
	model  string
	voice  string
}

var _ repositories.LiveDialer = (*GeminiLiveDialer)(nil)

// NewGeminiLiveDialer creates a new Gemini live dialer instance
func NewGeminiLiveDialer(logger *zap.Logger) (*GeminiLiveDialer, error) {
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

	model := os.Getenv("GEMINI_LIVE_MODEL")
	if model == "" {
		model = defaultLiveModel
	}
	voice := os.Getenv("GEMINI_LIVE_VOICE")
	if voice == "" {
		voice = defaultLiveVoice
	}

	return &GeminiLiveDialer{
		client: client,
		logger: logger,
		model:  model,
		voice:  voice,
	}, nil
}

// Connect opens a bidirectional audio session. The returned session's Events
// channel closes when the server ends the conversation or the receive loop
// fails.
func (d *GeminiLiveDialer) Connect(ctx context.Context) (repositories.LiveSession, error) {
	config := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction:  genai.NewContentFromText(liveSystemPrompt, genai.RoleUser),
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: d.voice},
			},
		},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}

	session, err := d.client.Live.Connect(ctx, d.model, config)
	if err != nil {
		return nil, fmt.Errorf("connect live session: %w", err)
	}

	ls := &geminiLiveSession{
		session: session,
		logger:  d.logger,
		events:  make(chan repositories.LiveEvent, eventBufferSize),
	}
	go ls.receive()

	d.logger.Info("Live session connected", zap.String("model", d.model))
	return ls, nil
}

type geminiLiveSession struct {
	session *genai.Session
	logger  *zap.Logger
	events  chan repositories.LiveEvent
}

var _ repositories.LiveSession = (*geminiLiveSession)(nil)

// SendAudio forwards one base64 microphone frame upstream.
func (s *geminiLiveSession) SendAudio(data string, mimeType string) error {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("decode microphone frame: %w", err)
	}
	if err := s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			Data:     pcm,
			MIMEType: mimeType,
		},
	}); err != nil {
		return fmt.Errorf("send realtime audio: %w", err)
	}
	return nil
}

func (s *geminiLiveSession) Events() <-chan repositories.LiveEvent {
	return s.events
}

func (s *geminiLiveSession) Close() error {
	return s.session.Close()
}

// receive translates server messages into domain events until the stream
// ends. Ordering matters: an interruption must clear queued audio before any
// chunk that follows it.
func (s *geminiLiveSession) receive() {
	defer close(s.events)

	for {
		message, err := s.session.Receive()
		if err != nil {
			s.logger.Info("Live session receive ended", zap.Error(err))
			s.events <- repositories.LiveEvent{Type: repositories.LiveEventClosed}
			return
		}
		if message.ServerContent == nil {
			continue
		}

		content := message.ServerContent
		if content.Interrupted {
			s.events <- repositories.LiveEvent{Type: repositories.LiveEventInterrupted}
		}
		if content.InputTranscription != nil && content.InputTranscription.Text != "" {
			s.events <- repositories.LiveEvent{
				Type:          repositories.LiveEventTranscription,
				Speaker:       repositories.LiveSpeakerUser,
				Transcription: content.InputTranscription.Text,
			}
		}
		if content.OutputTranscription != nil && content.OutputTranscription.Text != "" {
			s.events <- repositories.LiveEvent{
				Type:          repositories.LiveEventTranscription,
				Speaker:       repositories.LiveSpeakerModel,
				Transcription: content.OutputTranscription.Text,
			}
		}
		if content.ModelTurn != nil {
			for _, part := range content.ModelTurn.Parts {
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					s.events <- repositories.LiveEvent{
						Type:       repositories.LiveEventAudioChunk,
						AudioChunk: base64.StdEncoding.EncodeToString(part.InlineData.Data),
					}
				}
			}
		}
	}
}
