package repositories

import "context"

// SpeechToText transcribes dictated user input so voice can drive the text
// chat. Live-call transcription comes from the assistant itself, not here.
type SpeechToText interface {
	// TranscribeAudio converts a complete utterance to text
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
	// InitTranscribeStreaming starts a streaming dictation session
	InitTranscribeStreaming(ctx context.Context, config AudioConfig) (SpeechToTextStreaming, error)
}

// AudioConfig describes the dictated audio
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// SpeechToTextStreaming receives audio incrementally and yields the final
// transcription on End
type SpeechToTextStreaming interface {
	Stream(data []byte) error
	End() (string, error)
}
