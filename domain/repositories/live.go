package repositories

import "context"

// LiveEventType tags events delivered by a live session.
type LiveEventType string

const (
	LiveEventAudioChunk    LiveEventType = "audio_chunk"
	LiveEventInterrupted   LiveEventType = "interrupted"
	LiveEventTranscription LiveEventType = "transcription"
	LiveEventClosed        LiveEventType = "closed"
)

// LiveSpeaker tags which side of the call a transcription belongs to.
type LiveSpeaker string

const (
	LiveSpeakerUser  LiveSpeaker = "user"
	LiveSpeakerModel LiveSpeaker = "model"
)

// LiveEvent is a tagged variant read from LiveSession.Events. AudioChunk is
// base64 16-bit PCM at the 24 kHz playback rate.
type LiveEvent struct {
	Type          LiveEventType
	AudioChunk    string
	Transcription string
	Speaker       LiveSpeaker
}

// LiveSession is one bidirectional realtime voice session with the assistant.
// Events is closed after the session ends.
type LiveSession interface {
	SendAudio(data string, mimeType string) error
	Events() <-chan LiveEvent
	Close() error
}

// LiveDialer opens live sessions against the remote assistant.
type LiveDialer interface {
	Connect(ctx context.Context) (LiveSession, error)
}
