package live

import (
	"testing"
)

func TestSendAudioRejectsBadBase64(t *testing.T) {
	session := &geminiLiveSession{}

	// Must fail before anything touches the upstream session.
	if err := session.SendAudio("not//valid!!", "audio/pcm;rate=16000"); err == nil {
		t.Error("Expected error for malformed base64 frame")
	}
}
