package websocket

import (
	"encoding/json"
	"testing"

	"github.com/mustafaiq320-svg/salamatuk/domain/entities"
	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
	"github.com/mustafaiq320-svg/salamatuk/internal/playback"
	"github.com/mustafaiq320-svg/salamatuk/usecase"
)

func TestParseClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"send message", `{"type":"send_message","text":"ما هي مخاطر الحفر؟"}`, false},
		{"send message without text", `{"type":"send_message"}`, true},
		{"play message", `{"type":"play_message","chat_id":"c1","message_id":"m1"}`, false},
		{"play message without ids", `{"type":"play_message"}`, true},
		{"switch chat to none", `{"type":"switch_chat"}`, false},
		{"delete without chat id", `{"type":"delete_chat"}`, true},
		{"dictation chunk", `{"type":"dictation_chunk","audio":"AAAA"}`, false},
		{"dictation chunk without audio", `{"type":"dictation_chunk"}`, true},
		{"live start", `{"type":"live_start"}`, false},
		{"unknown type", `{"type":"reboot"}`, true},
		{"not json", `nope`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClientMessage([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseClientMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeChatEvent(t *testing.T) {
	chat := entities.NewChat("c1", entities.NewMessage("m1", entities.MessageRoleUser, "سؤال"))

	data, err := EncodeChatEvent(usecase.Event{
		Type:   usecase.EventChatCreated,
		ChatID: chat.ID,
		Chat:   chat,
	})
	if err != nil {
		t.Fatalf("EncodeChatEvent failed: %v", err)
	}

	var decoded ChatEventMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if decoded.Type != MessageTypeChatCreated {
		t.Errorf("Expected chat_created, got %s", decoded.Type)
	}
	if decoded.Chat == nil || decoded.Chat.ID != "c1" {
		t.Errorf("Expected chat snapshot, got %+v", decoded.Chat)
	}
}

func TestEncodePlaybackEvent(t *testing.T) {
	update := playback.Update{
		ChatID:      "c1",
		MessageID:   "m1",
		Speaking:    true,
		CurrentTime: 0.5,
		Duration:    2.0,
	}
	data, err := EncodeChatEvent(usecase.Event{
		Type:     usecase.EventPlayback,
		ChatID:   "c1",
		Playback: &update,
	})
	if err != nil {
		t.Fatalf("EncodeChatEvent failed: %v", err)
	}

	var decoded PlaybackMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode playback message: %v", err)
	}
	if decoded.Type != MessageTypePlayback || !decoded.Speaking || decoded.Duration != 2.0 {
		t.Errorf("Unexpected playback message: %+v", decoded)
	}
}

func TestEncodeLiveTranscription(t *testing.T) {
	data, err := EncodeLiveTranscription("مرحبا", repositories.LiveSpeakerModel)
	if err != nil {
		t.Fatalf("EncodeLiveTranscription failed: %v", err)
	}

	var decoded LiveTranscriptionMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode transcription: %v", err)
	}
	if decoded.Speaker != "model" || decoded.Text != "مرحبا" {
		t.Errorf("Unexpected transcription message: %+v", decoded)
	}
}

func TestEncodeError(t *testing.T) {
	data, err := EncodeError("play_failed", "message has no audio")
	if err != nil {
		t.Fatalf("EncodeError failed: %v", err)
	}

	var decoded ErrorMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode error: %v", err)
	}
	if decoded.Code != "play_failed" {
		t.Errorf("Expected code play_failed, got %s", decoded.Code)
	}
}
