package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mustafaiq320-svg/salamatuk/domain/entities"
	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
	"github.com/mustafaiq320-svg/salamatuk/internal/playback"
	"github.com/mustafaiq320-svg/salamatuk/usecase"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Client-to-server message types
const (
	MessageTypeSendMessage    MessageType = "send_message"
	MessageTypePlayMessage    MessageType = "play_message"
	MessageTypeStopPlayback   MessageType = "stop_playback"
	MessageTypeSwitchChat     MessageType = "switch_chat"
	MessageTypeDeleteChat     MessageType = "delete_chat"
	MessageTypeLiveStart      MessageType = "live_start"
	MessageTypeLiveEnd        MessageType = "live_end"
	MessageTypeDictationStart MessageType = "dictation_start"
	MessageTypeDictationChunk MessageType = "dictation_chunk"
	MessageTypeDictationEnd   MessageType = "dictation_end"
	MessageTypePing           MessageType = "ping"
)

// Server-to-client message types
const (
	MessageTypeChatCreated       MessageType = "chat_created"
	MessageTypeChatDeleted       MessageType = "chat_deleted"
	MessageTypeMessageAdded      MessageType = "message_added"
	MessageTypeMessageUpdated    MessageType = "message_updated"
	MessageTypePlayback          MessageType = "playback"
	MessageTypeLiveStarted       MessageType = "live_started"
	MessageTypeLiveFlush         MessageType = "live_flush"
	MessageTypeLiveTranscription MessageType = "live_transcription"
	MessageTypeLiveEnded         MessageType = "live_ended"
	MessageTypeDictationResult   MessageType = "dictation_result"
	MessageTypeError             MessageType = "error"
	MessageTypePong              MessageType = "pong"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// ClientMessage is the envelope for everything a client sends. Fields are
// used per type; unused ones stay empty.
type ClientMessage struct {
	BaseMessage
	ChatID    string `json:"chat_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Audio     string `json:"audio,omitempty"` // base64, dictation chunks
}

// ChatEventMessage carries a chat or message state change to the client.
type ChatEventMessage struct {
	BaseMessage
	ChatID  string            `json:"chat_id"`
	Chat    *entities.Chat    `json:"chat,omitempty"`
	Message *entities.Message `json:"message,omitempty"`
}

// PlaybackMessage mirrors one playback controller update.
type PlaybackMessage struct {
	BaseMessage
	ChatID      string  `json:"chat_id"`
	MessageID   string  `json:"message_id"`
	Speaking    bool    `json:"speaking"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
}

// LiveTranscriptionMessage carries one side of the live conversation as text.
type LiveTranscriptionMessage struct {
	BaseMessage
	Text    string `json:"text"`
	Speaker string `json:"speaker"` // "user" or "model"
}

// DictationResultMessage returns the transcribed utterance.
type DictationResultMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// ParseClientMessage decodes and validates one inbound text frame.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch msg.Type {
	case MessageTypeSendMessage:
		if msg.Text == "" {
			return nil, fmt.Errorf("text is required")
		}
	case MessageTypePlayMessage:
		if msg.ChatID == "" || msg.MessageID == "" {
			return nil, fmt.Errorf("chat_id and message_id are required")
		}
	case MessageTypeDeleteChat:
		if msg.ChatID == "" {
			return nil, fmt.Errorf("chat_id is required")
		}
	case MessageTypeDictationChunk:
		if msg.Audio == "" {
			return nil, fmt.Errorf("audio is required")
		}
	case MessageTypeStopPlayback, MessageTypeSwitchChat, MessageTypeLiveStart,
		MessageTypeLiveEnd, MessageTypeDictationStart, MessageTypeDictationEnd,
		MessageTypePing:
		// no extra fields
	default:
		return nil, fmt.Errorf("unsupported message type: %s", msg.Type)
	}

	return &msg, nil
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().Format(time.RFC3339)}
}

// EncodeChatEvent converts an orchestrator event to its wire form.
func EncodeChatEvent(event usecase.Event) ([]byte, error) {
	switch event.Type {
	case usecase.EventPlayback:
		return EncodePlaybackUpdate(*event.Playback)
	case usecase.EventChatCreated:
		return json.Marshal(ChatEventMessage{
			BaseMessage: newBase(MessageTypeChatCreated),
			ChatID:      event.ChatID,
			Chat:        event.Chat,
		})
	case usecase.EventChatDeleted:
		return json.Marshal(ChatEventMessage{
			BaseMessage: newBase(MessageTypeChatDeleted),
			ChatID:      event.ChatID,
		})
	case usecase.EventMessageAdded:
		return json.Marshal(ChatEventMessage{
			BaseMessage: newBase(MessageTypeMessageAdded),
			ChatID:      event.ChatID,
			Message:     event.Message,
		})
	case usecase.EventMessageUpdated:
		return json.Marshal(ChatEventMessage{
			BaseMessage: newBase(MessageTypeMessageUpdated),
			ChatID:      event.ChatID,
			Message:     event.Message,
		})
	default:
		return nil, fmt.Errorf("unsupported event type: %s", event.Type)
	}
}

// EncodePlaybackUpdate converts a playback update to its wire form.
func EncodePlaybackUpdate(update playback.Update) ([]byte, error) {
	return json.Marshal(PlaybackMessage{
		BaseMessage: newBase(MessageTypePlayback),
		ChatID:      update.ChatID,
		MessageID:   update.MessageID,
		Speaking:    update.Speaking,
		CurrentTime: update.CurrentTime,
		Duration:    update.Duration,
	})
}

// EncodeLiveTranscription converts one live transcription to its wire form.
func EncodeLiveTranscription(text string, speaker repositories.LiveSpeaker) ([]byte, error) {
	return json.Marshal(LiveTranscriptionMessage{
		BaseMessage: newBase(MessageTypeLiveTranscription),
		Text:        text,
		Speaker:     string(speaker),
	})
}

// EncodeDictationResult converts a finished dictation to its wire form.
func EncodeDictationResult(text string) ([]byte, error) {
	return json.Marshal(DictationResultMessage{
		BaseMessage: newBase(MessageTypeDictationResult),
		Text:        text,
	})
}

// EncodeSignal encodes a bare typed message with no payload.
func EncodeSignal(t MessageType) ([]byte, error) {
	return json.Marshal(BaseMessage{Type: t, Timestamp: time.Now().Format(time.RFC3339)})
}

// EncodeError creates a standardized error message
func EncodeError(code, message string) ([]byte, error) {
	return json.Marshal(ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
	})
}
