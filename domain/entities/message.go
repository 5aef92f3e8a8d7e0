package entities

import (
	"errors"
	"time"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message represents one turn in a conversation. The playback fields
// (IsSpeaking, CurrentTime, Duration) are transient: they are owned by the
// playback controller and are never persisted.
type Message struct {
	ID          string      `json:"id" bson:"id"`
	Role        MessageRole `json:"role" bson:"role"`
	Content     string      `json:"content" bson:"content"`
	Image       string      `json:"image,omitempty" bson:"image,omitempty"`
	ImagePrompt string      `json:"image_prompt,omitempty" bson:"image_prompt,omitempty"`
	Audio       string      `json:"audio,omitempty" bson:"audio,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty" bson:"suggestions,omitempty"`
	Timestamp   time.Time   `json:"timestamp" bson:"timestamp"`

	LoadingImage bool `json:"loading_image,omitempty" bson:"-"`
	LoadingAudio bool `json:"loading_audio,omitempty" bson:"-"`

	IsSpeaking  bool    `json:"is_speaking,omitempty" bson:"-"`
	CurrentTime float64 `json:"current_time,omitempty" bson:"-"`
	Duration    float64 `json:"duration,omitempty" bson:"-"`
}

// NewMessage creates a message with the given identity and content.
func NewMessage(id string, role MessageRole, content string) Message {
	return Message{
		ID:        id,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// ResetPlayback returns the message to a consistent not-speaking state.
func (m *Message) ResetPlayback() {
	m.IsSpeaking = false
	m.CurrentTime = 0
}

// Validate validates the message data
func (m *Message) Validate() error {
	if m.ID == "" {
		return errors.New("message id is required")
	}
	if m.Role != MessageRoleUser && m.Role != MessageRoleAssistant {
		return errors.New("invalid message role")
	}
	return nil
}
