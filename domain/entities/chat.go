package entities

import (
	"errors"
	"time"
)

const titleRuneLimit = 30

// Chat represents one conversation: an ordered, append-only sequence of
// messages with a title derived from the opening message.
type Chat struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Messages  []Message `json:"messages" bson:"messages"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// NewChat creates a chat titled after its opening message.
func NewChat(id string, opening Message) *Chat {
	return &Chat{
		ID:        id,
		Title:     DeriveTitle(opening.Content),
		Messages:  []Message{opening},
		Timestamp: time.Now(),
	}
}

// DeriveTitle shortens the opening message to a chat title. Rune-safe so
// Arabic text is not cut mid-character.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleRuneLimit {
		return text
	}
	return string(runes[:titleRuneLimit]) + "..."
}

// AddMessage appends a message and bumps the last-activity timestamp.
func (c *Chat) AddMessage(message Message) {
	c.Messages = append(c.Messages, message)
	c.Timestamp = time.Now()
}

// FindMessage returns a pointer to the message with the given id, or nil.
func (c *Chat) FindMessage(id string) *Message {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return &c.Messages[i]
		}
	}
	return nil
}

// ResetPlayback clears transient playback state on every message.
func (c *Chat) ResetPlayback() {
	for i := range c.Messages {
		c.Messages[i].ResetPlayback()
	}
}

// Validate validates the chat data
func (c *Chat) Validate() error {
	if c.ID == "" {
		return errors.New("chat id is required")
	}
	if c.Title == "" {
		return errors.New("chat title is required")
	}
	for i := range c.Messages {
		if err := c.Messages[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
