package repositories

import (
	"context"

	"github.com/mustafaiq320-svg/salamatuk/domain/entities"
)

// AssistantReply is one structured assistant turn: the spoken text, a prompt
// for the illustrative image, and 3-4 follow-up suggestions.
type AssistantReply struct {
	Text        string   `json:"assistantText"`
	ImagePrompt string   `json:"imagePrompt"`
	Suggestions []string `json:"suggestions"`
}

// Assistant abstracts the HSE assistant text capability.
type Assistant interface {
	Reply(ctx context.Context, history []entities.Message, userText string) (AssistantReply, error)
}

// ImageGenerator produces an illustrative image for a prompt. An empty result
// with a nil error means "no image"; callers degrade rather than fail.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// SpeechSynthesizer converts assistant text to base64-encoded 16-bit PCM at
// 24 kHz mono. An empty result with a nil error means "no audio".
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}
