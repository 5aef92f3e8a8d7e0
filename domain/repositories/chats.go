package repositories

import (
	"context"

	"github.com/mustafaiq320-svg/salamatuk/domain/entities"
)

// ChatRepository persists the chat history. LoadAll must discard corrupt
// stored data instead of failing startup.
type ChatRepository interface {
	Save(ctx context.Context, chat *entities.Chat) error
	LoadAll(ctx context.Context) ([]*entities.Chat, error)
	Delete(ctx context.Context, id string) error
}
