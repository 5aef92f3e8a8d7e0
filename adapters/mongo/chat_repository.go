package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/domain/entities"
	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
)

// ChatRepository is the Mongo-backed chat store, selected with
// CHAT_STORE=mongo. It mirrors the file store's contract: whole-chat upserts,
// newest-activity-first listing, corrupt documents skipped on load.
type ChatRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewChatRepository creates a new MongoDB chat repository
func NewChatRepository(db *mongo.Database, logger *zap.Logger) repositories.ChatRepository {
	return &ChatRepository{
		collection: db.Collection("chats"),
		logger:     logger,
	}
}

// Save implements repositories.ChatRepository
func (r *ChatRepository) Save(ctx context.Context, chat *entities.Chat) error {
	if chat == nil {
		return errors.New("chat cannot be nil")
	}
	if err := chat.Validate(); err != nil {
		return fmt.Errorf("save chat: %w", err)
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": chat.ID}, chat, opts)
	if err != nil {
		return fmt.Errorf("failed to save chat %s: %w", chat.ID, err)
	}
	return nil
}

// LoadAll implements repositories.ChatRepository. Documents that fail to
// decode are skipped, not fatal.
func (r *ChatRepository) LoadAll(ctx context.Context) ([]*entities.Chat, error) {
	opts := options.Find().SetSort(bson.M{"timestamp": -1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load chats: %w", err)
	}
	defer cursor.Close(ctx)

	var chats []*entities.Chat
	for cursor.Next(ctx) {
		var chat entities.Chat
		if err := cursor.Decode(&chat); err != nil {
			r.logger.Warn("Skipping undecodable chat document", zap.Error(err))
			continue
		}
		chat.ResetPlayback()
		chats = append(chats, &chat)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chats: %w", err)
	}
	return chats, nil
}

// Delete implements repositories.ChatRepository. Deleting a missing chat is
// a no-op.
func (r *ChatRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("chat ID cannot be empty")
	}
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete chat %s: %w", id, err)
	}
	return nil
}
