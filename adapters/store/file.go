package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/domain/entities"
	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
)

// saveDebounce batches rapid mutations (message append, loading-flag flips)
// into one disk write.
const saveDebounce = 300 * time.Millisecond

// FileChatRepository persists chats as a single JSON document on disk. It is
// the default store; CHAT_STORE=mongo selects the Mongo-backed one instead.
type FileChatRepository struct {
	path   string
	clock  clock.Clock
	logger *zap.Logger

	mu         sync.Mutex
	chats      map[string]*entities.Chat
	flushTimer *clock.Timer
}

var _ repositories.ChatRepository = (*FileChatRepository)(nil)

// NewFileChatRepository creates a file-backed chat repository at path,
// loading whatever valid history already exists there.
func NewFileChatRepository(path string, clk clock.Clock, logger *zap.Logger) (*FileChatRepository, error) {
	r := &FileChatRepository{
		path:   path,
		clock:  clk,
		logger: logger,
		chats:  make(map[string]*entities.Chat),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// load reads the stored history. Corrupt data is discarded and the file
// removed so the next save starts clean; startup never fails on bad history.
func (r *FileChatRepository) load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read chat history: %w", err)
	}

	var chats []*entities.Chat
	if err := json.Unmarshal(data, &chats); err != nil {
		r.logger.Warn("Discarding corrupt chat history",
			zap.String("path", r.path),
			zap.Error(err))
		os.Remove(r.path)
		return nil
	}

	for _, chat := range chats {
		if chat.Validate() != nil {
			r.logger.Warn("Skipping invalid stored chat", zap.String("chatID", chat.ID))
			continue
		}
		chat.ResetPlayback()
		r.chats[chat.ID] = chat
	}
	return nil
}

// Save upserts the chat and schedules a debounced flush to disk.
func (r *FileChatRepository) Save(ctx context.Context, chat *entities.Chat) error {
	if err := chat.Validate(); err != nil {
		return fmt.Errorf("save chat: %w", err)
	}

	r.mu.Lock()
	clone := *chat
	clone.Messages = append([]entities.Message(nil), chat.Messages...)
	// Transient playback and loading state never reaches disk.
	for i := range clone.Messages {
		clone.Messages[i].ResetPlayback()
		clone.Messages[i].Duration = 0
		clone.Messages[i].LoadingImage = false
		clone.Messages[i].LoadingAudio = false
	}
	r.chats[chat.ID] = &clone
	r.scheduleFlushLocked()
	r.mu.Unlock()
	return nil
}

// LoadAll returns every stored chat, most recent activity first.
func (r *FileChatRepository) LoadAll(ctx context.Context) ([]*entities.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats := make([]*entities.Chat, 0, len(r.chats))
	for _, chat := range r.chats {
		chats = append(chats, chat)
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].Timestamp.After(chats[j].Timestamp)
	})
	return chats, nil
}

// Delete removes the chat and schedules a flush. Deleting a missing chat is
// a no-op.
func (r *FileChatRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.chats, id)
	r.scheduleFlushLocked()
	r.mu.Unlock()
	return nil
}

// Flush writes any pending state immediately. Called on shutdown.
func (r *FileChatRepository) Flush() error {
	r.mu.Lock()
	if r.flushTimer != nil {
		r.flushTimer.Stop()
		r.flushTimer = nil
	}
	r.mu.Unlock()
	return r.flush()
}

func (r *FileChatRepository) scheduleFlushLocked() {
	if r.flushTimer != nil {
		r.flushTimer.Stop()
	}
	r.flushTimer = r.clock.AfterFunc(saveDebounce, func() {
		if err := r.flush(); err != nil {
			r.logger.Error("Failed to flush chat history", zap.Error(err))
		}
	})
}

// flush writes the whole history atomically: temp file in the same directory,
// then rename over the target.
func (r *FileChatRepository) flush() error {
	r.mu.Lock()
	chats := make([]*entities.Chat, 0, len(r.chats))
	for _, chat := range r.chats {
		chats = append(chats, chat)
	}
	r.mu.Unlock()

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].Timestamp.After(chats[j].Timestamp)
	})

	data, err := json.Marshal(chats)
	if err != nil {
		return fmt.Errorf("marshal chat history: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "chats-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
