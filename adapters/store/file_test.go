package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap/zaptest"

	"github.com/mustafaiq320-svg/salamatuk/domain/entities"
)

func newTestRepo(t *testing.T, clk clock.Clock) (*FileChatRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chats.json")
	repo, err := NewFileChatRepository(path, clk, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	return repo, path
}

func TestSaveAndLoadAll(t *testing.T) {
	repo, _ := newTestRepo(t, clock.New())
	ctx := context.Background()

	older := entities.NewChat("chat-1", entities.NewMessage("msg-1", entities.MessageRoleUser, "كيف أرتدي الخوذة بشكل صحيح؟"))
	older.Timestamp = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := entities.NewChat("chat-2", entities.NewMessage("msg-2", entities.MessageRoleUser, "ما هي مخاطر العمل في الحرارة؟"))
	newer.Timestamp = time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	if err := repo.Save(ctx, older); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := repo.Save(ctx, newer); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	chats, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("Expected 2 chats, got %d", len(chats))
	}
	if chats[0].ID != "chat-2" {
		t.Errorf("Expected most recent chat first, got %s", chats[0].ID)
	}
}

func TestDebouncedFlush(t *testing.T) {
	clk := clock.NewMock()
	repo, path := newTestRepo(t, clk)
	ctx := context.Background()

	if err := repo.Save(ctx, entities.NewChat("chat-1", entities.NewMessage("msg-1", entities.MessageRoleUser, "سؤال"))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no file before the debounce window elapses")
	}

	clk.Add(saveDebounce)
	time.Sleep(20 * time.Millisecond)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected history file after debounce, got %v", err)
	}
}

func TestReloadRehydratesTimestamps(t *testing.T) {
	clk := clock.New()
	repo, path := newTestRepo(t, clk)
	ctx := context.Background()

	chat := entities.NewChat("chat-1", entities.NewMessage("msg-1", entities.MessageRoleUser, "سؤال عن السلامة"))
	stamp := time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC)
	chat.Timestamp = stamp
	chat.Messages[0].Timestamp = stamp
	chat.Messages[0].IsSpeaking = true // transient, must not survive reload
	if err := repo.Save(ctx, chat); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := repo.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	reloaded, err := NewFileChatRepository(path, clk, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to reload repository: %v", err)
	}
	chats, err := reloaded.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("Expected 1 chat after reload, got %d", len(chats))
	}
	if !chats[0].Timestamp.Equal(stamp) {
		t.Errorf("Expected timestamp %v, got %v", stamp, chats[0].Timestamp)
	}
	if chats[0].Messages[0].IsSpeaking {
		t.Error("Expected transient playback state cleared on reload")
	}
}

func TestCorruptHistoryDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chats.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to seed corrupt file: %v", err)
	}

	repo, err := NewFileChatRepository(path, clock.New(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Expected corrupt history to be discarded, got %v", err)
	}

	chats, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(chats) != 0 {
		t.Errorf("Expected empty history after discard, got %d chats", len(chats))
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected corrupt file removed")
	}
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepo(t, clock.New())
	ctx := context.Background()

	if err := repo.Save(ctx, entities.NewChat("chat-1", entities.NewMessage("msg-1", entities.MessageRoleUser, "سؤال"))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := repo.Delete(ctx, "chat-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(ctx, "missing"); err != nil {
		t.Errorf("Expected deleting a missing chat to be a no-op, got %v", err)
	}

	chats, _ := repo.LoadAll(ctx)
	if len(chats) != 0 {
		t.Errorf("Expected no chats after delete, got %d", len(chats))
	}
}
