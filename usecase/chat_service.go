package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/domain/entities"
	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
	"github.com/mustafaiq320-svg/salamatuk/internal/playback"
)

// providerTimeout bounds every assistant, image, and speech call.
const providerTimeout = 30 * time.Second

var ErrChatNotFound = errors.New("chat not found")
var ErrMessageNotFound = errors.New("message not found")
var ErrNoAudio = errors.New("message has no audio")

// apologyText is shown when the assistant call fails outright. The canned
// suggestions keep the conversation recoverable.
const apologyText = "عذراً، حدث خطأ أثناء معالجة طلبك. يرجى المحاولة مرة أخرى."

var fallbackSuggestions = []string{
	"ما هي معدات الوقاية الشخصية المطلوبة؟",
	"كيف أتصرف في حالة الطوارئ؟",
	"ما هي مخاطر العمل في الحرارة العالية؟",
}

// EventType tags chat events published to connected clients.
type EventType string

const (
	EventChatCreated    EventType = "chat_created"
	EventChatDeleted    EventType = "chat_deleted"
	EventMessageAdded   EventType = "message_added"
	EventMessageUpdated EventType = "message_updated"
	EventPlayback       EventType = "playback"
)

// Event is one state change pushed to the client. Chat and Message are
// snapshots; Playback is set only for EventPlayback.
type Event struct {
	Type     EventType
	ChatID   string
	Chat     *entities.Chat
	Message  *entities.Message
	Playback *playback.Update
}

// ChatService orchestrates conversations: user turns in, assistant turns out,
// with image and speech generation running concurrently and message audio
// played through the single-slot playback controller.
type ChatService struct {
	assistant   repositories.Assistant
	images      repositories.ImageGenerator
	synthesizer repositories.SpeechSynthesizer
	chats       repositories.ChatRepository
	player      *playback.Player
	logger      *zap.Logger
	publish     func(Event)

	mu           sync.Mutex
	byID         map[string]*entities.Chat
	activeChatID string
}

// NewChatService creates a new chat service. The player must be constructed
// with PlaybackPublisher so progress updates flow back through this service.
func NewChatService(
	assistant repositories.Assistant,
	images repositories.ImageGenerator,
	synthesizer repositories.SpeechSynthesizer,
	chats repositories.ChatRepository,
	player *playback.Player,
	logger *zap.Logger,
	publish func(Event),
) (*ChatService, error) {
	s := &ChatService{
		assistant:   assistant,
		images:      images,
		synthesizer: synthesizer,
		chats:       chats,
		player:      player,
		logger:      logger,
		publish:     publish,
		byID:        make(map[string]*entities.Chat),
	}

	stored, err := chats.LoadAll(context.Background())
	if err != nil {
		return nil, err
	}
	for _, chat := range stored {
		s.byID[chat.ID] = chat
	}
	return s, nil
}

// PlaybackPublisher returns the update hook to wire into the playback
// controller: it mirrors playback state onto the message entity and
// republishes the update as a chat event.
func (s *ChatService) PlaybackPublisher() func(playback.Update) {
	return func(update playback.Update) {
		s.mu.Lock()
		if chat, ok := s.byID[update.ChatID]; ok {
			if msg := chat.FindMessage(update.MessageID); msg != nil {
				msg.IsSpeaking = update.Speaking
				msg.CurrentTime = update.CurrentTime
				msg.Duration = update.Duration
			}
		}
		s.mu.Unlock()

		u := update
		s.publish(Event{Type: EventPlayback, ChatID: update.ChatID, Playback: &u})
	}
}

// cloneChat copies a chat and its message slice. Callers read returned chats
// outside the service lock while the generator goroutines keep mutating the
// originals, so handing out the live pointer is never safe.
func cloneChat(chat *entities.Chat) *entities.Chat {
	clone := *chat
	clone.Messages = make([]entities.Message, len(chat.Messages))
	copy(clone.Messages, chat.Messages)
	return &clone
}

// Chats returns snapshots of all chats, most recent activity first.
func (s *ChatService) Chats() []*entities.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := make([]*entities.Chat, 0, len(s.byID))
	for _, chat := range s.byID {
		chats = append(chats, cloneChat(chat))
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].Timestamp.After(chats[j].Timestamp)
	})
	return chats
}

// Chat returns a snapshot of one chat by id.
func (s *ChatService) Chat(id string) (*entities.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.byID[id]
	if !ok {
		return nil, ErrChatNotFound
	}
	return cloneChat(chat), nil
}

// SwitchChat makes the given chat (or none, with "") the active one. Any
// running message audio stops; a conversation left behind goes silent.
func (s *ChatService) SwitchChat(chatID string) error {
	s.mu.Lock()
	if chatID != "" {
		if _, ok := s.byID[chatID]; !ok {
			s.mu.Unlock()
			return ErrChatNotFound
		}
	}
	s.activeChatID = chatID
	s.mu.Unlock()

	s.player.Stop()
	return nil
}

// DeleteChat removes a chat. Deleting the active chat also stops playback
// and clears the selection.
func (s *ChatService) DeleteChat(ctx context.Context, chatID string) error {
	s.mu.Lock()
	if _, ok := s.byID[chatID]; !ok {
		s.mu.Unlock()
		return ErrChatNotFound
	}
	delete(s.byID, chatID)
	wasActive := s.activeChatID == chatID
	if wasActive {
		s.activeChatID = ""
	}
	s.mu.Unlock()

	if wasActive {
		s.player.Stop()
	}
	if err := s.chats.Delete(ctx, chatID); err != nil {
		return err
	}
	s.publish(Event{Type: EventChatDeleted, ChatID: chatID})
	return nil
}

// SendMessage runs one conversation turn. An empty chatID starts a new chat
// titled after the message. The assistant reply is published as soon as its
// text is available; image and speech generation then run concurrently and
// complete independently. A hard assistant failure degrades to an apology
// turn instead of surfacing an error.
func (s *ChatService) SendMessage(ctx context.Context, chatID string, text string) (*entities.Chat, error) {
	s.player.Stop()

	userMsg := entities.NewMessage(uuid.NewString(), entities.MessageRoleUser, text)

	s.mu.Lock()
	var chat *entities.Chat
	if chatID == "" {
		chat = entities.NewChat(uuid.NewString(), userMsg)
		s.byID[chat.ID] = chat
		s.activeChatID = chat.ID
		snapshot := cloneChat(chat)
		s.mu.Unlock()
		s.persist(ctx, snapshot)
		s.publish(Event{Type: EventChatCreated, ChatID: chat.ID, Chat: snapshot})
	} else {
		var ok bool
		chat, ok = s.byID[chatID]
		if !ok {
			s.mu.Unlock()
			return nil, ErrChatNotFound
		}
		chat.AddMessage(userMsg)
		s.activeChatID = chat.ID
		snapshot := cloneChat(chat)
		s.mu.Unlock()
		s.persist(ctx, snapshot)
		s.publish(Event{Type: EventMessageAdded, ChatID: chat.ID, Message: &userMsg})
	}

	history := s.historyBefore(chat.ID, userMsg.ID)

	replyCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	reply, err := s.assistant.Reply(replyCtx, history, text)
	cancel()
	if err != nil {
		s.logger.Error("Assistant reply failed", zap.String("chatID", chat.ID), zap.Error(err))
		reply = repositories.AssistantReply{
			Text:        apologyText,
			Suggestions: fallbackSuggestions,
		}
	}

	assistantMsg := entities.NewMessage(uuid.NewString(), entities.MessageRoleAssistant, reply.Text)
	assistantMsg.ImagePrompt = reply.ImagePrompt
	assistantMsg.Suggestions = reply.Suggestions
	assistantMsg.LoadingImage = reply.ImagePrompt != ""
	assistantMsg.LoadingAudio = reply.Text != ""

	s.mu.Lock()
	chat.AddMessage(assistantMsg)
	snapshot := cloneChat(chat)
	s.mu.Unlock()
	s.persist(ctx, snapshot)
	s.publish(Event{Type: EventMessageAdded, ChatID: chat.ID, Message: &assistantMsg})

	if assistantMsg.LoadingImage {
		go s.generateImage(chat.ID, assistantMsg.ID, reply.ImagePrompt)
	}
	if assistantMsg.LoadingAudio {
		go s.generateSpeech(chat.ID, assistantMsg.ID, reply.Text)
	}

	return snapshot, nil
}

// PlayMessage starts (or restarts) playback of a message's audio.
func (s *ChatService) PlayMessage(chatID, messageID string) error {
	s.mu.Lock()
	chat, ok := s.byID[chatID]
	if !ok {
		s.mu.Unlock()
		return ErrChatNotFound
	}
	msg := chat.FindMessage(messageID)
	if msg == nil {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	audio := msg.Audio
	s.mu.Unlock()

	if audio == "" {
		return ErrNoAudio
	}
	return s.player.Play(chatID, messageID, audio)
}

// StopPlayback stops whatever message audio is playing, if any.
func (s *ChatService) StopPlayback() {
	s.player.Stop()
}

// historyBefore returns the conversation turns preceding the given message.
func (s *ChatService) historyBefore(chatID, messageID string) []entities.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.byID[chatID]
	if !ok {
		return nil
	}
	var history []entities.Message
	for i := range chat.Messages {
		if chat.Messages[i].ID == messageID {
			break
		}
		history = append(history, chat.Messages[i])
	}
	return history
}

// generateImage fills in the illustration for an assistant turn. Failure or
// an empty result leaves the message text-only.
func (s *ChatService) generateImage(chatID, messageID, prompt string) {
	ctx, cancel := context.WithTimeout(context.Background(), providerTimeout)
	defer cancel()

	image, err := s.images.GenerateImage(ctx, prompt)
	if err != nil {
		s.logger.Warn("Image generation failed",
			zap.String("chatID", chatID),
			zap.Error(err))
	}

	s.updateMessage(chatID, messageID, func(msg *entities.Message) {
		msg.Image = image
		msg.LoadingImage = false
	})
}

// generateSpeech fills in the spoken audio for an assistant turn and
// auto-plays it, unless the user has moved to another chat meanwhile.
func (s *ChatService) generateSpeech(chatID, messageID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), providerTimeout)
	defer cancel()

	audio, err := s.synthesizer.Synthesize(ctx, text)
	if err != nil {
		s.logger.Warn("Speech synthesis failed",
			zap.String("chatID", chatID),
			zap.Error(err))
	}

	s.updateMessage(chatID, messageID, func(msg *entities.Message) {
		msg.Audio = audio
		msg.LoadingAudio = false
	})

	s.mu.Lock()
	stillActive := s.activeChatID == chatID
	s.mu.Unlock()

	if audio != "" && stillActive {
		if err := s.player.Play(chatID, messageID, audio); err != nil {
			s.logger.Warn("Auto-play failed", zap.String("messageID", messageID), zap.Error(err))
		}
	}
}

// updateMessage applies a mutation to one message, persists the chat, and
// publishes the updated snapshot. Missing chat or message (deleted while the
// generator ran) is a quiet no-op.
func (s *ChatService) updateMessage(chatID, messageID string, mutate func(*entities.Message)) {
	s.mu.Lock()
	chat, ok := s.byID[chatID]
	if !ok {
		s.mu.Unlock()
		return
	}
	msg := chat.FindMessage(messageID)
	if msg == nil {
		s.mu.Unlock()
		return
	}
	mutate(msg)
	msgSnapshot := *msg
	chatSnapshot := cloneChat(chat)
	s.mu.Unlock()

	s.persist(context.Background(), chatSnapshot)
	s.publish(Event{Type: EventMessageUpdated, ChatID: chatID, Message: &msgSnapshot})
}

func (s *ChatService) persist(ctx context.Context, chat *entities.Chat) {
	if err := s.chats.Save(ctx, chat); err != nil {
		s.logger.Error("Failed to persist chat", zap.String("chatID", chat.ID), zap.Error(err))
	}
}
