package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
	"github.com/mustafaiq320-svg/salamatuk/internal/audio"
	"github.com/mustafaiq320-svg/salamatuk/internal/live"
	"github.com/mustafaiq320-svg/salamatuk/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB covers dictation chunks

	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients and fans chat events out to them.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	service  *usecase.ChatService
	stt      repositories.SpeechToText
	liveDial repositories.LiveDialer
	clock    clock.Clock

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	service *usecase.ChatService,
	stt repositories.SpeechToText,
	liveDial repositories.LiveDialer,
	clk clock.Clock,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		service:    service,
		stt:        stt,
		liveDial:   liveDial,
		clock:      clk,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("userID", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			// A dropped connection must not leave a live call or dictation
			// running server-side.
			client.liveManager.End()
			client.dictation.Finish()
			h.logger.Info("Client unregistered", zap.String("userID", client.userID))
		}
	}
}

// BroadcastEvent pushes one orchestrator event to every connected client.
// This is the hook wired into the chat service's publish callback.
func (h *Hub) BroadcastEvent(event usecase.Event) {
	data, err := EncodeChatEvent(event)
	if err != nil {
		h.logger.Error("Failed to encode chat event", zap.Error(err))
		return
	}
	h.broadcast(WriteData{Type: websocket.TextMessage, Payload: data})
}

func (h *Hub) broadcast(data WriteData) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("Dropping message for slow client", zap.String("userID", client.userID))
		}
	}
}

type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage.
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	userID string

	// Each connection gets its own live call and dictation stream: two
	// clients dictating at once must never share one transcription session.
	liveManager *live.Manager
	dictation   *usecase.DictationService

	logger *zap.Logger
}

var _ live.Sink = (*Client)(nil)

// HandleWebSocketWithAuth upgrades an authenticated request and starts the
// client's pumps.
func HandleWebSocketWithAuth(hub *Hub, c echo.Context, userID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, sendBufferSize),
		userID: userID,
		logger: logger,
	}
	client.liveManager = live.NewManager(hub.liveDial, hub.clock, logger, client)
	client.dictation = usecase.NewDictationService(hub.stt, logger)

	hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the handlers.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.handleText(data)
		case websocket.BinaryMessage:
			c.handleMicFrame(data)
		}
	}
}

// writePump pumps messages from the send channel to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(data.Type, data.Payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleText dispatches one JSON control message.
func (c *Client) handleText(data []byte) {
	msg, err := ParseClientMessage(data)
	if err != nil {
		c.sendError("invalid_message", err.Error())
		return
	}

	ctx := context.Background()

	switch msg.Type {
	case MessageTypeSendMessage:
		if _, err := c.hub.service.SendMessage(ctx, msg.ChatID, msg.Text); err != nil {
			c.sendError("send_failed", err.Error())
		}

	case MessageTypePlayMessage:
		if err := c.hub.service.PlayMessage(msg.ChatID, msg.MessageID); err != nil {
			c.sendError("play_failed", err.Error())
		}

	case MessageTypeStopPlayback:
		c.hub.service.StopPlayback()

	case MessageTypeSwitchChat:
		if err := c.hub.service.SwitchChat(msg.ChatID); err != nil {
			c.sendError("switch_failed", err.Error())
		}

	case MessageTypeDeleteChat:
		if err := c.hub.service.DeleteChat(ctx, msg.ChatID); err != nil {
			c.sendError("delete_failed", err.Error())
		}

	case MessageTypeLiveStart:
		// Message playback and live audio never overlap.
		c.hub.service.StopPlayback()
		if err := c.liveManager.Start(ctx); err != nil {
			c.sendError("live_failed", err.Error())
			return
		}
		c.sendSignal(MessageTypeLiveStarted)

	case MessageTypeLiveEnd:
		c.liveManager.End()
		c.sendSignal(MessageTypeLiveEnded)

	case MessageTypeDictationStart:
		if err := c.dictation.Begin(ctx); err != nil {
			c.sendError("dictation_failed", err.Error())
		}

	case MessageTypeDictationChunk:
		if err := c.dictation.Feed(msg.Audio); err != nil {
			c.sendError("dictation_failed", err.Error())
		}

	case MessageTypeDictationEnd:
		text, err := c.dictation.Finish()
		if err != nil {
			c.sendError("dictation_failed", err.Error())
			return
		}
		if data, err := EncodeDictationResult(text); err == nil {
			c.write(WriteData{Type: websocket.TextMessage, Payload: data})
		}

	case MessageTypePing:
		c.sendSignal(MessageTypePong)
	}
}

// handleMicFrame forwards raw microphone PCM to the live call. Frames arrive
// as 16-bit little-endian samples at the 16 kHz capture rate.
func (c *Client) handleMicFrame(data []byte) {
	buffer, err := audio.DecodePCM16Bytes(data, live.CaptureSampleRate, 1)
	if err != nil {
		c.sendError("invalid_audio", err.Error())
		return
	}
	if err := c.liveManager.SendMic(buffer.Data); err != nil {
		c.sendError("live_failed", err.Error())
	}
}

// PlayLiveAudio implements live.Sink: assistant audio goes out as binary
// frames of raw 24 kHz PCM16.
func (c *Client) PlayLiveAudio(pcm []byte) {
	c.write(WriteData{Type: websocket.BinaryMessage, Payload: pcm})
}

// FlushLiveAudio implements live.Sink.
func (c *Client) FlushLiveAudio() {
	c.sendSignal(MessageTypeLiveFlush)
}

// LiveTranscription implements live.Sink.
func (c *Client) LiveTranscription(text string, speaker repositories.LiveSpeaker) {
	if data, err := EncodeLiveTranscription(text, speaker); err == nil {
		c.write(WriteData{Type: websocket.TextMessage, Payload: data})
	}
}

// LiveEnded implements live.Sink.
func (c *Client) LiveEnded() {
	c.sendSignal(MessageTypeLiveEnded)
}

func (c *Client) sendSignal(t MessageType) {
	if data, err := EncodeSignal(t); err == nil {
		c.write(WriteData{Type: websocket.TextMessage, Payload: data})
	}
}

func (c *Client) sendError(code, message string) {
	c.logger.Warn("Client error", zap.String("code", code), zap.String("message", message))
	if data, err := EncodeError(code, message); err == nil {
		c.write(WriteData{Type: websocket.TextMessage, Payload: data})
	}
}

func (c *Client) write(data WriteData) {
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Dropping message for slow client", zap.String("userID", c.userID))
	}
}
