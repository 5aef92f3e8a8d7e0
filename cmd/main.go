package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/adapters/image"
	"github.com/mustafaiq320-svg/salamatuk/adapters/live"
	"github.com/mustafaiq320-svg/salamatuk/adapters/llm"
	"github.com/mustafaiq320-svg/salamatuk/adapters/mongo"
	"github.com/mustafaiq320-svg/salamatuk/adapters/speech"
	"github.com/mustafaiq320-svg/salamatuk/adapters/stt"
	"github.com/mustafaiq320-svg/salamatuk/adapters/store"
	"github.com/mustafaiq320-svg/salamatuk/domain/repositories"
	"github.com/mustafaiq320-svg/salamatuk/internal/api"
	"github.com/mustafaiq320-svg/salamatuk/internal/playback"
	"github.com/mustafaiq320-svg/salamatuk/internal/websocket"
	"github.com/mustafaiq320-svg/salamatuk/usecase"
)

func main() {
	// Load .env if present; real deployments use the environment directly
	godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	clk := clock.New()

	// Initialize adapters
	assistant, err := llm.NewGeminiAssistant(llm.NewGeminiConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize assistant", zap.Error(err))
	}
	images, err := image.NewGeminiImageGenerator(logger)
	if err != nil {
		logger.Fatal("Failed to initialize image generator", zap.Error(err))
	}
	synthesizer := newSynthesizer(logger)
	liveDialer, err := live.NewGeminiLiveDialer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize live dialer", zap.Error(err))
	}
	chatStore := newChatStore(clk, logger)
	speechToText := newSpeechToText(logger)

	// Initialize usecase services. The playback controller publishes through
	// the chat service, which republishes to the hub.
	var chatService *usecase.ChatService
	player := playback.NewPlayer(clk, logger, func(update playback.Update) {
		chatService.PlaybackPublisher()(update)
	})

	var hub *websocket.Hub
	chatService, err = usecase.NewChatService(
		assistant, images, synthesizer, chatStore, player, logger,
		func(event usecase.Event) {
			hub.BroadcastEvent(event)
		},
	)
	if err != nil {
		logger.Fatal("Failed to initialize chat service", zap.Error(err))
	}
	// Initialize WebSocket hub. Dictation sessions are created per client
	// connection inside the hub.
	hub = websocket.NewHub(chatService, speechToText, liveDialer, clk, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, hub, chatService, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	player.Stop()
	if fileStore, ok := chatStore.(*store.FileChatRepository); ok {
		if err := fileStore.Flush(); err != nil {
			logger.Error("Failed to flush chat history", zap.Error(err))
		}
	}

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newSynthesizer picks the TTS provider: Gemini by default,
// TTS_PROVIDER=elevenlabs for Eleven Labs, mock when neither is configured.
func newSynthesizer(logger *zap.Logger) repositories.SpeechSynthesizer {
	if os.Getenv("TTS_PROVIDER") == "elevenlabs" {
		synth, err := speech.NewElevenLabsSynthesizer(speech.NewElevenLabsConfigFromEnv(), logger)
		if err != nil {
			logger.Fatal("Failed to initialize Eleven Labs synthesizer", zap.Error(err))
		}
		return synth
	}
	synth, err := speech.NewGeminiSynthesizer(logger)
	if err != nil {
		logger.Warn("Falling back to mock synthesizer", zap.Error(err))
		return speech.NewMockSynthesizer(logger)
	}
	return synth
}

// newChatStore picks the persistence backend: JSON file by default,
// CHAT_STORE=mongo for MongoDB.
func newChatStore(clk clock.Clock, logger *zap.Logger) repositories.ChatRepository {
	if os.Getenv("CHAT_STORE") == "mongo" {
		client, err := mongo.NewClient(logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		return mongo.NewChatRepository(client.Database, logger)
	}

	path := os.Getenv("CHAT_HISTORY_PATH")
	if path == "" {
		path = "data/chats.json"
	}
	repo, err := store.NewFileChatRepository(path, clk, logger)
	if err != nil {
		logger.Fatal("Failed to open chat history", zap.Error(err))
	}
	return repo
}

// newSpeechToText uses Google Cloud when credentials are configured, the
// mock otherwise.
func newSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		return &stt.GoogleSpeechToText{}
	}
	logger.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using mock dictation")
	return stt.NewMockSpeechToText(logger)
}
