package api

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mustafaiq320-svg/salamatuk/internal/auth"
	"github.com/mustafaiq320-svg/salamatuk/internal/websocket"
	"github.com/mustafaiq320-svg/salamatuk/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, service *usecase.ChatService, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "salamatuk-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/login", func(c echo.Context) error {
		return login(c, logger)
	})

	v1.GET("/chats", func(c echo.Context) error {
		return listChats(c, service)
	})
	v1.GET("/chats/:id", func(c echo.Context) error {
		return getChat(c, service)
	})
	v1.DELETE("/chats/:id", func(c echo.Context) error {
		return deleteChat(c, service)
	})

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, logger)
	})
}

// login issues a JWT for the single configured operator account. Credentials
// come from the environment; there is no user database behind this service.
func login(c echo.Context, logger *zap.Logger) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Username and password are required",
		})
	}

	expectedUser := os.Getenv("AUTH_USERNAME")
	expectedPass := os.Getenv("AUTH_PASSWORD")
	if expectedUser == "" {
		expectedUser = "hse"
	}
	if expectedPass == "" || req.Username != expectedUser || req.Password != expectedPass {
		logger.Warn("Login failed", zap.String("username", req.Username))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid credentials",
		})
	}

	token, err := auth.GenerateUserToken(req.Username)
	if err != nil {
		logger.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
		UserID:    req.Username,
	})
}

func listChats(c echo.Context, service *usecase.ChatService) error {
	return c.JSON(http.StatusOK, ChatListResponse{Chats: service.Chats()})
}

func getChat(c echo.Context, service *usecase.ChatService) error {
	chat, err := service.Chat(c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrChatNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Chat not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	return c.JSON(http.StatusOK, chat)
}

func deleteChat(c echo.Context, service *usecase.ChatService) error {
	if err := service.DeleteChat(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, usecase.ErrChatNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Chat not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(hub *websocket.Hub, c echo.Context, logger *zap.Logger) error {
	// Extract JWT token from Authorization header only
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" && len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}

	if token == "" {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header",
		})
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	if claims.UserID == "" {
		logger.Error("WebSocket connection rejected: missing user ID in token")
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "User ID not found in token",
		})
	}

	logger.Info("WebSocket connection authenticated", zap.String("userID", claims.UserID))

	return websocket.HandleWebSocketWithAuth(hub, c, claims.UserID, logger)
}
