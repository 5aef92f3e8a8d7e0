package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

var (
	serverURL = flag.String("server", "http://localhost:8080", "Server base URL")
	username  = flag.String("user", "hse", "Login username")
	password  = flag.String("pass", "", "Login password")
)

type loginResponse struct {
	Token string `json:"token"`
}

type clientMessage struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id,omitempty"`
	Text   string `json:"text,omitempty"`
}

type serverMessage struct {
	Type    string          `json:"type"`
	ChatID  string          `json:"chat_id,omitempty"`
	Chat    *chatPayload    `json:"chat,omitempty"`
	Message *messagePayload `json:"message,omitempty"`
	Text    string          `json:"text,omitempty"`
	Speaker string          `json:"speaker,omitempty"`
}

// errorPayload mirrors the server's error frame, whose "message" key carries a
// string rather than the message object used everywhere else.
type errorPayload struct {
	Code string `json:"error_code"`
	Text string `json:"message"`
}

type chatPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type messagePayload struct {
	ID          string   `json:"id"`
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func main() {
	flag.Parse()

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	token, err := login(*serverURL, *username, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Login failed:"), err)
		os.Exit(1)
	}

	wsURL := strings.Replace(*serverURL, "http", "ws", 1) + "/ws"
	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Connection failed:"), err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Println(boldGreen("سلامتك — HSE Assistant"))
	fmt.Println("Type your message and press Enter. Type 'new' for a new chat, 'exit' to quit.")
	fmt.Println()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		fmt.Println("\nShutting down...")
		conn.Close()
		os.Exit(0)
	}()

	var chatID string

	// Reader goroutine: print whatever the server pushes.
	go func() {
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", red("Connection lost:"), err)
				os.Exit(1)
			}
			if messageType == websocket.BinaryMessage {
				// Live audio frames; nothing to do with them on a teletype.
				continue
			}

			msg, serverErr, err := decodeServerMessage(data)
			if err != nil {
				continue
			}
			if serverErr != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", red("[error]"), serverErr.Code, serverErr.Text)
				continue
			}
			switch msg.Type {
			case "chat_created":
				chatID = msg.ChatID
				if msg.Chat != nil {
					fmt.Printf("%s %s\n", yellow("[chat]"), msg.Chat.Title)
				}
			case "message_added":
				if msg.Message != nil && msg.Message.Role == "assistant" {
					fmt.Printf("%s %s\n", boldCyan("سلامتك:"), msg.Message.Content)
					for _, suggestion := range msg.Message.Suggestions {
						fmt.Printf("  %s %s\n", yellow("·"), suggestion)
					}
					fmt.Println()
				}
			case "live_transcription":
				fmt.Printf("%s [%s] %s\n", yellow("[live]"), msg.Speaker, msg.Text)
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(input) {
		case "":
			continue
		case "exit":
			return
		case "new":
			chatID = ""
			fmt.Println(yellow("[new chat]"))
			continue
		}

		out := clientMessage{Type: "send_message", ChatID: chatID, Text: input}
		if err := conn.WriteJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("Send failed:"), err)
			return
		}
	}
}

// decodeServerMessage splits inbound frames into regular messages and error
// frames. The two cannot share a struct: both use the "message" key, with
// incompatible value types.
func decodeServerMessage(data []byte) (*serverMessage, *errorPayload, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, nil, err
	}

	if envelope.Type == "error" {
		var ep errorPayload
		if err := json.Unmarshal(data, &ep); err != nil {
			return nil, nil, err
		}
		return nil, &ep, nil
	}

	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, nil, err
	}
	return &msg, nil, nil
}

func login(baseURL, user, pass string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": user, "password": pass})
	resp, err := http.Post(baseURL+"/api/v1/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", err
	}
	if lr.Token == "" {
		return "", fmt.Errorf("no token in response")
	}
	return lr.Token, nil
}
