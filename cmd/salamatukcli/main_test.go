package main

import (
	"testing"
)

func TestDecodeServerMessagePopulatesMessage(t *testing.T) {
	frame := []byte(`{"type":"message_added","chat_id":"c1","message":{"id":"m1","role":"assistant","content":"البس الخوذة.","suggestions":["أ","ب"]}}`)

	msg, serverErr, err := decodeServerMessage(frame)
	if err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}
	if serverErr != nil {
		t.Fatalf("Expected no error frame, got %+v", serverErr)
	}
	if msg.Message == nil {
		t.Fatal("Expected message payload to be populated")
	}
	if msg.Message.Role != "assistant" || msg.Message.Content != "البس الخوذة." {
		t.Errorf("Unexpected message payload: %+v", msg.Message)
	}
	if len(msg.Message.Suggestions) != 2 {
		t.Errorf("Expected 2 suggestions, got %d", len(msg.Message.Suggestions))
	}
}

func TestDecodeServerMessageErrorFrame(t *testing.T) {
	frame := []byte(`{"type":"error","error_code":"INVALID_MESSAGE","message":"unknown message type"}`)

	msg, serverErr, err := decodeServerMessage(frame)
	if err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}
	if msg != nil {
		t.Fatalf("Expected no regular message for an error frame, got %+v", msg)
	}
	if serverErr == nil {
		t.Fatal("Expected error payload to be populated")
	}
	if serverErr.Code != "INVALID_MESSAGE" || serverErr.Text != "unknown message type" {
		t.Errorf("Unexpected error payload: %+v", serverErr)
	}
}

func TestDecodeServerMessageMalformed(t *testing.T) {
	if _, _, err := decodeServerMessage([]byte("not json")); err == nil {
		t.Error("Expected error for malformed frame")
	}
}
