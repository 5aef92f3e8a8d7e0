package llm

import (
	"testing"

	"google.golang.org/genai"

	"github.com/mustafaiq320-svg/salamatuk/domain/entities"
)

func TestHistoryToContents(t *testing.T) {
	history := []entities.Message{
		entities.NewMessage("m1", entities.MessageRoleUser, "ما هي معدات الوقاية؟"),
		entities.NewMessage("m2", entities.MessageRoleAssistant, "الخوذة والنظارات والقفازات."),
	}

	contents := historyToContents(history, "وماذا عن الأحذية؟")

	if len(contents) != 3 {
		t.Fatalf("Expected 3 contents, got %d", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Errorf("Expected user role for first turn, got %q", contents[0].Role)
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("Expected model role for assistant turn, got %q", contents[1].Role)
	}
	if contents[2].Role != genai.RoleUser {
		t.Errorf("Expected user role for new message, got %q", contents[2].Role)
	}
	if contents[2].Parts[0].Text != "وماذا عن الأحذية؟" {
		t.Errorf("Unexpected trailing user text: %q", contents[2].Parts[0].Text)
	}
}

func TestParseReply(t *testing.T) {
	reply := parseReply(`{"assistantText":"معك سلامتك من وحدة HSE في الفرقة الزلزالية الثامنة. أهلاً بك.","imagePrompt":"hard hats on site","suggestions":["أ","ب","ج"]}`)

	if reply.Text == "" || reply.ImagePrompt != "hard hats on site" {
		t.Errorf("Unexpected parsed reply: %+v", reply)
	}
	if len(reply.Suggestions) != 3 {
		t.Errorf("Expected 3 suggestions, got %d", len(reply.Suggestions))
	}
}

func TestParseReplyMalformedFallsBack(t *testing.T) {
	reply := parseReply("plain text, not json")

	if reply.Text != "plain text, not json" {
		t.Errorf("Expected raw text carried through, got %q", reply.Text)
	}
	if reply.ImagePrompt != fallbackImagePrompt {
		t.Errorf("Expected fallback image prompt, got %q", reply.ImagePrompt)
	}
	if len(reply.Suggestions) != 0 {
		t.Errorf("Expected empty suggestions on malformed reply, got %v", reply.Suggestions)
	}
}

func TestParseReplyEmpty(t *testing.T) {
	reply := parseReply("")
	if reply.Text != fallbackParseText {
		t.Errorf("Expected parse fallback text, got %q", reply.Text)
	}
}

func TestValidateGeminiConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GeminiConfig
		wantErr bool
	}{
		{"valid", GeminiConfig{APIKey: "k"}, false},
		{"missing key", GeminiConfig{}, true},
		{"bad temperature", GeminiConfig{APIKey: "k", Temperature: 1.5}, true},
		{"bad topP", GeminiConfig{APIKey: "k", TopP: -0.1}, true},
		{"negative timeout", GeminiConfig{APIKey: "k", TimeoutSeconds: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeminiConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGeminiConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
