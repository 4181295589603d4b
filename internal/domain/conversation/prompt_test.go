package conversation

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestBuildPrompt_Ordering(t *testing.T) {
	system := "You are a helpful assistant."
	history := []Message{
		{Role: MessageRoleUser, Content: "first question"},
		{Role: MessageRoleAssistant, Content: "first answer"},
		{Role: MessageRoleUser, Content: "second question"},
		{Role: MessageRoleAssistant, Content: "second answer"},
	}

	got := BuildPrompt(&system, history, "third question")

	want := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "You are a helpful assistant."},
		{Role: openai.ChatMessageRoleUser, Content: "first question"},
		{Role: openai.ChatMessageRoleAssistant, Content: "first answer"},
		{Role: openai.ChatMessageRoleUser, Content: "second question"},
		{Role: openai.ChatMessageRoleAssistant, Content: "second answer"},
		{Role: openai.ChatMessageRoleUser, Content: "third question"},
	}

	if len(got) != len(want) {
		t.Fatalf("BuildPrompt() returned %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Role != want[i].Role || got[i].Content != want[i].Content {
			t.Errorf("message[%d] = {%s, %q}, want {%s, %q}", i, got[i].Role, got[i].Content, want[i].Role, want[i].Content)
		}
	}
}

func TestBuildPrompt_EmptyHistory(t *testing.T) {
	got := BuildPrompt(nil, nil, "hello")

	if len(got) != 1 {
		t.Fatalf("BuildPrompt() returned %d messages, want 1", len(got))
	}
	if got[0].Role != openai.ChatMessageRoleUser || got[0].Content != "hello" {
		t.Errorf("message[0] = {%s, %q}, want user turn", got[0].Role, got[0].Content)
	}
}

func TestBuildPrompt_EmptySystemPromptSkipped(t *testing.T) {
	empty := ""
	got := BuildPrompt(&empty, nil, "hello")

	if len(got) != 1 {
		t.Fatalf("BuildPrompt() returned %d messages, want 1", len(got))
	}
	if got[0].Role != openai.ChatMessageRoleUser {
		t.Errorf("message[0] role = %s, want user", got[0].Role)
	}
}

func TestBuildPrompt_DoesNotMutateHistory(t *testing.T) {
	history := []Message{
		{Role: MessageRoleUser, Content: "original"},
	}

	_ = BuildPrompt(nil, history, "new turn")

	if history[0].Content != "original" || history[0].Role != MessageRoleUser {
		t.Errorf("history mutated: %+v", history[0])
	}
	if len(history) != 1 {
		t.Errorf("history length changed: %d", len(history))
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *string
	}{
		{
			name:    "plain text",
			content: "What is the capital of France?",
			want:    strPtr("What is the capital of France?"),
		},
		{
			name:    "leading whitespace trimmed",
			content: "  hello  ",
			want:    strPtr("hello"),
		},
		{
			name:    "blank content",
			content: "   \n\t ",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTitle(tt.content)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("DeriveTitle(%q) = %v, want %v", tt.content, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.content, *got, *tt.want)
			}
		})
	}
}

func TestDeriveTitle_Truncation(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}

	got := DeriveTitle(long)
	if got == nil {
		t.Fatal("DeriveTitle() returned nil for non-empty content")
	}
	if len([]rune(*got)) != 60 {
		t.Errorf("DeriveTitle() length = %d, want 60", len([]rune(*got)))
	}
}

func strPtr(s string) *string { return &s }
