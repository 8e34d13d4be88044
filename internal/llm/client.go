// AngelaMos | 2026
// client.go

package llm

import (
	"context"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Text returns the trimmed content of the first choice, or "" when the
// completion carries no choices.
func (c *Completion) Text() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(c.Choices[0].Message.Content)
}

// Client is the chat completion boundary. Implementations must honour ctx
// cancellation and must not retry.
type Client interface {
	Invoke(ctx context.Context, messages []Message) (*Completion, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, messages []Message) (*Completion, error)

func (f ClientFunc) Invoke(ctx context.Context, messages []Message) (*Completion, error) {
	return f(ctx, messages)
}

// TextCompletion builds a single-choice completion, mostly for fakes.
func TextCompletion(text string) *Completion {
	return &Completion{
		Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: text}}},
	}
}
