package models

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn sent to the remote assistant endpoint.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Model_Request struct {
	// Model overrides the provider's default model identifier when set.
	Model        string        `json:"model,omitempty"`
	Messages     []ChatMessage `json:"messages"`
	SystemPrompt string        `json:"system_prompt,omitempty"`
	Temperature  *float64      `json:"temperature,omitempty"`
	MaxTokens    *int          `json:"max_tokens,omitempty"`
}

// Model is a remote assistant endpoint. Implementations issue exactly one
// round trip per call and honour ctx cancellation where the transport can.
type Model interface {
	Model_Request(ctx context.Context, request Model_Request) (Model_Response, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, request Model_Request) (Model_Response, error)

func (f ModelFunc) Model_Request(ctx context.Context, request Model_Request) (Model_Response, error) {
	return f(ctx, request)
}

// UserText builds a request holding a single user message.
func UserText(text string) Model_Request {
	return Model_Request{Messages: []ChatMessage{{Role: RoleUser, Content: text}}}
}

// Float64 returns a pointer to v, for optional generation parameters.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional generation parameters.
func Int(v int) *int { return &v }
