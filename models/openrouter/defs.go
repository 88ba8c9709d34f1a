package openrouter

import (
	"encoding/json"
	"fmt"
)

// Wire types for the OpenAI-compatible chat completions endpoint.

type OpenRouterRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenRouterResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message      Reply   `json:"message"`
	FinishReason *string `json:"finish_reason,omitempty"`
}

// Reply is an assistant message whose content arrived either as a plain
// string or as an array of typed parts.
type Reply struct {
	Role   string
	Chunks []string
}

func (r *Reply) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Role = raw.Role
	r.Chunks = nil
	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw.Content, &s); err == nil {
		r.Chunks = []string{s}
		return nil
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw.Content, &parts); err != nil {
		return fmt.Errorf("unexpected message content: %w", err)
	}
	for _, p := range parts {
		if p.Type != "" && p.Type != "text" {
			continue
		}
		r.Chunks = append(r.Chunks, p.Text)
	}
	return nil
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
