package sessions

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Desarso/ideassist/assist"
	"github.com/Desarso/ideassist/editor"
)

// HTTPSession serves request/response interactions with a panel.
type HTTPSession struct {
	Panel  *Panel
	Logger *log.Logger
}

// ChatRequest is the body of a single chat interaction. Content and
// Selection, when present, replace the panel's editor state first.
type ChatRequest struct {
	Text      string        `json:"text"`
	Kind      string        `json:"kind,omitempty"` // "", "chat" or "fix"
	Content   *string       `json:"content,omitempty"`
	Selection *editor.Range `json:"selection,omitempty"`
	Model     string        `json:"model,omitempty"`
}

// CompletionRequest asks for one inline suggestion at Cursor.
type CompletionRequest struct {
	Content string          `json:"content"`
	Cursor  editor.Position `json:"cursor"`
}

// RunSingleInteraction handles a complete request-response cycle and returns
// the messages it appended.
func (s *HTTPSession) RunSingleInteraction(ctx context.Context, req ChatRequest) ([]assist.Message, error) {
	p := s.Panel
	p.UpdateEditor(req.Content, req.Selection)
	if req.Model != "" {
		p.SetModel(req.Model)
	}

	before := len(p.Chat.Messages())
	var err error
	switch req.Kind {
	case "", assist.KindChat:
		if strings.TrimSpace(req.Text) == "" {
			return nil, nil
		}
		err = p.Chat.Submit(ctx, req.Text)
	case assist.KindFix:
		err = p.Chat.SuggestFix(ctx, req.Text)
	default:
		return nil, fmt.Errorf("unknown request kind %q", req.Kind)
	}
	if err != nil {
		s.Logger.Printf("Interaction failed: %v", err)
		return nil, err
	}

	msgs := p.Chat.Messages()
	if before > len(msgs) {
		before = len(msgs)
	}
	return msgs[before:], nil
}

// Explain explains the current selection, optionally replacing editor state first.
func (s *HTTPSession) Explain(ctx context.Context, content *string, selection *editor.Range) (assist.Explanation, error) {
	s.Panel.UpdateEditor(content, selection)
	return s.Panel.Chat.ExplainSelection(ctx)
}

// Complete requests a suggestion for the given buffer and cursor. The
// debounce does not apply: each HTTP call is its own request.
func (s *HTTPSession) Complete(ctx context.Context, req CompletionRequest) (assist.InlineSuggestion, bool) {
	buf := editor.NewBuffer(req.Content)
	buf.SetCursor(req.Cursor)
	return s.Panel.Suggest.ProvideCompletion(ctx, editor.Take(buf))
}

// GetChatHistory returns the panel's message list.
func (s *HTTPSession) GetChatHistory() []assist.Message {
	return s.Panel.Chat.Messages()
}
