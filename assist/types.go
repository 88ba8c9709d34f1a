// Package assist is the assistant core: the chat panel state machine, the
// inline suggestion provider and the background code analyzer. Everything
// it talks to (editor, settings, sign-in, model, UI) is injected.
package assist

import (
	"html"
	"log"
	"time"

	"github.com/Desarso/ideassist/editor"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// Message is one entry in a panel's append-only message list.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Markup    string    `json:"markup,omitempty"`
	Loading   bool      `json:"loading"`
	CreatedAt time.Time `json:"created_at"`
}

// State of a panel's request cycle.
type State int

const (
	Idle State = iota
	Sending
	Rendering
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Rendering:
		return "rendering"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Request kinds, recorded on traces.
const (
	KindChat       = "chat"
	KindFix        = "fix"
	KindExplain    = "explain"
	KindAnalysis   = "analysis"
	KindCompletion = "completion"
)

// PendingRequest describes the single in-flight chat request of a panel.
type PendingRequest struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	StartedAt time.Time `json:"started_at"`
}

// InlineSuggestion is offered at the cursor and never applied automatically.
type InlineSuggestion struct {
	InsertText string       `json:"insert_text"`
	Range      editor.Range `json:"range"`
}

// Explanation is an inline explanation anchored to a selection.
type Explanation struct {
	Text   string       `json:"text"`
	Markup string       `json:"markup"`
	Range  editor.Range `json:"range"`
}

// View is the UI side of a panel. Calls arrive from whichever goroutine is
// running the request; implementations must be safe for that.
type View interface {
	SetInputEnabled(enabled bool)
	MessageAppended(m Message)
	MessageUpdated(m Message)
	ScrollToLatest()
	FocusInput()
}

// NopView discards all UI updates.
type NopView struct{}

func (NopView) SetInputEnabled(bool)    {}
func (NopView) MessageAppended(Message) {}
func (NopView) MessageUpdated(Message)  {}
func (NopView) ScrollToLatest()         {}
func (NopView) FocusInput()             {}

// Renderer turns raw model text into safe display markup.
type Renderer interface {
	Render(raw string) string
}

// safeRender converts text with r. A panicking renderer yields the text
// escaped inside pre, so a reply is never lost to a display failure.
func safeRender(r Renderer, logger *log.Logger, text string) (markup string) {
	defer func() {
		if p := recover(); p != nil {
			logger.Printf("render failed, showing escaped text: %v", p)
			markup = "<pre>" + html.EscapeString(text) + "</pre>"
		}
	}()
	return r.Render(text)
}
