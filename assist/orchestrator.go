package assist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Desarso/ideassist/editor"
	"github.com/Desarso/ideassist/models"
	"github.com/Desarso/ideassist/prompt"
	"github.com/Desarso/ideassist/render"
	"github.com/Desarso/ideassist/settings"
	"github.com/Desarso/ideassist/stores"
	"github.com/google/uuid"
)

// Config holds the generation parameters of a panel.
type Config struct {
	// Model is the identifier sent to the endpoint; empty uses the provider default.
	Model        string
	Temperature  *float64
	MaxTokens    *int
	SystemPrompt string
	// MaxPromptBytes fails a request before sending when positive and exceeded.
	MaxPromptBytes int
	// HistoryTurns is how many earlier exchanges accompany a chat prompt.
	HistoryTurns int
}

// DefaultConfig returns the parameters used when a panel is not configured.
func DefaultConfig() Config {
	return Config{
		Temperature:  models.Float64(0.7),
		SystemPrompt: prompt.SystemPrompt,
		HistoryTurns: 4,
	}
}

// Deps are the collaborators of an Orchestrator. Editor, Settings and Model
// are required.
type Deps struct {
	PanelID     string
	Editor      editor.Surface
	Settings    settings.Settings
	Model       models.Model
	Renderer    Renderer
	View        View
	Transcripts stores.TranscriptStore
	Traces      stores.TraceStore
	Logger      *log.Logger
}

// Orchestrator drives one assistant panel through
// Idle -> Sending -> Rendering|Failed -> Idle. At most one request is in
// flight; the message list only grows.
type Orchestrator struct {
	caller
	editor      editor.Surface
	settings    settings.Settings
	renderer    Renderer
	view        View
	transcripts stores.TranscriptStore
	cfg         Config

	mu       sync.Mutex
	state    State
	pending  *PendingRequest
	messages []Message
}

func NewOrchestrator(deps Deps, cfg Config) (*Orchestrator, error) {
	if deps.Editor == nil || deps.Settings == nil || deps.Model == nil {
		return nil, errors.New("assist: editor, settings and model are required")
	}
	if deps.PanelID == "" {
		deps.PanelID = uuid.NewString()
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New()
	}
	if deps.View == nil {
		deps.View = NopView{}
	}
	if deps.Logger == nil {
		deps.Logger = defaultLogger(fmt.Sprintf("[panel %s] ", deps.PanelID))
	}
	return &Orchestrator{
		caller: caller{
			panelID: deps.PanelID,
			model:   deps.Model,
			traces:  deps.Traces,
			logger:  deps.Logger,
		},
		editor:      deps.Editor,
		settings:    deps.Settings,
		renderer:    deps.Renderer,
		view:        deps.View,
		transcripts: deps.Transcripts,
		cfg:         cfg,
	}, nil
}

func (o *Orchestrator) PanelID() string { return o.panelID }

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Pending returns the in-flight request, if any.
func (o *Orchestrator) Pending() (PendingRequest, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return PendingRequest{}, false
	}
	return *o.pending, true
}

// Messages returns a copy of the message list.
func (o *Orchestrator) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// SetModel changes the model identifier used by later requests.
func (o *Orchestrator) SetModel(id string) {
	o.mu.Lock()
	o.cfg.Model = strings.TrimSpace(id)
	o.mu.Unlock()
}

func (o *Orchestrator) Model() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg.Model
}

// Snapshot copies the editor state a request will describe.
func (o *Orchestrator) Snapshot() editor.Snapshot {
	return editor.Take(o.editor)
}

// Check reports whether a chat request could start now: ErrAssistantDisabled
// or ErrBusy, else nil. The request itself checks again.
func (o *Orchestrator) Check() error {
	if !o.settings.Bool(settings.KeyAssistantEnabled) {
		return ErrAssistantDisabled
	}
	if o.State() != Idle {
		return ErrBusy
	}
	return nil
}

// Submit sends text with the current editor contents to the assistant.
// Whitespace-only text is ignored. Endpoint failures are shown in the panel
// as an error message and do not make Submit return an error.
func (o *Orchestrator) Submit(ctx context.Context, text string) error {
	return o.SubmitSnapshot(ctx, o.Snapshot(), text)
}

// SubmitSnapshot is Submit against editor state captured earlier, typically
// when the user pressed send.
func (o *Orchestrator) SubmitSnapshot(ctx context.Context, snap editor.Snapshot, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !o.settings.Bool(settings.KeyAssistantEnabled) {
		return ErrAssistantDisabled
	}
	return o.run(ctx, chatRequest{
		kind:        KindChat,
		userText:    text,
		prompt:      prompt.BuildChatPrompt(snap, text),
		withHistory: true,
	})
}

// SuggestFix asks for a fix to a compiler error and appends it to the panel
// under FixHeading. It shares Submit's single-flight rule.
func (o *Orchestrator) SuggestFix(ctx context.Context, compilerError string) error {
	if strings.TrimSpace(compilerError) == "" {
		return nil
	}
	if !o.settings.Bool(settings.KeyAssistantEnabled) {
		return ErrAssistantDisabled
	}
	return o.run(ctx, chatRequest{
		kind:    KindFix,
		prompt:  prompt.BuildFixPrompt(compilerError),
		heading: FixHeading,
	})
}

// ExplainSelection explains the selected code without touching the message
// list. It runs independently of the chat request cycle.
func (o *Orchestrator) ExplainSelection(ctx context.Context) (Explanation, error) {
	return o.ExplainSnapshot(ctx, o.Snapshot())
}

// ExplainSnapshot explains the selection recorded in snap.
func (o *Orchestrator) ExplainSnapshot(ctx context.Context, snap editor.Snapshot) (Explanation, error) {
	if !o.settings.Bool(settings.KeyAssistantEnabled) {
		return Explanation{}, ErrAssistantDisabled
	}
	if strings.TrimSpace(snap.SelectedText) == "" {
		return Explanation{}, ErrNoSelection
	}

	cfg := o.config()
	promptText := prompt.BuildExplainPrompt(snap.SelectedText)
	trace := o.newTrace(KindExplain, cfg.Model, promptText)
	defer o.record(trace)

	if err := prompt.CheckSize(promptText, cfg.MaxPromptBytes); err != nil {
		trace.Status, trace.Error = stores.TraceFailed, err.Error()
		return Explanation{}, err
	}
	resp, err := o.do(ctx, trace, o.modelRequest(cfg, promptText, nil))
	if err != nil {
		o.logger.Printf("explain request failed: %v", err)
		return Explanation{}, err
	}
	text := resp.Text()
	return Explanation{
		Text:   text,
		Markup: safeRender(o.renderer, o.logger, text),
		Range:  snap.Selection,
	}, nil
}

type chatRequest struct {
	kind        string
	userText    string // empty for requests that add no user message
	prompt      string
	heading     string
	withHistory bool
}

func (o *Orchestrator) config() Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

func (o *Orchestrator) modelRequest(cfg Config, promptText string, history []models.ChatMessage) models.Model_Request {
	msgs := append(history, models.ChatMessage{Role: models.RoleUser, Content: promptText})
	return models.Model_Request{
		Model:        cfg.Model,
		Messages:     msgs,
		SystemPrompt: cfg.SystemPrompt,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
	}
}

func (o *Orchestrator) newMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: o.clock(),
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context, req chatRequest) error {
	o.mu.Lock()
	if o.state != Idle {
		o.mu.Unlock()
		return ErrBusy
	}
	o.state = Sending
	cfg := o.cfg
	var history []models.ChatMessage
	if req.withHistory {
		history = buildHistory(o.messages, cfg.HistoryTurns)
	}

	var userMsg *Message
	if req.userText != "" {
		m := o.newMessage(RoleUser, req.userText)
		o.messages = append(o.messages, m)
		userMsg = &m
	}
	placeholder := o.newMessage(RoleAssistant, "")
	placeholder.Loading = true
	o.messages = append(o.messages, placeholder)
	idx := len(o.messages) - 1
	o.pending = &PendingRequest{
		ID:        placeholder.ID,
		Kind:      req.kind,
		Prompt:    req.prompt,
		Model:     cfg.Model,
		StartedAt: placeholder.CreatedAt,
	}
	o.mu.Unlock()

	final := placeholder
	trace := o.newTrace(req.kind, cfg.Model, req.prompt)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("panic while handling %s request: %v", req.kind, r)
			final = o.failure(placeholder)
			trace.Status, trace.Error = stores.TraceFailed, fmt.Sprintf("panic: %v", r)
		}
		final.Loading = false

		o.mu.Lock()
		o.messages[idx] = final
		o.pending = nil
		o.state = Idle
		o.mu.Unlock()

		o.view.MessageUpdated(final)
		o.view.SetInputEnabled(true)
		o.view.ScrollToLatest()
		o.view.FocusInput()
		o.archive(final)
		o.record(trace)
	}()

	o.view.SetInputEnabled(false)
	if userMsg != nil {
		o.view.MessageAppended(*userMsg)
		o.archive(*userMsg)
	}
	o.view.MessageAppended(placeholder)

	if err := prompt.CheckSize(req.prompt, cfg.MaxPromptBytes); err != nil {
		o.logger.Printf("%s request not sent: %v", req.kind, err)
		trace.Status, trace.Error = stores.TraceFailed, err.Error()
		o.setState(Failed)
		final = o.failure(placeholder)
		return nil
	}

	resp, err := o.do(ctx, trace, o.modelRequest(cfg, req.prompt, history))
	if err != nil {
		o.logger.Printf("%s request failed: %v", req.kind, err)
		o.setState(Failed)
		final = o.failure(placeholder)
		return nil
	}

	o.setState(Rendering)
	text := resp.Text()
	if req.heading != "" {
		text = req.heading + "\n" + text
	}
	final.Content = text
	final.Markup = safeRender(o.renderer, o.logger, text)
	return nil
}

func (o *Orchestrator) failure(placeholder Message) Message {
	m := placeholder
	m.Role = RoleError
	m.Content = FailureText
	m.Markup = ""
	return m
}

// archive stores a finished message when a transcript store is configured.
func (o *Orchestrator) archive(m Message) {
	if o.transcripts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := o.transcripts.SaveMessage(ctx, &stores.TranscriptMessage{
		PanelID:   o.panelID,
		MessageID: m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
	})
	if err != nil {
		o.logger.Printf("failed to archive message %s: %v", m.ID, err)
	}
}
