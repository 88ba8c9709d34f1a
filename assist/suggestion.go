package assist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Desarso/ideassist/auth"
	"github.com/Desarso/ideassist/editor"
	"github.com/Desarso/ideassist/models"
	"github.com/Desarso/ideassist/prompt"
	"github.com/Desarso/ideassist/settings"
	"github.com/Desarso/ideassist/stores"
)

// SuggestionConfig tunes the inline suggestion provider.
type SuggestionConfig struct {
	// Debounce is the idle time required after the last cursor move.
	Debounce       time.Duration
	Model          string
	Temperature    *float64
	MaxTokens      *int
	MaxPromptBytes int
}

func DefaultSuggestionConfig() SuggestionConfig {
	return SuggestionConfig{
		Debounce:    300 * time.Millisecond,
		Temperature: models.Float64(0.7),
		MaxTokens:   models.Int(150),
	}
}

type SuggestionDeps struct {
	PanelID  string
	Auth     auth.Gate
	Settings settings.Settings
	Model    models.Model
	Traces   stores.TraceStore
	Logger   *log.Logger
}

// SuggestionProvider produces inline completions at the cursor. A cursor
// move supersedes any request in flight: it is cancelled and its result is
// dropped.
type SuggestionProvider struct {
	caller
	auth     auth.Gate
	settings settings.Settings
	cfg      SuggestionConfig

	mu        sync.Mutex
	gen       uint64
	lastMove  time.Time
	cancel    context.CancelFunc
	timer     *time.Timer
	modelName string
}

func NewSuggestionProvider(deps SuggestionDeps, cfg SuggestionConfig) (*SuggestionProvider, error) {
	if deps.Auth == nil || deps.Settings == nil || deps.Model == nil {
		return nil, errors.New("assist: auth, settings and model are required")
	}
	if deps.Logger == nil {
		deps.Logger = defaultLogger(fmt.Sprintf("[suggest %s] ", deps.PanelID))
	}
	return &SuggestionProvider{
		caller: caller{
			panelID: deps.PanelID,
			model:   deps.Model,
			traces:  deps.Traces,
			logger:  deps.Logger,
		},
		auth:      deps.Auth,
		settings:  deps.Settings,
		cfg:       cfg,
		modelName: cfg.Model,
	}, nil
}

// SetModel changes the model identifier used by later requests.
func (p *SuggestionProvider) SetModel(id string) {
	p.mu.Lock()
	p.modelName = id
	p.mu.Unlock()
}

// CursorMoved records a cursor movement and supersedes any pending or
// in-flight suggestion.
func (p *SuggestionProvider) CursorMoved(editor.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.supersedeLocked()
	p.lastMove = p.clock()
}

func (p *SuggestionProvider) supersedeLocked() {
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// enabled checks every gate. No network call is made when it reports false.
func (p *SuggestionProvider) enabled() bool {
	return p.auth.IsSignedIn() &&
		p.settings.Bool(settings.KeyInlineSuggestions) &&
		p.settings.Bool(settings.KeyAssistantEnabled)
}

// ProvideCompletion requests a completion for snap. It reports false when a
// gate is closed, the request fails, the reply is empty or the cursor moved
// while the request was in flight. A new call supersedes an older one.
func (p *SuggestionProvider) ProvideCompletion(ctx context.Context, snap editor.Snapshot) (InlineSuggestion, bool) {
	if !p.enabled() {
		return InlineSuggestion{}, false
	}

	p.mu.Lock()
	if !p.lastMove.IsZero() && p.clock().Sub(p.lastMove) < p.cfg.Debounce {
		p.mu.Unlock()
		return InlineSuggestion{}, false
	}
	p.supersedeLocked()
	gen := p.gen
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	return p.complete(ctx, gen, snap)
}

// complete issues the request for generation gen and drops the result if
// gen has been superseded meanwhile.
func (p *SuggestionProvider) complete(ctx context.Context, gen uint64, snap editor.Snapshot) (InlineSuggestion, bool) {
	p.mu.Lock()
	modelName := p.modelName
	p.mu.Unlock()

	promptText := prompt.BuildCompletionPrompt(snap.TextBeforeCursor, snap.TextAfterCursor)
	trace := p.newTrace(KindCompletion, modelName, promptText)
	defer p.record(trace)

	if err := prompt.CheckSize(promptText, p.cfg.MaxPromptBytes); err != nil {
		trace.Status, trace.Error = stores.TraceDropped, err.Error()
		return InlineSuggestion{}, false
	}

	resp, err := p.do(ctx, trace, models.Model_Request{
		Model:       modelName,
		Messages:    []models.ChatMessage{{Role: models.RoleUser, Content: promptText}},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})

	p.mu.Lock()
	stale := gen != p.gen
	if !stale {
		p.cancel = nil
	}
	p.mu.Unlock()

	if stale {
		trace.Status, trace.Error = stores.TraceStale, ErrSuggestionStale.Error()
		return InlineSuggestion{}, false
	}
	if err != nil {
		p.logger.Printf("completion failed: %v", err)
		return InlineSuggestion{}, false
	}

	text := prompt.StripFences(resp.Text())
	if text == "" {
		return InlineSuggestion{}, false
	}
	return InlineSuggestion{
		InsertText: text,
		Range:      editor.Range{Start: snap.Cursor, End: snap.Cursor},
	}, true
}

// Schedule runs a completion for snap once the debounce has elapsed and
// calls deliver only if the result is still current. A later Schedule,
// ProvideCompletion or CursorMoved replaces it.
func (p *SuggestionProvider) Schedule(snap editor.Snapshot, deliver func(InlineSuggestion)) {
	if !p.enabled() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.supersedeLocked()
	p.lastMove = p.clock()
	gen := p.gen
	p.timer = time.AfterFunc(p.cfg.Debounce, func() {
		if !p.enabled() {
			return
		}
		p.mu.Lock()
		if gen != p.gen {
			p.mu.Unlock()
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.timer = nil
		p.mu.Unlock()
		defer cancel()

		if s, ok := p.complete(ctx, gen, snap); ok {
			deliver(s)
		}
	})
}

// Stop cancels anything pending.
func (p *SuggestionProvider) Stop() {
	p.mu.Lock()
	p.supersedeLocked()
	p.mu.Unlock()
}
