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
)

// Analysis is a background review of the whole document.
type Analysis struct {
	Text   string `json:"text"`
	Markup string `json:"markup"`
}

type AnalyzerDeps struct {
	PanelID  string
	Editor   editor.Surface
	Settings settings.Settings
	Model    models.Model
	Renderer Renderer
	Traces   stores.TraceStore
	Logger   *log.Logger
	// Deliver receives each finished analysis.
	Deliver func(Analysis)
}

// Analyzer re-reviews the editor contents once edits have paused. It runs
// beside the chat cycle and never reports failures to the user.
type Analyzer struct {
	caller
	editor   editor.Surface
	settings settings.Settings
	renderer Renderer
	deliver  func(Analysis)
	delay    time.Duration

	mu        sync.Mutex
	gen       uint64
	timer     *time.Timer
	cancel    context.CancelFunc
	modelName string
}

// DefaultAnalysisDelay is the pause after the last edit before analysis runs.
const DefaultAnalysisDelay = time.Second

func NewAnalyzer(deps AnalyzerDeps, delay time.Duration) (*Analyzer, error) {
	if deps.Editor == nil || deps.Settings == nil || deps.Model == nil || deps.Deliver == nil {
		return nil, errors.New("assist: editor, settings, model and deliver are required")
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New()
	}
	if deps.Logger == nil {
		deps.Logger = defaultLogger(fmt.Sprintf("[analyze %s] ", deps.PanelID))
	}
	if delay <= 0 {
		delay = DefaultAnalysisDelay
	}
	return &Analyzer{
		caller: caller{
			panelID: deps.PanelID,
			model:   deps.Model,
			traces:  deps.Traces,
			logger:  deps.Logger,
		},
		editor:   deps.Editor,
		settings: deps.Settings,
		renderer: deps.Renderer,
		deliver:  deps.Deliver,
		delay:    delay,
	}, nil
}

func (a *Analyzer) SetModel(id string) {
	a.mu.Lock()
	a.modelName = id
	a.mu.Unlock()
}

// ContentChanged restarts the idle timer.
func (a *Analyzer) ContentChanged() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.run(gen) })
}

func (a *Analyzer) stopLocked() {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// Stop cancels a pending or running analysis.
func (a *Analyzer) Stop() {
	a.mu.Lock()
	a.stopLocked()
	a.mu.Unlock()
}

func (a *Analyzer) run(gen uint64) {
	if !a.settings.Bool(settings.KeyAssistantEnabled) {
		return
	}
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.timer = nil
	modelName := a.modelName
	a.mu.Unlock()
	defer cancel()

	code := a.editor.GetValue()
	if strings.TrimSpace(code) == "" {
		return
	}
	result, err := a.Analyze(ctx, modelName, code)
	if err != nil {
		a.logger.Printf("analysis error: %v", err)
		return
	}

	a.mu.Lock()
	current := gen == a.gen
	a.mu.Unlock()
	if current {
		a.deliver(result)
	}
}

// Analyze runs one analysis of code immediately.
func (a *Analyzer) Analyze(ctx context.Context, modelName, code string) (Analysis, error) {
	promptText := prompt.BuildAnalysisPrompt(code)
	trace := a.newTrace(KindAnalysis, modelName, promptText)
	defer a.record(trace)

	resp, err := a.do(ctx, trace, models.Model_Request{
		Model:    modelName,
		Messages: []models.ChatMessage{{Role: models.RoleUser, Content: promptText}},
	})
	if err != nil {
		return Analysis{}, err
	}
	text := resp.Text()
	return Analysis{Text: text, Markup: safeRender(a.renderer, a.logger, text)}, nil
}
