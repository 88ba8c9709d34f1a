package sessions

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Desarso/ideassist/assist"
	"github.com/Desarso/ideassist/auth"
	"github.com/Desarso/ideassist/editor"
	"github.com/Desarso/ideassist/models"
	"github.com/Desarso/ideassist/settings"
	"github.com/Desarso/ideassist/stores"
)

// PanelConfig is shared by every panel a server creates.
type PanelConfig struct {
	Model       models.Model
	Settings    settings.Settings // base flags; each panel layers its own overrides on top
	Renderer    assist.Renderer
	Transcripts stores.TranscriptStore
	Traces      stores.TraceStore
	Chat        assist.Config
	Suggest     assist.SuggestionConfig
	// Analysis turns on background analysis after edits.
	Analysis      bool
	AnalysisDelay time.Duration
	// InitialText seeds each new panel's editor buffer.
	InitialText string
}

// Panel bundles the state of one assistant panel: its editor buffer, its
// signed-in user, its flag overrides and the assistant components.
type Panel struct {
	ID        string
	Buffer    *editor.Buffer
	Auth      *auth.Session
	Overrides *settings.Static
	Chat      *assist.Orchestrator
	Suggest   *assist.SuggestionProvider
	Analyzer  *assist.Analyzer
	Logger    *log.Logger

	views       *viewHub
	transcripts stores.TranscriptStore
}

// NewPanel wires the assistant components of a panel together.
func NewPanel(id string, cfg PanelConfig) (*Panel, error) {
	logger := log.New(os.Stdout, fmt.Sprintf("[panel %s] ", id), log.LstdFlags)
	p := &Panel{
		ID:        id,
		Buffer:    editor.NewBuffer(cfg.InitialText),
		Auth:      auth.NewSession(),
		Overrides: settings.NewStatic(nil),
		Logger:    logger,

		views:       newViewHub(logger),
		transcripts: cfg.Transcripts,
	}
	base := cfg.Settings
	if base == nil {
		base = settings.NewStatic(settings.Defaults())
	}
	flags := settings.Layered{p.Overrides, base}

	if cfg.Transcripts != nil {
		if err := cfg.Transcripts.EnsurePanel(context.Background(), id, ""); err != nil {
			logger.Printf("Warning: failed to register panel: %v", err)
		}
	}

	chat, err := assist.NewOrchestrator(assist.Deps{
		PanelID:     id,
		Editor:      p.Buffer,
		Settings:    flags,
		Model:       cfg.Model,
		Renderer:    cfg.Renderer,
		View:        p.views,
		Transcripts: cfg.Transcripts,
		Traces:      cfg.Traces,
		Logger:      logger,
	}, cfg.Chat)
	if err != nil {
		return nil, err
	}
	p.Chat = chat

	suggest, err := assist.NewSuggestionProvider(assist.SuggestionDeps{
		PanelID:  id,
		Auth:     p.Auth,
		Settings: flags,
		Model:    cfg.Model,
		Traces:   cfg.Traces,
		Logger:   logger,
	}, cfg.Suggest)
	if err != nil {
		return nil, err
	}
	p.Suggest = suggest

	if cfg.Analysis {
		analyzer, err := assist.NewAnalyzer(assist.AnalyzerDeps{
			PanelID:  id,
			Editor:   p.Buffer,
			Settings: flags,
			Model:    cfg.Model,
			Renderer: cfg.Renderer,
			Traces:   cfg.Traces,
			Logger:   logger,
			Deliver:  p.views.analysis,
		}, cfg.AnalysisDelay)
		if err != nil {
			return nil, err
		}
		p.Analyzer = analyzer
		p.Buffer.OnChange(analyzer.ContentChanged)
	}
	return p, nil
}

// Attach subscribes w to the panel's updates until the returned func runs.
func (p *Panel) Attach(w EventWriter) (detach func()) {
	p.views.attach(w)
	return func() { p.views.detach(w) }
}

// SignIn signs username in and records them as the panel owner if it has
// none yet.
func (p *Panel) SignIn(username string) bool {
	if !p.Auth.SignIn(username) {
		return false
	}
	if p.transcripts != nil {
		user, _ := p.Auth.GetUser()
		if err := p.transcripts.EnsurePanel(context.Background(), p.ID, user.Username); err != nil {
			p.Logger.Printf("Warning: failed to record panel owner: %v", err)
		}
	}
	return true
}

// SignOut signs the user out and drops any pending suggestion.
func (p *Panel) SignOut() {
	p.Auth.SignOut()
	p.Suggest.Stop()
}

// SetModel switches every component to model id.
func (p *Panel) SetModel(id string) {
	p.Chat.SetModel(id)
	p.Suggest.SetModel(id)
	if p.Analyzer != nil {
		p.Analyzer.SetModel(id)
	}
}

// SetFlag overrides a known flag for this panel.
func (p *Panel) SetFlag(key string, enabled bool) error {
	switch key {
	case settings.KeyAssistantEnabled, settings.KeyInlineSuggestions:
		p.Overrides.Set(key, enabled)
		return nil
	}
	return fmt.Errorf("unknown setting %q", key)
}

// UpdateEditor pushes editor state from a client. Nil fields are left alone.
func (p *Panel) UpdateEditor(value *string, selection *editor.Range) {
	p.Buffer.Update(value, selection)
}

// Close stops background work.
func (p *Panel) Close() {
	p.Suggest.Stop()
	if p.Analyzer != nil {
		p.Analyzer.Stop()
	}
}
