// Package ideassist wires the assistant core, model providers and stores
// into panels served by the sessions and server packages.
package ideassist

import (
	"fmt"
	"strings"

	"github.com/Desarso/ideassist/assist"
	"github.com/Desarso/ideassist/models"
	"github.com/Desarso/ideassist/models/anthropic"
	"github.com/Desarso/ideassist/models/gemini"
	"github.com/Desarso/ideassist/models/openrouter"
	"github.com/Desarso/ideassist/render"
	"github.com/Desarso/ideassist/sessions"
	"github.com/Desarso/ideassist/settings"
	"github.com/Desarso/ideassist/stores"
)

// Supported model providers
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderGroq       = "groq"
	ProviderCerebras   = "cerebras"
	ProviderAnthropic  = "anthropic"
)

// Config holds configuration for assistant panels
type Config struct {
	Provider  string
	ModelName string
	Store     stores.Store
	Settings  settings.Settings
	Chat      assist.Config
	Suggest   assist.SuggestionConfig
	Analysis  bool
	// InitialText seeds each new panel's editor.
	InitialText string

	model models.Model
}

// NewConfig creates a new configuration with default values. No store is
// configured; transcripts and traces are then not kept.
func NewConfig() *Config {
	return &Config{
		Provider: ProviderOpenRouter,
		Settings: settings.NewStatic(settings.Defaults()),
		Chat:     assist.DefaultConfig(),
		Suggest:  assist.DefaultSuggestionConfig(),
	}
}

// WithProvider selects the model provider by name
func (c *Config) WithProvider(provider string) *Config {
	c.Provider = strings.ToLower(strings.TrimSpace(provider))
	return c
}

// WithModelName sets the model identifier sent with every request
func (c *Config) WithModelName(modelName string) *Config {
	c.ModelName = modelName
	return c
}

// WithModel uses m directly instead of building one from the provider name
func (c *Config) WithModel(m models.Model) *Config {
	c.model = m
	return c
}

// WithSettings sets the base feature flags of every panel
func (c *Config) WithSettings(s settings.Settings) *Config {
	c.Settings = s
	return c
}

// WithAnalysis turns background analysis on or off
func (c *Config) WithAnalysis(enabled bool) *Config {
	c.Analysis = enabled
	return c
}

// WithMaxPromptBytes fails prompts larger than limit before they are sent
func (c *Config) WithMaxPromptBytes(limit int) *Config {
	c.Chat.MaxPromptBytes = limit
	c.Suggest.MaxPromptBytes = limit
	return c
}

// WithInitialText seeds the editor of each new panel
func (c *Config) WithInitialText(text string) *Config {
	c.InitialText = text
	return c
}

// WithStore sets the transcript and trace store for the configuration
func (c *Config) WithStore(store stores.Store) *Config {
	c.Store = store
	return c
}

// WithSQLiteStore sets a SQLite store with the specified database path
func (c *Config) WithSQLiteStore(dbPath string) *Config {
	store, err := stores.NewSQLiteStoreSimple(dbPath)
	if err != nil {
		panic("Failed to create SQLite store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithPostgresStore sets a PostgreSQL store with the specified connection parameters
func (c *Config) WithPostgresStore(host, user, password, dbname string, port int) *Config {
	store, err := stores.NewPostgresStoreDefault(host, user, password, dbname, port)
	if err != nil {
		panic("Failed to create PostgreSQL store: " + err.Error())
	}
	c.Store = store
	return c
}

// NewModel builds the provider's model client. An empty modelName leaves
// the provider default in place.
func NewModel(provider, modelName string) (models.Model, error) {
	switch provider {
	case ProviderGemini:
		return &gemini.Gemini_Model{Model: modelName}, nil
	case ProviderOpenRouter, "":
		return &openrouter.OpenRouter_Model{Model: modelName}, nil
	case ProviderOpenAI:
		return openrouter.NewOpenAI(modelName), nil
	case ProviderGroq:
		return openrouter.NewGroq(modelName), nil
	case ProviderCerebras:
		return openrouter.NewCerebras(modelName), nil
	case ProviderAnthropic:
		return &anthropic.Anthropic_Model{Model: modelName}, nil
	}
	return nil, fmt.Errorf("unsupported model provider: %s", provider)
}

// Model returns the configured model, building it from the provider on
// first use.
func (c *Config) Model() (models.Model, error) {
	if c.model != nil {
		return c.model, nil
	}
	m, err := NewModel(c.Provider, c.ModelName)
	if err != nil {
		return nil, err
	}
	c.model = m
	return m, nil
}

// PanelConfig resolves the configuration into what each panel is built from.
func (c *Config) PanelConfig() (sessions.PanelConfig, error) {
	m, err := c.Model()
	if err != nil {
		return sessions.PanelConfig{}, err
	}
	chat, suggest := c.Chat, c.Suggest
	if c.ModelName != "" {
		chat.Model = c.ModelName
		suggest.Model = c.ModelName
	}

	cfg := sessions.PanelConfig{
		Model:       m,
		Settings:    c.Settings,
		Renderer:    render.New(),
		Chat:        chat,
		Suggest:     suggest,
		Analysis:    c.Analysis,
		InitialText: c.InitialText,
	}
	if c.Store != nil {
		cfg.Transcripts = c.Store
		cfg.Traces = c.Store
	}
	return cfg, nil
}

// NewRegistry creates a panel registry from the configuration.
func (c *Config) NewRegistry() (*sessions.Registry, error) {
	cfg, err := c.PanelConfig()
	if err != nil {
		return nil, err
	}
	return sessions.NewRegistry(cfg), nil
}
