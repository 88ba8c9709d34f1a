package stores

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// TranscriptMessage is the archived copy of a finished panel message.
// Rows are only ever inserted.
type TranscriptMessage struct {
	gorm.Model
	PanelID   string `gorm:"index:idx_transcript_panel;not null" json:"panel_id"`
	Sequence  int    `gorm:"index:idx_transcript_panel;not null" json:"sequence"`
	MessageID string `gorm:"uniqueIndex;not null" json:"message_id"`
	Role      string `gorm:"not null" json:"role"` // "user", "assistant", "error"
	Content   string `gorm:"type:text" json:"content"`
}

// Panel holds metadata for an assistant panel.
type Panel struct {
	gorm.Model
	PanelID      string              `gorm:"uniqueIndex;not null"`
	Owner        string              `gorm:"index"`
	Title        string              `gorm:"type:text"`
	MessageCount int                 `gorm:"default:0"`
	Messages     []TranscriptMessage `gorm:"foreignKey:PanelID;references:PanelID"`
}

// PanelInfo holds basic panel metadata for listing
type PanelInfo struct {
	PanelID      string `json:"panel_id"`
	Owner        string `json:"owner"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// TranscriptStore archives finished panel messages.
type TranscriptStore interface {
	// SaveMessage appends msg to its panel, creating the panel row on first use.
	// Sequence is assigned by the store when zero.
	SaveMessage(ctx context.Context, msg *TranscriptMessage) error
	// FetchTranscript returns the last limit messages in sequence order (0 = all).
	FetchTranscript(ctx context.Context, panelID string, limit int) ([]TranscriptMessage, error)

	EnsurePanel(ctx context.Context, panelID, owner string) error
	ListPanels(ctx context.Context, owner string) ([]PanelInfo, error)
}

// TraceStore records one row per remote assistant request.
type TraceStore interface {
	SaveTrace(ctx context.Context, trace *RequestTrace) error
	ListTraces(ctx context.Context, panelID string, limit int) ([]RequestTrace, error)
	// PruneTraces deletes traces started before cutoff and reports how many went.
	PruneTraces(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is a database holding both transcripts and traces.
type Store interface {
	TranscriptStore
	TraceStore

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite" or "postgres"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`    // additional options
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
