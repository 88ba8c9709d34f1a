package stores

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Trace statuses
const (
	TraceOK      = "ok"
	TraceFailed  = "failed"
	TraceStale   = "stale"   // suggestion superseded by a cursor move
	TraceDropped = "dropped" // gated before any network call
)

// RequestTrace represents one remote assistant request.
type RequestTrace struct {
	ID          uint      `gorm:"primarykey" json:"-"`
	CreatedAt   time.Time `json:"-"`
	RequestID   string    `gorm:"uniqueIndex;not null" json:"request_id"`
	PanelID     string    `gorm:"index" json:"panel_id"`
	Kind        string    `gorm:"not null" json:"kind"` // chat, completion, explain, analysis, fix
	Model       string    `json:"model"`
	PromptBytes int       `json:"prompt_bytes"`
	Status      string    `gorm:"index;not null" json:"status"`
	Error       string    `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time `gorm:"index;not null" json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}

func (s *gormStore) SaveTrace(ctx context.Context, trace *RequestTrace) error {
	if s.db == nil {
		return errNoConnection
	}
	return s.db.WithContext(ctx).Create(trace).Error
}

// ListTraces returns the newest traces first. An empty panelID lists every panel.
func (s *gormStore) ListTraces(ctx context.Context, panelID string, limit int) ([]RequestTrace, error) {
	if s.db == nil {
		return nil, errNoConnection
	}
	var traces []RequestTrace
	query := s.db.WithContext(ctx).Order("started_at DESC")
	if panelID != "" {
		query = query.Where("panel_id = ?", panelID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&traces).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch traces: %w", err)
	}
	return traces, nil
}

func (s *gormStore) PruneTraces(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.db == nil {
		return 0, errNoConnection
	}
	res := s.db.WithContext(ctx).Where("started_at < ?", cutoff).Delete(&RequestTrace{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune traces: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// NewGORMTraceStore creates a trace store from an existing GORM database connection
func NewGORMTraceStore(db *gorm.DB) (TraceStore, error) {
	if db == nil {
		return nil, errNoConnection
	}
	if err := db.AutoMigrate(&RequestTrace{}); err != nil {
		return nil, fmt.Errorf("failed to migrate request_traces table: %w", err)
	}
	return &gormStore{db: db}, nil
}
