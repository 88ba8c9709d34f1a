package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errNoConnection = errors.New("database connection is nil")

// gormStore holds the queries shared by the SQLite and PostgreSQL stores.
type gormStore struct {
	db *gorm.DB
}

// Pool options understood by both stores (see StoreConfig.WithOption).
const (
	OptMaxOpenConns    = "max_open_conns"
	OptMaxIdleConns    = "max_idle_conns"
	OptConnMaxLifetime = "conn_max_lifetime" // time.ParseDuration format
)

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
}

// tunePool applies pool options to db.
func tunePool(db *gorm.DB, opts map[string]string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if v, ok := opts[OptMaxOpenConns]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", OptMaxOpenConns, v, err)
		}
		sqlDB.SetMaxOpenConns(n)
	}
	if v, ok := opts[OptMaxIdleConns]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", OptMaxIdleConns, v, err)
		}
		sqlDB.SetMaxIdleConns(n)
	}
	if v, ok := opts[OptConnMaxLifetime]; ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", OptConnMaxLifetime, v, err)
		}
		sqlDB.SetConnMaxLifetime(d)
	}
	return nil
}

func (s *gormStore) migrate() error {
	if err := s.db.AutoMigrate(&Panel{}, &TranscriptMessage{}, &RequestTrace{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

// DB exposes the underlying connection.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Close closes the database connection
func (s *gormStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (s *gormStore) Ping() error {
	if s.db == nil {
		return errNoConnection
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *gormStore) EnsurePanel(ctx context.Context, panelID, owner string) error {
	if s.db == nil {
		return errNoConnection
	}
	// Count avoids gorm's "record not found" log noise
	var count int64
	if err := s.db.WithContext(ctx).Model(&Panel{}).Where("panel_id = ?", panelID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check panel %s: %w", panelID, err)
	}
	if count > 0 {
		if owner != "" {
			return s.db.WithContext(ctx).Model(&Panel{}).
				Where("panel_id = ? AND (owner = '' OR owner IS NULL)", panelID).
				Update("owner", owner).Error
		}
		return nil
	}
	return s.db.WithContext(ctx).Create(&Panel{PanelID: panelID, Owner: owner}).Error
}

func (s *gormStore) SaveMessage(ctx context.Context, msg *TranscriptMessage) error {
	if s.db == nil {
		return errNoConnection
	}
	if msg.PanelID == "" {
		return fmt.Errorf("transcript message has no panel id")
	}
	if err := s.EnsurePanel(ctx, msg.PanelID, ""); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&TranscriptMessage{}).Where("panel_id = ?", msg.PanelID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count existing messages: %w", err)
		}
		if msg.Sequence == 0 {
			msg.Sequence = int(count) + 1
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to create message record: %w", err)
		}
		if err := tx.Model(&Panel{}).Where("panel_id = ?", msg.PanelID).Update("message_count", count+1).Error; err != nil {
			return fmt.Errorf("failed to update panel message count: %w", err)
		}
		return nil
	})
}

func (s *gormStore) FetchTranscript(ctx context.Context, panelID string, limit int) ([]TranscriptMessage, error) {
	if s.db == nil {
		return nil, errNoConnection
	}

	var msgs []TranscriptMessage
	query := s.db.WithContext(ctx).Where("panel_id = ?", panelID)
	if limit > 0 {
		// newest first, then flip back to sequence order
		if err := query.Order("sequence DESC").Limit(limit).Find(&msgs).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch messages: %w", err)
		}
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
		return msgs, nil
	}
	if err := query.Order("sequence ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return msgs, nil
}

func (s *gormStore) ListPanels(ctx context.Context, owner string) ([]PanelInfo, error) {
	if s.db == nil {
		return nil, errNoConnection
	}

	var panels []Panel
	query := s.db.WithContext(ctx).Order("updated_at DESC")
	if owner != "" {
		query = query.Where("owner = ?", owner)
	}
	if err := query.Find(&panels).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch panels: %w", err)
	}

	result := make([]PanelInfo, len(panels))
	for i, p := range panels {
		result[i] = PanelInfo{
			PanelID:      p.PanelID,
			Owner:        p.Owner,
			Title:        p.Title,
			MessageCount: p.MessageCount,
			CreatedAt:    p.CreatedAt.Format(time.RFC3339),
			UpdatedAt:    p.UpdatedAt.Format(time.RFC3339),
		}
	}
	return result, nil
}
