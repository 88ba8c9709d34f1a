package stores

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore keeps transcripts and traces in a SQLite file, or in memory
// for ":memory:".
type SQLiteStore struct {
	gormStore
	path    string
	options map[string]string
}

func NewSQLiteStore(config *StoreConfig) (*SQLiteStore, error) {
	if config.Type != "sqlite" {
		return nil, fmt.Errorf("invalid store type for SQLite store: %s", config.Type)
	}
	path := config.Connection
	if path == "" {
		path = DefaultSQLitePath
	}

	store := &SQLiteStore{path: path, options: config.Options}
	if err := store.Connect(); err != nil {
		return nil, err
	}
	return store, nil
}

func NewSQLiteStoreSimple(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStore(NewStoreConfig("sqlite", dbPath))
}

// Connect opens the database and migrates the schema.
func (s *SQLiteStore) Connect() error {
	db, err := gorm.Open(sqlite.Open(s.path), gormConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	opts := s.options
	if s.path == ":memory:" {
		// every pooled connection would get its own empty database
		opts = map[string]string{OptMaxOpenConns: "1"}
	}
	if err := tunePool(db, opts); err != nil {
		return err
	}
	s.db = db
	return s.migrate()
}
