package stores

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OptSimpleProtocol disables implicit prepared statements, for poolers
// such as PgBouncer in transaction mode.
const OptSimpleProtocol = "simple_protocol"

// PostgresStore keeps transcripts and traces in PostgreSQL.
type PostgresStore struct {
	gormStore
	dsn     string
	options map[string]string
}

func NewPostgresStore(config *StoreConfig) (*PostgresStore, error) {
	if config.Type != "postgres" {
		return nil, fmt.Errorf("invalid store type for PostgreSQL store: %s", config.Type)
	}
	if config.Connection == "" {
		return nil, errors.New("postgres store needs a DSN")
	}

	store := &PostgresStore{dsn: config.Connection, options: config.Options}
	if err := store.Connect(); err != nil {
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreSimple opens dsn with default pool settings.
func NewPostgresStoreSimple(dsn string) (*PostgresStore, error) {
	return NewPostgresStore(NewStoreConfig("postgres", dsn))
}

// Connect opens the pool, applies pool options and migrates the schema.
func (s *PostgresStore) Connect() error {
	dialector := postgres.New(postgres.Config{
		DSN:                  s.dsn,
		PreferSimpleProtocol: s.options[OptSimpleProtocol] == "true",
	})
	db, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	if err := tunePool(db, s.options); err != nil {
		return err
	}
	s.db = db
	return s.migrate()
}
