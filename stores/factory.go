package stores

import (
	"fmt"
	"strings"
)

// DefaultSQLitePath is used when a SQLite store is given no path.
const DefaultSQLitePath = "ideassist.sqlite"

// NewStore opens the store named by config.Type. "sqlite3" and
// "postgresql" are accepted as aliases.
func NewStore(config *StoreConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(config.Type)) {
	case "sqlite", "sqlite3":
		config.Type = "sqlite"
		s, err := NewSQLiteStore(config)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres", "postgresql":
		config.Type = "postgres"
		s, err := NewPostgresStore(config)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported store type: %s", config.Type)
}

func NewSQLiteStoreDefault() (Store, error) {
	return NewStore(NewStoreConfig("sqlite", DefaultSQLitePath))
}

// NewPostgresStoreDefault builds a DSN from discrete settings. TLS is off,
// which suits a database on the same host or private network.
func NewPostgresStoreDefault(host, user, password, dbname string, port int) (Store, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)
	return NewStore(NewStoreConfig("postgres", dsn))
}
