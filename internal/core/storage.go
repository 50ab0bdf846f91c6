package core

import (
	"fmt"
	"net/url"
	"strings"

	"idsearch/internal/infra/persistence/memory"
	"idsearch/internal/infra/persistence/postgres"
	"idsearch/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and parameterises a storage backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// ParseDatabaseURL maps a database URL such as sqlite:///db/idsearch.db or
// postgres://host/db onto a StorageConfig.
func ParseDatabaseURL(raw string) (StorageConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return StorageConfig{}, fmt.Errorf("parse database url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "sqlite", "sqlite3":
		// sqlite:///relative/path keeps the path relative, sqlite:////abs is absolute
		path := strings.TrimPrefix(u.Opaque+u.Path, "/")
		if u.Host != "" {
			path = u.Host + "/" + path
		}
		return StorageConfig{Driver: StorageSQLite, SQLitePath: path}, nil
	case "postgres", "postgresql":
		return StorageConfig{Driver: StoragePostgres, PostgresDSN: raw}, nil
	case "memory":
		return StorageConfig{Driver: StorageMemory}, nil
	default:
		return StorageConfig{}, fmt.Errorf("unsupported database url scheme %q", u.Scheme)
	}
}

// OpenPersistentStore opens the backend selected by cfg. An empty driver
// defaults to sqlite.
func OpenPersistentStore(cfg StorageConfig, engine *RulesEngine) (PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(cfg.PostgresDSN, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
