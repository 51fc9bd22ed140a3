package datastore

import (
	"database/sql"
	"net/url"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/errors"
)

// PostgresStore implements Interface for Postgres, including hosted
// Postgres such as Supabase
type PostgresStore struct {
	DataStore
	Settings *conf.Settings
}

// Open connects through pgx and migrates the schema
func (store *PostgresStore) Open() error {
	cfg := store.Settings.Cache.Postgres

	sqlDB, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_postgres").
			Build()
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	if err != nil {
		_ = sqlDB.Close()
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_postgres").
			Build()
	}

	store.DB = db
	return performAutoMigration(db, "Postgres", redactDSN(cfg.DSN))
}

// Name returns the backend name
func (store *PostgresStore) Name() string {
	return conf.CacheBackendPostgres
}

// redactDSN returns host and database of a URL DSN without credentials
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "postgres"
	}
	return u.Host + u.Path
}
