// Package datastore persists prediction outcomes in SQLite, MySQL or
// Postgres through GORM.
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/logger"
)

// ErrNoPersistentStore is returned by New for cache backends that keep
// nothing on disk
var ErrNoPersistentStore = errors.NewStd("cache backend has no persistent store")

// Interface abstracts the database holding image_logs.
type Interface interface {
	// Open connects and migrates the schema
	Open() error
	// Lookup returns the row for hash, or nil when none exists
	Lookup(ctx context.Context, hash string) (*ImageLog, error)
	// Insert stores row. A row with the same hash already present is a no-op.
	Insert(ctx context.Context, row *ImageLog) error
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
	// Name identifies the backend in logs and metrics
	Name() string
}

// DataStore implements the shared Interface methods over a GORM handle.
type DataStore struct {
	DB *gorm.DB
}

// New returns an unopened store for the configured cache backend
func New(settings *conf.Settings) (Interface, error) {
	switch settings.Cache.BackendName() {
	case conf.CacheBackendSQLite:
		return &SQLiteStore{Settings: settings}, nil
	case conf.CacheBackendMySQL:
		return &MySQLStore{Settings: settings}, nil
	case conf.CacheBackendPostgres:
		return &PostgresStore{Settings: settings}, nil
	case conf.CacheBackendMemory, conf.CacheBackendNone:
		return nil, ErrNoPersistentStore
	default:
		return nil, errors.Newf("unknown cache backend %q", settings.Cache.Backend).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         newGormLogger(),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	}
}

// Lookup returns the oldest row for hash. Duplicate rows left over from
// stores without a unique index carry the same outcome, so id order only
// makes the choice deterministic.
func (ds *DataStore) Lookup(ctx context.Context, hash string) (*ImageLog, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}

	var row ImageLog
	err := ds.DB.WithContext(ctx).
		Where("image_hash = ?", hash).
		Order("id ASC").
		First(&row).Error
	switch {
	case err == nil:
		return &row, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "lookup_image_log").
			Build()
	}
}

// Insert stores row, ignoring conflicts on image_hash
func (ds *DataStore) Insert(ctx context.Context, row *ImageLog) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	if row == nil {
		return errors.NewStd("nil image log")
	}

	err := ds.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "image_hash"}},
			DoNothing: true,
		}).
		Create(row).Error
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "insert_image_log").
			Context("is_dog", row.IsDog).
			Build()
	}
	return nil
}

// Count returns the number of stored rows
func (ds *DataStore) Count(ctx context.Context) (int64, error) {
	if ds.DB == nil {
		return 0, errNotOpen()
	}
	var n int64
	if err := ds.DB.WithContext(ctx).Model(&ImageLog{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting image logs: %w", err)
	}
	return n, nil
}

// Ping verifies the database connection
func (ds *DataStore) Ping(ctx context.Context) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("retrieving sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("retrieving sql.DB: %w", err)
	}
	ds.DB = nil
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// performAutoMigration creates or upgrades the image_logs table
func performAutoMigration(db *gorm.DB, dbType, connectionInfo string) error {
	start := time.Now()
	if err := db.AutoMigrate(&ImageLog{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("db_type", dbType).
			Build()
	}

	GetLogger().Debug("database schema ready",
		logger.String("db_type", dbType),
		logger.String("connection", connectionInfo),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func errNotOpen() error {
	return errors.Newf("database connection is not initialized").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()
}
