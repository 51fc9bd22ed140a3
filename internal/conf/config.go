// Package conf loads service settings from config.yaml, .env files and
// DOGBREED_* environment variables.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tphakala/dogbreed-go/internal/logger"
	"github.com/tphakala/dogbreed-go/internal/secrets"
)

// Settings contains all configuration options for the service
type Settings struct {
	Debug bool `yaml:"debug"`

	Log        logger.LoggingConfig `yaml:"log"`
	Server     ServerSettings       `yaml:"server"`
	Fetch      FetchSettings        `yaml:"fetch"`
	Cache      CacheSettings        `yaml:"cache"`
	Detector   DetectorSettings     `yaml:"detector"`
	Classifier ClassifierSettings   `yaml:"classifier"`
	Sentry     SentrySettings       `yaml:"sentry"`
	Metrics    MetricsSettings      `yaml:"metrics"`
}

// ServerSettings configures the HTTP API
type ServerSettings struct {
	Host            string            `yaml:"host"`
	Port            int               `yaml:"port"`
	AllowedOrigins  []string          `yaml:"allowedorigins"`  // CORS origins
	ReadTimeout     time.Duration     `yaml:"readtimeout"`     // maximum duration for reading a request
	WriteTimeout    time.Duration     `yaml:"writetimeout"`    // maximum duration for writing a response
	BodyLimit       string            `yaml:"bodylimit"`       // echo body limit, e.g. "1M"
	ShutdownTimeout time.Duration     `yaml:"shutdowntimeout"` // graceful shutdown window
	RateLimit       RateLimitSettings `yaml:"ratelimit"`
}

// RateLimitSettings configures per-client request throttling
type RateLimitSettings struct {
	Enabled bool    `yaml:"enabled"`
	Rate    float64 `yaml:"rate"`  // requests per second per client IP
	Burst   int     `yaml:"burst"` // burst size
}

// FetchSettings configures image downloads
type FetchSettings struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"maxbytes"` // 0 disables the size limit
	UserAgent string        `yaml:"useragent"`
}

// CacheSettings configures the prediction result cache
type CacheSettings struct {
	Backend  string           `yaml:"backend"` // sqlite, mysql, postgres, memory or none
	Timeout  time.Duration    `yaml:"timeout"` // bound on each lookup and insert
	SQLite   SQLiteSettings   `yaml:"sqlite"`
	MySQL    MySQLSettings    `yaml:"mysql"`
	Postgres PostgresSettings `yaml:"postgres"`
	Memory   MemorySettings   `yaml:"memory"`
}

// SQLiteSettings configures the SQLite cache store
type SQLiteSettings struct {
	Path string `yaml:"path"`
}

// MySQLSettings configures the MySQL cache store
type MySQLSettings struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`     // may reference ${ENV_VARS}
	PasswordFile string `yaml:"passwordfile"` // overrides Password with the file content
	Database     string `yaml:"database"`
}

// PostgresSettings configures the Postgres cache store. Any libpq or URL
// style DSN accepted by pgx works, including Supabase connection strings.
type PostgresSettings struct {
	DSN             string        `yaml:"dsn"`
	DSNFile         string        `yaml:"dsnfile"` // overrides DSN with the file content
	MaxOpenConns    int           `yaml:"maxopenconns"`
	ConnMaxLifetime time.Duration `yaml:"connmaxlifetime"`
}

// MemorySettings configures the in-process front tier of the cache
type MemorySettings struct {
	Enabled         bool          `yaml:"enabled"`
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanupinterval"`
}

// DetectorSettings configures the dog detection model
type DetectorSettings struct {
	Backend       string  `yaml:"backend"` // tflite or onnx
	ModelPath     string  `yaml:"modelpath"`
	LabelsPath    string  `yaml:"labelspath"` // optional; COCO labels are used when empty
	DogLabel      string  `yaml:"doglabel"`
	MinConfidence float64 `yaml:"minconfidence"`
	InputSize     int     `yaml:"inputsize"`
	Threads       int     `yaml:"threads"` // 0 picks a default for the host CPU
	ONNX          ONNXIO  `yaml:"onnx"`
}

// ONNXIO names the graph input and output used by the onnx backend
type ONNXIO struct {
	InputName  string `yaml:"inputname"`
	OutputName string `yaml:"outputname"`
}

// ClassifierSettings configures the breed classification model
type ClassifierSettings struct {
	Backend    string `yaml:"backend"` // tflite or onnx
	ModelPath  string `yaml:"modelpath"`
	LabelsPath string `yaml:"labelspath"`
	InputSize  int    `yaml:"inputsize"`
	Normalize  string `yaml:"normalize"` // none or imagenet
	Threads    int    `yaml:"threads"`
	ONNX       ONNXIO `yaml:"onnx"`
}

// SentrySettings configures optional error telemetry
type SentrySettings struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	DSNFile string `yaml:"dsnfile"`
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool `yaml:"enabled"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration into a Settings instance using the global viper,
// so cobra flags bound with viper.BindPFlags take effect.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := loadFrom(viper.GetViper(), GetDefaultConfigPaths())
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settings, nil
}

// loadFrom performs the full load sequence against v
func loadFrom(v *viper.Viper, configPaths []string) (*Settings, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	if err := initViper(v, configPaths); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := configureEnvironmentVariables(v); err != nil {
		return nil, fmt.Errorf("error configuring environment: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper registers defaults and reads config.yaml if one exists.
// A missing config file is not an error; defaults and environment apply.
func initViper(v *viper.Viper, configPaths []string) error {
	setDefaultConfig(v)

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range configPaths {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Debug("loaded configuration file", logger.String("path", v.ConfigFileUsed()))
	return nil
}

// resolveSecrets replaces credentials with the content of their *file
// counterparts and expands ${VAR} references
func resolveSecrets(settings *Settings) error {
	targets := []struct {
		name  string
		file  string
		value *string
	}{
		{"cache.mysql.password", settings.Cache.MySQL.PasswordFile, &settings.Cache.MySQL.Password},
		{"cache.postgres.dsn", settings.Cache.Postgres.DSNFile, &settings.Cache.Postgres.DSN},
		{"sentry.dsn", settings.Sentry.DSNFile, &settings.Sentry.DSN},
	}

	for _, t := range targets {
		resolved, err := secrets.Resolve(t.file, *t.value)
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		*t.value = resolved
	}
	return nil
}

// loadDotEnv loads a .env file from the working directory, if present.
// Variables already set in the environment win.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error loading .env file: %w", err)
}

// GetDefaultConfigPaths returns the directories searched for config.yaml
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "dogbreed"))
	}
	return append(paths, "/etc/dogbreed")
}

// GetSettings returns the settings from the last successful Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Address returns host:port for the HTTP listener
func (s *ServerSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendName returns the normalised cache backend name
func (c *CacheSettings) BackendName() string {
	return strings.ToLower(strings.TrimSpace(c.Backend))
}

// Defaults returns settings built from the registered defaults alone,
// ignoring config files and the environment.
func Defaults() (*Settings, error) {
	v := viper.New()
	setDefaultConfig(v)

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling defaults: %w", err)
	}
	return settings, nil
}
