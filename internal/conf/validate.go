package conf

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/tphakala/dogbreed-go/internal/logger"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) []string{
		validateLogSettings,
		validateServerSettings,
		validateFetchSettings,
		validateCacheSettings,
		validateDetectorSettings,
		validateClassifierSettings,
		validateSentrySettings,
	} {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLogSettings(s *Settings) []string {
	var errs []string
	if s.Log.DefaultLevel != "" && !logger.ValidLevel(s.Log.DefaultLevel) {
		errs = append(errs, fmt.Sprintf("log level %q is not one of trace, debug, info, warn, error", s.Log.DefaultLevel))
	}
	if s.Log.FileOutput != nil && s.Log.FileOutput.Enabled && s.Log.FileOutput.Path == "" {
		errs = append(errs, "log file output is enabled but no path is set")
	}
	return errs
}

func validateServerSettings(s *Settings) []string {
	var errs []string
	if s.Server.Port < 1 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server port must be between 1 and 65535, got %d", s.Server.Port))
	}
	if s.Server.ShutdownTimeout < 0 {
		errs = append(errs, "server shutdown timeout must not be negative")
	}
	for _, origin := range s.Server.AllowedOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("allowed origin %q must be a scheme://host[:port] URL", origin))
		}
	}
	if s.Server.RateLimit.Enabled && (s.Server.RateLimit.Rate <= 0 || s.Server.RateLimit.Burst < 1) {
		errs = append(errs, "rate limit requires a positive rate and a burst of at least 1")
	}
	return errs
}

func validateFetchSettings(s *Settings) []string {
	var errs []string
	if s.Fetch.Timeout <= 0 {
		errs = append(errs, "fetch timeout must be positive so image downloads cannot block forever")
	}
	if s.Fetch.MaxBytes < 0 {
		errs = append(errs, "fetch max bytes must not be negative")
	}
	return errs
}

func isValidCacheBackend(backend string) bool {
	return slices.Contains([]string{
		CacheBackendSQLite, CacheBackendMySQL, CacheBackendPostgres, CacheBackendMemory, CacheBackendNone,
	}, backend)
}

func validateCacheSettings(s *Settings) []string {
	var errs []string
	backend := s.Cache.BackendName()
	if !isValidCacheBackend(backend) {
		errs = append(errs, fmt.Sprintf("unknown cache backend %q", s.Cache.Backend))
	}
	if s.Cache.Timeout <= 0 {
		errs = append(errs, "cache timeout must be positive")
	}

	switch backend {
	case CacheBackendSQLite:
		if s.Cache.SQLite.Path == "" {
			errs = append(errs, "sqlite cache backend requires cache.sqlite.path")
		}
	case CacheBackendMySQL:
		if s.Cache.MySQL.Host == "" || s.Cache.MySQL.Database == "" {
			errs = append(errs, "mysql cache backend requires cache.mysql.host and cache.mysql.database")
		}
	case CacheBackendPostgres:
		if s.Cache.Postgres.DSN == "" {
			errs = append(errs, "postgres cache backend requires cache.postgres.dsn or DATABASE_URL")
		}
	case CacheBackendMemory:
		if !s.Cache.Memory.Enabled {
			errs = append(errs, "memory cache backend requires cache.memory.enabled")
		}
	}

	if s.Cache.Memory.Enabled && s.Cache.Memory.TTL < 0 {
		errs = append(errs, "cache memory ttl must not be negative")
	}
	return errs
}

func validateModelBackend(section, backend string) []string {
	switch strings.ToLower(backend) {
	case ModelBackendTFLite, ModelBackendONNX:
		return nil
	}
	return []string{fmt.Sprintf("%s backend must be %q or %q, got %q", section, ModelBackendTFLite, ModelBackendONNX, backend)}
}

func validateDetectorSettings(s *Settings) []string {
	errs := validateModelBackend("detector", s.Detector.Backend)
	if s.Detector.ModelPath == "" {
		errs = append(errs, "detector model path is required")
	}
	if strings.TrimSpace(s.Detector.DogLabel) == "" {
		errs = append(errs, "detector dog label must not be empty")
	}
	if s.Detector.MinConfidence < 0 || s.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Sprintf("detector min confidence must be between 0 and 1, got %g", s.Detector.MinConfidence))
	}
	if s.Detector.InputSize < 32 {
		errs = append(errs, fmt.Sprintf("detector input size must be at least 32, got %d", s.Detector.InputSize))
	}
	if s.Detector.Threads < 0 {
		errs = append(errs, "detector threads must not be negative")
	}
	return errs
}

func validateClassifierSettings(s *Settings) []string {
	errs := validateModelBackend("classifier", s.Classifier.Backend)
	if s.Classifier.ModelPath == "" {
		errs = append(errs, "classifier model path is required")
	}
	if s.Classifier.LabelsPath == "" {
		errs = append(errs, "classifier labels path is required")
	}
	if s.Classifier.InputSize < 1 {
		errs = append(errs, fmt.Sprintf("classifier input size must be positive, got %d", s.Classifier.InputSize))
	}
	switch strings.ToLower(s.Classifier.Normalize) {
	case "", NormalizeNone, NormalizeImageNet:
	default:
		errs = append(errs, fmt.Sprintf("classifier normalize must be %q or %q, got %q", NormalizeNone, NormalizeImageNet, s.Classifier.Normalize))
	}
	if s.Classifier.Threads < 0 {
		errs = append(errs, "classifier threads must not be negative")
	}
	return errs
}

func validateSentrySettings(s *Settings) []string {
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		return []string{"sentry is enabled but no DSN is configured"}
	}
	return nil
}
