package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all automatically mapped environment variables
const EnvPrefix = "DOGBREED"

// envBinding holds metadata for an explicit environment variable binding
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVars   []string           // Environment variable names, first wins
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicitly bound and validated variables.
// Everything else is reachable through DOGBREED_<SECTION>_<KEY>.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", []string{"DOGBREED_DEBUG"}, validateEnvBool},
		{"server.port", []string{"DOGBREED_SERVER_PORT", "PORT"}, validateEnvPort},
		{"server.host", []string{"DOGBREED_SERVER_HOST"}, nil},
		{"fetch.timeout", []string{"DOGBREED_FETCH_TIMEOUT"}, validateEnvDuration},
		{"cache.backend", []string{"DOGBREED_CACHE_BACKEND"}, validateEnvCacheBackend},
		{"cache.timeout", []string{"DOGBREED_CACHE_TIMEOUT"}, validateEnvDuration},
		{"cache.postgres.dsn", []string{"DOGBREED_CACHE_POSTGRES_DSN", "DATABASE_URL"}, validateEnvDSN},
		{"cache.mysql.password", []string{"DOGBREED_CACHE_MYSQL_PASSWORD", "MYSQL_PASSWORD"}, nil},
		{"cache.mysql.passwordfile", []string{"DOGBREED_CACHE_MYSQL_PASSWORDFILE", "MYSQL_PASSWORD_FILE"}, validateEnvPath},
		{"cache.postgres.dsnfile", []string{"DOGBREED_CACHE_POSTGRES_DSNFILE", "DATABASE_URL_FILE"}, validateEnvPath},
		{"detector.modelpath", []string{"DOGBREED_DETECTOR_MODELPATH"}, validateEnvPath},
		{"detector.minconfidence", []string{"DOGBREED_DETECTOR_MINCONFIDENCE"}, validateEnvProbability},
		{"classifier.modelpath", []string{"DOGBREED_CLASSIFIER_MODELPATH"}, validateEnvPath},
		{"classifier.labelspath", []string{"DOGBREED_CLASSIFIER_LABELSPATH"}, validateEnvPath},
		{"sentry.dsn", []string{"DOGBREED_SENTRY_DSN", "SENTRY_DSN"}, nil},
		{"sentry.dsnfile", []string{"DOGBREED_SENTRY_DSNFILE", "SENTRY_DSN_FILE"}, validateEnvPath},
	}
}

// configureEnvironmentVariables enables DOGBREED_* mapping and the explicit bindings
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return bindEnvVars(v)
}

// bindEnvVars binds every entry of getEnvBindings and validates values that are set
func bindEnvVars(v *viper.Viper) error {
	var problems []string

	for _, binding := range getEnvBindings() {
		args := append([]string{binding.ConfigKey}, binding.EnvVars...)
		if err := v.BindEnv(args...); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", binding.ConfigKey, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		for _, name := range binding.EnvVars {
			value := os.Getenv(name)
			if value == "" {
				continue
			}
			if err := binding.Validate(value); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value: %v", name, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f, got %q", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("port must be a number, got %q", value)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value, err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvProbability(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", value, err)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("must be between 0 and 1, got %g", f)
	}
	return nil
}

func validateEnvCacheBackend(value string) error {
	if !isValidCacheBackend(strings.ToLower(value)) {
		return fmt.Errorf("unknown cache backend %q", value)
	}
	return nil
}

// validateEnvDSN accepts postgres:// URLs and key=value DSNs
func validateEnvDSN(value string) error {
	if strings.Contains(value, "://") {
		u, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("malformed DSN URL: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("DSN scheme must be postgres or postgresql, got %q", u.Scheme)
		}
		return nil
	}
	if !strings.Contains(value, "=") {
		return fmt.Errorf("DSN must be a URL or key=value list")
	}
	return nil
}

func validateEnvPath(value string) error {
	for _, part := range strings.Split(value, string(os.PathSeparator)) {
		if part == ".." {
			return fmt.Errorf("path traversal detected: %s", value)
		}
	}
	return nil
}
