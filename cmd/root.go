package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/dogbreed-go/cmd/config"
	"github.com/tphakala/dogbreed-go/cmd/migrate"
	"github.com/tphakala/dogbreed-go/cmd/predict"
	"github.com/tphakala/dogbreed-go/cmd/serve"
	"github.com/tphakala/dogbreed-go/internal/buildinfo"
	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/logger"
	"github.com/tphakala/dogbreed-go/internal/privacy"
)

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "dogbreed",
		Short:        "Dog breed prediction service",
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		predict.Command(settings),
		migrate.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			viper.SetConfigFile(configFile)
		}
		return initialize(settings)
	}

	return rootCmd
}

// initialize loads configuration and sets up logging and telemetry
func initialize(settings *conf.Settings) error {
	loaded, err := conf.Load()
	if err != nil {
		return err
	}
	*settings = *loaded

	if settings.Debug {
		settings.Log.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Log.Console != nil {
			settings.Log.Console.Level = string(logger.LogLevelDebug)
		}
	}

	cl, err := logger.NewCentralLogger(&settings.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	previous := logger.Global()
	logger.SetGlobal(cl)
	_ = previous.Close()

	if settings.Sentry.Enabled {
		errors.SetPrivacyScrubber(privacy.ScrubMessage)
		if err := errors.InitSentry(settings.Sentry.DSN, buildinfo.Version, settings.Debug); err != nil {
			cl.Module("main").Warn("error telemetry disabled", logger.Error(err))
		}
	}

	return nil
}

// setupFlags defines global flags and binds them to their configuration keys
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("host", "", "Address the HTTP API listens on")
	flags.Int("port", 0, "Port the HTTP API listens on")
	flags.String("cache", "", "Result cache backend (sqlite, mysql, postgres, memory, none)")
	flags.String("detector-model", "", "Path to the dog detection model")
	flags.String("classifier-model", "", "Path to the breed classification model")
	flags.String("labels", "", "Path to the breed labels file")

	bindings := map[string]string{
		"debug":                 "debug",
		"server.host":           "host",
		"server.port":           "port",
		"cache.backend":         "cache",
		"detector.modelpath":    "detector-model",
		"classifier.modelpath":  "classifier-model",
		"classifier.labelspath": "labels",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}

	return nil
}
