package config

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/dogbreed-go/internal/conf"
)

const redacted = "[redacted]"

// Command creates the command that prints the effective configuration.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long:  "Print the configuration after defaults, config.yaml, .env, environment variables and flags are applied. Secrets are redacted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Write(cmd.OutOrStdout(), settings)
		},
	}

	return cmd
}

// Write encodes settings as YAML with credentials redacted
func Write(w io.Writer, settings *conf.Settings) error {
	out := *settings
	if out.Cache.MySQL.Password != "" {
		out.Cache.MySQL.Password = redacted
	}
	if out.Cache.Postgres.DSN != "" {
		out.Cache.Postgres.DSN = redacted
	}
	if out.Sentry.DSN != "" {
		out.Sentry.DSN = redacted
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("error encoding configuration: %w", err)
	}
	return enc.Close()
}
