package migrate

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/datastore"
	"github.com/tphakala/dogbreed-go/internal/errors"
)

// Command creates the command that creates or upgrades the image_logs schema.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the result cache schema",
		Long:  "Connect to the configured cache database, apply the image_logs schema and report the number of stored verdicts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), settings, cmd.OutOrStdout())
		},
	}

	return cmd
}

// Run migrates the configured store and prints its row count
func Run(ctx context.Context, settings *conf.Settings, w io.Writer) error {
	store, err := datastore.New(settings)
	if errors.Is(err, datastore.ErrNoPersistentStore) {
		fmt.Fprintf(w, "cache backend %q has no schema to migrate\n", settings.Cache.BackendName())
		return nil
	}
	if err != nil {
		return err
	}

	if err := store.Open(); err != nil {
		_ = store.Close()
		return err
	}
	defer store.Close()

	timeout := settings.Cache.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s schema is up to date, %d image logs stored\n", store.Name(), count)
	return nil
}
