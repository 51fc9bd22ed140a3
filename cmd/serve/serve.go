package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/dogbreed-go/internal/api"
	"github.com/tphakala/dogbreed-go/internal/app"
	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/logger"
)

// Command creates the command that runs the prediction HTTP API.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the prediction HTTP API",
		Long:  "Load the detection and classification models, open the result cache and serve POST /predict until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings)
		},
	}

	return cmd
}

// Run assembles the service and serves until ctx is cancelled
func Run(ctx context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("serve")

	a, err := app.New(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("error releasing resources", logger.Error(err))
		}
	}()

	opts := []api.ServerOption{
		api.WithPredictor(a.Service),
		api.WithCacheProbe(a.Cache),
		api.WithMetricsHandler(a.Metrics.Handler()),
	}
	if breeds := a.Breeds(); breeds != nil {
		opts = append(opts, api.WithBreeds(breeds))
	}

	server, err := api.New(settings, opts...)
	if err != nil {
		return err
	}

	if !a.Service.Ready() {
		log.Warn("models are not loaded, predictions will fail until the service is restarted with valid model paths")
	}

	return server.Run(ctx)
}
