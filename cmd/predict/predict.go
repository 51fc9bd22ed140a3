package predict

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/dogbreed-go/internal/app"
	"github.com/tphakala/dogbreed-go/internal/classifier"
	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/logger"
)

// Result is the outcome of one prediction
type Result struct {
	URL   string
	Label int
	Err   error
}

// Command creates the command that predicts breeds for image URLs without
// starting the HTTP API.
func Command(settings *conf.Settings) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "predict <image-url>...",
		Short: "Predict the breed of the dog in one or more images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Global().Module("predict").Warn("error releasing resources", logger.Error(err))
				}
			}()

			results := Run(cmd.Context(), a.Predict, args, concurrency)
			return Print(cmd.OutOrStdout(), results, a.Breeds())
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Number of images processed in parallel")

	return cmd
}

// Run predicts every url with at most concurrency predictions in flight.
// Results keep the order of urls.
func Run(ctx context.Context, predict func(context.Context, string) (int, error), urls []string, concurrency int) []Result {
	results := make([]Result, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, url := range urls {
		g.Go(func() error {
			label, err := predict(gctx, url)
			results[i] = Result{URL: url, Label: label, Err: err}
			// one failed image does not cancel the others
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Print writes one line per result and returns an error when any failed
func Print(w io.Writer, results []Result, breeds classifier.Labels) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\terror: %v\n", r.URL, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", r.URL, r.Label, breeds.Name(r.Label))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d predictions failed", failed, len(results))
	}
	return nil
}
