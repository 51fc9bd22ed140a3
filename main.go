package main

import (
	"context"
	"os"
	"time"

	"github.com/tphakala/dogbreed-go/cmd"
	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	settings := &conf.Settings{}
	rootCmd := cmd.RootCommand(settings)

	err := rootCmd.ExecuteContext(context.Background())

	if settings.Sentry.Enabled {
		errors.FlushSentry(2 * time.Second)
	}
	_ = logger.Global().Close()

	if err != nil {
		return 1
	}
	return 0
}
