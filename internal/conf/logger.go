package conf

import "github.com/tphakala/dogbreed-go/internal/logger"

// GetLogger returns the configuration module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("conf")
}
