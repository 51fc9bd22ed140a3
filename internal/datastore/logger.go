package datastore

import (
	"time"

	"github.com/tphakala/dogbreed-go/internal/logger"
)

// slowQueryThreshold marks queries logged at WARN
const slowQueryThreshold = 200 * time.Millisecond

// GetLogger returns the datastore module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

func newGormLogger() *logger.GormLoggerAdapter {
	return logger.NewGormLoggerAdapter(GetLogger().Module("gorm"), slowQueryThreshold)
}
