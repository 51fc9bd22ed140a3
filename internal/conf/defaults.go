package conf

import (
	"github.com/spf13/viper"

	"github.com/tphakala/dogbreed-go/internal/buildinfo"
)

// Cache backend names
const (
	CacheBackendSQLite   = "sqlite"
	CacheBackendMySQL    = "mysql"
	CacheBackendPostgres = "postgres"
	CacheBackendMemory   = "memory"
	CacheBackendNone     = "none"
)

// Model backend names
const (
	ModelBackendTFLite = "tflite"
	ModelBackendONNX   = "onnx"
)

// Classifier normalisation schemes
const (
	NormalizeNone     = "none"
	NormalizeImageNet = "imagenet"
)

// setDefaultConfig sets default values for every configuration key
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	// Logging
	v.SetDefault("log.defaultlevel", "info")
	v.SetDefault("log.timezone", "Local")
	v.SetDefault("log.console.enabled", true)
	v.SetDefault("log.console.level", "info")
	v.SetDefault("log.fileoutput.enabled", false)
	v.SetDefault("log.fileoutput.path", "logs/dogbreed.log")
	v.SetDefault("log.fileoutput.level", "info")

	// HTTP server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowedorigins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.readtimeout", "30s")
	v.SetDefault("server.writetimeout", "60s")
	v.SetDefault("server.bodylimit", "1M")
	v.SetDefault("server.shutdowntimeout", "10s")
	v.SetDefault("server.ratelimit.enabled", false)
	v.SetDefault("server.ratelimit.rate", 10.0)
	v.SetDefault("server.ratelimit.burst", 20)

	// Image fetch
	v.SetDefault("fetch.timeout", "15s")
	v.SetDefault("fetch.maxbytes", 20*1024*1024)
	v.SetDefault("fetch.useragent", "dogbreed-go/"+buildinfo.Version)

	// Result cache
	v.SetDefault("cache.backend", CacheBackendSQLite)
	v.SetDefault("cache.timeout", "5s")
	v.SetDefault("cache.sqlite.path", "dogbreed.db")
	v.SetDefault("cache.mysql.host", "localhost")
	v.SetDefault("cache.mysql.port", "3306")
	v.SetDefault("cache.mysql.username", "")
	v.SetDefault("cache.mysql.password", "")
	v.SetDefault("cache.mysql.passwordfile", "")
	v.SetDefault("cache.mysql.database", "dogbreed")
	v.SetDefault("cache.postgres.dsn", "")
	v.SetDefault("cache.postgres.dsnfile", "")
	v.SetDefault("cache.postgres.maxopenconns", 10)
	v.SetDefault("cache.postgres.connmaxlifetime", "1h")
	v.SetDefault("cache.memory.enabled", true)
	v.SetDefault("cache.memory.ttl", "1h")
	v.SetDefault("cache.memory.cleanupinterval", "10m")

	// Dog detector
	v.SetDefault("detector.backend", ModelBackendTFLite)
	v.SetDefault("detector.modelpath", "models/yolov8n_float32.tflite")
	v.SetDefault("detector.labelspath", "")
	v.SetDefault("detector.doglabel", "dog")
	v.SetDefault("detector.minconfidence", 0.25)
	v.SetDefault("detector.inputsize", 640)
	v.SetDefault("detector.threads", 0)
	v.SetDefault("detector.onnx.inputname", "images")
	v.SetDefault("detector.onnx.outputname", "output0")

	// Breed classifier
	v.SetDefault("classifier.backend", ModelBackendTFLite)
	v.SetDefault("classifier.modelpath", "models/dog_breed_convnext.tflite")
	v.SetDefault("classifier.labelspath", "models/labels.json")
	v.SetDefault("classifier.inputsize", 224)
	v.SetDefault("classifier.normalize", NormalizeNone)
	v.SetDefault("classifier.threads", 0)
	v.SetDefault("classifier.onnx.inputname", "input")
	v.SetDefault("classifier.onnx.outputname", "output")

	// Telemetry
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.dsnfile", "")

	v.SetDefault("metrics.enabled", true)
}
