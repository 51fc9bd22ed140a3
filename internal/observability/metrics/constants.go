// Package metrics provides the Prometheus collectors for the prediction service.
package metrics

// Prediction outcomes
const (
	OutcomeSuccess          = "success"
	OutcomeCacheHit         = "cache_hit"
	OutcomeNoDog            = "no_dog"
	OutcomeRetrievalError   = "retrieval_error"
	OutcomeDecodeError      = "decode_error"
	OutcomeModelUnavailable = "model_unavailable"
	OutcomeError            = "error"
)

// Pipeline stages
const (
	StageFetch      = "fetch"
	StageLookup     = "cache_lookup"
	StageDecode     = "decode"
	StageDetect     = "detect"
	StagePreprocess = "preprocess"
	StageClassify   = "classify"
	StageTotal      = "total"
)

// Cache operations and results
const (
	CacheOpLookup = "lookup"
	CacheOpInsert = "insert"

	CacheResultHit   = "hit"
	CacheResultMiss  = "miss"
	CacheResultOK    = "ok"
	CacheResultError = "error"
)

// Model names used as label values
const (
	ModelDetector   = "detector"
	ModelClassifier = "classifier"
)
