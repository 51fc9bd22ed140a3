package prediction

import (
	"fmt"

	"github.com/tphakala/dogbreed-go/internal/errors"
)

// Sentinels for the prediction failure taxonomy. Every error returned by
// Service.Predict wraps exactly one of the fatal ones, so callers classify
// failures with errors.Is.
var (
	// ErrRetrieval means the image could not be downloaded
	ErrRetrieval = errors.NewStd("image retrieval failed")
	// ErrDecode means the downloaded bytes are not a supported image
	ErrDecode = errors.NewStd("image decode failed")
	// ErrNoDogDetected is the domain outcome for images without a dog.
	// Its message is shown to API clients verbatim.
	ErrNoDogDetected = errors.NewStd("No dog detected in the image.")
	// ErrModelUnavailable means a model is not loaded or failed to run
	ErrModelUnavailable = errors.NewStd("model or labels not loaded")
	// ErrCacheUnavailable marks cache failures. It is only logged.
	ErrCacheUnavailable = errors.NewStd("result cache unavailable")
)

// wrap ties cause to a taxonomy sentinel and records it as an EnhancedError
func wrap(sentinel, cause error, category errors.ErrorCategory) *errors.EnhancedError {
	return newError(sentinel, cause, category).Build()
}

// newError is wrap for callers that add context before building
func newError(sentinel, cause error, category errors.ErrorCategory) *errors.ErrorBuilder {
	var err error = sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return errors.New(err).
		Component("prediction").
		Category(category)
}
