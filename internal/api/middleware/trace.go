package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/dogbreed-go/internal/logger"
)

// HeaderRequestID carries the trace ID in requests and responses
const HeaderRequestID = echo.HeaderXRequestID

// NewTraceID tags every request with a trace ID. An incoming
// X-Request-ID is kept when it parses as a UUID.
func NewTraceID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			traceID := c.Request().Header.Get(HeaderRequestID)
			if _, err := uuid.Parse(traceID); err != nil {
				traceID = uuid.NewString()
			}

			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), traceID)))
			c.Response().Header().Set(HeaderRequestID, traceID)
			return next(c)
		}
	}
}
