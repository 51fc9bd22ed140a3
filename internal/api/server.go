package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/dogbreed-go/internal/api/middleware"
	"github.com/tphakala/dogbreed-go/internal/buildinfo"
	"github.com/tphakala/dogbreed-go/internal/classifier"
	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/logger"
)

// Predictor runs the prediction pipeline
type Predictor interface {
	Predict(ctx context.Context, imageURL string) (int, error)
	Ready() bool
}

// BreedCatalog lists the breed taxonomy
type BreedCatalog interface {
	Breeds() []classifier.Breed
	Breed(label int) (classifier.Breed, bool)
}

// CacheProbe reports on the result cache
type CacheProbe interface {
	Ping(ctx context.Context) error
	Backend() string
}

// Server is the HTTP server of the prediction service.
// It manages the Echo framework instance, middleware, and all HTTP routes.
type Server struct {
	echo   *echo.Echo
	config *Config
	log    logger.Logger

	// Dependencies
	predictor      Predictor
	breeds         BreedCatalog
	cache          CacheProbe
	metricsHandler http.Handler

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithPredictor sets the prediction pipeline.
func WithPredictor(p Predictor) ServerOption {
	return func(s *Server) {
		s.predictor = p
	}
}

// WithBreeds sets the breed taxonomy served under /api/v1/breeds.
func WithBreeds(b BreedCatalog) ServerOption {
	return func(s *Server) {
		s.breeds = b
	}
}

// WithCacheProbe sets the cache reported by the health check.
func WithCacheProbe(c CacheProbe) ServerOption {
	return func(s *Server) {
		s.cache = c
	}
}

// WithMetricsHandler sets the handler mounted at /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// WithLogger replaces the api module logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	return NewWithConfig(ConfigFromSettings(settings), opts...)
}

// NewWithConfig creates a server from an explicit Config.
func NewWithConfig(config *Config, opts ...ServerOption) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s := &Server{
		config:    config,
		log:       GetLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.HTTPErrorHandler = s.handleError

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("rate_limit", config.RateLimitEnabled),
		logger.Bool("metrics", config.MetricsEnabled && s.metricsHandler != nil))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewTraceID())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, func(c echo.Context) bool {
		return c.Path() == "/health" || c.Path() == "/metrics"
	}))

	securityConfig := mw.SecurityConfig{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowCredentials: true,
		HSTSMaxAge:       mw.HSTSMaxAge,
	}
	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/", s.welcome)
	s.echo.GET("/health", s.healthCheck)

	predict := []echo.MiddlewareFunc{}
	if s.config.RateLimitEnabled {
		predict = append(predict, mw.NewRateLimiter(s.config.RateLimit, s.config.RateBurst, nil))
	}
	s.echo.POST("/predict", s.predict, predict...)

	v1 := s.echo.Group("/api/v1")
	v1.GET("/breeds", s.listBreeds)
	v1.GET("/breeds/:label", s.getBreed)

	if s.config.MetricsEnabled && s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.echo.Listener = listener
	s.log.Info("starting HTTP server", logger.String("address", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start("")
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if err := s.Shutdown(); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ServeHTTP lets the server be used as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// healthCheck reports models, cache and build state. Missing models make
// the service unhealthy; an unreachable cache only degrades it.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	info := buildinfo.Current()

	modelsReady := s.predictor != nil && s.predictor.Ready()
	cache := map[string]any{"backend": "none", "ok": true}
	if s.cache != nil {
		cache["backend"] = s.cache.Backend()
		if err := s.cache.Ping(c.Request().Context()); err != nil {
			// the error can name internal hosts, so it only goes to the log
			cache["ok"] = false
			s.log.WithContext(c.Request().Context()).Warn("cache health check failed", logger.Error(err))
		}
	}

	status, code := "healthy", http.StatusOK
	switch {
	case !modelsReady:
		status, code = "unhealthy", http.StatusServiceUnavailable
	case cache["ok"] == false:
		status = "degraded"
	}

	return c.JSON(code, map[string]any{
		"status":         status,
		"version":        info.Version,
		"build_date":     info.BuildDate,
		"models_ready":   modelsReady,
		"cache":          cache,
		"uptime":         uptime.Round(time.Second).String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}
