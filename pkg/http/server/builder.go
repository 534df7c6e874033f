package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Option func(*Options)

type Options struct {
	port          int
	logger        *zap.Logger
	corsOrigins   string
	enableLogging bool
	readTimeout   time.Duration
	writeTimeout  time.Duration
	bodyLimit     int
}

// WithPort sets the listening port. Port 0 picks a free port.
func WithPort(port int) Option {
	return func(o *Options) {
		o.port = port
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

// WithCORSOrigins sets the comma separated list of allowed origins.
func WithCORSOrigins(origins string) Option {
	return func(o *Options) {
		o.corsOrigins = origins
	}
}

func WithLogging(enabled bool) Option {
	return func(o *Options) {
		o.enableLogging = enabled
	}
}

func WithTimeouts(read, write time.Duration) Option {
	return func(o *Options) {
		o.readTimeout = read
		o.writeTimeout = write
	}
}

func WithBodyLimit(bytes int) Option {
	return func(o *Options) {
		o.bodyLimit = bytes
	}
}

// Server wraps a Fiber application bound to its own listener.
type Server struct {
	app    *fiber.App
	lis    net.Listener
	logger *zap.Logger
}

// New creates the Fiber app with the standard middleware stack and binds
// the listener. Routes are added through Router before Start.
func New(opts ...Option) (*Server, error) {
	options := &Options{
		port:         8000,
		logger:       zap.NewNop(),
		corsOrigins:  "*",
		readTimeout:  15 * time.Second,
		writeTimeout: 15 * time.Second,
		bodyLimit:    1 << 20,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.port < 0 || options.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 0 and 65535", options.port)
	}

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http-server")

	app := NewApp(logger, options)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", options.port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", options.port, err)
	}

	return &Server{
		app:    app,
		lis:    lis,
		logger: logger,
	}, nil
}

// NewApp builds a Fiber app with recovery, request IDs, CORS, access
// logging and the JSON error handler. It does not listen.
func NewApp(logger *zap.Logger, options *Options) *fiber.App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options == nil {
		options = &Options{corsOrigins: "*"}
	}
	if options.corsOrigins == "" {
		options.corsOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:               "assessment-server",
		DisableStartupMessage: true,
		Immutable:             true,
		UnescapePath:          true,
		ErrorHandler:          ErrorHandler(logger),
		ReadTimeout:           options.readTimeout,
		WriteTimeout:          options.writeTimeout,
		BodyLimit:             options.bodyLimit,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: options.corsOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if options.enableLogging {
		app.Use(LoggingMiddleware(logger))
	}

	return app
}

// Router exposes the app for route registration.
func (s *Server) Router() fiber.Router {
	return s.app
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves in a goroutine and returns immediately.
func (s *Server) Start() {
	s.logger.Info("HTTP server starting", zap.String("addr", s.lis.Addr().String()))

	go func() {
		if err := s.app.Listener(s.lis); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		s.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
