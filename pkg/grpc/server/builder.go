package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

type Option func(*Options)

type Options struct {
	port              int
	logger            *zap.Logger
	reflection        bool
	enableLogging     bool
	unaryInterceptors []grpc.UnaryServerInterceptor
	services          []string
	maxConnectionIdle time.Duration
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

func WithReflection(enabled bool) Option {
	return func(o *Options) {
		o.reflection = enabled
	}
}

func WithLogging(enabled bool) Option {
	return func(o *Options) {
		o.enableLogging = enabled
	}
}

// WithUnaryInterceptors appends interceptors after recovery and logging.
func WithUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) Option {
	return func(o *Options) {
		o.unaryInterceptors = append(o.unaryInterceptors, interceptors...)
	}
}

// WithHealthServices names the services reported by the health endpoint
// next to the overall "" entry. All start SERVING.
func WithHealthServices(names ...string) Option {
	return func(o *Options) {
		o.services = append(o.services, names...)
	}
}

// WithMaxConnectionIdle closes client connections idle for longer than d.
func WithMaxConnectionIdle(d time.Duration) Option {
	return func(o *Options) {
		o.maxConnectionIdle = d
	}
}

// Server hosts the standard gRPC health protocol for the assessment process.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	lis        net.Listener
	services   []string
	logger     *zap.Logger
}

// New builds the server and binds its listener.
func New(opts ...Option) (*Server, error) {
	options := &Options{
		port:              50051,
		logger:            zap.NewNop(),
		maxConnectionIdle: 5 * time.Minute,
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
	logger = logger.Named("grpc-server")

	chain := []grpc.UnaryServerInterceptor{RecoveryInterceptor(logger)}
	if options.enableLogging {
		chain = append(chain, LoggingInterceptor(logger))
	}
	chain = append(chain, options.unaryInterceptors...)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(chain...),
		grpc.KeepaliveParams(keepalive.ServerParameters{MaxConnectionIdle: options.maxConnectionIdle}),
	)
	if options.reflection {
		reflection.Register(grpcServer)
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	s := &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		services:   append([]string{""}, options.services...),
		logger:     logger,
	}
	s.setAll(healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", options.port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", options.port, err)
	}
	s.lis = lis

	return s, nil
}

// SetServiceHealth updates the reported status of one service.
func (s *Server) SetServiceHealth(serviceName string, st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus(serviceName, st)
	s.logger.Info("service health changed",
		zap.String("service", serviceName),
		zap.Stringer("status", st))
}

func (s *Server) setAll(st healthpb.HealthCheckResponse_ServingStatus) {
	for _, name := range s.services {
		s.health.SetServingStatus(name, st)
	}
}

// Start serves in a goroutine and returns immediately.
func (s *Server) Start() {
	s.logger.Info("gRPC server starting", zap.String("addr", s.lis.Addr().String()))

	go func() {
		if err := s.grpcServer.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()
}

// Shutdown reports every service NOT_SERVING, then drains in-flight calls.
// The stop is forced when ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gRPC server shutting down")
	s.setAll(healthpb.HealthCheckResponse_NOT_SERVING)

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("gRPC graceful stop timed out, forcing")
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

// Addr returns the server's listening address.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
