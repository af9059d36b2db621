package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/flowrun/logger"
	"github.com/kbukum/flowrun/observability"
	"github.com/kbukum/flowrun/server/middleware"
)

// Server serves a Gin engine over HTTP/1.1 and cleartext HTTP/2.
type Server struct {
	cfg     Config
	engine  *gin.Engine
	srv     *http.Server
	log     *logger.Logger
	metrics *observability.Metrics

	mu sync.Mutex
	ln net.Listener
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics records request metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds a server with a bare engine. Call ApplyDefaults, or
// ApplyMiddleware and RegisterDefaultEndpoints, before adding routes.
func New(cfg Config, log *logger.Logger, opts ...Option) *Server {
	mode := gin.ReleaseMode
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)
	if log == nil {
		log = logger.Nop()
	}

	engine := gin.New()
	// h2c multiplexes many event streams over one cleartext connection.
	handler := h2c.NewHandler(engine, &http2.Server{MaxConcurrentStreams: 250, IdleTimeout: 2 * time.Minute})
	s := &Server{
		cfg:    cfg,
		engine: engine,
		srv: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		log: log.WithComponent("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GinEngine is where API routes are registered.
func (s *Server) GinEngine() *gin.Engine { return s.engine }

// Handler is the root handler, h2c wrapper included.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start binds the port and serves in the background. Bind errors are
// returned; serve errors are logged.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server stopped", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	s.log.Info("HTTP server listening", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop drains open connections for at most ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	err := s.srv.Shutdown(ctx)

	s.mu.Lock()
	s.ln = nil
	s.mu.Unlock()
	if err != nil {
		s.log.Error("HTTP server shutdown incomplete", logger.Fields(logger.FieldError, err.Error()))
		return err
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// Addr is the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}

func (s *Server) listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ln != nil
}

// ApplyMiddleware installs, outermost first: recovery, request id,
// tracing, metrics, CORS, rate limit, body limit and request logging.
func (s *Server) ApplyMiddleware() {
	chain := []gin.HandlerFunc{
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Metrics(s.metrics),
		middleware.CORS(&s.cfg.CORS),
	}
	if s.cfg.RateLimit.Enabled() {
		chain = append(chain, middleware.RateLimit(s.cfg.RateLimit))
	}
	if s.cfg.MaxBodySize != "" {
		chain = append(chain, middleware.BodyLimit(s.cfg.MaxBodySize))
	}
	s.engine.Use(append(chain, middleware.RequestLogger(s.log))...)
}

// RegisterDefaultEndpoints installs the probe routes. checker may be nil.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker HealthChecker) {
	(&probes{service: serviceName, checker: checker, started: time.Now()}).register(s.engine)
}

// ApplyDefaults is ApplyMiddleware followed by RegisterDefaultEndpoints.
func (s *Server) ApplyDefaults(serviceName string, checker HealthChecker) {
	s.ApplyMiddleware()
	s.RegisterDefaultEndpoints(serviceName, checker)
}
