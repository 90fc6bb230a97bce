package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/pkg/infra/middleware"
	options "github.com/kart-io/voicedesk/pkg/options/http"
	apierrors "github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/response"
)

// HTTPServer serves a gin engine.
type HTTPServer struct {
	opts   *options.Options
	engine *gin.Engine
	server *http.Server
	ln     net.Listener
}

// NewHTTPServer builds the gin engine with the shared middleware chain
// and a JSON 404.
func NewHTTPServer(opts *options.Options) *HTTPServer {
	if opts == nil {
		opts = options.NewOptions()
	}
	gin.SetMode(opts.Mode)

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Tracing("/healthz"),
		middleware.Recovery(),
		middleware.Logger("/healthz"),
	)
	if len(opts.CORSOrigins) > 0 {
		engine.Use(middleware.CORS(opts.CORSOrigins))
	}
	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, apierrors.ErrRouteMissing)
	})

	return &HTTPServer{opts: opts, engine: engine}
}

// Name implements Runnable.
func (s *HTTPServer) Name() string {
	return "http[gin]"
}

// Engine returns the gin engine for route registration.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the bound address once started.
func (s *HTTPServer) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.opts.Addr
}

// Start binds the listener synchronously and serves in the background.
func (s *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server exited", "addr", s.opts.Addr, "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
