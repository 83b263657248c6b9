// FILE: evsink/src/internal/metrics/server.go
package metrics

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"evsink/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Server exposes the registry over HTTP at a single path, plus /healthz
type Server struct {
	path     string
	server   *fasthttp.Server
	listener net.Listener
	logger   *log.Logger

	promHandler fasthttp.RequestHandler
	wg          sync.WaitGroup
}

// NewServer creates a metrics server for m; it does not listen until Start
func NewServer(m *Metrics, path string, logger *log.Logger) *Server {
	s := &Server{
		path:   path,
		logger: logger,
		promHandler: fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}),
		),
	}
	s.server = &fasthttp.Server{
		Handler:          s.handle,
		Name:             version.UserAgent(),
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
	return s
}

// Start listens on addr and serves in the background
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener in the background
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(ln); err != nil {
			s.logger.Error("msg", "Metrics server failed",
				"component", "metrics",
				"error", err)
		}
	}()

	s.logger.Info("msg", "Metrics server started",
		"component", "metrics",
		"address", ln.Addr().String(),
		"path", s.path)
	return nil
}

// Addr returns the listening address, or empty before Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case s.path:
		s.promHandler(ctx)
	case "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok\n")
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

// Shutdown stops accepting connections and waits for in-flight scrapes
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	if err := s.server.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	s.wg.Wait()

	s.logger.Info("msg", "Metrics server stopped", "component", "metrics")
	return nil
}
