// Package devserver serves the project directory over HTTP and pushes
// reload signals to connected browsers over socket.io.
//
// Every HTML response gets the live-reload client injected before its
// closing body tag. The client listens for three events: "reload" reloads
// the page, "stream" receives the URLs of freshly written files and
// hot-swaps the stylesheets among them, and "notify" shows a toast.
package devserver

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rajubeparybd/gulp-compiler/internal/ctxlog"
	"github.com/rajubeparybd/gulp-compiler/internal/metrics"
	"github.com/zishang520/socket.io/v2/socket"
)

const (
	// DefaultClientScriptURL is the socket.io browser client loaded by
	// injected pages.
	DefaultClientScriptURL = "https://cdn.socket.io/4.8.1/socket.io.min.js"

	clientPath  = "/__gulpc/client.js"
	healthPath  = "/__gulpc/health"
	metricsPath = "/__gulpc/metrics"
	socketPath  = "/socket.io/"
)

//go:embed assets/client.js
var clientJS []byte

// Config configures the server.
type Config struct {
	// BaseDir is the directory served at "/".
	BaseDir string
	Host    string
	// Port to listen on. Zero picks a free port.
	Port int
	// ClientScriptURL is where pages load the socket.io client from.
	ClientScriptURL string
}

// Server is the development server. The zero value is not usable; call New.
type Server struct {
	metrics *metrics.Metrics

	started atomic.Bool
	clients atomic.Int64

	// sockets holds the connected browsers by id. emitMu keeps every
	// browser receiving events in the order they were sent.
	sockets sync.Map
	emitMu  sync.Mutex

	mu      sync.Mutex
	cfg     Config
	io      *socket.Server
	httpSrv *http.Server
	addr    string
}

// New creates a server that is not started yet. m may be nil.
func New(m *metrics.Metrics) *Server {
	return &Server{metrics: m}
}

// Init starts serving cfg.BaseDir. It returns once the listener is bound;
// requests are served in the background until Close.
func (s *Server) Init(ctx context.Context, cfg Config) error {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return errors.New("dev server already started")
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = "."
	}
	if cfg.ClientScriptURL == "" {
		cfg.ClientScriptURL = DefaultClientScriptURL
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		return fmt.Errorf("dev server failed to listen: %w", err)
	}

	s.cfg = cfg
	s.io = socket.NewServer(nil, nil)
	s.io.On("connection", func(args ...any) {
		client, ok := args[0].(*socket.Socket)
		if !ok {
			return
		}
		s.sockets.Store(client.Id(), client)
		s.clientConnected()
		logger.Debug("Browser connected.", "sid", client.Id(), "clients", s.clients.Load())
		client.On("disconnect", func(...any) {
			s.sockets.Delete(client.Id())
			s.clientDisconnected()
			logger.Debug("Browser disconnected.", "sid", client.Id(), "clients", s.clients.Load())
		})
	})

	s.httpSrv = &http.Server{
		Handler:           s.routes(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.addr = ln.Addr().String()
	s.started.Store(true)

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Dev server failed unexpectedly", "error", err)
		}
	}()

	logger.Info("🚀 Dev server started", "url", s.url(), "base_dir", cfg.BaseDir)
	return nil
}

func (s *Server) routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(socketPath, s.io.ServeHandler(nil))
	mux.HandleFunc(clientPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(clientJS)
	})
	mux.HandleFunc(healthPath, s.healthHandler(ctx))
	if s.metrics != nil {
		mux.Handle(metricsPath, s.metrics.Handler())
	}
	mux.Handle("/", newStaticHandler(s.cfg.BaseDir, snippet(s.cfg.ClientScriptURL)))
	return mux
}

// healthHandler answers liveness probes.
func (s *Server) healthHandler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctxlog.FromContext(ctx).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	}
}

func (s *Server) url() string {
	host, port, err := net.SplitHostPort(s.addr)
	if err != nil {
		return "http://" + s.addr
	}
	if s.cfg.Host == "" || host == "::" || host == "0.0.0.0" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Addr returns the bound listen address, or "" before Init.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// URL returns the address browsers should open, or "" before Init.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == "" {
		return ""
	}
	return s.url()
}

// Started reports whether Init has succeeded.
func (s *Server) Started() bool { return s.started.Load() }

// Clients returns the number of connected browsers.
func (s *Server) Clients() int { return int(s.clients.Load()) }

func (s *Server) clientConnected() {
	s.clients.Add(1)
	if s.metrics != nil {
		s.metrics.ClientConnected()
	}
}

func (s *Server) clientDisconnected() {
	s.clients.Add(-1)
	if s.metrics != nil {
		s.metrics.ClientDisconnected()
	}
}

// Reload tells every connected browser to reload. It is a no-op before Init.
func (s *Server) Reload(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if !s.started.Load() {
		logger.Debug("Reload skipped, dev server not started.")
		return
	}
	s.broadcast(ctx, "reload")
	if s.metrics != nil {
		s.metrics.ReloadSent()
	}
	logger.Info("🔄 Reload sent", "clients", s.Clients())
}

// Stream announces freshly written files to every connected browser. Paths
// under BaseDir are sent as URL paths; source maps and files outside
// BaseDir are left out. It is a no-op before Init.
func (s *Server) Stream(ctx context.Context, files ...string) {
	if !s.started.Load() {
		return
	}
	urls := s.urlPaths(files)
	if len(urls) == 0 {
		return
	}
	s.broadcast(ctx, "stream", urls)
	if s.metrics != nil {
		s.metrics.StreamSent()
	}
	ctxlog.FromContext(ctx).Debug("Changed files streamed.", "urls", urls)
}

// Notify shows msg as a toast in every connected browser. It is a no-op
// before Init.
func (s *Server) Notify(ctx context.Context, msg string) {
	if !s.started.Load() {
		return
	}
	s.broadcast(ctx, "notify", msg)
	ctxlog.FromContext(ctx).Debug("Notification sent.", "message", msg)
}

// broadcast emits ev to each connected browser in turn. Namespace-wide
// emits share one pre-encoded websocket frame per event, and the engine.io
// websocket transport writes only the first such frame of a queued batch,
// so events sent back to back would be lost.
func (s *Server) broadcast(ctx context.Context, ev string, args ...any) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.sockets.Range(func(_, v any) bool {
		client := v.(*socket.Socket)
		if err := client.Emit(ev, args...); err != nil {
			ctxlog.FromContext(ctx).Debug("Emit failed.", "event", ev, "sid", client.Id(), "error", err)
		}
		return true
	})
}

func (s *Server) urlPaths(files []string) []string {
	base, err := filepath.Abs(s.cfg.BaseDir)
	if err != nil {
		return nil
	}
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f, ".map") {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(base, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		urls = append(urls, "/"+filepath.ToSlash(rel))
	}
	return urls
}

// Close stops the server. It is safe to call before Init.
func (s *Server) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.Load() {
		logger.Debug("Dev server was not running.")
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🏁 Shutting down dev server...")
	s.io.Close(nil)
	err := s.httpSrv.Shutdown(shutdownCtx)
	s.started.Store(false)
	if err != nil {
		logger.Error("Dev server shutdown failed", "error", err)
		return err
	}
	return nil
}
