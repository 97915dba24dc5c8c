package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/yndnr/quotaledger/internal/infra/tlsroots"
	"github.com/yndnr/quotaledger/internal/server/config"
)

// Server is the ledger's HTTP or HTTPS listener.
type Server struct {
	httpServer *http.Server
	certs      *tlsroots.Watcher
	logger     *slog.Logger
}

// New creates a server from cfg. When TLS is enabled the key pair is loaded
// now, so a bad certificate fails startup rather than the first handshake.
func New(cfg config.HTTPConfig, h http.Handler, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger: logger,
	}

	if cfg.TLSEnabled() {
		w, err := tlsroots.NewWatcher(cfg.TLSCertFile, cfg.TLSKeyFile, tlsroots.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		s.certs = w
		s.httpServer.TLSConfig = w.ServerTLSConfig()
	}
	return s, nil
}

// TLS reports whether the server terminates TLS.
func (s *Server) TLS() bool {
	return s.certs != nil
}

// ListenAndServe listens on the configured address and serves until
// Shutdown. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening", "addr", ln.Addr().String(), "tls", s.TLS())

	var err error
	if s.certs != nil {
		s.certs.StartAsync()
		err = s.httpServer.ServeTLS(ln, "", "")
	} else {
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.certs != nil {
		s.certs.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
