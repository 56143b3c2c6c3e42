package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/modelhost"
	"scribe/internal/transcription"
	"scribe/internal/uploads"
)

const shutdownTimeout = 5 * time.Second

type apiServer struct {
	bind   string
	logger *slog.Logger

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, svc *transcription.Service, registry *modelhost.Registry, store *uploads.Store, logger *slog.Logger) *apiServer {
	serverLogger := logging.NewComponentLogger(logger, "api-server")
	return &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: serverLogger,
		server: &http.Server{
			Handler:           api.NewRouter(cfg, svc, registry, store, logger),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
			ErrorLog:          slog.NewLogLogger(serverLogger.Handler(), slog.LevelWarn),
		},
	}
}

// Transcriptions can run for minutes, so the server has no read or write
// deadline beyond the header timeout.
func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_serve_failed", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(s.logger, "api server shutdown incomplete", "api_shutdown_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "in-flight requests were interrupted"),
		)
		_ = s.server.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
