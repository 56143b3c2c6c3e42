package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/modelhost"
	"scribe/internal/transcription"
	"scribe/internal/uploads"
)

// Transcriber runs the use cases behind the API.
type Transcriber interface {
	TranscribeText(ctx context.Context, req transcription.TranscribeRequest) (string, error)
	TranscribeSRT(ctx context.Context, req transcription.TranscribeRequest) (string, error)
	TranslateText(ctx context.Context, req transcription.TranslateRequest) (string, error)
	TranslateSRT(ctx context.Context, req transcription.SubtitleRequest) (string, error)
}

// StatusReporter reports model manager state.
type StatusReporter interface {
	Statuses() []modelhost.Status
}

type server struct {
	svc     Transcriber
	models  StatusReporter
	uploads *uploads.Store
	logger  *slog.Logger
}

// NewRouter builds the HTTP handler for every API route.
func NewRouter(cfg *config.Config, svc Transcriber, models StatusReporter, store *uploads.Store, logger *slog.Logger) http.Handler {
	logger = logging.NewComponentLogger(logger, "api")
	s := &server{
		svc:     svc,
		models:  models,
		uploads: store,
		logger:  logger,
	}
	auth := NewAuthenticator(cfg.Paths.APIToken, cfg.Paths.APITokenHash)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestID)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(corsOptions(cfg.API.AllowedOrigins)))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(logger))

			r.Get("/models", s.handleModels)
			r.Post("/transcribe", s.handleTranscribe)
			r.Post("/transcribe/srt", s.handleTranscribeSRT)
			r.Post("/translate", s.handleTranslate)
			r.Post("/subtitles/translate", s.handleTranslateSubtitles)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(logger, w, http.StatusNotFound, ErrorResponse{Error: "not found", Details: r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(logger, w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})
	return r
}
