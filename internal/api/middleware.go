package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"scribe/internal/logging"
	"scribe/internal/services"
)

// HeaderRequestID carries the correlation id in both directions.
const HeaderRequestID = "X-Request-ID"

// HeaderProcessTime reports the handler duration in seconds.
const HeaderProcessTime = "X-Process-Time"

// requestID reuses a caller-supplied X-Request-ID or generates one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := services.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type timedWriter struct {
	http.ResponseWriter
	start       time.Time
	status      int
	wroteHeader bool
}

func (w *timedWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.Header().Set(HeaderProcessTime, strconv.FormatFloat(time.Since(w.start).Seconds(), 'f', 6, 64))
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *timedWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// quietPaths are only logged when they fail.
var quietPaths = map[string]bool{
	"/api/health": true,
	"/api/models": true,
}

// requestLogger logs every request and stamps X-Process-Time.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tw := &timedWriter{ResponseWriter: w, start: time.Now(), status: http.StatusOK}
			next.ServeHTTP(tw, r)
			if quietPaths[r.URL.Path] && tw.status < http.StatusBadRequest {
				return
			}
			logging.WithContext(r.Context(), logger).Info("http request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", tw.status),
				logging.String("remote", r.RemoteAddr),
				logging.Duration("elapsed", time.Since(tw.start)),
			)
		})
	}
}

// Authenticator checks bearer tokens against a plain token or a bcrypt hash.
type Authenticator struct {
	token string
	hash  []byte
}

// NewAuthenticator returns nil when neither token nor hash is set.
func NewAuthenticator(token, hash string) *Authenticator {
	token = strings.TrimSpace(token)
	hash = strings.TrimSpace(hash)
	if token == "" && hash == "" {
		return nil
	}
	return &Authenticator{token: token, hash: []byte(hash)}
}

// Allow reports whether presented matches the configured credential.
func (a *Authenticator) Allow(presented string) bool {
	if a == nil {
		return true
	}
	if presented == "" {
		return false
	}
	if a.token != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(a.token)) == 1 {
		return true
	}
	if len(a.hash) > 0 && bcrypt.CompareHashAndPassword(a.hash, []byte(presented)) == nil {
		return true
	}
	return false
}

// Middleware rejects requests without a valid "Authorization: Bearer" header.
func (a *Authenticator) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if a == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || !a.Allow(strings.TrimSpace(token)) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="scribe"`)
				writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HashToken returns the bcrypt hash stored in paths.api_token_hash.
func HashToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", services.Wrap(services.ErrValidation, "api", "hash token", "token is required", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "api", "hash token", "hash failed", err)
	}
	return string(hash), nil
}

func corsOptions(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowCreds := true
	for _, o := range allowedOrigins {
		if o == "*" {
			allowCreds = false
			break
		}
	}
	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderRequestID},
		ExposedHeaders:   []string{HeaderRequestID, HeaderProcessTime},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}
