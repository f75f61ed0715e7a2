package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockprices-service/internal/infrastructure/logx"
)

type contextKey string

const requestIDKey contextKey = "request_id"

func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID())
	r.Use(recoverer())
	r.Use(accessLog())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.ping != nil {
			if err := s.ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "db not ready")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", s.triggerRun)
		r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
			s.getRun(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/prices/{symbol}/latest", func(w http.ResponseWriter, r *http.Request) {
			s.latestPrice(w, r, chi.URLParam(r, "symbol"))
		})
		r.Get("/prices/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			s.priceHistory(w, r, chi.URLParam(r, "symbol"))
		})
		r.Get("/verify", s.verifyDay)
	})

	return r
}

func requestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)
			ctx := context.WithValue(r.Context(), requestIDKey, rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logx.L().Error("http.panic", zap.Any("recover", rec), zap.String("path", r.URL.Path))
					internalError(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func accessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			rid, _ := r.Context().Value(requestIDKey).(string)
			logx.L().Info("http.request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", rid),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
