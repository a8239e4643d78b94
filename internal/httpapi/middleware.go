package httpapi

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ent0n29/prenova/internal/auth"
	"github.com/ent0n29/prenova/internal/observability"
)

// recoverer turns a panic into a JSON 500 instead of a dropped connection.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error("panic serving request",
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()),
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			respondError(w, http.StatusInternalServerError, "internal", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// unmatchedRoute labels requests no route claimed, so arbitrary paths share one series.
const unmatchedRoute = "unmatched"

// instrument logs each request and records Prometheus request metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		elapsed := time.Since(start)

		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			s.metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		}
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// requireAuth stops the chain with 401 unless the bearer token verifies.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AuthTimeout)
		start := time.Now()
		user, err := s.deps.Gate.Authenticate(ctx, r.Header.Get("Authorization"))
		cancel()
		s.metrics.ObserveStage(observability.StageAuthVerify, time.Since(start))
		if err != nil {
			kind := "invalid"
			var aerr *auth.Error
			if errors.As(err, &aerr) {
				kind = string(aerr.Kind)
			}
			if s.metrics != nil {
				s.metrics.AuthFailures.WithLabelValues(kind).Inc()
			}
			s.logger.Warn("authentication failed", "path", r.URL.Path, "kind", kind, "error", errors.Unwrap(err))
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

// rateLimit applies the per-user token bucket. It must run after requireAuth.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFrom(r.Context())
		if !s.limiter.Allow(user.ID) {
			route := r.URL.Path
			if s.metrics != nil {
				s.metrics.RateLimited.WithLabelValues(route).Inc()
			}
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
