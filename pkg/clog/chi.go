package clog

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
)

const RequestIDHeader = "X-Request-Id"

type chiConfig struct {
	Filter func(r *http.Request) bool
}

type ChiOption interface {
	apply(*chiConfig)
}

type chiOptionFunc func(*chiConfig)

func (o chiOptionFunc) apply(c *chiConfig) {
	o(c)
}

func WithChiFilter(filter func(r *http.Request) bool) ChiOption {
	return chiOptionFunc(func(cfg *chiConfig) {
		cfg.Filter = filter
	})
}

// SlogChiMiddleware logs one record per request at a level derived from the
// response status. The matched route and, for task routes, the task id are
// attached, as is anything handlers add through AddAttribute.
func SlogChiMiddleware(opts ...ChiOption) func(http.Handler) http.Handler {
	cfg := chiConfig{}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = ulid.Make().String()
			}
			ww.Header().Set(RequestIDHeader, requestID)
			ctx := ContextWithSlog(r.Context())
			AddAttributes(ctx, map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"proto":      r.Proto,
				"request_id": requestID,
			})
			next.ServeHTTP(ww, r.WithContext(ctx))
			if cfg.Filter != nil && !cfg.Filter(r) {
				return
			}
			AddAttributes(ctx, map[string]any{
				"status":        ww.Status(),
				"bytes_written": ww.BytesWritten(),
				"duration":      time.Since(startTime),
			})
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					AddAttribute(ctx, "route", pattern)
				}
				if id := rctx.URLParam("id"); id != "" && strings.Contains(rctx.RoutePattern(), "/tasks/") {
					AddAttribute(ctx, "task_id", id)
				}
			}
			slog.Log(ctx, HTTPStatusToLevel(ww.Status()).Slog(), http.StatusText(ww.Status()))
		})
	}
}

// HealthCheckFilter drops access logs for liveness checks.
func HealthCheckFilter(r *http.Request) bool {
	return r.URL.Path != "/health" && r.URL.Path != "/grpc.health.v1.Health/Check"
}
