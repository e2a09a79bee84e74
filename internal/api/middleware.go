package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"ecopulse/internal/identity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const corsAllowHeaders = "authorization, x-client-info, apikey, content-type"

type ctxKey int

const requestInfoKey ctxKey = iota

// requestInfo lets inner middleware report the caller to the request logger.
type requestInfo struct {
	userID string
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverJSON turns a panic into a 500 error envelope.
func (s *Server) recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error("handler panic", "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
			writeErr(w, http.StatusInternalServerError, fmt.Errorf("internal error: %v", rec))
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{}
		r = r.WithContext(context.WithValue(r.Context(), requestInfoKey, info))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(route, status, elapsed)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		}
		if info.userID != "" {
			attrs = append(attrs, "user_id", info.userID)
		}
		if status >= 500 {
			s.logger.Error("request", attrs...)
		} else {
			s.logger.Info("request", attrs...)
		}
	})
}

// requireAuth validates the bearer token and records the caller's profile.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	register := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := identity.UserFrom(r.Context())
		if info, ok := r.Context().Value(requestInfoKey).(*requestInfo); ok {
			info.userID = u.ID
		}
		if err := s.svc.EnsureProfile(r.Context(), u.ID, u.Name, u.Email); err != nil {
			s.logger.Warn("ensure profile", "user_id", u.ID, "error", err)
		}
		next.ServeHTTP(w, r)
	})
	return identity.RequireAuth(s.verifier, func(w http.ResponseWriter, err error) {
		s.logger.Debug("auth rejected", "error", err)
		writeErr(w, http.StatusUnauthorized, err)
	})(register)
}
