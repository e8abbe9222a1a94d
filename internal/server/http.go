package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/TheFastest599/flowtrack/internal/model"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// Auth endpoints and the health check are open; everything else requires a
// valid Authorization: Bearer <access token> header.
func (s *Server) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /v1/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /v1/auth/logout", s.handleLogout)

	mux.HandleFunc("POST /v1/tasks", s.requireAuth(s.handleCreateTask))
	mux.HandleFunc("GET /v1/tasks", s.requireAuth(s.handleListTasks))
	mux.HandleFunc("GET /v1/tasks/{id}", s.requireAuth(s.handleGetTask))
	mux.HandleFunc("PATCH /v1/tasks/{id}", s.requireAuth(s.handleUpdateTask))
	mux.HandleFunc("POST /v1/tasks/{id}/move", s.requireAuth(s.handleMoveTask))
	mux.HandleFunc("DELETE /v1/tasks/{id}", s.requireAuth(s.handleDeleteTask))

	mux.HandleFunc("GET /v1/notifications", s.requireAuth(s.handleListNotifications))

	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return mux
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyRole
)

// requireAuth verifies the bearer access token and stores the caller identity
// on the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, role, err := s.auth.VerifyAccessToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		ctx = context.WithValue(ctx, ctxKeyRole, role)
		next(w, r.WithContext(ctx))
	}
}

// actor returns the authenticated user ID from the request context.
func actor(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyUserID).(string)
	return id
}

// actorRole returns the authenticated role from the request context.
func actorRole(r *http.Request) model.Role {
	role, _ := r.Context().Value(ctxKeyRole).(model.Role)
	return role
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
