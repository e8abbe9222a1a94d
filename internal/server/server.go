// Package server implements the flowtrackd HTTP API: credential-based
// authentication with refresh-token rotation, task CRUD with conflict-checked
// kanban moves, and per-user realtime notifications.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/TheFastest599/flowtrack/internal/events"
	"github.com/TheFastest599/flowtrack/internal/idgen"
	"github.com/TheFastest599/flowtrack/internal/model"
	"github.com/TheFastest599/flowtrack/internal/store"
)

// Server holds the handler dependencies.
type Server struct {
	store     store.Store
	publisher events.Publisher
	auth      *Authenticator
	logger    *slog.Logger
}

// NewServer returns a Server backed by the given store and publisher.
func NewServer(st store.Store, pub events.Publisher, auth *Authenticator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:     st,
		publisher: pub,
		auth:      auth,
		logger:    logger,
	}
}

// publish sends an event to the bus. Best-effort; failures are logged.
func (s *Server) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

// notify persists a notification for userID and pushes it on the user's
// subject. Both operations are best-effort; failures are logged but never
// block the caller.
func (s *Server) notify(ctx context.Context, userID, typ, message string, task *model.Task) {
	if userID == "" {
		return
	}
	id, err := idgen.GenerateWithPrefix("ntf-")
	if err != nil {
		s.logger.Warn("failed to generate notification id", "error", err)
		return
	}
	n := &model.Notification{
		ID:        id,
		UserID:    userID,
		Type:      typ,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if task != nil {
		n.TaskID = task.ID
		n.ProjectID = task.ProjectID
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("failed to store notification", "user", userID, "error", err)
	}
	s.publish(ctx, events.NotifySubject(userID), n)
}
