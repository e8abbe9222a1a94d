// Package api provides a transport-agnostic interface for the flowtrack
// service and an HTTP/JSON implementation that talks to the flowtrackd REST
// API.
package api

import (
	"context"

	"github.com/TheFastest599/flowtrack/internal/model"
)

// Session is the credential bundle issued by login, register and refresh.
type Session struct {
	AccessToken string      `json:"access_token"`
	User        *model.User `json:"user"`
}

// RegisterRequest holds parameters for creating an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthAPI is the authentication surface consumed by the session store.
type AuthAPI interface {
	// Login exchanges credentials for a session. Fails with
	// ErrInvalidCredentials on a 401.
	Login(ctx context.Context, email, password string) (*Session, error)
	// Register creates an account and returns the server-issued session.
	// Fails with ErrValidation on rejected input.
	Register(ctx context.Context, req *RegisterRequest) (*Session, error)
	// Refresh renews the access token using the refresh credential held by
	// the transport (a cookie). Fails with ErrSessionExpired when the
	// refresh credential is missing or no longer accepted.
	Refresh(ctx context.Context) (string, error)
	// Logout invalidates the server-side session. Best effort.
	Logout(ctx context.Context) error
}

// TaskAPI is the task surface consumed by the board coordinator and CLI.
type TaskAPI interface {
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.Task, int, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// MoveTask changes a task's status (kanban column). Fails with
	// ErrConflict when the server rejects the transition and ErrNotFound
	// when the task is gone.
	MoveTask(ctx context.Context, id string, status model.TaskStatus) (*model.Task, error)
}

// CredentialCarrier is implemented by transports whose refresh credential
// lives outside the session payload (the HTTP client's refresh cookie). The
// session store uses it to persist the credential with the session tuple and
// to restore it on hydration, so renewal works across process restarts.
type CredentialCarrier interface {
	// RefreshCredential returns the current refresh credential, "" when none.
	RefreshCredential() string
	// SetRefreshCredential restores a previously persisted credential.
	SetRefreshCredential(token string)
}

// NotificationAPI is the persisted notification feed for the caller.
type NotificationAPI interface {
	// ListNotifications returns the caller's notifications, most recent
	// first. limit <= 0 means the server default.
	ListNotifications(ctx context.Context, limit int) ([]*model.Notification, error)
}

// Client is the full flowtrack service surface.
type Client interface {
	AuthAPI
	TaskAPI
	NotificationAPI

	// SetToken replaces the bearer token attached to subsequent requests.
	// The session store calls this whenever the access token changes.
	SetToken(token string)

	Health(ctx context.Context) (string, error)
	Close() error
}
