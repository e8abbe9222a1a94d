package store

import (
	"context"
	"time"

	"github.com/TheFastest599/flowtrack/internal/model"
)

// UserRecord pairs an identity with its server-side credential hash.
type UserRecord struct {
	User         *model.User
	PasswordHash string
}

// RefreshToken is one issued refresh credential. Only the hash is stored.
type RefreshToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Store defines the persistence interface for flowtrack.
type Store interface {
	// Users
	CreateUser(ctx context.Context, rec *UserRecord) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)

	// Refresh tokens
	SaveRefreshToken(ctx context.Context, rt *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, tokenHash string) error
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)

	// Tasks
	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.Task, int, error) // returns tasks, total count, error
	UpdateTask(ctx context.Context, task *model.Task) error
	// MoveTask updates the status only when the current status matches from;
	// a stale from yields sql.ErrNoRows.
	MoveTask(ctx context.Context, id string, from, to model.TaskStatus) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error

	// Notifications
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]*model.Notification, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
