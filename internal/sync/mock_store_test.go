package sync

import (
	"context"
	"database/sql"

	"github.com/TheFastest599/flowtrack/internal/model"
	"github.com/TheFastest599/flowtrack/internal/store"
)

// taskStore is a minimal in-memory store.Store carrying only tasks; the
// exporter touches nothing else.
type taskStore struct {
	tasks []*model.Task
}

func newTaskStore(tasks ...*model.Task) *taskStore {
	return &taskStore{tasks: tasks}
}

func (s *taskStore) ListTasks(_ context.Context, _ model.TaskFilter) ([]*model.Task, int, error) {
	return s.tasks, len(s.tasks), nil
}

func (s *taskStore) CreateTask(_ context.Context, t *model.Task) error {
	s.tasks = append(s.tasks, t)
	return nil
}

func (s *taskStore) GetTask(_ context.Context, id string) (*model.Task, error) {
	for _, t := range s.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *taskStore) UpdateTask(_ context.Context, _ *model.Task) error { return nil }

func (s *taskStore) MoveTask(_ context.Context, _ string, _, _ model.TaskStatus) (*model.Task, error) {
	return nil, sql.ErrNoRows
}

func (s *taskStore) DeleteTask(_ context.Context, _ string) error { return nil }

func (s *taskStore) CreateUser(_ context.Context, _ *store.UserRecord) error { return nil }

func (s *taskStore) GetUser(_ context.Context, _ string) (*model.User, error) {
	return nil, sql.ErrNoRows
}

func (s *taskStore) GetUserByEmail(_ context.Context, _ string) (*store.UserRecord, error) {
	return nil, sql.ErrNoRows
}

func (s *taskStore) SaveRefreshToken(_ context.Context, _ *store.RefreshToken) error { return nil }

func (s *taskStore) GetRefreshToken(_ context.Context, _ string) (*store.RefreshToken, error) {
	return nil, sql.ErrNoRows
}

func (s *taskStore) DeleteRefreshToken(_ context.Context, _ string) error { return nil }

func (s *taskStore) DeleteExpiredRefreshTokens(_ context.Context) (int64, error) { return 0, nil }

func (s *taskStore) CreateNotification(_ context.Context, _ *model.Notification) error { return nil }

func (s *taskStore) ListNotifications(_ context.Context, _ string, _ int) ([]*model.Notification, error) {
	return nil, nil
}

func (s *taskStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *taskStore) Close() error { return nil }
