package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/TheFastest599/flowtrack/internal/model"
	"github.com/TheFastest599/flowtrack/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

// taskRowColumns is the column list for scanTask results.
var taskRowColumns = []string{
	"id", "title", "description", "status", "priority", "deadline",
	"project_id", "assigned_to", "created_by", "created_at", "updated_at",
}

// taskWithTotalColumns is the column list for queryListTasks results.
var taskWithTotalColumns = append([]string{"total_count"}, taskRowColumns...)

// addTaskRow adds a minimal task row to a sqlmock.Rows.
func addTaskRow(rows *sqlmock.Rows, id, title, status string, now time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, title, nil, status, "medium", nil,
		nil, nil, nil, now, now,
	)
}

func TestScanHelpers(t *testing.T) {
	// nullTimePtr
	if nullTimePtr(nil).Valid {
		t.Error("nullTimePtr(nil) should be invalid")
	}
	now := time.Now()
	if nt := nullTimePtr(&now); !nt.Valid || !nt.Time.Equal(now) {
		t.Errorf("nullTimePtr(now) = %v", nt)
	}

	// nullString
	if nullString("").Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if ns := nullString("hello"); !ns.Valid || ns.String != "hello" {
		t.Errorf("nullString(\"hello\") = %v", ns)
	}
}

func TestQueryCreateTask(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	task := &model.Task{
		ID: "ft-test1", Title: "Test task",
		Status: model.StatusTodo, Priority: model.PriorityMedium,
		CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(
			"ft-test1", "Test task", sqlmock.AnyArg(), "todo", "medium", sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryCreateTask(context.Background(), db, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryGetTask(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := addTaskRow(sqlmock.NewRows(taskRowColumns), "ft-test1", "Test task", "todo", now)
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id = \\$1").WithArgs("ft-test1").
		WillReturnRows(rows)

	task, err := queryGetTask(context.Background(), db, "ft-test1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID != "ft-test1" || task.Title != "Test task" || task.Status != model.StatusTodo {
		t.Errorf("task = %+v", task)
	}
	if task.Deadline != nil {
		t.Errorf("Deadline = %v, want nil", task.Deadline)
	}
}

func TestQueryGetTaskNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id = \\$1").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	_, err := queryGetTask(context.Background(), db, "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestQueryListTasksFilters(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(taskWithTotalColumns).
		AddRow(2, "ft-1", "First", nil, "todo", "high", nil, "p1", "u1", nil, now, now).
		AddRow(2, "ft-2", "Second", nil, "todo", "low", nil, "p1", "u1", nil, now, now)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) OVER\\(\\) AS total_count, .+ FROM tasks WHERE status IN \\(\\$1\\) AND project_id = \\$2 AND assigned_to = \\$3 .+ LIMIT \\$4").
		WithArgs("todo", "p1", "u1", 10).
		WillReturnRows(rows)

	tasks, total, err := queryListTasks(context.Background(), db, model.TaskFilter{
		Status:    []model.TaskStatus{model.StatusTodo},
		ProjectID: "p1",
		Assignee:  "u1",
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(tasks) != 2 {
		t.Errorf("total = %d, len = %d, want 2, 2", total, len(tasks))
	}
	if tasks[0].ID != "ft-1" || tasks[0].ProjectID != "p1" {
		t.Errorf("tasks[0] = %+v", tasks[0])
	}
}

func TestQueryMoveTask(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := addTaskRow(sqlmock.NewRows(taskRowColumns), "ft-test1", "Test task", "in_progress", now)
	mock.ExpectQuery("UPDATE tasks SET status = \\$3, updated_at = NOW\\(\\) WHERE id = \\$1 AND status = \\$2").
		WithArgs("ft-test1", "todo", "in_progress").
		WillReturnRows(rows)

	task, err := queryMoveTask(context.Background(), db, "ft-test1", model.StatusTodo, model.StatusInProgress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != model.StatusInProgress {
		t.Errorf("Status = %q, want in_progress", task.Status)
	}
}

func TestQueryMoveTaskStaleStatus(t *testing.T) {
	db, mock := newMockDB(t)

	// The conditional WHERE matched nothing: the status already changed.
	mock.ExpectQuery("UPDATE tasks SET status = \\$3").
		WithArgs("ft-test1", "todo", "done").
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	_, err := queryMoveTask(context.Background(), db, "ft-test1", model.StatusTodo, model.StatusDone)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestQueryDeleteTaskNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM tasks WHERE id = \\$1").WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := queryDeleteTask(context.Background(), db, "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestQueryCreateAndGetUser(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rec := &store.UserRecord{
		User: &model.User{
			ID: "u1", Name: "Ada", Email: "ada@x.com", Role: model.RoleAdmin,
			CreatedAt: now, UpdatedAt: now,
		},
		PasswordHash: "$2a$10$hash",
	}
	mock.ExpectExec("INSERT INTO users").
		WithArgs("u1", "Ada", "ada@x.com", "admin", "$2a$10$hash", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryCreateUser(context.Background(), db, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at", "updated_at", "password_hash"}).
		AddRow("u1", "Ada", "ada@x.com", "admin", now, now, "$2a$10$hash")
	mock.ExpectQuery("SELECT .+ FROM users WHERE email = \\$1").WithArgs("ada@x.com").
		WillReturnRows(rows)

	got, err := queryGetUserByEmail(context.Background(), db, "ada@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.User.ID != "u1" || got.PasswordHash != "$2a$10$hash" {
		t.Errorf("got = %+v", got)
	}
	if !got.User.IsAdmin() {
		t.Error("expected admin role")
	}
}

func TestQueryRefreshTokenLifecycle(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	exp := now.Add(168 * time.Hour)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs("hash1", "u1", exp, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rt := &store.RefreshToken{TokenHash: "hash1", UserID: "u1", ExpiresAt: exp, CreatedAt: now}
	if err := querySaveRefreshToken(context.Background(), db, rt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := sqlmock.NewRows([]string{"token_hash", "user_id", "expires_at", "created_at"}).
		AddRow("hash1", "u1", exp, now)
	mock.ExpectQuery("SELECT .+ FROM refresh_tokens WHERE token_hash = \\$1").WithArgs("hash1").
		WillReturnRows(rows)

	got, err := queryGetRefreshToken(context.Background(), db, "hash1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != "u1" || !got.ExpiresAt.Equal(exp) {
		t.Errorf("got = %+v", got)
	}

	mock.ExpectExec("DELETE FROM refresh_tokens WHERE token_hash = \\$1").WithArgs("hash1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := queryDeleteRefreshToken(context.Background(), db, "hash1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryDeleteExpiredRefreshTokens(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE expires_at < NOW\\(\\)").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := queryDeleteExpiredRefreshTokens(context.Background(), db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
}

func TestQueryNotifications(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs("n1", "u1", "task_moved", "Task moved", sqlmock.AnyArg(), sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := &model.Notification{ID: "n1", UserID: "u1", Type: "task_moved", Message: "Task moved", CreatedAt: now}
	if err := queryCreateNotification(context.Background(), db, n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "user_id", "type", "message", "task_id", "project_id", "created_at"}).
		AddRow("n2", "u1", "task_assigned", "Assigned to you", "ft-1", nil, now).
		AddRow("n1", "u1", "task_moved", "Task moved", nil, nil, now)
	mock.ExpectQuery("SELECT .+ FROM notifications WHERE user_id = \\$1").
		WithArgs("u1", 100).
		WillReturnRows(rows)

	got, err := queryListNotifications(context.Background(), db, "u1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "n2" || got[0].TaskID != "ft-1" {
		t.Errorf("got = %+v", got)
	}
}

func TestRunInTransactionCommit(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE token_hash = \\$1").WithArgs("hash1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.DeleteRefreshToken(context.Background(), "hash1")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunInTransactionRollback(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
