package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/TheFastest599/flowtrack/internal/model"
	"github.com/TheFastest599/flowtrack/internal/store"
)

// taskColumns is the column list used for SELECT statements on the tasks table.
const taskColumns = `id, title, description, status, priority, deadline,
	project_id, assigned_to, created_by, created_at, updated_at`

// userColumns is the column list used for SELECT statements on the users table.
const userColumns = `id, name, email, role, created_at, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateUser(ctx context.Context, db executor, rec *store.UserRecord) error {
	u := rec.User
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID,
		u.Name,
		u.Email,
		string(u.Role),
		rec.PasswordHash,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return err
}

func queryGetUser(ctx context.Context, db executor, id string) (*model.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func queryGetUserByEmail(ctx context.Context, db executor, email string) (*store.UserRecord, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+userColumns+`, password_hash FROM users WHERE email = $1`, email)
	return scanUserRecord(row)
}

func querySaveRefreshToken(ctx context.Context, db executor, rt *store.RefreshToken) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO UPDATE SET expires_at = $3`,
		rt.TokenHash, rt.UserID, rt.ExpiresAt, rt.CreatedAt,
	)
	return err
}

func queryGetRefreshToken(ctx context.Context, db executor, tokenHash string) (*store.RefreshToken, error) {
	row := db.QueryRowContext(ctx, `
		SELECT token_hash, user_id, expires_at, created_at
		FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	return scanRefreshToken(row)
}

func queryDeleteRefreshToken(ctx context.Context, db executor, tokenHash string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	return err
}

func queryDeleteExpiredRefreshTokens(ctx context.Context, db executor) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func queryCreateTask(ctx context.Context, db executor, t *model.Task) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, status, priority, deadline,
			project_id, assigned_to, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)`,
		t.ID,
		t.Title,
		nullString(t.Description),
		string(t.Status),
		string(t.Priority),
		nullTimePtr(t.Deadline),
		nullString(t.ProjectID),
		nullString(t.AssignedTo),
		nullString(t.CreatedBy),
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

func queryGetTask(ctx context.Context, db executor, id string) (*model.Task, error) {
	row := db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func queryListTasks(ctx context.Context, db executor, filter model.TaskFilter) ([]*model.Task, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.ProjectID != "" {
		whereClauses = append(whereClauses, "project_id = "+nextArg())
		args = append(args, filter.ProjectID)
	}

	if filter.Assignee != "" {
		whereClauses = append(whereClauses, "assigned_to = "+nextArg())
		args = append(args, filter.Assignee)
	}

	if filter.Search != "" {
		p := nextArg()
		whereClauses = append(whereClauses,
			fmt.Sprintf("(title ILIKE '%%' || %s || '%%' OR description ILIKE '%%' || %s || '%%')", p, p))
		args = append(args, filter.Search)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + taskColumns +
		" FROM tasks" + whereSQL + " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	var total int
	for rows.Next() {
		t, n, err := scanTaskWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan tasks: %w", err)
		}
		total = n
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan tasks: %w", err)
	}

	return tasks, total, nil
}

func queryUpdateTask(ctx context.Context, db executor, t *model.Task) error {
	return db.QueryRowContext(ctx, `
		UPDATE tasks SET
			title = $2,
			description = $3,
			status = $4,
			priority = $5,
			deadline = $6,
			project_id = $7,
			assigned_to = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID,
		t.Title,
		nullString(t.Description),
		string(t.Status),
		string(t.Priority),
		nullTimePtr(t.Deadline),
		nullString(t.ProjectID),
		nullString(t.AssignedTo),
	).Scan(&t.UpdatedAt)
}

// queryMoveTask flips the status only when the current value matches from.
// A concurrent move that already changed the status makes this return
// sql.ErrNoRows, which callers map to a conflict.
func queryMoveTask(ctx context.Context, db executor, id string, from, to model.TaskStatus) (*model.Task, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE tasks
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+taskColumns,
		id, string(from), string(to),
	)
	return scanTask(row)
}

func queryDeleteTask(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryCreateNotification(ctx context.Context, db executor, n *model.Notification) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, message, task_id, project_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID,
		n.UserID,
		n.Type,
		n.Message,
		nullString(n.TaskID),
		nullString(n.ProjectID),
		n.CreatedAt,
	)
	return err
}

func queryListNotifications(ctx context.Context, db executor, userID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, type, message, task_id, project_id, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}
