package postgres

import (
	"database/sql"
	"time"

	"github.com/TheFastest599/flowtrack/internal/model"
	"github.com/TheFastest599/flowtrack/internal/store"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanTask scans a single row into a model.Task.
// The row must contain columns in the order defined by taskColumns.
func scanTask(row scannable) (*model.Task, error) {
	var t model.Task
	var (
		description sql.NullString
		deadline    sql.NullTime
		projectID   sql.NullString
		assignedTo  sql.NullString
		createdBy   sql.NullString
	)

	err := row.Scan(
		&t.ID,
		&t.Title,
		&description,
		&t.Status,
		&t.Priority,
		&deadline,
		&projectID,
		&assignedTo,
		&createdBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.ProjectID = projectID.String
	t.AssignedTo = assignedTo.String
	t.CreatedBy = createdBy.String

	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
	}

	return &t, nil
}

// scanTaskWithTotal scans a row that has a leading total_count column
// followed by the standard task columns. Used by queryListTasks with
// COUNT(*) OVER().
func scanTaskWithTotal(row scannable) (*model.Task, int, error) {
	var total int
	var t model.Task
	var (
		description sql.NullString
		deadline    sql.NullTime
		projectID   sql.NullString
		assignedTo  sql.NullString
		createdBy   sql.NullString
	)

	err := row.Scan(
		&total,
		&t.ID,
		&t.Title,
		&description,
		&t.Status,
		&t.Priority,
		&deadline,
		&projectID,
		&assignedTo,
		&createdBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, 0, err
	}

	t.Description = description.String
	t.ProjectID = projectID.String
	t.AssignedTo = assignedTo.String
	t.CreatedBy = createdBy.String

	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
	}

	return &t, total, nil
}

// scanUser scans a single row into a model.User.
func scanUser(row scannable) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// scanUserRecord scans user columns plus the trailing password_hash.
func scanUserRecord(row scannable) (*store.UserRecord, error) {
	var u model.User
	var hash string
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
		&hash,
	)
	if err != nil {
		return nil, err
	}
	return &store.UserRecord{User: &u, PasswordHash: hash}, nil
}

// scanRefreshToken scans a single row into a store.RefreshToken.
func scanRefreshToken(row scannable) (*store.RefreshToken, error) {
	var rt store.RefreshToken
	err := row.Scan(
		&rt.TokenHash,
		&rt.UserID,
		&rt.ExpiresAt,
		&rt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// scanNotification scans a single row into a model.Notification.
func scanNotification(row scannable) (*model.Notification, error) {
	var n model.Notification
	var (
		taskID    sql.NullString
		projectID sql.NullString
	)
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Message,
		&taskID,
		&projectID,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.TaskID = taskID.String
	n.ProjectID = projectID.String
	return &n, nil
}

// scanNotifications scans multiple rows into a slice of model.Notification pointers.
func scanNotifications(rows *sql.Rows) ([]*model.Notification, error) {
	var notifs []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifs, nil
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
