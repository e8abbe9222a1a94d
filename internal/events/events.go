package events

import (
	"context"

	"github.com/TheFastest599/flowtrack/internal/model"
)

// Event topic constants. Per-user notification subjects are built with
// NotifySubject; the rest are broadcast subjects.
const (
	TopicTaskCreated  = "flowtrack.task.created"
	TopicTaskUpdated  = "flowtrack.task.updated"
	TopicTaskMoved    = "flowtrack.task.moved"
	TopicTaskDeleted  = "flowtrack.task.deleted"
	TopicTaskAssigned = "flowtrack.task.assigned"

	// notifyPrefix scopes per-user notification subjects.
	notifyPrefix = "flowtrack.notify."
)

// NotifySubject returns the per-user subject notifications for userID are
// published on.
func NotifySubject(userID string) string {
	return notifyPrefix + userID
}

// Event payloads.

type TaskCreated struct {
	Task *model.Task `json:"task"`
}

type TaskUpdated struct {
	Task    *model.Task    `json:"task"`
	Changes map[string]any `json:"changes"` // field name -> new value
}

type TaskMoved struct {
	Task *model.Task      `json:"task"`
	From model.TaskStatus `json:"from"`
	To   model.TaskStatus `json:"to"`
}

type TaskDeleted struct {
	TaskID string `json:"task_id"`
}

type TaskAssigned struct {
	Task       *model.Task `json:"task"`
	AssignedTo string      `json:"assigned_to"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
