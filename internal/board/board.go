// Package board reconciles optimistic drag-and-drop status changes against
// the server. Each move applies locally first, then commits in the
// background; a rejected commit rolls the entity back and emits a transient
// notice. Only the most recent move per entity governs the visible value.
package board

import (
	"context"
	"log/slog"
	"sync"

	"github.com/TheFastest599/flowtrack/internal/model"
)

// IntentStatus is the lifecycle state of one optimistic move.
type IntentStatus string

const (
	IntentPending    IntentStatus = "pending"
	IntentConfirmed  IntentStatus = "confirmed"
	IntentRolledBack IntentStatus = "rolled_back"
)

// Intent records one optimistic status change awaiting server resolution.
type Intent struct {
	EntityID string
	Previous model.TaskStatus
	Proposed model.TaskStatus
	Status   IntentStatus
}

// CommitFunc persists a move on the server.
type CommitFunc func(ctx context.Context, entityID string, to model.TaskStatus) error

// Notice is a transient user-facing message emitted when a move is rejected
// and the entity reverts.
type Notice struct {
	EntityID   string
	RevertedTo model.TaskStatus
	Message    string
}

// Coordinator owns the locally visible status per entity and serializes
// concurrent moves against the same entity: a newer move supersedes the
// in-flight one, whose result is then ignored. The visible value after all
// commits resolve is always the outcome of the last user-initiated move.
type Coordinator struct {
	logger     *slog.Logger
	onNotice   func(Notice)
	onResolved func(Intent)

	mu      sync.Mutex
	visible map[string]model.TaskStatus
	pending map[string]*Intent // at most one per entity
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// WithNoticeFunc sets the callback invoked when a rejected move reverts.
func WithNoticeFunc(fn func(Notice)) CoordinatorOption {
	return func(c *Coordinator) { c.onNotice = fn }
}

// WithResolvedFunc sets the callback invoked once per governing move when its
// commit resolves, confirmed or rolled back. Superseded moves never fire it.
func WithResolvedFunc(fn func(Intent)) CoordinatorOption {
	return func(c *Coordinator) { c.onResolved = fn }
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		logger:  slog.Default(),
		visible: make(map[string]model.TaskStatus),
		pending: make(map[string]*Intent),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load seeds the visible state from a server-provided task list. Entities
// with a pending move keep their optimistic value.
func (c *Coordinator) Load(tasks []*model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tasks {
		if _, inFlight := c.pending[t.ID]; inFlight {
			continue
		}
		c.visible[t.ID] = t.Status
	}
}

// Visible returns the locally visible status for an entity.
func (c *Coordinator) Visible(entityID string) (model.TaskStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.visible[entityID]
	return st, ok
}

// Snapshot returns a copy of all visible statuses.
func (c *Coordinator) Snapshot() map[string]model.TaskStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]model.TaskStatus, len(c.visible))
	for id, st := range c.visible {
		out[id] = st
	}
	return out
}

// PendingCount returns the number of entities with an unresolved move.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Apply records an optimistic move and commits it in the background.
//
// The visible value flips to proposed before the commit is issued. A prior
// pending move for the same entity is superseded: its commit is left to
// finish but its result no longer affects the visible state. On commit
// failure the entity reverts to previous and a notice is emitted.
func (c *Coordinator) Apply(ctx context.Context, entityID string, previous, proposed model.TaskStatus, commit CommitFunc) {
	it := &Intent{
		EntityID: entityID,
		Previous: previous,
		Proposed: proposed,
		Status:   IntentPending,
	}

	c.mu.Lock()
	if old, ok := c.pending[entityID]; ok {
		c.logger.Debug("board: superseding in-flight move",
			"entity", entityID, "superseded_to", old.Proposed, "new_to", proposed)
	}
	c.pending[entityID] = it
	c.visible[entityID] = proposed
	c.mu.Unlock()

	go c.resolve(ctx, it, commit)
}

// resolve waits for the commit and reconciles, unless the intent was
// superseded while in flight.
func (c *Coordinator) resolve(ctx context.Context, it *Intent, commit CommitFunc) {
	err := commit(ctx, it.EntityID, it.Proposed)

	var notice *Notice
	c.mu.Lock()
	if c.pending[it.EntityID] != it {
		// Superseded: a later move owns the visible value now.
		if err != nil {
			it.Status = IntentRolledBack
		} else {
			it.Status = IntentConfirmed
		}
		c.mu.Unlock()
		return
	}
	delete(c.pending, it.EntityID)
	if err != nil {
		it.Status = IntentRolledBack
		c.visible[it.EntityID] = it.Previous
		notice = &Notice{
			EntityID:   it.EntityID,
			RevertedTo: it.Previous,
			Message:    err.Error(),
		}
	} else {
		it.Status = IntentConfirmed
	}
	c.mu.Unlock()

	if notice != nil {
		c.logger.Warn("board: move rejected, reverting",
			"entity", it.EntityID, "reverted_to", notice.RevertedTo, "error", err)
		if c.onNotice != nil {
			c.onNotice(*notice)
		}
	}
	if c.onResolved != nil {
		c.onResolved(*it)
	}
}
