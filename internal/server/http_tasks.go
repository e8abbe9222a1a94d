package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/TheFastest599/flowtrack/internal/events"
	"github.com/TheFastest599/flowtrack/internal/idgen"
	"github.com/TheFastest599/flowtrack/internal/model"
)

// handleCreateTask handles POST /v1/tasks.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Priority    string     `json:"priority"`
		Deadline    *time.Time `json:"deadline"`
		ProjectID   string     `json:"project_id"`
		AssignedTo  string     `json:"assigned_to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	priority := model.Priority(in.Priority)
	if in.Priority == "" {
		priority = model.PriorityMedium
	} else if !priority.IsValid() {
		writeError(w, http.StatusUnprocessableEntity, "priority must be one of low, medium, high")
		return
	}

	id, err := idgen.Generate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate id")
		return
	}

	now := time.Now().UTC()
	task := &model.Task{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Status:      model.StatusTodo,
		Priority:    priority,
		Deadline:    in.Deadline,
		ProjectID:   in.ProjectID,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   actor(r),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	s.publish(r.Context(), events.TopicTaskCreated, events.TaskCreated{Task: task})
	if task.AssignedTo != "" && task.AssignedTo != actor(r) {
		s.notify(r.Context(), task.AssignedTo, "task_assigned",
			fmt.Sprintf("You were assigned %q", task.Title), task)
	}

	writeJSON(w, http.StatusCreated, task)
}

// handleListTasks handles GET /v1/tasks.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TaskFilter{
		ProjectID: q.Get("project_id"),
		Assignee:  q.Get("assignee"),
		Search:    q.Get("search"),
	}

	if v := q.Get("status"); v != "" {
		for _, st := range strings.Split(v, ",") {
			filter.Status = append(filter.Status, model.TaskStatus(st))
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	tasks, total, err := s.store.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	// Ensure tasks is never null in JSON output.
	if tasks == nil {
		tasks = []*model.Task{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"total": total,
	})
}

// handleGetTask handles GET /v1/tasks/{id}.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, err := s.store.GetTask(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// handleUpdateTask handles PATCH /v1/tasks/{id}.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, err := s.store.GetTask(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}

	var in struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Priority    *string    `json:"priority"`
		Deadline    *time.Time `json:"deadline"`
		ProjectID   *string    `json:"project_id"`
		AssignedTo  *string    `json:"assigned_to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	changes := make(map[string]any)
	prevAssignee := task.AssignedTo
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			writeError(w, http.StatusUnprocessableEntity, "title cannot be empty")
			return
		}
		task.Title = strings.TrimSpace(*in.Title)
		changes["title"] = task.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
		changes["description"] = task.Description
	}
	if in.Priority != nil {
		p := model.Priority(*in.Priority)
		if !p.IsValid() {
			writeError(w, http.StatusUnprocessableEntity, "priority must be one of low, medium, high")
			return
		}
		task.Priority = p
		changes["priority"] = p
	}
	if in.Deadline != nil {
		task.Deadline = in.Deadline
		changes["deadline"] = in.Deadline
	}
	if in.ProjectID != nil {
		task.ProjectID = *in.ProjectID
		changes["project_id"] = task.ProjectID
	}
	if in.AssignedTo != nil {
		task.AssignedTo = *in.AssignedTo
		changes["assigned_to"] = task.AssignedTo
	}

	if err := s.store.UpdateTask(r.Context(), task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	s.publish(r.Context(), events.TopicTaskUpdated, events.TaskUpdated{Task: task, Changes: changes})
	if in.AssignedTo != nil && task.AssignedTo != "" && task.AssignedTo != prevAssignee && task.AssignedTo != actor(r) {
		s.publish(r.Context(), events.TopicTaskAssigned, events.TaskAssigned{Task: task, AssignedTo: task.AssignedTo})
		s.notify(r.Context(), task.AssignedTo, "task_assigned",
			fmt.Sprintf("You were assigned %q", task.Title), task)
	}

	writeJSON(w, http.StatusOK, task)
}

// handleMoveTask handles POST /v1/tasks/{id}/move: a kanban column change.
// A move to the task's current column, or one racing a concurrent move, is
// rejected with 409 so optimistic clients can roll back.
func (s *Server) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var in struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	to := model.TaskStatus(in.Status)
	if !to.IsValid() {
		writeError(w, http.StatusUnprocessableEntity, "status must be one of todo, in_progress, done")
		return
	}

	task, err := s.store.GetTask(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task.Status == to {
		writeError(w, http.StatusConflict, "task is already in "+to.String())
		return
	}

	from := task.Status
	moved, err := s.store.MoveTask(r.Context(), id, from, to)
	if errors.Is(err, sql.ErrNoRows) {
		// Someone else moved the task between our read and the update.
		writeError(w, http.StatusConflict, "task status changed concurrently")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to move task")
		return
	}

	s.publish(r.Context(), events.TopicTaskMoved, events.TaskMoved{Task: moved, From: from, To: to})
	if moved.AssignedTo != "" && moved.AssignedTo != actor(r) {
		s.notify(r.Context(), moved.AssignedTo, "task_moved",
			fmt.Sprintf("%q moved from %s to %s", moved.Title, from, to), moved)
	}

	writeJSON(w, http.StatusOK, moved)
}

// handleDeleteTask handles DELETE /v1/tasks/{id}. Admin only.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if actorRole(r) != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	id := r.PathValue("id")
	if err := s.store.DeleteTask(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	s.publish(r.Context(), events.TopicTaskDeleted, events.TaskDeleted{TaskID: id})

	w.WriteHeader(http.StatusNoContent)
}

// handleListNotifications handles GET /v1/notifications for the caller.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	notifs, err := s.store.ListNotifications(r.Context(), actor(r), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifs == nil {
		notifs = []*model.Notification{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifs})
}
