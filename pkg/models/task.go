package models

import "time"

// Task is the domain entity manipulated by action steps.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	ProjectID   string    `json:"project_id,omitempty"`
	AssigneeID  string    `json:"assignee_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskFields carries the task attributes an action step sets.
// Nil fields are left untouched on update.
type TaskFields struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	ProjectID   *string `json:"project_id,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
}

// Apply copies the non-nil fields onto the task.
func (f TaskFields) Apply(task *Task) {
	if f.Title != nil {
		task.Title = *f.Title
	}

	if f.Description != nil {
		task.Description = *f.Description
	}

	if f.Status != nil {
		task.Status = *f.Status
	}

	if f.Priority != nil {
		task.Priority = *f.Priority
	}

	if f.ProjectID != nil {
		task.ProjectID = *f.ProjectID
	}

	if f.AssigneeID != nil {
		task.AssigneeID = *f.AssigneeID
	}
}

// Notification is a user-facing message created by notification steps.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
