package domain

import "time"

// Priority ranks how soon a task should be picked up.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// DefaultPriority is applied when a create request omits the field.
const DefaultPriority = PriorityMedium

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status tracks a task through its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// DefaultStatus is applied when a create request omits the field.
const DefaultStatus = StatusPending

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Task is a single to-do item owned by exactly one user.
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Status      *Status
}

// Empty reports whether the patch would change nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Status == nil
}

// Apply overwrites the supplied fields on t. UpdatedAt is always refreshed,
// even when the patch is empty.
func (p TaskPatch) Apply(t *Task, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	t.UpdatedAt = now
}

// TaskFilter narrows a task listing. Empty or "all" values pass everything.
type TaskFilter struct {
	Status   string
	Priority string
}

// Match reports whether t satisfies the filter.
func (f TaskFilter) Match(t Task) bool {
	if f.Status != "" && f.Status != "all" && string(t.Status) != f.Status {
		return false
	}
	if f.Priority != "" && f.Priority != "all" && string(t.Priority) != f.Priority {
		return false
	}
	return true
}

// Unfiltered reports whether the filter passes every task.
func (f TaskFilter) Unfiltered() bool {
	return (f.Status == "" || f.Status == "all") && (f.Priority == "" || f.Priority == "all")
}
