package client

import (
	"context"
	"fmt"
	"sync"

	"taskboard-api/domain"
)

// Filters narrows the view over the cached task list. Empty or "all" values
// pass everything.
type Filters struct {
	Status   string
	Priority string
}

// Stats summarizes the cached list; it always reflects all cached tasks,
// never the filtered view.
type Stats struct {
	Total      int
	Completed  int
	Pending    int
	ByPriority map[domain.Priority]int
}

// TaskStore keeps a local cache of the caller's tasks and mutates it in step
// with successful server writes. A failed write leaves the cache untouched.
type TaskStore struct {
	api *Client

	mu      sync.Mutex
	tasks   []domain.Task
	filters Filters
	lastErr error
}

func NewTaskStore(api *Client) *TaskStore {
	return &TaskStore{
		api:     api,
		filters: Filters{Status: "all", Priority: "all"},
	}
}

// Fetch replaces the cache with the full unfiltered list from the server.
// On error the previous cache is kept.
func (ts *TaskStore) Fetch(ctx context.Context) error {
	tasks, err := ts.api.ListTasks(ctx, "", "")
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if err != nil {
		ts.lastErr = err
		return err
	}
	ts.tasks = tasks
	ts.lastErr = nil
	return nil
}

// Tasks returns a copy of the full cached list, newest first.
func (ts *TaskStore) Tasks() []domain.Task {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]domain.Task, len(ts.tasks))
	copy(out, ts.tasks)
	return out
}

// Filtered returns the cached tasks matching the active filters, preserving
// order.
func (ts *TaskStore) Filtered() []domain.Task {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	filter := domain.TaskFilter{Status: ts.filters.Status, Priority: ts.filters.Priority}
	out := make([]domain.Task, 0, len(ts.tasks))
	for _, task := range ts.tasks {
		if filter.Match(task) {
			out = append(out, task)
		}
	}
	return out
}

func (ts *TaskStore) Filters() Filters {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.filters
}

// SetFilters updates only the non-empty fields of f.
func (ts *TaskStore) SetFilters(f Filters) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if f.Status != "" {
		ts.filters.Status = f.Status
	}
	if f.Priority != "" {
		ts.filters.Priority = f.Priority
	}
}

func (ts *TaskStore) ClearFilters() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.filters = Filters{Status: "all", Priority: "all"}
}

// Stats counts the cached tasks. Pending covers everything not completed.
func (ts *TaskStore) Stats() Stats {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	stats := Stats{
		Total:      len(ts.tasks),
		ByPriority: make(map[domain.Priority]int),
	}
	for _, task := range ts.tasks {
		if task.Status == domain.StatusCompleted {
			stats.Completed++
		} else {
			stats.Pending++
		}
		stats.ByPriority[task.Priority]++
	}
	return stats
}

// LastError returns the most recent operation error, or nil.
func (ts *TaskStore) LastError() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.lastErr
}

func (ts *TaskStore) ClearError() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.lastErr = nil
}

// Create posts a new task and, on success, puts it at the head of the cache.
func (ts *TaskStore) Create(ctx context.Context, in TaskInput) (domain.Task, error) {
	task, err := ts.api.CreateTask(ctx, in)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if err != nil {
		ts.lastErr = err
		return domain.Task{}, err
	}
	ts.tasks = append([]domain.Task{task}, ts.tasks...)
	ts.lastErr = nil
	return task, nil
}

// Update applies a partial update and splices the result into the cache.
func (ts *TaskStore) Update(ctx context.Context, id string, patch TaskPatchInput) (domain.Task, error) {
	task, err := ts.api.UpdateTask(ctx, id, patch)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if err != nil {
		ts.lastErr = err
		return domain.Task{}, err
	}
	ts.replaceLocked(task)
	ts.lastErr = nil
	return task, nil
}

// Complete marks a task completed.
func (ts *TaskStore) Complete(ctx context.Context, id string) (domain.Task, error) {
	status := domain.StatusCompleted
	return ts.Update(ctx, id, TaskPatchInput{Status: &status})
}

// Delete removes the task server-side first; the cache entry goes only after
// the server confirms.
func (ts *TaskStore) Delete(ctx context.Context, id string) error {
	err := ts.api.DeleteTask(ctx, id)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if err != nil {
		ts.lastErr = err
		return err
	}
	ts.removeLocked(id)
	ts.lastErr = nil
	return nil
}

// UpdateMany applies the same patch to every id concurrently. Successes land
// in the cache even when siblings fail; failures are only counted, never
// rolled back.
func (ts *TaskStore) UpdateMany(ctx context.Context, ids []string, patch TaskPatchInput) error {
	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			task, err := ts.api.UpdateTask(ctx, id, patch)
			ts.mu.Lock()
			defer ts.mu.Unlock()
			if err != nil {
				failMu.Lock()
				failed++
				failMu.Unlock()
				return
			}
			ts.replaceLocked(task)
		}(id)
	}
	wg.Wait()
	if failed > 0 {
		err := fmt.Errorf("%d of %d updates failed", failed, len(ids))
		ts.mu.Lock()
		ts.lastErr = err
		ts.mu.Unlock()
		return err
	}
	return nil
}

// DeleteMany removes every id concurrently with the same partial-failure
// semantics as UpdateMany.
func (ts *TaskStore) DeleteMany(ctx context.Context, ids []string) error {
	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := ts.api.DeleteTask(ctx, id); err != nil {
				failMu.Lock()
				failed++
				failMu.Unlock()
				return
			}
			ts.mu.Lock()
			ts.removeLocked(id)
			ts.mu.Unlock()
		}(id)
	}
	wg.Wait()
	if failed > 0 {
		err := fmt.Errorf("%d of %d deletes failed", failed, len(ids))
		ts.mu.Lock()
		ts.lastErr = err
		ts.mu.Unlock()
		return err
	}
	return nil
}

func (ts *TaskStore) replaceLocked(task domain.Task) {
	for i := range ts.tasks {
		if ts.tasks[i].ID == task.ID {
			ts.tasks[i] = task
			return
		}
	}
	ts.tasks = append([]domain.Task{task}, ts.tasks...)
}

func (ts *TaskStore) removeLocked(id string) {
	for i := range ts.tasks {
		if ts.tasks[i].ID == id {
			ts.tasks = append(ts.tasks[:i], ts.tasks[i+1:]...)
			return
		}
	}
}
