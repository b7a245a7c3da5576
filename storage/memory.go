package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskboard-api/domain"
)

// Memory is an in-memory implementation of the same contract as Store. It
// backs demo mode and tests; instances are independent so tests never share
// state through a process-wide singleton.
type Memory struct {
	mu    sync.Mutex
	users map[string]domain.User
	tasks map[string]domain.Task
	now   func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{now: time.Now}
	m.reset()
	return m
}

// Reset drops all users and tasks.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *Memory) reset() {
	m.users = make(map[string]domain.User)
	m.tasks = make(map[string]domain.Task)
}

// SetClock overrides the time source. Intended for tests and seeding.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.User{}, ErrEmailTaken
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = m.now().UTC()
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, ErrUserNotFound
}

func (m *Memory) UserByID(ctx context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.NewString()
	now := m.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.tasks[t.ID] = t
	return t, nil
}

func (m *Memory) ListTasks(ctx context.Context, userID string, f domain.TaskFilter) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := []domain.Task{}
	for _, t := range m.tasks {
		if t.UserID != userID || !f.Match(t) {
			continue
		}
		tasks = append(tasks, t)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (m *Memory) TaskByID(ctx context.Context, userID, taskID string) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.taskByIDLocked(userID, taskID)
}

func (m *Memory) taskByIDLocked(userID, taskID string) (domain.Task, error) {
	t, ok := m.tasks[taskID]
	if !ok {
		return domain.Task{}, ErrTaskNotFound
	}
	if t.UserID != userID {
		return domain.Task{}, ErrNotOwner
	}
	return t, nil
}

func (m *Memory) UpdateTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.taskByIDLocked(userID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	patch.Apply(&t, m.now().UTC())
	m.tasks[taskID] = t
	return t, nil
}

func (m *Memory) DeleteTask(ctx context.Context, userID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.taskByIDLocked(userID, taskID); err != nil {
		return err
	}
	delete(m.tasks, taskID)
	return nil
}
