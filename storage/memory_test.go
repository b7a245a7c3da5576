package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskboard-api/domain"
)

func seedUser(t *testing.T, m *Memory, email string) domain.User {
	t.Helper()
	u, err := m.CreateUser(context.Background(), domain.User{
		Name:         "Test User",
		Email:        email,
		Phone:        "+100000000",
		Address:      "Somewhere",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestMemoryCreateUserDuplicateEmail(t *testing.T) {
	m := NewMemory()
	seedUser(t, m, "dup@example.com")

	_, err := m.CreateUser(context.Background(), domain.User{Email: "dup@example.com"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestMemoryUserLookups(t *testing.T) {
	m := NewMemory()
	u := seedUser(t, m, "who@example.com")

	byEmail, err := m.UserByEmail(context.Background(), "who@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("UserByEmail = %#v, %v", byEmail, err)
	}
	byID, err := m.UserByID(context.Background(), u.ID)
	if err != nil || byID.Email != "who@example.com" {
		t.Fatalf("UserByID = %#v, %v", byID, err)
	}
	if _, err := m.UserByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryListTasksOrderedAndFiltered(t *testing.T) {
	m := NewMemory()
	owner := seedUser(t, m, "owner@example.com")
	other := seedUser(t, m, "other@example.com")
	ctx := context.Background()

	base := time.Date(2024, 11, 10, 8, 0, 0, 0, time.UTC)
	mkTask := func(offset time.Duration, status domain.Status, priority domain.Priority, userID string) domain.Task {
		at := base.Add(offset)
		m.SetClock(func() time.Time { return at })
		created, err := m.CreateTask(ctx, domain.Task{UserID: userID, Title: "t", Priority: priority, Status: status})
		if err != nil {
			t.Fatalf("create task: %v", err)
		}
		return created
	}

	t1 := mkTask(0, domain.StatusPending, domain.PriorityLow, owner.ID)
	t2 := mkTask(time.Hour, domain.StatusCompleted, domain.PriorityHigh, owner.ID)
	t3 := mkTask(2*time.Hour, domain.StatusCompleted, domain.PriorityLow, owner.ID)
	mkTask(3*time.Hour, domain.StatusPending, domain.PriorityLow, other.ID)

	all, err := m.ListTasks(ctx, owner.ID, domain.TaskFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != t3.ID || all[1].ID != t2.ID || all[2].ID != t1.ID {
		t.Fatalf("expected newest-first [t3 t2 t1], got %#v", all)
	}

	completed, err := m.ListTasks(ctx, owner.ID, domain.TaskFilter{Status: "completed"})
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 2 || completed[0].ID != t3.ID || completed[1].ID != t2.ID {
		t.Fatalf("unexpected completed subset: %#v", completed)
	}

	high, err := m.ListTasks(ctx, owner.ID, domain.TaskFilter{Status: "all", Priority: "high"})
	if err != nil {
		t.Fatalf("list high: %v", err)
	}
	if len(high) != 1 || high[0].ID != t2.ID {
		t.Fatalf("unexpected high subset: %#v", high)
	}
}

func TestMemoryOwnershipEnforced(t *testing.T) {
	m := NewMemory()
	owner := seedUser(t, m, "owner@example.com")
	intruder := seedUser(t, m, "intruder@example.com")
	ctx := context.Background()

	task, err := m.CreateTask(ctx, domain.Task{UserID: owner.ID, Title: "private"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := m.TaskByID(ctx, intruder.ID, task.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("get: expected ErrNotOwner, got %v", err)
	}
	title := "stolen"
	if _, err := m.UpdateTask(ctx, intruder.ID, task.ID, domain.TaskPatch{Title: &title}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("update: expected ErrNotOwner, got %v", err)
	}
	if err := m.DeleteTask(ctx, intruder.ID, task.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("delete: expected ErrNotOwner, got %v", err)
	}

	got, err := m.TaskByID(ctx, owner.ID, task.ID)
	if err != nil || got.Title != "private" {
		t.Fatalf("row must be untouched, got %#v, %v", got, err)
	}
}

func TestMemoryUpdatePartial(t *testing.T) {
	m := NewMemory()
	owner := seedUser(t, m, "owner@example.com")
	ctx := context.Background()

	created := time.Date(2024, 11, 10, 8, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return created })
	task, err := m.CreateTask(ctx, domain.Task{
		UserID: owner.ID, Title: "title", Description: "desc",
		Priority: domain.PriorityHigh, Status: domain.StatusPending,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	later := created.Add(time.Hour)
	m.SetClock(func() time.Time { return later })
	status := domain.StatusCompleted
	updated, err := m.UpdateTask(ctx, owner.ID, task.ID, domain.TaskPatch{Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %q", updated.Status)
	}
	if updated.Title != "title" || updated.Description != "desc" || updated.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected field changes: %#v", updated)
	}
	if !updated.UpdatedAt.Equal(later) || !updated.CreatedAt.Equal(created) {
		t.Fatalf("unexpected timestamps: %#v", updated)
	}
}

func TestMemoryDeleteNotIdempotent(t *testing.T) {
	m := NewMemory()
	owner := seedUser(t, m, "owner@example.com")
	ctx := context.Background()

	task, err := m.CreateTask(ctx, domain.Task{UserID: owner.ID, Title: "gone"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.DeleteTask(ctx, owner.ID, task.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	tasks, err := m.ListTasks(ctx, owner.ID, domain.TaskFilter{})
	if err != nil || len(tasks) != 0 {
		t.Fatalf("expected empty list after delete, got %#v, %v", tasks, err)
	}
	if err := m.DeleteTask(ctx, owner.ID, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("second delete: expected ErrTaskNotFound, got %v", err)
	}
}

func TestMemoryResetDropsEverything(t *testing.T) {
	m := NewMemory()
	owner := seedUser(t, m, "owner@example.com")
	if _, err := m.CreateTask(context.Background(), domain.Task{UserID: owner.ID, Title: "x"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	m.Reset()

	if _, err := m.UserByID(context.Background(), owner.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user gone after reset, got %v", err)
	}
}

func TestSeedDemo(t *testing.T) {
	m := NewMemory()
	users, err := SeedDemo(m)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 seeded users, got %d", len(users))
	}

	tasks, err := m.ListTasks(context.Background(), users[0].ID, domain.TaskFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 seeded tasks, got %d", len(tasks))
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i].CreatedAt.After(tasks[i-1].CreatedAt) {
			t.Fatalf("seeded tasks not newest-first at %d: %#v", i, tasks)
		}
	}

	other, err := m.ListTasks(context.Background(), users[1].ID, domain.TaskFilter{})
	if err != nil || len(other) != 0 {
		t.Fatalf("expected second user to have no tasks, got %#v, %v", other, err)
	}
}
