package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"taskboard-api/domain"
)

type backend interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByID(ctx context.Context, id string) (domain.User, error)
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	ListTasks(ctx context.Context, userID string, f domain.TaskFilter) ([]domain.Task, error)
	TaskByID(ctx context.Context, userID, taskID string) (domain.Task, error)
	UpdateTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
	Ping(ctx context.Context) error
}

// Cache wraps a store with Redis-backed caching of the unfiltered per-user
// task list. Filtered listings go straight to the backing store. Any write
// for a user evicts that user's entry.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
// A nil client disables caching without changing behaviour.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) Ping(ctx context.Context) error { return c.base.Ping(ctx) }

func (c *Cache) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	return c.base.CreateUser(ctx, u)
}

func (c *Cache) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	return c.base.UserByEmail(ctx, email)
}

func (c *Cache) UserByID(ctx context.Context, id string) (domain.User, error) {
	return c.base.UserByID(ctx, id)
}

func (c *Cache) ListTasks(ctx context.Context, userID string, f domain.TaskFilter) ([]domain.Task, error) {
	if !f.Unfiltered() {
		return c.base.ListTasks(ctx, userID, f)
	}
	if tasks, ok := c.loadTasks(ctx, userID); ok {
		return tasks, nil
	}
	tasks, err := c.base.ListTasks(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	c.storeTasks(ctx, userID, tasks)
	return tasks, nil
}

func (c *Cache) TaskByID(ctx context.Context, userID, taskID string) (domain.Task, error) {
	return c.base.TaskByID(ctx, userID, taskID)
}

func (c *Cache) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	created, err := c.base.CreateTask(ctx, t)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, created.UserID)
	return created, nil
}

func (c *Cache) UpdateTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	updated, err := c.base.UpdateTask(ctx, userID, taskID, patch)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, userID)
	return updated, nil
}

func (c *Cache) DeleteTask(ctx context.Context, userID, taskID string) error {
	if err := c.base.DeleteTask(ctx, userID, taskID); err != nil {
		return err
	}
	c.evict(ctx, userID)
	return nil
}

func (c *Cache) loadTasks(ctx context.Context, userID string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, tasksCacheKey(userID)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(userID)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeTasks(ctx context.Context, userID string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey(userID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, tasksCacheKey(userID)).Err()
}

func tasksCacheKey(userID string) string {
	return "tasks:" + userID
}
