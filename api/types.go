package api

import (
	"context"
	"time"

	"taskboard-api/domain"
)

// Store abstracts persistence for handlers.
type Store interface {
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

// TokenClaims identifies the verified bearer of a request.
type TokenClaims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// Authenticator verifies bearer credentials, mints tokens and retires them.
type Authenticator interface {
	ClaimsFromAuthHeader(ctx context.Context, header string) (TokenClaims, error)
	IssueToken(userID string) (string, error)
	RevokeToken(ctx context.Context, claims TokenClaims) error
}

// Revoker records invalidated token ids until they would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}
