package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"taskboard-api/domain"
)

// Sentinel errors surfaced to the api layer for status mapping.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
	ErrTaskNotFound = errors.New("task not found")
	ErrNotOwner     = errors.New("task owned by another user")
)

const mysqlErrDuplicateEntry = 1062

// Store persists users and tasks in MySQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates a Store from a MySQL DSN. The DSN must include parseTime=true
// so DATETIME columns scan into time.Time.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// EnsureSchema creates the users and tasks tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			phone VARCHAR(20) NOT NULL,
			address VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			created_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			priority VARCHAR(16) NOT NULL,
			status VARCHAR(16) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			KEY idx_tasks_user_created (user_id, created_at),
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user, assigning id and created_at. The email
// uniqueness invariant rides on the unique index; a duplicate insert is
// reported as ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	u.ID = uuid.NewString()
	u.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, phone, address, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Phone, u.Address, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, address, password_hash, created_at FROM users WHERE email = ?`, email))
}

func (s *Store) UserByID(ctx context.Context, id string) (domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, address, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// CreateTask inserts a task, assigning id and both timestamps.
func (s *Store) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.ID = uuid.NewString()
	now := s.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, description, priority, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, t.Description, t.Priority, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// ListTasks returns the user's tasks, most recently created first, narrowed
// by exact status/priority match when the filter supplies them.
func (s *Store) ListTasks(ctx context.Context, userID string, f domain.TaskFilter) ([]domain.Task, error) {
	query := `SELECT id, user_id, title, description, priority, status, created_at, updated_at FROM tasks WHERE user_id = ?`
	args := []any{userID}
	if f.Status != "" && f.Status != "all" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Priority != "" && f.Priority != "all" {
		query += ` AND priority = ?`
		args = append(args, f.Priority)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// TaskByID fetches a task and enforces ownership. A missing row is
// ErrTaskNotFound; a row owned by someone else is ErrNotOwner so the api
// layer can keep the 404/403 split.
func (s *Store) TaskByID(ctx context.Context, userID, taskID string) (domain.Task, error) {
	var t domain.Task
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, priority, status, created_at, updated_at FROM tasks WHERE id = ?`, taskID).
		Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	if t.UserID != userID {
		return domain.Task{}, ErrNotOwner
	}
	return t, nil
}

// UpdateTask applies a partial update to an owned task. updated_at is
// refreshed regardless of which fields the patch carries.
func (s *Store) UpdateTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	t, err := s.TaskByID(ctx, userID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	patch.Apply(&t, s.now().UTC())
	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, priority = ?, status = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Description, t.Priority, t.Status, t.UpdatedAt, t.ID)
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DeleteTask removes an owned task. Deleting twice yields ErrTaskNotFound on
// the second call.
func (s *Store) DeleteTask(ctx context.Context, userID, taskID string) error {
	if _, err := s.TaskByID(ctx, userID, taskID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID)
	return err
}
