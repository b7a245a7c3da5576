package storage

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskboard-api/domain"
)

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "password123"

type seedTask struct {
	title       string
	description string
	priority    domain.Priority
	status      domain.Status
	createdAt   time.Time
}

// SeedDemo fills a memory store with the demo fixtures used by offline mode:
// two accounts and a handful of tasks for the first one. Returns the seeded
// users in insertion order.
func SeedDemo(m *Memory) ([]domain.User, error) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	seedUsers := []domain.User{
		{Name: "Mohammed", Email: "mohammed@example.com", Phone: "+212612345678", Address: "Casablanca, Morocco", PasswordHash: string(hash)},
		{Name: "John Doe", Email: "john@example.com", Phone: "+1234567890", Address: "New York, USA", PasswordHash: string(hash)},
	}
	users := make([]domain.User, 0, len(seedUsers))
	for _, u := range seedUsers {
		created, err := m.CreateUser(ctx, u)
		if err != nil {
			return nil, err
		}
		users = append(users, created)
	}

	day := func(d, h int) time.Time {
		return time.Date(2024, 11, d, h, 0, 0, 0, time.UTC)
	}
	tasks := []seedTask{
		{"Review quarterly report", "Go through the figures before the Friday sync", domain.PriorityHigh, domain.StatusInProgress, day(10, 8)},
		{"Book dentist appointment", "", domain.PriorityMedium, domain.StatusPending, day(10, 9)},
		{"Set up database backups", "Nightly dump plus weekly offsite copy", domain.PriorityUrgent, domain.StatusCompleted, day(9, 10)},
		{"Sketch landing page", "Rough layout for the redesign", domain.PriorityHigh, domain.StatusCompleted, day(9, 11)},
		{"Water the plants", "", domain.PriorityLow, domain.StatusPending, day(10, 12)},
	}

	saved := m.now
	defer m.SetClock(saved)
	for _, st := range tasks {
		at := st.createdAt
		m.SetClock(func() time.Time { return at })
		_, err := m.CreateTask(ctx, domain.Task{
			UserID:      users[0].ID,
			Title:       st.title,
			Description: st.description,
			Priority:    st.priority,
			Status:      st.status,
		})
		if err != nil {
			return nil, err
		}
	}
	return users, nil
}
