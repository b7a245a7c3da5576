package domain

import (
	"testing"
	"time"
)

func TestPriorityValid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		if !p.Valid() {
			t.Fatalf("expected %q to be valid", p)
		}
	}
	if Priority("critical").Valid() {
		t.Fatal("expected unknown priority to be invalid")
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled} {
		if !s.Valid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if Status("done").Valid() {
		t.Fatal("expected unknown status to be invalid")
	}
}

func TestTaskPatchApplyPartial(t *testing.T) {
	created := time.Date(2024, 11, 10, 8, 0, 0, 0, time.UTC)
	task := Task{
		ID:          "t1",
		UserID:      "u1",
		Title:       "original",
		Description: "keep me",
		Priority:    PriorityHigh,
		Status:      StatusPending,
		CreatedAt:   created,
		UpdatedAt:   created,
	}

	status := StatusCompleted
	now := created.Add(time.Hour)
	TaskPatch{Status: &status}.Apply(&task, now)

	if task.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %q", task.Status)
	}
	if task.Title != "original" || task.Description != "keep me" || task.Priority != PriorityHigh {
		t.Fatalf("unexpected fields changed: %#v", task)
	}
	if !task.UpdatedAt.Equal(now) {
		t.Fatalf("expected updated_at refreshed to %v, got %v", now, task.UpdatedAt)
	}
	if !task.CreatedAt.Equal(created) {
		t.Fatalf("created_at must not change, got %v", task.CreatedAt)
	}
}

func TestTaskPatchApplyEmptyStillTouchesUpdatedAt(t *testing.T) {
	task := Task{UpdatedAt: time.Unix(0, 0)}
	now := time.Unix(100, 0)
	TaskPatch{}.Apply(&task, now)
	if !task.UpdatedAt.Equal(now) {
		t.Fatalf("expected updated_at refreshed, got %v", task.UpdatedAt)
	}
}

func TestTaskFilterMatch(t *testing.T) {
	task := Task{Status: StatusCompleted, Priority: PriorityHigh}

	cases := []struct {
		name   string
		filter TaskFilter
		want   bool
	}{
		{"empty", TaskFilter{}, true},
		{"all_sentinels", TaskFilter{Status: "all", Priority: "all"}, true},
		{"status_match", TaskFilter{Status: "completed"}, true},
		{"status_miss", TaskFilter{Status: "pending"}, false},
		{"priority_match", TaskFilter{Priority: "high"}, true},
		{"priority_miss", TaskFilter{Priority: "low"}, false},
		{"both_match", TaskFilter{Status: "completed", Priority: "high"}, true},
		{"one_miss", TaskFilter{Status: "completed", Priority: "urgent"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Match(task); got != tc.want {
				t.Fatalf("Match = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTaskFilterUnfiltered(t *testing.T) {
	if !(TaskFilter{}).Unfiltered() || !(TaskFilter{Status: "all", Priority: "all"}).Unfiltered() {
		t.Fatal("expected empty and all/all filters to be unfiltered")
	}
	if (TaskFilter{Status: "pending"}).Unfiltered() {
		t.Fatal("expected status filter to not be unfiltered")
	}
}
