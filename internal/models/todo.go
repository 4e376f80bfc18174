package models

import (
	"time"
)

type Todo struct {
	ID          int        `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description" gorm:"not null;default:''"`
	IsCompleted bool       `json:"isCompleted" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"not null;autoCreateTime:false"`
	CompletedAt *time.Time `json:"completedAt"`
}

// Clone returns a copy that shares no memory with t.
func (t Todo) Clone() Todo {
	if t.CompletedAt != nil {
		completedAt := *t.CompletedAt
		t.CompletedAt = &completedAt
	}
	return t
}

// ApplyUpdate overwrites the editable fields. An existing completion
// timestamp survives a repeated completion; reopening always clears it.
func (t *Todo) ApplyUpdate(title, description string, isCompleted bool, now time.Time) {
	t.Title = title
	t.Description = description
	t.IsCompleted = isCompleted

	if isCompleted && t.CompletedAt == nil {
		t.CompletedAt = &now
	} else if !isCompleted {
		t.CompletedAt = nil
	}
}

// Toggle flips the completion state and recomputes CompletedAt.
func (t *Todo) Toggle(now time.Time) {
	t.IsCompleted = !t.IsCompleted
	if t.IsCompleted {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}

func SeedTodos(now time.Time) []Todo {
	completedAt := now.Add(-time.Hour)

	return []Todo{
		{
			Title:       "Learn Go",
			Description: "Complete the Go tour and Effective Go",
			CreatedAt:   now,
		},
		{
			Title:       "Set up DevContainer",
			Description: "Configure development environment",
			IsCompleted: true,
			CreatedAt:   now,
			CompletedAt: &completedAt,
		},
		{
			Title:       "Build Todo API",
			Description: "Create a RESTful API for todo management",
			CreatedAt:   now,
		},
	}
}
