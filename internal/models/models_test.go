package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"todo-api/internal/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTodo_ApplyUpdateCompletes(t *testing.T) {
	todo := models.Todo{ID: 1, Title: "Old"}

	todo.ApplyUpdate("New", "Desc", true, fixedNow)

	if todo.Title != "New" || todo.Description != "Desc" {
		t.Errorf("Expected fields to be overwritten, got %+v", todo)
	}
	if !todo.IsCompleted {
		t.Error("Expected todo to be completed")
	}
	if todo.CompletedAt == nil || !todo.CompletedAt.Equal(fixedNow) {
		t.Errorf("Expected CompletedAt %v, got %v", fixedNow, todo.CompletedAt)
	}
}

func TestTodo_ApplyUpdateKeepsOriginalCompletion(t *testing.T) {
	earlier := fixedNow.Add(-2 * time.Hour)
	todo := models.Todo{ID: 1, Title: "Done", IsCompleted: true, CompletedAt: &earlier}

	todo.ApplyUpdate("Done", "", true, fixedNow)

	if todo.CompletedAt == nil || !todo.CompletedAt.Equal(earlier) {
		t.Errorf("Expected CompletedAt to stay %v, got %v", earlier, todo.CompletedAt)
	}
}

func TestTodo_ApplyUpdateReopenClears(t *testing.T) {
	earlier := fixedNow.Add(-2 * time.Hour)
	todo := models.Todo{ID: 1, Title: "Done", IsCompleted: true, CompletedAt: &earlier}

	todo.ApplyUpdate("Done", "", false, fixedNow)

	if todo.IsCompleted {
		t.Error("Expected todo to be open")
	}
	if todo.CompletedAt != nil {
		t.Errorf("Expected CompletedAt to be cleared, got %v", todo.CompletedAt)
	}
}

func TestTodo_ToggleRoundTrip(t *testing.T) {
	todo := models.Todo{ID: 1, Title: "Toggle me"}

	todo.Toggle(fixedNow)
	if !todo.IsCompleted || todo.CompletedAt == nil || !todo.CompletedAt.Equal(fixedNow) {
		t.Fatalf("Expected completed at %v, got %+v", fixedNow, todo)
	}

	todo.Toggle(fixedNow.Add(time.Minute))
	if todo.IsCompleted || todo.CompletedAt != nil {
		t.Errorf("Expected open todo without CompletedAt, got %+v", todo)
	}
}

func TestTodo_CloneDetachesCompletedAt(t *testing.T) {
	completedAt := fixedNow
	original := models.Todo{ID: 7, Title: "Clone", IsCompleted: true, CompletedAt: &completedAt}

	clone := original.Clone()
	*clone.CompletedAt = fixedNow.Add(time.Hour)

	if !original.CompletedAt.Equal(fixedNow) {
		t.Errorf("Expected original CompletedAt to be untouched, got %v", original.CompletedAt)
	}
}

func TestSeedTodos(t *testing.T) {
	seeds := models.SeedTodos(fixedNow)

	if len(seeds) != 3 {
		t.Fatalf("Expected 3 seed todos, got %d", len(seeds))
	}

	completed := 0
	for _, seed := range seeds {
		if seed.IsCompleted != (seed.CompletedAt != nil) {
			t.Errorf("Seed %q breaks the completion invariant", seed.Title)
		}
		if seed.IsCompleted {
			completed++
			if !seed.CompletedAt.Before(fixedNow) {
				t.Errorf("Expected seed completion in the past, got %v", seed.CompletedAt)
			}
		}
	}

	if completed != 1 {
		t.Errorf("Expected exactly 1 completed seed, got %d", completed)
	}
}

func TestTodo_JSONShape(t *testing.T) {
	todo := models.Todo{ID: 4, Title: "Buy milk", CreatedAt: fixedNow}

	data, err := json.Marshal(todo)
	if err != nil {
		t.Fatalf("Failed to marshal todo: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Failed to unmarshal todo: %v", err)
	}

	for _, key := range []string{"id", "title", "description", "isCompleted", "createdAt", "completedAt"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("Expected key %q in %s", key, data)
		}
	}

	if fields["completedAt"] != nil {
		t.Errorf("Expected completedAt to be null, got %v", fields["completedAt"])
	}
}
