package services

import (
	"context"
	"log"

	"todo-api/internal/models"
	"todo-api/internal/worker"
)

// EventPublisher is satisfied by *worker.JobQueue.
type EventPublisher interface {
	Enqueue(ctx context.Context, queue string, jobType worker.JobType, payload map[string]interface{}) error
}

// EventingTodoService publishes a job for every create, delete and change of
// completion state. Publish failures are logged; the mutation has already
// happened and is reported as successful.
type EventingTodoService struct {
	TodoStore
	publisher EventPublisher
	queue     string
}

func NewEventingTodoService(store TodoStore, publisher EventPublisher, queue string) *EventingTodoService {
	if queue == "" {
		queue = worker.DefaultQueue
	}
	return &EventingTodoService{
		TodoStore: store,
		publisher: publisher,
		queue:     queue,
	}
}

func (s *EventingTodoService) Create(ctx context.Context, title, description string) (models.Todo, error) {
	todo, err := s.TodoStore.Create(ctx, title, description)
	if err != nil {
		return todo, err
	}

	s.publish(ctx, worker.JobTypeTodoCreated, todo)
	return todo, nil
}

func (s *EventingTodoService) Update(ctx context.Context, id int, title, description string, isCompleted bool) (models.Todo, error) {
	todo, _, err := s.UpdateWithPrevious(ctx, id, title, description, isCompleted)
	return todo, err
}

// UpdateWithPrevious publishes when the store reports that the update
// changed the completion state.
func (s *EventingTodoService) UpdateWithPrevious(ctx context.Context, id int, title, description string, isCompleted bool) (models.Todo, models.Todo, error) {
	todo, previous, err := s.TodoStore.UpdateWithPrevious(ctx, id, title, description, isCompleted)
	if err != nil {
		return todo, previous, err
	}

	if previous.IsCompleted != todo.IsCompleted {
		s.publish(ctx, completionJobType(todo), todo)
	}
	return todo, previous, nil
}

func (s *EventingTodoService) Toggle(ctx context.Context, id int) (models.Todo, error) {
	todo, err := s.TodoStore.Toggle(ctx, id)
	if err != nil {
		return todo, err
	}

	s.publish(ctx, completionJobType(todo), todo)
	return todo, nil
}

func (s *EventingTodoService) Delete(ctx context.Context, id int) error {
	if err := s.TodoStore.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.publisher.Enqueue(ctx, s.queue, worker.JobTypeTodoDeleted, map[string]interface{}{
		"id": id,
	}); err != nil {
		log.Printf("Failed to publish %s for todo %d: %v", worker.JobTypeTodoDeleted, id, err)
	}
	return nil
}

func completionJobType(todo models.Todo) worker.JobType {
	if todo.IsCompleted {
		return worker.JobTypeTodoCompleted
	}
	return worker.JobTypeTodoReopened
}

func (s *EventingTodoService) publish(ctx context.Context, jobType worker.JobType, todo models.Todo) {
	payload := map[string]interface{}{
		"id":          todo.ID,
		"title":       todo.Title,
		"isCompleted": todo.IsCompleted,
	}
	if todo.CompletedAt != nil {
		payload["completedAt"] = todo.CompletedAt
	}

	if err := s.publisher.Enqueue(ctx, s.queue, jobType, payload); err != nil {
		log.Printf("Failed to publish %s for todo %d: %v", jobType, todo.ID, err)
	}
}
