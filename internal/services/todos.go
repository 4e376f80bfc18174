package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"todo-api/internal/models"
)

var (
	ErrTodoNotFound  = errors.New("todo not found")
	ErrTitleRequired = errors.New("title is required")
)

// TodoService is the only legal mutation path for todo records.
type TodoService interface {
	List(ctx context.Context) ([]models.Todo, error)
	Get(ctx context.Context, id int) (models.Todo, error)
	Create(ctx context.Context, title, description string) (models.Todo, error)
	Update(ctx context.Context, id int, title, description string, isCompleted bool) (models.Todo, error)
	Toggle(ctx context.Context, id int) (models.Todo, error)
	Delete(ctx context.Context, id int) error
}

// TodoStore is a TodoService backed by storage. UpdateWithPrevious applies an
// update and returns the record as it was just before, both read under the
// same lock.
type TodoStore interface {
	TodoService
	UpdateWithPrevious(ctx context.Context, id int, title, description string, isCompleted bool) (updated, previous models.Todo, err error)
}

type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// MemoryTodoService keeps todos in creation order in process memory.
// Every operation holds mu for its whole lookup and mutation.
type MemoryTodoService struct {
	mu     sync.Mutex
	todos  []models.Todo
	nextID int
	now    Clock
}

func NewMemoryTodoService(clock Clock) *MemoryTodoService {
	if clock == nil {
		clock = SystemClock
	}

	s := &MemoryTodoService{
		nextID: 1,
		now:    clock,
	}

	for _, seed := range models.SeedTodos(clock()) {
		seed.ID = s.nextID
		s.nextID++
		s.todos = append(s.todos, seed)
	}

	return s
}

func (s *MemoryTodoService) List(ctx context.Context) ([]models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos := make([]models.Todo, 0, len(s.todos))
	for _, todo := range s.todos {
		todos = append(todos, todo.Clone())
	}
	return todos, nil
}

func (s *MemoryTodoService) Get(ctx context.Context, id int) (models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Todo{}, ErrTodoNotFound
	}
	return s.todos[i].Clone(), nil
}

func (s *MemoryTodoService) Create(ctx context.Context, title, description string) (models.Todo, error) {
	if err := ValidateTitle(title); err != nil {
		return models.Todo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	todo := models.Todo{
		ID:          s.nextID,
		Title:       title,
		Description: description,
		CreatedAt:   s.now(),
	}
	s.nextID++
	s.todos = append(s.todos, todo)

	return todo.Clone(), nil
}

func (s *MemoryTodoService) Update(ctx context.Context, id int, title, description string, isCompleted bool) (models.Todo, error) {
	todo, _, err := s.UpdateWithPrevious(ctx, id, title, description, isCompleted)
	return todo, err
}

func (s *MemoryTodoService) UpdateWithPrevious(ctx context.Context, id int, title, description string, isCompleted bool) (models.Todo, models.Todo, error) {
	if err := ValidateTitle(title); err != nil {
		return models.Todo{}, models.Todo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Todo{}, models.Todo{}, ErrTodoNotFound
	}

	previous := s.todos[i].Clone()
	s.todos[i].ApplyUpdate(title, description, isCompleted, s.now())
	return s.todos[i].Clone(), previous, nil
}

func (s *MemoryTodoService) Toggle(ctx context.Context, id int) (models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Todo{}, ErrTodoNotFound
	}

	s.todos[i].Toggle(s.now())
	return s.todos[i].Clone(), nil
}

func (s *MemoryTodoService) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrTodoNotFound
	}

	s.todos = append(s.todos[:i], s.todos[i+1:]...)
	return nil
}

// indexOf must be called with mu held.
func (s *MemoryTodoService) indexOf(id int) int {
	for i := range s.todos {
		if s.todos[i].ID == id {
			return i
		}
	}
	return -1
}
