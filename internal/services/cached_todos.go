package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"todo-api/internal/cache"
	"todo-api/internal/models"
)

const allTodosKey = "todos:all"

func todoKey(id int) string {
	return fmt.Sprintf("todo:%d", id)
}

// CachedTodoService reads through a cache in front of another TodoService.
// Cache failures are logged and never fail the wrapped operation.
type CachedTodoService struct {
	todoService TodoService
	cache       cache.Cache
	itemTTL     time.Duration
	listTTL     time.Duration

	// generation counts invalidations. A fill whose store read started
	// before the latest invalidation is dropped instead of written.
	mu         sync.Mutex
	generation uint64
}

func NewCachedTodoService(todoService TodoService, cacheInstance cache.Cache, itemTTL, listTTL time.Duration) *CachedTodoService {
	return &CachedTodoService{
		todoService: todoService,
		cache:       cacheInstance,
		itemTTL:     itemTTL,
		listTTL:     listTTL,
	}
}

func (s *CachedTodoService) List(ctx context.Context) ([]models.Todo, error) {
	var cached []models.Todo
	if err := s.cache.Get(ctx, allTodosKey, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("cache: list read failed: %v", err)
	}

	generation := s.currentGeneration()
	todos, err := s.todoService.List(ctx)
	if err != nil {
		return nil, err
	}

	s.fill(ctx, generation, allTodosKey, todos, s.listTTL)
	return todos, nil
}

func (s *CachedTodoService) Get(ctx context.Context, id int) (models.Todo, error) {
	key := todoKey(id)

	var cached models.Todo
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("cache: read of %s failed: %v", key, err)
	}

	generation := s.currentGeneration()
	todo, err := s.todoService.Get(ctx, id)
	if err != nil {
		return todo, err
	}

	s.fill(ctx, generation, key, todo, s.itemTTL)
	return todo, nil
}

func (s *CachedTodoService) Create(ctx context.Context, title, description string) (models.Todo, error) {
	generation := s.currentGeneration()
	todo, err := s.todoService.Create(ctx, title, description)
	if err != nil {
		return todo, err
	}

	s.fill(ctx, generation, todoKey(todo.ID), todo, s.itemTTL)
	s.invalidate(ctx, allTodosKey)
	return todo, nil
}

func (s *CachedTodoService) Update(ctx context.Context, id int, title, description string, isCompleted bool) (models.Todo, error) {
	todo, err := s.todoService.Update(ctx, id, title, description, isCompleted)
	if err != nil {
		return todo, err
	}

	s.invalidate(ctx, todoKey(id), allTodosKey)
	return todo, nil
}

func (s *CachedTodoService) Toggle(ctx context.Context, id int) (models.Todo, error) {
	todo, err := s.todoService.Toggle(ctx, id)
	if err != nil {
		return todo, err
	}

	s.invalidate(ctx, todoKey(id), allTodosKey)
	return todo, nil
}

func (s *CachedTodoService) Delete(ctx context.Context, id int) error {
	if err := s.todoService.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, todoKey(id), allTodosKey)
	return nil
}

// Warm loads the full list into the cache ahead of the first request.
func (s *CachedTodoService) Warm(ctx context.Context) error {
	generation := s.currentGeneration()
	todos, err := s.todoService.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load todos for cache warming: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return nil
	}
	if err := s.cache.Set(ctx, allTodosKey, todos, s.listTTL); err != nil {
		return fmt.Errorf("failed to warm todo cache: %w", err)
	}
	return nil
}

func (s *CachedTodoService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}

func (s *CachedTodoService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// fill writes a value read from the store at the given generation. It is
// skipped when an invalidation ran after that read began.
func (s *CachedTodoService) fill(ctx context.Context, generation uint64, key string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		log.Printf("cache: write of %s failed: %v", key, err)
	}
}

func (s *CachedTodoService) invalidate(ctx context.Context, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			log.Printf("cache: invalidation of %s failed: %v", key, err)
		}
	}
}
