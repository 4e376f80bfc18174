package repositories

import (
	"context"
	"errors"
	"fmt"

	"todo-api/internal/models"
	"todo-api/internal/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TodoRepository is the SQL-backed TodoService. Ids come from the table's
// auto-increment sequence, so deleted ids are never handed out again.
type TodoRepository struct {
	db  *gorm.DB
	now services.Clock
}

// NewTodoRepository migrates the schema and inserts the seed todos the
// first time the table is created.
func NewTodoRepository(db *gorm.DB, clock services.Clock) (*TodoRepository, error) {
	if clock == nil {
		clock = services.SystemClock
	}

	fresh := !db.Migrator().HasTable(&models.Todo{})

	if err := db.AutoMigrate(&models.Todo{}); err != nil {
		return nil, fmt.Errorf("failed to migrate todos: %w", err)
	}

	if fresh {
		seeds := models.SeedTodos(clock())
		if err := db.Create(&seeds).Error; err != nil {
			return nil, fmt.Errorf("failed to seed todos: %w", err)
		}
	}

	return &TodoRepository{db: db, now: clock}, nil
}

func (r *TodoRepository) List(ctx context.Context) ([]models.Todo, error) {
	todos := []models.Todo{}
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

func (r *TodoRepository) Get(ctx context.Context, id int) (models.Todo, error) {
	var todo models.Todo
	if err := r.db.WithContext(ctx).First(&todo, id).Error; err != nil {
		return models.Todo{}, translateError(err)
	}
	return todo, nil
}

func (r *TodoRepository) Create(ctx context.Context, title, description string) (models.Todo, error) {
	if err := services.ValidateTitle(title); err != nil {
		return models.Todo{}, err
	}

	todo := models.Todo{
		Title:       title,
		Description: description,
		CreatedAt:   r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&todo).Error; err != nil {
		return models.Todo{}, fmt.Errorf("failed to create todo: %w", err)
	}
	return todo, nil
}

func (r *TodoRepository) Update(ctx context.Context, id int, title, description string, isCompleted bool) (models.Todo, error) {
	todo, _, err := r.UpdateWithPrevious(ctx, id, title, description, isCompleted)
	return todo, err
}

// UpdateWithPrevious captures the row as it was locked, before the update is
// applied, inside the same transaction.
func (r *TodoRepository) UpdateWithPrevious(ctx context.Context, id int, title, description string, isCompleted bool) (models.Todo, models.Todo, error) {
	if err := services.ValidateTitle(title); err != nil {
		return models.Todo{}, models.Todo{}, err
	}

	var previous models.Todo
	todo, err := r.mutate(ctx, id, func(todo *models.Todo) {
		previous = todo.Clone()
		todo.ApplyUpdate(title, description, isCompleted, r.now())
	})
	if err != nil {
		return models.Todo{}, models.Todo{}, err
	}
	return todo, previous, nil
}

func (r *TodoRepository) Toggle(ctx context.Context, id int) (models.Todo, error) {
	return r.mutate(ctx, id, func(todo *models.Todo) {
		todo.Toggle(r.now())
	})
}

func (r *TodoRepository) Delete(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&models.Todo{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete todo %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return services.ErrTodoNotFound
	}
	return nil
}

// mutate loads the row under a write lock, applies fn and saves it in one
// transaction.
func (r *TodoRepository) mutate(ctx context.Context, id int, fn func(todo *models.Todo)) (models.Todo, error) {
	var todo models.Todo

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&todo, id).Error; err != nil {
			return err
		}

		fn(&todo)

		return tx.Save(&todo).Error
	})
	if err != nil {
		return models.Todo{}, translateError(err)
	}
	return todo, nil
}

func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.ErrTodoNotFound
	}
	return fmt.Errorf("todo query failed: %w", err)
}
