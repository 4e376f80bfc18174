package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"todo-api/internal/services"

	"github.com/gin-gonic/gin"
)

type createTodoRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type updateTodoRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	IsCompleted bool   `json:"isCompleted"`
}

type TodoHandler struct {
	todoService services.TodoService
}

func NewTodoHandler(todoService services.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

func (h *TodoHandler) GetTodos(c *gin.Context) {
	log.Println("Getting all todos")

	todos, err := h.todoService.List(c.Request.Context())
	if err != nil {
		handleTodoError(c, 0, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

func (h *TodoHandler) GetTodo(c *gin.Context) {
	id, ok := parseTodoID(c)
	if !ok {
		return
	}
	log.Printf("Getting todo id=%d", id)

	todo, err := h.todoService.Get(c.Request.Context(), id)
	if err != nil {
		handleTodoError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) CreateTodo(c *gin.Context) {
	var input createTodoRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("Creating todo title=%q", input.Title)

	todo, err := h.todoService.Create(c.Request.Context(), input.Title, input.Description)
	if err != nil {
		handleTodoError(c, 0, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/todos/%d", todo.ID))
	c.JSON(http.StatusCreated, todo)
}

func (h *TodoHandler) UpdateTodo(c *gin.Context) {
	id, ok := parseTodoID(c)
	if !ok {
		return
	}

	var input updateTodoRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("Updating todo id=%d", id)

	todo, err := h.todoService.Update(c.Request.Context(), id, input.Title, input.Description, input.IsCompleted)
	if err != nil {
		handleTodoError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) ToggleTodo(c *gin.Context) {
	id, ok := parseTodoID(c)
	if !ok {
		return
	}
	log.Printf("Toggling todo id=%d", id)

	todo, err := h.todoService.Toggle(c.Request.Context(), id)
	if err != nil {
		handleTodoError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	id, ok := parseTodoID(c)
	if !ok {
		return
	}
	log.Printf("Deleting todo id=%d", id)

	if err := h.todoService.Delete(c.Request.Context(), id); err != nil {
		handleTodoError(c, id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseTodoID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid todo ID"})
		return 0, false
	}
	return id, true
}

func handleTodoError(c *gin.Context, id int, err error) {
	switch {
	case errors.Is(err, services.ErrTodoNotFound):
		log.Printf("WARN todo id=%d not found", id)
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("todo with ID %d not found", id),
		})
	case errors.Is(err, services.ErrTitleRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("todo request failed: %v", err)
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to process todo request",
		})
	}
}
