package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/WilliamDrmrd/todo-app/internal/logger"
	"github.com/WilliamDrmrd/todo-app/internal/models"
	"github.com/WilliamDrmrd/todo-app/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OperationRecorder receives one call per finished todo operation.
type OperationRecorder interface {
	RecordTodoOperation(operation, outcome string)
}

type TodoHandler struct {
	todoService services.TodoService
	recorder    OperationRecorder
	logger      *zap.Logger
}

func NewTodoHandler(todoService services.TodoService, recorder OperationRecorder, log *zap.Logger) *TodoHandler {
	return &TodoHandler{
		todoService: todoService,
		recorder:    recorder,
		logger:      logger.Component(log, "todo_handler"),
	}
}

func (h *TodoHandler) RegisterRoutes(r gin.IRouter) {
	todos := r.Group("/todos")
	todos.POST("", h.CreateTodo)
	todos.GET("", h.GetTodos)
	todos.GET("/stats", h.GetStats)
	todos.GET("/:id", h.GetTodoByID)
	todos.PUT("/:id", h.UpdateTodo)
	todos.DELETE("/:id", h.DeleteTodo)
}

// ErrorResponse is the body of every non-2xx todo response.
type ErrorResponse struct {
	Error   string   `json:"error" example:"not_found"`
	Message string   `json:"message" example:"todo with ID 7 not found"`
	Details []string `json:"details,omitempty"`
}

type CreateTodoInput struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Completed   *bool   `json:"completed"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
}

type UpdateTodoInput struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Completed   *bool   `json:"completed"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
}

// CreateTodo godoc
// @Summary Create a todo
// @Description Create a todo. Priority defaults to MEDIUM and completed to false.
// @Tags todos
// @Accept json
// @Produce json
// @Param request body CreateTodoInput true "Todo data"
// @Success 201 {object} models.Todo
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /todos [post]
func (h *TodoHandler) CreateTodo(c *gin.Context) {
	var input CreateTodoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "create", err)
		return
	}

	todo, err := h.todoService.Create(c.Request.Context(), services.CreateTodoRequest{
		Title:       input.Title,
		Description: input.Description,
		Completed:   input.Completed,
		Priority:    input.Priority,
	})
	if err != nil {
		h.handleTodoError(c, "create", err)
		return
	}

	h.record("create", "success")
	c.JSON(http.StatusCreated, todo)
}

// GetTodos godoc
// @Summary List todos
// @Description List todos newest first, optionally restricted by completion.
// @Tags todos
// @Produce json
// @Param filter query string false "Completion filter" Enums(all, completed, pending)
// @Success 200 {array} models.Todo
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /todos [get]
func (h *TodoHandler) GetTodos(c *gin.Context) {
	filter, ok := models.ParseFilter(c.Query("filter"))
	if !ok {
		h.record("list", "invalid")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "filter must be one of the following values: all, completed, pending",
		})
		return
	}

	todos, err := h.todoService.FindAll(c.Request.Context(), filter)
	if err != nil {
		h.handleTodoError(c, "list", err)
		return
	}

	h.record("list", "success")
	c.JSON(http.StatusOK, todos)
}

// GetStats godoc
// @Summary Todo statistics
// @Description Count all, completed and pending todos.
// @Tags todos
// @Produce json
// @Success 200 {object} models.TodoStats
// @Failure 500 {object} ErrorResponse
// @Router /todos/stats [get]
func (h *TodoHandler) GetStats(c *gin.Context) {
	stats, err := h.todoService.Stats(c.Request.Context())
	if err != nil {
		h.handleTodoError(c, "stats", err)
		return
	}

	h.record("stats", "success")
	c.JSON(http.StatusOK, stats)
}

// GetTodoByID godoc
// @Summary Get a todo
// @Tags todos
// @Produce json
// @Param id path int true "Todo ID"
// @Success 200 {object} models.Todo
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /todos/{id} [get]
func (h *TodoHandler) GetTodoByID(c *gin.Context) {
	id, ok := h.parseID(c, "get")
	if !ok {
		return
	}

	todo, err := h.todoService.FindOne(c.Request.Context(), id)
	if err != nil {
		h.handleTodoError(c, "get", err)
		return
	}

	h.record("get", "success")
	c.JSON(http.StatusOK, todo)
}

// UpdateTodo godoc
// @Summary Update a todo
// @Description Apply a partial update. Omitted fields keep their value.
// @Tags todos
// @Accept json
// @Produce json
// @Param id path int true "Todo ID"
// @Param request body UpdateTodoInput true "Fields to change"
// @Success 200 {object} models.Todo
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /todos/{id} [put]
func (h *TodoHandler) UpdateTodo(c *gin.Context) {
	id, ok := h.parseID(c, "update")
	if !ok {
		return
	}

	var input UpdateTodoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "update", err)
		return
	}

	todo, err := h.todoService.Update(c.Request.Context(), id, services.UpdateTodoRequest{
		Title:       input.Title,
		Description: input.Description,
		Completed:   input.Completed,
		Priority:    input.Priority,
	})
	if err != nil {
		h.handleTodoError(c, "update", err)
		return
	}

	h.record("update", "success")
	c.JSON(http.StatusOK, todo)
}

// DeleteTodo godoc
// @Summary Delete a todo
// @Description Delete a todo and return it as it was before deletion.
// @Tags todos
// @Produce json
// @Param id path int true "Todo ID"
// @Success 200 {object} models.Todo
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /todos/{id} [delete]
func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	id, ok := h.parseID(c, "delete")
	if !ok {
		return
	}

	todo, err := h.todoService.Remove(c.Request.Context(), id)
	if err != nil {
		h.handleTodoError(c, "delete", err)
		return
	}

	h.record("delete", "success")
	c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) parseID(c *gin.Context, op string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, strconv.IntSize)
	if err != nil {
		h.record(op, "invalid")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "id must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}

func (h *TodoHandler) badRequest(c *gin.Context, op string, err error) {
	h.record(op, "invalid")
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	})
}

func (h *TodoHandler) record(op, outcome string) {
	if h.recorder != nil {
		h.recorder.RecordTodoOperation(op, outcome)
	}
}

func (h *TodoHandler) handleTodoError(c *gin.Context, op string, err error) {
	var verr *services.ValidationError
	var nf *services.NotFoundError

	switch {
	case errors.As(err, &verr):
		h.record(op, "invalid")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: verr.Error(),
			Details: verr.Messages(),
		})
	case errors.As(err, &nf):
		h.record(op, "not_found")
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: nf.Error(),
		})
	default:
		h.record(op, "error")
		h.logger.Error("todo request failed",
			zap.String("operation", op),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "internal server error",
		})
	}
}
