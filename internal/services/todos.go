package services

import (
	"context"
	"errors"
	"time"

	"github.com/WilliamDrmrd/todo-app/internal/logger"
	"github.com/WilliamDrmrd/todo-app/internal/models"
	"github.com/WilliamDrmrd/todo-app/internal/repositories"
	"go.uber.org/zap"
)

type TodoService interface {
	Create(ctx context.Context, req CreateTodoRequest) (*models.Todo, error)
	FindAll(ctx context.Context, filter models.Filter) ([]models.Todo, error)
	FindOne(ctx context.Context, id uint) (*models.Todo, error)
	Update(ctx context.Context, id uint, req UpdateTodoRequest) (*models.Todo, error)
	Remove(ctx context.Context, id uint) (*models.Todo, error)
	Stats(ctx context.Context) (*models.TodoStats, error)
}

type Option func(*TodoServiceImpl)

// WithClock replaces time.Now as the source of createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *TodoServiceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

type TodoServiceImpl struct {
	repo   repositories.TodoRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewTodoService(repo repositories.TodoRepository, log *zap.Logger, opts ...Option) *TodoServiceImpl {
	s := &TodoServiceImpl{
		repo:   repo,
		logger: logger.Component(log, "todo_service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp is the current time at the precision every supported store keeps.
func (s *TodoServiceImpl) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *TodoServiceImpl) Create(ctx context.Context, req CreateTodoRequest) (*models.Todo, error) {
	if err := ValidateCreate(&req); err != nil {
		return nil, err
	}

	now := s.timestamp()
	todo := &models.Todo{
		Title:       req.Title,
		Description: req.Description,
		Completed:   false,
		Priority:    models.PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}
	if req.Priority != nil {
		todo.Priority = models.Priority(*req.Priority)
	}

	if err := s.repo.Create(ctx, todo); err != nil {
		s.logger.Error("failed to create todo", zap.Error(err))
		return nil, err
	}

	s.logger.Info("todo created",
		zap.Uint("id", todo.ID),
		zap.String("priority", todo.Priority.String()),
		zap.Bool("completed", todo.Completed),
	)
	return todo, nil
}

func (s *TodoServiceImpl) FindAll(ctx context.Context, filter models.Filter) ([]models.Todo, error) {
	f := models.ResolveFilter(string(filter))

	todos, err := s.repo.FindAll(ctx, f.CompletedValue())
	if err != nil {
		s.logger.Error("failed to list todos", zap.String("filter", string(f)), zap.Error(err))
		return nil, err
	}
	if todos == nil {
		todos = []models.Todo{}
	}

	s.logger.Debug("todos listed", zap.String("filter", string(f)), zap.Int("count", len(todos)))
	return todos, nil
}

func (s *TodoServiceImpl) FindOne(ctx context.Context, id uint) (*models.Todo, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		s.logger.Error("failed to fetch todo", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return todo, nil
}

func (s *TodoServiceImpl) Update(ctx context.Context, id uint, req UpdateTodoRequest) (*models.Todo, error) {
	todo, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := ValidateUpdate(&req); err != nil {
		return nil, err
	}

	if req.Title != nil {
		todo.Title = *req.Title
	}
	if req.Description != nil {
		todo.Description = req.Description
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}
	if req.Priority != nil {
		todo.Priority = models.Priority(*req.Priority)
	}

	now := s.timestamp()
	if now.Before(todo.CreatedAt) {
		now = todo.CreatedAt
	}
	todo.UpdatedAt = now

	if err := s.repo.Update(ctx, todo); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		s.logger.Error("failed to update todo", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("todo updated", zap.Uint("id", id), zap.Bool("completed", todo.Completed))
	return todo, nil
}

func (s *TodoServiceImpl) Remove(ctx context.Context, id uint) (*models.Todo, error) {
	todo, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		s.logger.Error("failed to delete todo", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("todo removed", zap.Uint("id", id))
	return todo, nil
}

func (s *TodoServiceImpl) Stats(ctx context.Context) (*models.TodoStats, error) {
	total, completed, err := s.repo.Counts(ctx)
	if err != nil {
		s.logger.Error("failed to count todos", zap.Error(err))
		return nil, err
	}

	stats := models.NewTodoStats(total, completed)
	return &stats, nil
}
