package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/WilliamDrmrd/todo-app/internal/models"
	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("record not found")

type TodoRepository interface {
	Create(ctx context.Context, todo *models.Todo) error
	// FindAll returns todos newest first. A nil completed means no restriction.
	FindAll(ctx context.Context, completed *bool) ([]models.Todo, error)
	FindByID(ctx context.Context, id uint) (*models.Todo, error)
	Update(ctx context.Context, todo *models.Todo) error
	Delete(ctx context.Context, id uint) error
	// Counts reads both numbers in one statement.
	Counts(ctx context.Context) (total int64, completed int64, err error)
}

type GormTodoRepository struct {
	db *gorm.DB
}

func NewTodoRepository(db *gorm.DB) *GormTodoRepository {
	return &GormTodoRepository{db: db}
}

func (r *GormTodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	if err := r.db.WithContext(ctx).Create(todo).Error; err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	return nil
}

func (r *GormTodoRepository) FindAll(ctx context.Context, completed *bool) ([]models.Todo, error) {
	query := r.db.WithContext(ctx).Model(&models.Todo{})
	if completed != nil {
		query = query.Where("completed = ?", *completed)
	}

	todos := make([]models.Todo, 0)
	if err := query.Order("created_at DESC").Order("id ASC").Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

func (r *GormTodoRepository) FindByID(ctx context.Context, id uint) (*models.Todo, error) {
	var todo models.Todo
	if err := r.db.WithContext(ctx).First(&todo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to fetch todo: %w", err)
	}
	return &todo, nil
}

// Update writes every mutable column of an existing row. It never inserts.
func (r *GormTodoRepository) Update(ctx context.Context, todo *models.Todo) error {
	result := r.db.WithContext(ctx).
		Model(&models.Todo{}).
		Where("id = ?", todo.ID).
		Updates(map[string]interface{}{
			"title":       todo.Title,
			"description": todo.Description,
			"completed":   todo.Completed,
			"priority":    todo.Priority,
			"updated_at":  todo.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update todo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *GormTodoRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Todo{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete todo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

type todoCounts struct {
	Total     int64
	Completed int64
}

func (r *GormTodoRepository) Counts(ctx context.Context) (int64, int64, error) {
	var counts todoCounts
	err := r.db.WithContext(ctx).
		Model(&models.Todo{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed").
		Scan(&counts).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count todos: %w", err)
	}
	return counts.Total, counts.Completed, nil
}
