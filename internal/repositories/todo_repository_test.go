package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WilliamDrmrd/todo-app/internal/models"
	"github.com/WilliamDrmrd/todo-app/internal/repositories"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.Todo{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTodo(title string, completed bool, createdAt time.Time) *models.Todo {
	return &models.Todo{
		Title:     title,
		Completed: completed,
		Priority:  models.PriorityMedium,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestTodoRepository_CreateAndFind(t *testing.T) {
	repo := repositories.NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	desc := "milk and eggs"
	todo := newTodo("Buy groceries", false, baseTime)
	todo.Description = &desc

	if err := repo.Create(ctx, todo); err != nil {
		t.Fatalf("Failed to create todo: %v", err)
	}
	if todo.ID == 0 {
		t.Fatal("Expected an id to be assigned")
	}

	found, err := repo.FindByID(ctx, todo.ID)
	if err != nil {
		t.Fatalf("Failed to find todo: %v", err)
	}
	if found.Title != "Buy groceries" {
		t.Errorf("Expected title 'Buy groceries', got '%s'", found.Title)
	}
	if found.Description == nil || *found.Description != desc {
		t.Errorf("Expected description %q, got %v", desc, found.Description)
	}
	if !found.CreatedAt.Equal(baseTime) {
		t.Errorf("Expected createdAt %v, got %v", baseTime, found.CreatedAt)
	}
}

func TestTodoRepository_NilDescriptionStaysNull(t *testing.T) {
	db := setupTestDB(t)
	repo := repositories.NewTodoRepository(db)
	ctx := context.Background()

	todo := newTodo("No description", false, baseTime)
	if err := repo.Create(ctx, todo); err != nil {
		t.Fatalf("Failed to create todo: %v", err)
	}

	var nulls int64
	db.Raw("SELECT COUNT(*) FROM todos WHERE description IS NULL").Scan(&nulls)
	if nulls != 1 {
		t.Errorf("Expected description to be stored as NULL, got %d null rows", nulls)
	}
}

func TestTodoRepository_FindByID_NotFound(t *testing.T) {
	repo := repositories.NewTodoRepository(setupTestDB(t))

	_, err := repo.FindByID(context.Background(), 9999)
	if !errors.Is(err, repositories.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestTodoRepository_FindAll_OrderAndFilter(t *testing.T) {
	repo := repositories.NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	first := newTodo("first", false, baseTime)
	second := newTodo("second", true, baseTime.Add(time.Minute))
	tieA := newTodo("tie a", false, baseTime.Add(2*time.Minute))
	tieB := newTodo("tie b", true, baseTime.Add(2*time.Minute))
	for _, todo := range []*models.Todo{first, second, tieA, tieB} {
		if err := repo.Create(ctx, todo); err != nil {
			t.Fatalf("Failed to create todo: %v", err)
		}
	}

	all, err := repo.FindAll(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to list todos: %v", err)
	}
	expected := []string{"tie a", "tie b", "second", "first"}
	if len(all) != len(expected) {
		t.Fatalf("Expected %d todos, got %d", len(expected), len(all))
	}
	for i, title := range expected {
		if all[i].Title != title {
			t.Errorf("Position %d: expected '%s', got '%s'", i, title, all[i].Title)
		}
	}

	done := true
	completed, err := repo.FindAll(ctx, &done)
	if err != nil {
		t.Fatalf("Failed to list completed todos: %v", err)
	}
	if len(completed) != 2 {
		t.Errorf("Expected 2 completed todos, got %d", len(completed))
	}
	for _, todo := range completed {
		if !todo.Completed {
			t.Errorf("Expected only completed todos, got '%s'", todo.Title)
		}
	}

	notDone := false
	pending, err := repo.FindAll(ctx, &notDone)
	if err != nil {
		t.Fatalf("Failed to list pending todos: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("Expected 2 pending todos, got %d", len(pending))
	}
}

func TestTodoRepository_FindAll_EmptyIsNotNil(t *testing.T) {
	repo := repositories.NewTodoRepository(setupTestDB(t))

	todos, err := repo.FindAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("Failed to list todos: %v", err)
	}
	if todos == nil {
		t.Error("Expected an empty slice, got nil")
	}
}

func TestTodoRepository_Update(t *testing.T) {
	repo := repositories.NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	desc := "old"
	todo := newTodo("Ship", false, baseTime)
	todo.Description = &desc
	if err := repo.Create(ctx, todo); err != nil {
		t.Fatalf("Failed to create todo: %v", err)
	}

	todo.Completed = true
	todo.Description = nil
	todo.Priority = models.PriorityHigh
	todo.UpdatedAt = baseTime.Add(time.Hour)
	if err := repo.Update(ctx, todo); err != nil {
		t.Fatalf("Failed to update todo: %v", err)
	}

	found, err := repo.FindByID(ctx, todo.ID)
	if err != nil {
		t.Fatalf("Failed to find todo: %v", err)
	}
	if !found.Completed {
		t.Error("Expected todo to be completed")
	}
	if found.Description != nil {
		t.Errorf("Expected description to be cleared, got %q", *found.Description)
	}
	if found.Priority != models.PriorityHigh {
		t.Errorf("Expected priority HIGH, got %s", found.Priority)
	}
	if !found.UpdatedAt.Equal(baseTime.Add(time.Hour)) {
		t.Errorf("Expected updatedAt to move, got %v", found.UpdatedAt)
	}
	if !found.CreatedAt.Equal(baseTime) {
		t.Errorf("Expected createdAt unchanged, got %v", found.CreatedAt)
	}
}

func TestTodoRepository_Update_NeverInserts(t *testing.T) {
	repo := repositories.NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	ghost := newTodo("ghost", false, baseTime)
	ghost.ID = 42

	if err := repo.Update(ctx, ghost); !errors.Is(err, repositories.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}

	total, _, err := repo.Counts(ctx)
	if err != nil {
		t.Fatalf("Failed to count todos: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected no rows after failed update, got %d", total)
	}
}

func TestTodoRepository_Delete(t *testing.T) {
	repo := repositories.NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	todo := newTodo("temporary", false, baseTime)
	if err := repo.Create(ctx, todo); err != nil {
		t.Fatalf("Failed to create todo: %v", err)
	}

	if err := repo.Delete(ctx, todo.ID); err != nil {
		t.Fatalf("Failed to delete todo: %v", err)
	}
	if _, err := repo.FindByID(ctx, todo.ID); !errors.Is(err, repositories.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, todo.ID); !errors.Is(err, repositories.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound on second delete, got %v", err)
	}
}

func TestTodoRepository_IDsNotReused(t *testing.T) {
	repo := repositories.NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	a := newTodo("a", false, baseTime)
	b := newTodo("b", false, baseTime)
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Failed to create todo: %v", err)
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Failed to create todo: %v", err)
	}
	if err := repo.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Failed to delete todo: %v", err)
	}

	c := newTodo("c", false, baseTime)
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Failed to create todo: %v", err)
	}
	if c.ID <= b.ID {
		t.Errorf("Expected new id greater than deleted id %d, got %d", b.ID, c.ID)
	}
}

func TestTodoRepository_Counts(t *testing.T) {
	repo := repositories.NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	total, completed, err := repo.Counts(ctx)
	if err != nil {
		t.Fatalf("Failed to count todos: %v", err)
	}
	if total != 0 || completed != 0 {
		t.Errorf("Expected 0/0 on empty table, got %d/%d", total, completed)
	}

	for i, done := range []bool{true, false, false} {
		todo := newTodo("todo", done, baseTime.Add(time.Duration(i)*time.Second))
		if err := repo.Create(ctx, todo); err != nil {
			t.Fatalf("Failed to create todo: %v", err)
		}
	}

	total, completed, err = repo.Counts(ctx)
	if err != nil {
		t.Fatalf("Failed to count todos: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
	if completed != 1 {
		t.Errorf("Expected completed 1, got %d", completed)
	}
}

func TestTodoRepository_Transactions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tx := db.Begin()
	if err := repositories.NewTodoRepository(tx).Create(ctx, newTodo("rolled back", false, baseTime)); err != nil {
		t.Errorf("Failed to insert in transaction: %v", err)
	}
	tx.Rollback()

	repo := repositories.NewTodoRepository(db)
	total, _, err := repo.Counts(ctx)
	if err != nil {
		t.Fatalf("Failed to count todos after rollback: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected 0 todos after rollback, got %d", total)
	}

	tx = db.Begin()
	if err := repositories.NewTodoRepository(tx).Create(ctx, newTodo("committed", false, baseTime)); err != nil {
		t.Errorf("Failed to insert in transaction: %v", err)
	}
	tx.Commit()

	total, _, err = repo.Counts(ctx)
	if err != nil {
		t.Fatalf("Failed to count todos after commit: %v", err)
	}
	if total != 1 {
		t.Errorf("Expected 1 todo after commit, got %d", total)
	}
}
