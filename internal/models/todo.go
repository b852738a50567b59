package models

import (
	"strings"
	"time"
)

const (
	TitleMaxLength       = 255
	DescriptionMaxLength = 1000
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Priorities lists every accepted priority, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p Priority) String() string {
	return string(p)
}

// ParsePriority accepts the exact enum spelling only.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(s)
	return p, p.IsValid()
}

// Todo is the single persisted unit of work. Timestamps are written by the
// service layer, not by GORM, so autoCreateTime/autoUpdateTime are off.
type Todo struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Description *string   `json:"description" gorm:"size:1000"`
	Completed   bool      `json:"completed" gorm:"not null;default:false;index"`
	Priority    Priority  `json:"priority" gorm:"size:10;not null;default:'MEDIUM'"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime:false"`
}

func (Todo) TableName() string {
	return "todos"
}

type TodoStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
}

// NewTodoStats derives pending from the two counts. A completed count larger
// than total can only come from a broken store, so it is clamped rather than
// reported as negative pending.
func NewTodoStats(total, completed int64) TodoStats {
	if completed > total {
		completed = total
	}
	if completed < 0 {
		completed = 0
	}
	return TodoStats{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
	}
}

// Filter selects which todos a listing returns.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterCompleted Filter = "completed"
	FilterPending   Filter = "pending"
)

// ParseFilter maps a query token to a Filter. An empty token is treated as
// FilterAll.
func ParseFilter(s string) (Filter, bool) {
	switch f := Filter(strings.TrimSpace(s)); f {
	case "", FilterAll:
		return FilterAll, true
	case FilterCompleted, FilterPending:
		return f, true
	}
	return "", false
}

// ResolveFilter is ParseFilter without a failure case: an unknown token
// selects pending todos.
func ResolveFilter(s string) Filter {
	if f, ok := ParseFilter(s); ok {
		return f
	}
	return FilterPending
}

// CompletedValue returns the completed column value the filter restricts to,
// or nil when it does not restrict.
func (f Filter) CompletedValue() *bool {
	switch f {
	case FilterCompleted:
		v := true
		return &v
	case FilterPending:
		v := false
		return &v
	}
	return nil
}
