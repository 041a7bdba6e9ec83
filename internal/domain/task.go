package domain

import (
	"context"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// LegacyPriorities 旧数据里的数字优先级
var LegacyPriorities = map[int]Priority{1: PriorityLow, 2: PriorityMedium, 3: PriorityHigh}

type Task struct {
	ID          string    `gorm:"primaryKey;size:24" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	DueDate     time.Time `gorm:"index" json:"dueDate"`
	Priority    Priority  `gorm:"size:16;not null;default:'medium'" json:"priority"`
	Completed   bool      `gorm:"not null;default:false" json:"completed"`
	UserID      string    `gorm:"size:24;index;not null" json:"user"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Task) TableName() string { return "tasks" }

// TaskFilter nil 字段表示不过滤
type TaskFilter struct {
	Priority  *Priority
	Completed *bool
	DueBefore *time.Time // dueDate <= DueBefore
}

// TaskRepository 所有读写都按 owner 限定
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	List(ctx context.Context, ownerID string, f TaskFilter) ([]Task, error)
	FindOwned(ctx context.Context, id, ownerID string) (*Task, error)
	Update(ctx context.Context, t *Task) error
	DeleteOwned(ctx context.Context, id, ownerID string) (bool, error)
	// RemapPriority 离线工具用：把旧的数字优先级改成枚举值
	RemapPriority(ctx context.Context, legacy int, p Priority) (int64, error)
}
