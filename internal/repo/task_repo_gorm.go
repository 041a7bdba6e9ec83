package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"task-manager-api/internal/domain"
)

type TaskRepo struct{ db *gorm.DB }

func NewTaskRepo(db *gorm.DB) *TaskRepo { return &TaskRepo{db: db} }

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepo) List(ctx context.Context, ownerID string, f domain.TaskFilter) ([]domain.Task, error) {
	q := r.db.WithContext(ctx).Model(&domain.Task{}).Where("user_id = ?", ownerID)
	if f.Priority != nil {
		q = q.Where("priority = ?", string(*f.Priority))
	}
	if f.Completed != nil {
		q = q.Where("completed = ?", *f.Completed)
	}
	if f.DueBefore != nil {
		q = q.Where("due_date <= ?", f.DueBefore.UTC())
	}
	tasks := make([]domain.Task, 0)
	if err := q.Order("created_at ASC").Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepo) FindOwned(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &t, nil
}

// Update 整行覆盖；Select("*") 让 completed=false 这类零值也写进去
func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	err := r.db.WithContext(ctx).Model(t).
		Where("user_id = ?", t.UserID).
		Select("*").Omit("id", "user_id", "created_at").
		Updates(t).Error
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (r *TaskRepo) DeleteOwned(ctx context.Context, id, ownerID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&domain.Task{})
	if res.Error != nil {
		return false, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *TaskRepo) RemapPriority(ctx context.Context, legacy int, p domain.Priority) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("priority = ?", strconv.Itoa(legacy)).
		Update("priority", string(p))
	if res.Error != nil {
		return 0, fmt.Errorf("remap priority %d: %w", legacy, res.Error)
	}
	return res.RowsAffected, nil
}
