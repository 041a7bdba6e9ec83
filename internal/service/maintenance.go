package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"task-manager-api/internal/domain"
)

// BackfillPriorities 把旧数据里的 1/2/3 优先级改写为 low/medium/high，可重复执行
func BackfillPriorities(ctx context.Context, tasks domain.TaskRepository, log *zap.Logger) (int64, error) {
	if log == nil {
		log = zap.NewNop()
	}
	legacy := make([]int, 0, len(domain.LegacyPriorities))
	for k := range domain.LegacyPriorities {
		legacy = append(legacy, k)
	}
	sort.Ints(legacy)

	var total int64
	for _, k := range legacy {
		p := domain.LegacyPriorities[k]
		n, err := tasks.RemapPriority(ctx, k, p)
		if err != nil {
			return total, fmt.Errorf("remap priority %d: %w", k, err)
		}
		log.Info("priorities updated", zap.Int("from", k), zap.String("to", string(p)), zap.Int64("tasks", n))
		total += n
	}
	return total, nil
}
