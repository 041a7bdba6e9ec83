package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"task-manager-api/internal/core/errs"
	"task-manager-api/internal/core/validate"
	"task-manager-api/internal/domain"
	"task-manager-api/pkg/utils"
)

// TaskInput 创建与全量更新共用；Description / Completed 为 nil 表示未提供
type TaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     string  `json:"dueDate"`
	Priority    string  `json:"priority"`
	Completed   *bool   `json:"completed"`
}

// TaskQuery GET /tasks 的查询参数，原样字符串
type TaskQuery struct {
	Priority  string `form:"priority"`
	Completed string `form:"completed"`
	DueDate   string `form:"dueDate"`
}

const dateOnly = "2006-01-02"

// parseDate 接受 RFC3339 或 YYYY-MM-DD（按 UTC 零点），精度截到毫秒
func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, dateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Millisecond), true
		}
	}
	return time.Time{}, false
}

func validDate(s string) bool {
	_, ok := parseDate(s)
	return ok
}

func validPriority(s string) bool { return domain.Priority(s).Valid() }

func taskTitle(in *TaskInput) string    { return in.Title }
func taskDueDate(in *TaskInput) string  { return in.DueDate }
func taskPriority(in *TaskInput) string { return in.Priority }

var CreateTaskRules = validate.Chain[TaskInput]{
	validate.String("title", "Title is Required", taskTitle, validate.Required),
	validate.String("dueDate", "Due date is required", taskDueDate, validate.Required),
	validate.String("dueDate", "Invalid due date", taskDueDate, validate.Optional(validDate)),
	validate.String("priority", "Priority must be low, medium or high", taskPriority, validate.Optional(validPriority)),
}

// UpdateTaskRules 截止日期不要求在未来
var UpdateTaskRules = validate.Chain[TaskInput]{
	validate.String("title", "Title is Required", taskTitle, validate.Required),
	validate.String("dueDate", "Invalid due date", taskDueDate, validate.Optional(validDate)),
	validate.String("priority", "Priority must be low, medium or high", taskPriority, validate.Optional(validPriority)),
}

// ParseTaskFilter 非法取值返回 Validation 错误
func ParseTaskFilter(q TaskQuery) (domain.TaskFilter, error) {
	var f domain.TaskFilter
	if q.Priority != "" {
		p := domain.Priority(q.Priority)
		if !p.Valid() {
			return f, errs.Validation("Invalid priority filter", []validate.FieldError{{Field: "priority", Message: "must be low, medium or high"}})
		}
		f.Priority = &p
	}
	switch q.Completed {
	case "":
	case "true", "false":
		c := q.Completed == "true"
		f.Completed = &c
	default:
		return f, errs.Validation("Invalid completed filter", []validate.FieldError{{Field: "completed", Message: "must be true or false"}})
	}
	if q.DueDate != "" {
		t, ok := parseDate(q.DueDate)
		if !ok {
			return f, errs.Validation("Invalid dueDate filter", []validate.FieldError{{Field: "dueDate", Message: "must be RFC3339 or YYYY-MM-DD"}})
		}
		f.DueBefore = &t
	}
	return f, nil
}

type TaskService struct {
	tasks domain.TaskRepository
	log   *zap.Logger
	now   func() time.Time
}

func NewTaskService(tasks domain.TaskRepository, log *zap.Logger) *TaskService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskService{tasks: tasks, log: log, now: time.Now}
}

func (s *TaskService) List(ctx context.Context, uid string, q TaskQuery) ([]domain.Task, error) {
	f, err := ParseTaskFilter(q)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx, uid, f)
	if err != nil {
		return nil, errs.Internal("Error fetching Tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, uid string, in TaskInput) (*domain.Task, error) {
	if err := CreateTaskRules.Check(&in); err != nil {
		s.log.Warn("task create rejected", zap.String("userId", uid), zap.Error(err))
		return nil, err
	}
	now := s.now().UTC()
	due, _ := parseDate(in.DueDate)
	if !due.After(now) {
		return nil, errs.Validation("Date must be in the Future", []validate.FieldError{{Field: "dueDate", Message: "Date must be in the Future"}})
	}

	t := &domain.Task{
		ID:        utils.NewID(),
		Title:     in.Title,
		DueDate:   due,
		Priority:  domain.PriorityMedium,
		UserID:    uid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Priority != "" {
		t.Priority = domain.Priority(in.Priority)
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, errs.Internal("Error creating task", err)
	}
	return t, nil
}

func (s *TaskService) findOwned(ctx context.Context, uid, id, op string) (*domain.Task, error) {
	if !utils.IsValidID(id) {
		s.log.Warn("invalid task id", zap.String("id", id))
		return nil, errs.Validation("Invalid task ID", nil)
	}
	t, err := s.tasks.FindOwned(ctx, id, uid)
	if err != nil {
		return nil, errs.Internal("Error "+op+" task", err)
	}
	if t == nil {
		return nil, errs.NotFound("Task not Found")
	}
	return t, nil
}

// Update 只覆盖提供了的字段，归属不匹配视为不存在
func (s *TaskService) Update(ctx context.Context, uid, id string, in TaskInput) (*domain.Task, error) {
	if !utils.IsValidID(id) {
		s.log.Warn("invalid task id", zap.String("id", id))
		return nil, errs.Validation("Invalid task ID", nil)
	}
	if err := UpdateTaskRules.Check(&in); err != nil {
		return nil, err
	}
	t, err := s.findOwned(ctx, uid, id, "updating")
	if err != nil {
		return nil, err
	}

	t.Title = in.Title
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.DueDate != "" {
		t.DueDate, _ = parseDate(in.DueDate)
	}
	if in.Priority != "" {
		t.Priority = domain.Priority(in.Priority)
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	t.UpdatedAt = s.now().UTC()
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, errs.Internal("Error updating task", err)
	}
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, uid, id string) error {
	if !utils.IsValidID(id) {
		s.log.Warn("invalid task id", zap.String("id", id))
		return errs.Validation("Invalid task ID", nil)
	}
	ok, err := s.tasks.DeleteOwned(ctx, id, uid)
	if err != nil {
		return errs.Internal("Error deleting task", err)
	}
	if !ok {
		s.log.Warn("delete for missing task", zap.String("id", id), zap.String("userId", uid))
		return errs.NotFound("Task not Found")
	}
	return nil
}

func (s *TaskService) SetStatus(ctx context.Context, uid, id string, completed bool) (*domain.Task, error) {
	t, err := s.findOwned(ctx, uid, id, "updating")
	if err != nil {
		return nil, err
	}
	t.Completed = completed
	t.UpdatedAt = s.now().UTC()
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, errs.Internal("Error updating task status", err)
	}
	return t, nil
}

// StatusMessage PATCH /tasks/:id/status 的提示语
func StatusMessage(completed bool) string {
	if completed {
		return "Task marked as Completed"
	}
	return "Task marked as Incomplete"
}
