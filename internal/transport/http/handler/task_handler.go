package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-manager-api/internal/core/validate"
	"task-manager-api/internal/domain"
	"task-manager-api/internal/service"
	httpez "task-manager-api/internal/transport/http/ez"
	mdw "task-manager-api/internal/transport/http/middleware"
	resp "task-manager-api/internal/transport/http/response"
)

// TaskHandler /tasks 下全部接口都要求登录，且只操作自己的任务
type TaskHandler struct {
	tasks   *service.TaskService
	session gin.HandlerFunc
	log     *zap.Logger
}

func NewTaskHandler(tasks *service.TaskService, session gin.HandlerFunc, log *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, session: session, log: log}
}

func (h *TaskHandler) Priority() int { return 20 }

// statusIn completed 先按任意 JSON 值接收，再由校验链判断类型
type statusIn struct {
	Completed any `json:"completed"`
}

var statusRules = validate.Chain[statusIn]{{
	Field:   "completed",
	Message: "Completed must be a boolean",
	Check: func(in *statusIn) bool {
		_, ok := in.Completed.(bool)
		return ok
	},
}}

type statusOut struct {
	Message string       `json:"message"`
	Task    *domain.Task `json:"task"`
}

func (h *TaskHandler) MountAPI(api *gin.RouterGroup) {
	g := api.Group("/tasks")
	g.Use(h.session)
	ez := httpez.New(g, h.log)

	httpez.RegisterAction(ez, httpez.Action[service.TaskQuery, []domain.Task]{
		Method: http.MethodGet,
		Path:   "",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *service.TaskQuery) ([]domain.Task, error) {
			return h.tasks.List(c.Request.Context(), mdw.UserID(c), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.TaskInput, *domain.Task]{
		Method: http.MethodPost,
		Path:   "",
		Binder: httpez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.TaskInput) (*domain.Task, error) {
			return h.tasks.Create(c.Request.Context(), mdw.UserID(c), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.TaskInput, *domain.Task]{
		Method: http.MethodPut,
		Path:   "/:id",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *service.TaskInput) (*domain.Task, error) {
			return h.tasks.Update(c.Request.Context(), mdw.UserID(c), c.Param("id"), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := h.tasks.Delete(c.Request.Context(), mdw.UserID(c), c.Param("id")); err != nil {
				return nil, err
			}
			return resp.Message("Task deleted successfully"), nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[statusIn, statusOut]{
		Method: http.MethodPatch,
		Path:   "/:id/status",
		Binder: httpez.BindJSON,
		Rules:  statusRules,
		Handler: func(c *gin.Context, in *statusIn) (statusOut, error) {
			completed := in.Completed.(bool)
			t, err := h.tasks.SetStatus(c.Request.Context(), mdw.UserID(c), c.Param("id"), completed)
			if err != nil {
				return statusOut{}, err
			}
			return statusOut{Message: service.StatusMessage(completed), Task: t}, nil
		},
	})
}
