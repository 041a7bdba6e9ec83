package ez

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-manager-api/internal/core/errs"
	"task-manager-api/internal/core/validate"
	mdw "task-manager-api/internal/transport/http/middleware"
	resp "task-manager-api/internal/transport/http/response"
)

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定（空 body 视为零值）
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, log *zap.Logger) EZ {
	if log == nil {
		log = zap.NewNop()
	}
	return EZ{g: g, log: log}
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method     string            // GET | POST | PUT | PATCH | DELETE
	Path       string            // 例："/auth/login"、"/tasks/:id/status"
	Binder     Binder            // 绑定方式
	Status     int               // 成功状态码，默认 200
	Rules      validate.Chain[I] // 进入 Handler 之前执行
	Middleware []gin.HandlerFunc // 只作用于本接口
	Handler    func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前分组下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 绑定入参
		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			Fail(c, e.log, err)
			return
		}

		// 2) 校验链
		if err := a.Rules.Check(&in); err != nil {
			Fail(c, e.log, err)
			return
		}

		// 3) 执行
		out, err := a.Handler(c, &in)
		if err != nil {
			Fail(c, e.log, err)
			return
		}
		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		c.JSON(status, out)
	}

	handlers := append(append([]gin.HandlerFunc{}, a.Middleware...), h)
	method := strings.ToUpper(a.Method)
	if method == "" {
		method = http.MethodPost
	}
	e.g.Handle(method, a.Path, handlers...)
}

func bind(c *gin.Context, b Binder, in any) error {
	var err error
	switch b {
	case BindJSON:
		err = c.ShouldBindJSON(in)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case BindQuery:
		err = c.ShouldBindQuery(in)
	default: // BindNone: 不绑定
	}
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &errs.Error{Kind: errs.KindValidation, Msg: resp.CodeMsgMap[resp.CodeTooLarge], Err: err}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return errs.Validation("Invalid request body", []validate.FieldError{{
			Field:   typeErr.Field,
			Message: "must be " + typeErr.Type.String(),
		}})
	}
	return errs.Validation("Invalid request body", nil)
}

// Fail 统一错误映射：Internal 只记日志，不把原因返回给客户端
func Fail(c *gin.Context, log *zap.Logger, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		e = &errs.Error{Kind: errs.KindInternal, Err: err}
	}
	status := e.Kind.Status()
	if e.Kind == errs.KindValidation && errors.As(err, new(*http.MaxBytesError)) {
		status = resp.CodeTooLarge
	}

	if e.Kind == errs.KindInternal {
		log.Error("request failed",
			zap.String("rid", c.GetString(mdw.KeyRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("msg", e.Msg),
			zap.Error(e.Err),
		)
		resp.Abort(c, status, e.Msg, nil)
		return
	}
	resp.Abort(c, status, e.Msg, e.Details)
}
