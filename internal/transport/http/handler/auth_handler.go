package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-manager-api/internal/domain"
	"task-manager-api/internal/service"
	httpez "task-manager-api/internal/transport/http/ez"
	mdw "task-manager-api/internal/transport/http/middleware"
	resp "task-manager-api/internal/transport/http/response"
)

// AuthHandler /auth 下的账号与会话接口
type AuthHandler struct {
	users   *service.UserService
	session gin.HandlerFunc // AuthJWT
	limiter gin.HandlerFunc // login / refresh-token 共用
	log     *zap.Logger
}

func NewAuthHandler(users *service.UserService, session, limiter gin.HandlerFunc, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, session: session, limiter: limiter, log: log}
}

func (h *AuthHandler) Priority() int { return 10 }

type loginIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshIn struct {
	RefreshToken string `json:"refreshToken"`
}

type profileOut struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

type loginOut struct {
	Message string `json:"message"`
	*service.LoginResult
}

type refreshOut struct {
	Message string `json:"message"`
	*service.TokenPair
}

func (h *AuthHandler) MountAPI(api *gin.RouterGroup) {
	ez := httpez.New(api.Group("/auth"), h.log)

	httpez.RegisterAction(ez, httpez.Action[service.RegisterInput, gin.H]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *service.RegisterInput) (gin.H, error) {
			if _, err := h.users.Register(c.Request.Context(), *in); err != nil {
				return nil, err
			}
			return resp.Message("User created successfully."), nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[loginIn, loginOut]{
		Method:     http.MethodPost,
		Path:       "/login",
		Binder:     httpez.BindJSON,
		Middleware: []gin.HandlerFunc{h.limiter},
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			res, err := h.users.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return loginOut{}, err
			}
			return loginOut{Message: "Login Successful", LoginResult: res}, nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[refreshIn, refreshOut]{
		Method:     http.MethodPost,
		Path:       "/refresh-token",
		Binder:     httpez.BindJSON,
		Middleware: []gin.HandlerFunc{h.limiter},
		Handler: func(c *gin.Context, in *refreshIn) (refreshOut, error) {
			pair, err := h.users.Refresh(c.Request.Context(), in.RefreshToken)
			if err != nil {
				return refreshOut{}, err
			}
			return refreshOut{Message: "Access Token refreshed Successfully", TokenPair: pair}, nil
		},
	})

	// 以下需要登录
	session := []gin.HandlerFunc{h.session}

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.User]{
		Method:     http.MethodGet,
		Path:       "/profile",
		Binder:     httpez.BindNone,
		Middleware: session,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return h.users.Profile(c.Request.Context(), mdw.UserID(c))
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.ProfileInput, profileOut]{
		Method:     http.MethodPut,
		Path:       "/profile",
		Binder:     httpez.BindJSON,
		Middleware: session,
		Handler: func(c *gin.Context, in *service.ProfileInput) (profileOut, error) {
			u, err := h.users.UpdateProfile(c.Request.Context(), mdw.UserID(c), *in)
			if err != nil {
				return profileOut{}, err
			}
			return profileOut{Message: "Profile updated successfully", User: u}, nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, gin.H]{
		Method:     http.MethodDelete,
		Path:       "/profile",
		Binder:     httpez.BindNone,
		Middleware: session,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := h.users.DeleteProfile(c.Request.Context(), mdw.UserID(c)); err != nil {
				return nil, err
			}
			return resp.Message("Account deleted successfully."), nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, gin.H]{
		Method:     http.MethodPost,
		Path:       "/logout",
		Binder:     httpez.BindNone,
		Middleware: session,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := h.users.Logout(c.Request.Context(), mdw.UserID(c)); err != nil {
				return nil, err
			}
			return resp.Message("Logged out successfully."), nil
		},
	})
}
