package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"task-manager-api/internal/core/auth"
	"task-manager-api/internal/core/config"
	"task-manager-api/internal/core/ratelimit"
	"task-manager-api/internal/core/server"
	"task-manager-api/internal/repo"
	"task-manager-api/internal/service"
	"task-manager-api/internal/transport/http/handler"
	mdw "task-manager-api/internal/transport/http/middleware"
)

// Deps 由 main 构建后注入
type Deps struct {
	Log     *zap.Logger
	Store   *repo.Store
	Limiter ratelimit.Store
	HTTP    config.HTTP
	JWT     config.JWT
	Limit   config.RateLimit
}

// Tokens access / refresh 各自的签发器
func Tokens(c config.JWT) (access, refresh *auth.JWTer) {
	access = &auth.JWTer{Secret: []byte(c.Secret), Issuer: c.Issuer, TTL: c.AccessTTL()}
	refresh = &auth.JWTer{Secret: []byte(c.RefreshSecret), Issuer: c.Issuer, TTL: c.RefreshTTL()}
	return access, refresh
}

func NewAPIEngine(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := server.NewRouter(d.Log, server.Options{
		TrustedProxies: d.HTTP.TrustedProxies,
		CORSOrigins:    d.HTTP.CORSOrigins,
	})

	// 中间件；数值为 0 的保护项不启用
	r.Use(mdw.RequestID(), mdw.Recovery(d.Log))
	if d.HTTP.RPS > 0 {
		r.Use(mdw.RateLimit(rate.Limit(d.HTTP.RPS), max(1, d.HTTP.Burst)))
	}
	if d.HTTP.MaxConcurrent > 0 {
		r.Use(mdw.ConcurrencyLimit(d.HTTP.MaxConcurrent))
	}
	if d.HTTP.MaxBodyBytes > 0 {
		r.Use(mdw.MaxBodyBytes(d.HTTP.MaxBodyBytes))
	}
	if d.HTTP.RequestTimeoutSec > 0 {
		r.Use(mdw.Timeout(time.Duration(d.HTTP.RequestTimeoutSec) * time.Second))
	}
	r.Use(mdw.Metrics(), mdw.AccessLog(d.Log))

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	access, refresh := Tokens(d.JWT)
	limiter := d.Limiter
	if limiter == nil {
		limiter = ratelimit.NewMemoryStore()
	}

	users := service.NewUserService(d.Store.Users, access, refresh, d.Log)
	tasks := service.NewTaskService(d.Store.Tasks, d.Log)
	session := mdw.AuthJWT(access)

	MountAll(&r.RouterGroup,
		handler.NewAuthHandler(users, session, mdw.WindowLimit(limiter, "auth", d.Limit.Max, d.Limit.Window, d.Log), d.Log),
		handler.NewTaskHandler(tasks, session, d.Log),
	)
	return r
}
