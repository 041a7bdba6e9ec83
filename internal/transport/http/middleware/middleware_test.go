package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"task-manager-api/internal/core/auth"
	"task-manager-api/internal/core/ratelimit"
)

func init() { gin.SetMode(gin.TestMode) }

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error.Message
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthJWT(t *testing.T) {
	j := &auth.JWTer{Secret: []byte("s"), Issuer: "test", TTL: time.Hour}
	r := gin.New()
	r.GET("/me", AuthJWT(j), func(c *gin.Context) {
		fromCtx, _ := auth.UserIDFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"gin": UserID(c), "ctx": fromCtx})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := do(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Access denied. No token provided.", errorMessage(t, w))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w = do(r, req)
	assert.Equal(t, "Access denied. No token provided.", errorMessage(t, w))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	w = do(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid Token", errorMessage(t, w))

	expired := *j
	expired.TTL = -time.Minute
	old, err := expired.Issue("u1")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+old)
	w = do(r, req)
	assert.Equal(t, "Token Expired.", errorMessage(t, w))

	tok, err := j.Issue("u1")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"gin":"u1","ctx":"u1"}`, w.Body.String())
}

func TestWindowLimit_SharedAcrossRoutes(t *testing.T) {
	lim := WindowLimit(ratelimit.NewMemoryStore(), "auth", 3, time.Minute, nil)
	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.POST("/login", lim, ok)
	r.POST("/refresh", lim, ok)

	for i, path := range []string{"/login", "/refresh", "/login"} {
		w := do(r, httptest.NewRequest(http.MethodPost, path, nil))
		require.Equal(t, http.StatusOK, w.Code, "hit %d", i)
		assert.Equal(t, "3", w.Header().Get("RateLimit-Limit"))
		assert.Equal(t, string(rune('2'-i)), w.Header().Get("RateLimit-Remaining"))
	}

	w := do(r, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests, try again later.", errorMessage(t, w))
	assert.Equal(t, "0", w.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// 其他地址不受影响
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, http.StatusOK, do(r, req).Code)
}

type brokenStore struct{}

func (brokenStore) Hit(context.Context, string, int, time.Duration) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis down")
}

func TestWindowLimit_FailsOpen(t *testing.T) {
	r := gin.New()
	r.POST("/login", WindowLimit(brokenStore{}, "auth", 1, time.Minute, nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodPost, "/login", nil)).Code)
	}
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.POST("/echo", MaxBodyBytes(8), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := do(r, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"title":"way too long"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Request body too large", errorMessage(t, w))
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.GET("/slow", Timeout(10*time.Millisecond), func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	w := do(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/", RequestID(), func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(KeyRequestID))
	assert.Equal(t, w.Header().Get(KeyRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(KeyRequestID, "fixed")
	assert.Equal(t, "fixed", do(r, req).Body.String())
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	w := do(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", errorMessage(t, w))
}

func TestRequestID_RejectsUnusableHeader(t *testing.T) {
	assert.True(t, usableRequestID("abc-123"))
	assert.False(t, usableRequestID(""))
	assert.False(t, usableRequestID("has space"))
	assert.False(t, usableRequestID(strings.Repeat("x", 65)))
}

func TestAccessLog_LevelAndMasking(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	do(r, httptest.NewRequest(http.MethodGet, "/ok?token=secret&priority=high", nil))
	do(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	q := entries[0].ContextMap()["query"].(map[string][]string)
	assert.Equal(t, []string{"****"}, q["token"])
	assert.Equal(t, []string{"high"}, q["priority"])
	assert.NotEmpty(t, entries[0].ContextMap()["rid"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestAccessLog_RecordsSessionUser(t *testing.T) {
	j := &auth.JWTer{Secret: []byte("s"), Issuer: "test", TTL: time.Hour}
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(AccessLog(zap.New(core)))
	r.GET("/me", AuthJWT(j), func(c *gin.Context) { c.Status(http.StatusOK) })

	tok, err := j.Issue("u-42")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	do(r, req)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "u-42", logs.All()[0].ContextMap()["userId"])
}
