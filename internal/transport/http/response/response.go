package response

import "github.com/gin-gonic/gin"

type ErrorBody struct {
	Message string `json:"message"`
	Details any    `json:"details"`
}

// Envelope 统一失败响应：{success:false, error:{message, details}}
type Envelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

func Fail(msg string, details any) Envelope {
	return Envelope{Success: false, Error: ErrorBody{Message: msg, Details: details}}
}

// Error 失败响应（customMsg 为空时用状态码的默认文案）
func Error(code int, customMsg string) Envelope {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	if msg == "" {
		msg = CodeMsgMap[CodeServerError]
	}
	return Fail(msg, nil)
}

// Abort 写失败响应并中断后续 handler
func Abort(c *gin.Context, code int, msg string, details any) {
	env := Error(code, msg)
	env.Error.Details = details
	c.AbortWithStatusJSON(code, env)
}

// Message 只带提示语的成功响应
func Message(msg string) gin.H { return gin.H{"message": msg} }
