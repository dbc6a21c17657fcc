package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const traceIDKey = "traceID"

// TraceMiddleware 透传或生成请求追踪ID
// 网关已经带了 X-Trace-ID 时沿用，方便跨服务串联日志
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(traceIDKey, traceID)
		c.Header("X-Trace-ID", traceID)

		c.Next()
	}
}

// TraceID 当前请求的追踪ID，TraceMiddleware 未启用时返回空串
func TraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}
