package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// AccessLog writes one key=value line per request.
func AccessLog() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		rid, _ := param.Keys[requestIDKey].(string)
		line := fmt.Sprintf("%s rid=%s method=%s path=%s status=%d dur=%s ip=%s ua=%q",
			param.TimeStamp.Format("2006/01/02 15:04:05"),
			rid,
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
			param.ClientIP,
			param.Request.UserAgent(),
		)
		if param.ErrorMessage != "" {
			line += fmt.Sprintf(" err=%q", param.ErrorMessage)
		}
		return line + "\n"
	})
}
