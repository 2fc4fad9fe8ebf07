package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"syscall"

	"shopfloor/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a JSON 500. Panics caused by a client
// that hung up, such as a dropped progress stream, are logged without a reply.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			ctx := c.Request.Context()
			route := c.Request.Method + " " + c.Request.URL.Path
			if clientGone(rec) {
				logger.WarnCtx(ctx, "%s: client connection lost: %v", route, rec)
				c.Abort()
				return
			}

			stack := string(debug.Stack())
			logger.ErrorCtx(ctx, "%s: panic recovered: %v\nstack:\n%s", route, rec, stack)

			body := gin.H{"error": "Internal Server Error", "route": route}
			if gin.IsDebugging() {
				body["panic"] = fmt.Sprint(rec)
				body["stack"] = stack
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()

		c.Next()
	}
}

// clientGone reports whether rec is a write error on a closed connection
func clientGone(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if errors.As(opErr, &sysErr) {
		msg := strings.ToLower(sysErr.Error())
		return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
	}
	return false
}
