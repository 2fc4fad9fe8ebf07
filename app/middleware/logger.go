package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"shopfloor/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/pretty"
)

// maxLoggedBody request body bytes kept in the log line
const maxLoggedBody = 1000

// Logger logs one line per request. Health checks, static files and 404s are skipped.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var bodyStr string
		if c.Request.Method == http.MethodPost {
			bodyStr = getRequestBody(c)
		}

		c.Next()

		path := c.Request.URL.Path
		if c.Writer.Status() == http.StatusNotFound || path == "/health" || strings.HasPrefix(path, "/files/") {
			return
		}

		ctx := c.Request.Context()
		latency := time.Since(startTime)
		if bodyStr != "" {
			logger.InfoCtx(ctx, "[GIN] %3d | %13v | %15s | %s %s | body: %s",
				c.Writer.Status(), latency, c.ClientIP(), c.Request.Method, c.Request.RequestURI, bodyStr)
			return
		}
		logger.InfoCtx(ctx, "[GIN] %3d | %13v | %15s | %s %s",
			c.Writer.Status(), latency, c.ClientIP(), c.Request.Method, c.Request.RequestURI)
	}
}

// getRequestBody gets request body content
func getRequestBody(c *gin.Context) string {
	var bodyBytes []byte
	if c.Request.Body != nil {
		bodyBytes, _ = io.ReadAll(c.Request.Body)
		// Reset request body since reading it clears it
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}
	return CompressBody(string(bodyBytes))
}

// CompressBody strips JSON whitespace and truncates long bodies
func CompressBody(body string) string {
	if len(body) == 0 {
		return ""
	}

	compressed := pretty.Ugly([]byte(body))
	if len(compressed) > maxLoggedBody {
		return string(compressed[:maxLoggedBody]) + "..."
	}
	return string(compressed)
}
