package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// WantsJSON reports whether the caller is the JSON API rather than a browser page.
func WantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// abortWithError ends the request with msg in the caller's preferred format.
func abortWithError(c *gin.Context, status int, msg string) {
	if WantsJSON(c) {
		c.AbortWithStatusJSON(status, gin.H{
			"error":      msg,
			"request_id": GetRequestID(c),
		})
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.AbortWithStatus(status)
	_, _ = c.Writer.WriteString(msg + "\n")
}

// NoStore keeps browsers from caching pages that show per-tab state.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/static/") {
			c.Header("Cache-Control", "no-store")
		}
		c.Next()
	}
}
