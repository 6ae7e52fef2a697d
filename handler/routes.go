package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vedthemaster/lexsy-frontend/service"
)

// Routes mounts the pages and the JSON API.
func Routes(router gin.IRouter, upload *UploadHandler, conv *ConversationHandler) {
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/upload")
	})
	router.GET("/upload", upload.Page)
	router.POST("/upload", upload.Upload)

	pages := router.Group("/conversation/:documentId")
	{
		pages.GET("", conv.Page)
		pages.POST("/messages", conv.PostMessage)
		pages.GET("/preview", conv.Preview)
		pages.POST("/preview/retry", conv.RetryPreview)
		pages.GET("/download", conv.Download)
	}

	api := router.Group("/api/conversations/:documentId")
	{
		api.GET("", conv.GetConversation)
		api.POST("/messages", conv.PostMessageJSON)
		api.GET("/status", conv.GetStatus)
	}
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// NotFound answers unknown paths with a page linking back to upload, or a
// JSON error for the API.
func NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.HTML(http.StatusNotFound, "error.html", pageData{
		Title:  "Not found",
		Banner: &service.Banner{Title: service.BannerGeneric, Detail: "The page you requested does not exist."},
	})
}
