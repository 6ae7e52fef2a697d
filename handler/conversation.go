package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vedthemaster/lexsy-frontend/middleware"
	"github.com/vedthemaster/lexsy-frontend/model"
	"github.com/vedthemaster/lexsy-frontend/pkg/logger"
	"github.com/vedthemaster/lexsy-frontend/service"
)

// SessionStatusAPI looks up agent-side session state.
type SessionStatusAPI interface {
	SessionStatus(ctx context.Context, sessionID model.SessionID, variant model.Variant) (map[string]any, error)
}

type ConversationHandler struct {
	registry *service.SessionRegistry
	status   SessionStatusAPI
}

func NewConversationHandler(registry *service.SessionRegistry, status SessionStatusAPI) *ConversationHandler {
	return &ConversationHandler{registry: registry, status: status}
}

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

// controller returns the tab's controller for the route's document, making
// sure the conversation has been started.
func (h *ConversationHandler) controller(c *gin.Context) *service.SessionController {
	documentID := model.DocumentID(c.Param("documentId"))
	ctx := logger.WithDocument(c.Request.Context(), documentID.String())
	c.Request = c.Request.WithContext(ctx)

	ctrl := h.registry.GetOrCreate(middleware.GetTabID(c), documentID, middleware.GetVariant(c))
	// A failed start is recorded in the controller's banner.
	_ = ctrl.Start(ctx)
	return ctrl
}

func conversationPath(documentID model.DocumentID) string {
	return "/conversation/" + documentID.String()
}

// Page renders the conversation, starting it on first visit.
func (h *ConversationHandler) Page(c *gin.Context) {
	view := h.controller(c).View()
	c.HTML(http.StatusOK, "conversation.html", pageData{
		Title:   "Conversation",
		Refresh: view.Pending || view.Preview.Status == service.PreviewLoading,
		View:    view,
	})
}

// PostMessage submits one turn from the page form and redirects back.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	ctrl := h.controller(c)
	if err := ctrl.Submit(c.Request.Context(), c.PostForm("message")); err != nil {
		logger.Debug(c.Request.Context(), "message not sent", "error", err)
	}
	c.Redirect(http.StatusSeeOther, conversationPath(ctrl.DocumentID()))
}

// Preview renders only the preview section.
func (h *ConversationHandler) Preview(c *gin.Context) {
	view := h.controller(c).View()
	if view.Preview.Status == service.PreviewLoading {
		c.Header("Refresh", "2")
	}
	c.HTML(http.StatusOK, "preview.html", view)
}

// RetryPreview re-runs a failed preview load.
func (h *ConversationHandler) RetryPreview(c *gin.Context) {
	ctrl := h.controller(c)
	ctrl.Preview().Retry(c.Request.Context())
	c.Redirect(http.StatusSeeOther, conversationPath(ctrl.DocumentID()))
}

// Download sends a freshly generated document as an attachment. Failures
// are shown on the conversation page.
func (h *ConversationHandler) Download(c *gin.Context) {
	ctrl := h.controller(c)
	if !ctrl.View().Downloadable {
		c.Redirect(http.StatusSeeOther, conversationPath(ctrl.DocumentID()))
		return
	}

	d, err := ctrl.Download(c.Request.Context())
	if err != nil {
		c.Redirect(http.StatusSeeOther, conversationPath(ctrl.DocumentID()))
		return
	}

	logger.Info(c.Request.Context(), "document downloaded", "filename", d.Filename, "bytes", len(d.Data))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename))
	c.Data(http.StatusOK, d.ContentType, d.Data)
}

// GetConversation returns the controller view as JSON.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller(c).View())
}

// PostMessageJSON submits one turn and returns the updated view.
func (h *ConversationHandler) PostMessageJSON(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, service.ErrEmptyMessage)
		return
	}

	ctrl := h.controller(c)
	if err := ctrl.Submit(c.Request.Context(), req.Message); err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.View())
}

// GetStatus passes the agent's session status through. Only v2 sessions have one.
func (h *ConversationHandler) GetStatus(c *gin.Context) {
	ctrl := h.controller(c)
	view := ctrl.View()
	if view.SessionID == "" {
		jsonError(c, service.ErrNoSession)
		return
	}

	status, err := h.status.SessionStatus(c.Request.Context(), view.SessionID, ctrl.Variant())
	if err != nil {
		if !errors.Is(err, service.ErrStatusUnsupported) {
			logger.Warn(c.Request.Context(), "session status failed", "error", err)
		}
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
