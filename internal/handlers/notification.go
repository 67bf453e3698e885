// internal/handlers/notification.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/eco-backend/internal/i18n"
	"github.com/javajoker/eco-backend/internal/realtime"
	"github.com/javajoker/eco-backend/internal/services"
	"github.com/javajoker/eco-backend/internal/utils"
)

const (
	notificationActionMarkRead    = "mark-read"
	notificationActionMarkAllRead = "mark-all-read"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
	hub                 *realtime.Hub
}

// notificationRequest carries every shape POST /notifications accepts; the
// action field selects which one applies. No action means create.
type notificationRequest struct {
	Action         string `json:"action"`
	NotificationID string `json:"notificationId"`
	services.CreateNotificationRequest
}

func NewNotificationHandler(notificationService *services.NotificationService, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		hub:                 hub,
	}
}

// targetUser resolves the userId a request acts on. Non-admins may only act
// on their own notifications.
func targetUser(c *gin.Context, requested string) (string, bool) {
	actor := actorFromContext(c)
	if requested == "" || requested == actor.ID {
		return actor.ID, true
	}
	if !actor.IsAdmin() {
		utils.ForbiddenResponse(c, "")
		return "", false
	}
	return requested, true
}

// GET /notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, ok := targetUser(c, c.Query("userId"))
	if !ok {
		return
	}

	notifications, err := h.notificationService.List(c.Request.Context(), userID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, notifications)
}

// GET /notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := targetUser(c, c.Query("userId"))
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"count": count})
}

// POST /notifications
func (h *NotificationHandler) PostNotification(c *gin.Context) {
	var req notificationRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case notificationActionMarkRead:
		userID, ok := targetUser(c, req.UserID)
		if !ok {
			return
		}
		if req.NotificationID == "" {
			utils.BadRequestResponse(c, "notificationId is required", nil)
			return
		}
		if err := h.notificationService.MarkRead(ctx, userID, req.NotificationID); err != nil {
			utils.HandleError(c, err)
			return
		}
		utils.MessageResponse(c, i18n.KeyNotificationMarkedRead)

	case notificationActionMarkAllRead:
		userID, ok := targetUser(c, req.UserID)
		if !ok {
			return
		}
		updated, err := h.notificationService.MarkAllRead(ctx, userID)
		if err != nil {
			utils.HandleError(c, err)
			return
		}
		utils.SuccessResponse(c, gin.H{
			"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyNotificationAllMarkedRead),
			"updated": updated,
		})

	case "":
		userID, ok := targetUser(c, req.UserID)
		if !ok {
			return
		}
		req.UserID = userID
		notification, err := h.notificationService.Create(ctx, &req.CreateNotificationRequest)
		if err != nil {
			utils.HandleError(c, err)
			return
		}
		utils.CreatedResponse(c, notification)

	default:
		utils.BadRequestResponse(c, "unknown action "+req.Action, nil)
	}
}

// GET /ws/notifications
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID, _ := utils.GetUserIDFromContext(c)
	h.hub.Serve(userID, c.Writer, c.Request)
}
