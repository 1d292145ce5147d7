package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meno/internal/realtime"
	"meno/internal/services"
)

type NotificationHandler struct {
	service *services.NotificationService
	hub     *realtime.Hub
}

func NewNotificationHandler(service *services.NotificationService, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{service: service, hub: hub}
}

func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), id, currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream subscribes the caller to their own notification channel.
func (h *NotificationHandler) Stream(c *gin.Context) {
	conn, err := realtime.Upgrade(c.Writer, c.Request)
	if err != nil {
		return
	}
	h.hub.ServeNotifications(currentUser(c), conn)
}
