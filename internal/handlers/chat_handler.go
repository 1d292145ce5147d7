package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"meno/internal/realtime"
	"meno/internal/services"
)

type ChatHandler struct {
	service *services.ChatService
	hub     *realtime.Hub
}

func NewChatHandler(service *services.ChatService, hub *realtime.Hub) *ChatHandler {
	return &ChatHandler{service: service, hub: hub}
}

type createChatRequest struct {
	Participants []int `json:"participants" binding:"required"`
}

type shareContentRequest struct {
	ContentID int     `json:"content_id" binding:"required"`
	Message   *string `json:"message_for_sending_content"`
}

type shareReelRequest struct {
	ReelID  int     `json:"reels_id" binding:"required"`
	Message *string `json:"message_for_sending_content"`
}

type shareUserRequest struct {
	UserID int `json:"user_id" binding:"required"`
}

func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	chat, err := h.service.CreateChat(c.Request.Context(), currentUser(c), req.Participants)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.service.ListUserChats(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (h *ChatHandler) GetChat(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}
	chat, err := h.service.GetChat(c.Request.Context(), chatID, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteChat(c.Request.Context(), chatID, currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendMessage takes a multipart form with a "message" field and an
// optional "img_file" upload.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var image io.Reader
	if fh, err := c.FormFile("img_file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read img_file"})
			return
		}
		defer f.Close()
		image = f
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), chatID, currentUser(c), c.PostForm("message"), image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteMessage(c.Request.Context(), id, currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) ShareContent(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req shareContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.service.SendContent(c.Request.Context(), chatID, currentUser(c), req.ContentID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *ChatHandler) ShareReel(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req shareReelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.service.SendReel(c.Request.Context(), chatID, currentUser(c), req.ReelID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *ChatHandler) ShareUser(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req shareUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.service.SendUser(c.Request.Context(), chatID, currentUser(c), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *ChatHandler) DeleteShare(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteShare(c.Request.Context(), id, currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream upgrades a chat member to the chat's websocket channel. Frames
// sent on it are relayed to every open connection in the chat.
func (h *ChatHandler) Stream(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.EnsureMember(c.Request.Context(), chatID, currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	conn, err := realtime.Upgrade(c.Writer, c.Request)
	if err != nil {
		return
	}
	h.hub.ServeChat(chatID, conn)
}
