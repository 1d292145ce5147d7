package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meno/internal/services"
)

type ReelHandler struct {
	service *services.ReelService
}

func NewReelHandler(service *services.ReelService) *ReelHandler {
	return &ReelHandler{service: service}
}

type createReelRequest struct {
	Title string  `json:"reels_title" binding:"required"`
	Video string  `json:"video_reels" binding:"required"`
	Place *string `json:"place"`
}

func (h *ReelHandler) Create(c *gin.Context) {
	var req createReelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reel, err := h.service.Create(c.Request.Context(), currentUser(c), req.Title, req.Video, req.Place)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reel)
}

func (h *ReelHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reel, err := h.service.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reel)
}

func (h *ReelHandler) Like(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	state, err := h.service.ToggleLike(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *ReelHandler) Archive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reel, err := h.service.ToggleArchive(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reel)
}

func (h *ReelHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReelHandler) ListByUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reels, err := h.service.ListByOwner(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reels)
}
