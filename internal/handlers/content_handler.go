package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meno/internal/services"
)

type ContentHandler struct {
	service *services.ContentService
}

func NewContentHandler(service *services.ContentService) *ContentHandler {
	return &ContentHandler{service: service}
}

// Create takes a multipart form with title, content_for and a photo file.
func (h *ContentHandler) Create(c *gin.Context) {
	fh, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read photo"})
		return
	}
	defer f.Close()

	content, err := h.service.Create(c.Request.Context(), currentUser(c), c.PostForm("title"), c.PostForm("content_for"), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, content)
}

func (h *ContentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	content, err := h.service.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

func (h *ContentHandler) Like(c *gin.Context) {
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

func (h *ContentHandler) Archive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	content, err := h.service.ToggleArchive(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

func (h *ContentHandler) Delete(c *gin.Context) {
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

// ListByUser serves GET /users/:id/contents.
func (h *ContentHandler) ListByUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contents, err := h.service.ListByAuthor(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contents)
}
