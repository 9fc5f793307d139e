package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kestrel/backend/internal/hub"
)

const streamHeartbeat = 25 * time.Second

// CommentInput is the body of a new comment.
type CommentInput struct {
	Content string `json:"content" example:"Still the best open world."`
}

// GetComments godoc
// @Summary      List comments of a game
// @Description  Comments oldest first, each with its author.
// @Tags         comments
// @Produce      json
// @Param        id path int true "Game ID"
// @Success      200 {array} comment.View
// @Router       /games/{id}/comments [get]
func (h *Handler) GetComments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	views, err := h.comments.ListForGame(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// AddComment godoc
// @Summary      Comment on a game
// @Description  Adds a comment by the authenticated user and pushes it to live stream subscribers.
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int          true "Game ID"
// @Param        input body CommentInput true "Comment"
// @Success      201 {object} comment.View
// @Failure      400 {object} ErrorResponse "Empty content"
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /games/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.comments.Add(c.Request.Context(), id, user.ID, input.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// StreamComments godoc
// @Summary      Live comments of a game
// @Description  Server-sent events stream; each "comment.created" event carries the new comment.
// @Tags         comments
// @Produce      text/event-stream
// @Param        id path int true "Game ID"
// @Success      200 {string} string "event stream"
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /games/{id}/comments/stream [get]
func (h *Handler) StreamComments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.catalog.GetGame(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	client := hub.NewClient()
	h.hub.Subscribe(id, client)

	defer h.hub.Unsubscribe(id, client)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case msg, open := <-client:
			if !open {
				return false
			}

			c.SSEvent(hub.EventCommentCreated, string(msg))

			return true
		case <-heartbeat.C:
			c.SSEvent("ping", "")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
