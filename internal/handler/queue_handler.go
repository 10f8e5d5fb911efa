package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "forestfocus/internal/errors"
	"forestfocus/internal/queue"
)

// QueueHandler exposes the durable queue read path so the UI can render a
// pending-completion indicator.
type QueueHandler struct {
	store queue.Store
}

func NewQueueHandler(store queue.Store) *QueueHandler {
	return &QueueHandler{store: store}
}

func (h *QueueHandler) ListPending(c *gin.Context) {
	pending, err := h.store.ListPending(c.Request.Context())
	if err != nil {
		writeError(c, apperrors.Internal("failed to list pending mutations"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}
