package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"forestfocus/internal/middleware"
	"forestfocus/internal/model"
	"forestfocus/internal/service"
)

type FocusHandler struct {
	completionService *service.CompletionService
}

type completionRequest struct {
	SessionID    string    `json:"sessionId"`
	Fingerprint  string    `json:"fingerprint"`
	StartedAt    time.Time `json:"startedAt"`
	FocusMinutes int       `json:"focusMinutes"`
}

func NewFocusHandler(completionService *service.CompletionService) *FocusHandler {
	return &FocusHandler{completionService: completionService}
}

func (h *FocusHandler) Complete(c *gin.Context) {
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	result, apiErr := h.completionService.Submit(c.Request.Context(), userID, model.CompletionSubmission{
		SessionID:    req.SessionID,
		Fingerprint:  req.Fingerprint,
		StartedAt:    req.StartedAt,
		FocusMinutes: req.FocusMinutes,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FocusHandler) GetStreak(c *gin.Context) {
	userID := middleware.UserID(c)
	streak, apiErr := h.completionService.GetStreak(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak": streak})
}

func (h *FocusHandler) GetHistory(c *gin.Context) {
	userID := middleware.UserID(c)

	limit := 50
	rawLimit := c.Query("limit")
	if rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	records, apiErr := h.completionService.GetHistory(c.Request.Context(), userID, limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completions": records})
}
