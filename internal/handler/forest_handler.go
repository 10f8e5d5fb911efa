package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"forestfocus/internal/middleware"
	"forestfocus/internal/service"
)

type ForestHandler struct {
	forestService *service.ForestService
}

type plantRequest struct {
	SpeciesID string `json:"speciesId"`
}

func NewForestHandler(forestService *service.ForestService) *ForestHandler {
	return &ForestHandler{forestService: forestService}
}

func (h *ForestHandler) Plant(c *gin.Context) {
	var req plantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	tree, apiErr := h.forestService.Plant(c.Request.Context(), userID, req.SpeciesID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tree": tree})
}

func (h *ForestHandler) ListTrees(c *gin.Context) {
	userID := middleware.UserID(c)
	trees, apiErr := h.forestService.List(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trees": trees})
}

func (h *ForestHandler) ListSpecies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"species": h.forestService.Species()})
}
