package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"forestfocus/internal/handler"
	"forestfocus/internal/middleware"
	"forestfocus/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	focusHandler *handler.FocusHandler,
	forestHandler *handler.ForestHandler,
	queueHandler *handler.QueueHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	focus := api.Group("/focus")
	focus.Use(middleware.Auth(authService))
	focus.POST("/complete", focusHandler.Complete)
	focus.GET("/streak", focusHandler.GetStreak)
	focus.GET("/history", focusHandler.GetHistory)

	forest := api.Group("/forest")
	forest.Use(middleware.Auth(authService))
	forest.POST("/plant", forestHandler.Plant)
	forest.GET("/trees", forestHandler.ListTrees)
	forest.GET("/species", forestHandler.ListSpecies)

	pending := api.Group("/queue")
	pending.Use(middleware.Auth(authService))
	pending.GET("/pending", queueHandler.ListPending)

	return engine
}
