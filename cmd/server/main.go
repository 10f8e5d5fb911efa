package main

import (
	"log"

	"forestfocus/internal/config"
	"forestfocus/internal/db"
	"forestfocus/internal/handler"
	"forestfocus/internal/repository"
	"forestfocus/internal/router"
	"forestfocus/internal/service"
)

func main() {
	cfg := config.Load()

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	streakRepo := repository.NewStreakRepository(database)
	treeRepo := repository.NewTreeRepository(database)
	completionRepo := repository.NewCompletionRepository(database)
	queueRepo := repository.NewQueueRepository(database)

	species := catalog.SpeciesByID()
	authService := service.NewAuthService(userRepo, streakRepo, cfg.JWTSecret, cfg.TokenTTL)
	completionService := service.NewCompletionService(completionRepo, streakRepo, treeRepo, species)
	forestService := service.NewForestService(treeRepo, species)

	authHandler := handler.NewAuthHandler(authService)
	focusHandler := handler.NewFocusHandler(completionService)
	forestHandler := handler.NewForestHandler(forestService)
	queueHandler := handler.NewQueueHandler(queueRepo)

	engine := router.New(authService, authHandler, focusHandler, forestHandler, queueHandler, cfg.CORSOrigins)
	log.Printf("backend listening on :%s", cfg.Port)
	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Fatalf("run server: %v", err)
	}
}
