package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ruleforge/internal/config"
	"ruleforge/internal/engine"
	"ruleforge/internal/handler"
	"ruleforge/internal/logging"
	"ruleforge/internal/middleware"
	mongorepo "ruleforge/internal/repository/mongo"
	"ruleforge/internal/router"
	"ruleforge/internal/service"
)

func main() {
	cfg := config.Load()

	mongoClient, err := mongorepo.NewClient(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Close(ctx); err != nil {
			log.Printf("error closing Mongo client: %v", err)
		}
	}()

	db := mongoClient.DB()

	userRepo := mongorepo.NewUserRepository(db)
	errorLogRepo := mongorepo.NewErrorLogRepository(db)
	ruleRepo := mongorepo.NewRuleRepository(db)

	logging.Init(errorLogRepo)

	jwtService := service.NewJWTService(cfg.JWTSecret)
	authService := service.NewAuthService(userRepo, jwtService)

	eng := engine.New(cfg.ExecutorMaxParallelism)

	authMiddleware := middleware.NewAuthMiddleware(jwtService, userRepo)

	handlers := router.Handlers{
		Health:     handler.NewHealthHandler(),
		Auth:       handler.NewAuthHandler(authService),
		RuleSet:    handler.NewRuleSetHandler(eng, ruleRepo),
		Expression: handler.NewExpressionHandler(eng),
	}

	r := router.NewRouter(handlers, authMiddleware)

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
