package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskflow/internal/ai"
	"taskflow/internal/server"
	db "taskflow/repository/db"
	inmemory "taskflow/repository/inmemory"

	"github.com/joho/godotenv"
)

func main() {
	log.Println("Task service starting...")

	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, using process environment")
	}

	cfg := server.ReadConfig()

	if err := db.Migration(cfg.DBStr, cfg.MigratePath); err != nil {
		log.Println("[WARN] Failed to apply migrations:", err)
	} else {
		log.Println("[SUCCESS] Migrations applied")
	}

	var userRepo server.UserRepository
	var taskRepo server.TaskRepository

	dbStorage, err := db.NewStorage(cfg.DBStr)
	if err != nil {
		log.Println("[WARN] Database unreachable, falling back to in-memory storage:", err)
		inmem := inmemory.NewStorage()
		userRepo = inmem
		taskRepo = inmem
	} else {
		userRepo = dbStorage
		taskRepo = dbStorage
	}

	sessions := server.NewJWTSessions(cfg.JWTSecret)

	aiClient := ai.NewClient(cfg.OpenAIKey)
	if !aiClient.Configured() {
		log.Println("[WARN] OPENAI_API_KEY not set, AI suggestions disabled")
	}

	api := server.NewTaskAPI(userRepo, taskRepo, sessions, aiClient, cfg)
	if api == nil {
		log.Fatal("[ERROR] Failed to initialize the API")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Service listening on %s:%d", cfg.Addr, cfg.Port)
		if err := api.Start(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("[INFO] Received signal %v, starting graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := api.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] Graceful shutdown failed: %v", err)
		} else {
			log.Println("[SUCCESS] Graceful shutdown complete")
		}

	case err := <-serverErr:
		log.Printf("[ERROR] Server error: %v", err)
	}

	log.Println("Service stopped")
}
