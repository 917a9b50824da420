package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"chat-relay/internal/handlers"
	"chat-relay/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	cfgDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatal(fmt.Errorf("error getting user config dir: %w", err))
	}
	appDir := filepath.Join(cfgDir, "chat-relay")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		log.Fatal(fmt.Errorf("error creating config directory: %w", err))
	}

	cfgPath := getEnv("CHAT_RELAY_CONFIG", filepath.Join(appDir, "config.yaml"))
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	params := services.SamplingParams{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	llm, err := cfg.LLM.llm(cfg.SystemPrompt, params, logger)
	if err != nil {
		log.Fatal(err)
	}
	if llm == nil {
		log.Println("Provider credential not configured; /api/chat will refuse requests")
	}

	dbPath := getEnv("CHAT_RELAY_DB", filepath.Join(appDir, "store.db"))
	boltDB, err := services.NewBoltDB(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer boltDB.Close()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}
	tokenTTL := time.Hour * time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24))

	m := handlers.NewMain(llm, boltDB, boltDB, boltDB, jwtSecret, tokenTTL, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Println("Server starting on :" + cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Printf("Server error: %v", err)

	case sig := <-shutdown:
		log.Printf("Start shutdown, signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Graceful shutdown failed: %v", err)
			if err := srv.Close(); err != nil {
				log.Printf("Forcing server close: %v", err)
			}
		}
	}
}

func logLevel() slog.Level {
	if getEnv("CHAT_RELAY_DEBUG", "") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s %q, using default %d", key, value, fallback)
		return fallback
	}
	return n
}
