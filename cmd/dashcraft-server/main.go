package main

import (
	"log"
	"os"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/server"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://localhost:5432/dashcraft?sslmode=disable"
	}

	logCfg := logger.DefaultConfig()
	logCfg.Console = true
	logCfg.FilePath = os.Getenv("DASHCRAFT_LOG_FILE")
	if format := os.Getenv("DASHCRAFT_LOG_FORMAT"); format != "" {
		logCfg.Format = format
	}
	if level := os.Getenv("DASHCRAFT_LOG_LEVEL"); level != "" {
		logCfg.Level = logger.ParseLevel(level)
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	var opts []server.Option
	if secret := os.Getenv("DASHCRAFT_JWT_SECRET"); secret != "" {
		opts = append(opts, server.WithJWTSecret([]byte(secret)))
	}
	if os.Getenv("DASHCRAFT_DEV") == "1" {
		opts = append(opts, server.WithMagicLinkTokens(true))
	}

	srv, err := server.New(dbURL, opts...)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("Error closing server", logger.F("error", err))
		}
	}()

	logger.Info("Dashcraft server starting", logger.F("port", port))
	if err := srv.Start(":" + port); err != nil {
		logger.Error("Server failed", logger.F("error", err))
		os.Exit(1)
	}
}
