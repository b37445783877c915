package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"product-detector/internal/cache"
	"product-detector/internal/config"
	"product-detector/internal/logging"
	"product-detector/internal/server"
	"product-detector/overlay"
	"product-detector/utils"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// API_PORT is still honoured for existing deployments
	if envPort := os.Getenv("API_PORT"); envPort != "" {
		cfg.Server.Port = envPort
	}

	logger := logging.New(cfg.Log)
	logger.Infof("Starting product-detector API (environment: %s)", cfg.Server.Environment)

	store, err := cache.New(cfg.Cache, logger)
	if err != nil {
		logger.Fatalf("Failed to create cache: %v", err)
	}
	responses := cache.NewCache(store, logger)
	defer responses.Close()

	if cfg.Search.APIKey == "" || cfg.Search.EngineID == "" {
		logger.Warn("Search API not configured, price alternatives will be empty")
	}
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OpenAI API key not configured, reported issues will be empty")
	}

	controller := overlay.NewController(cfg, logger, responses)
	handler := server.NewHandler(controller, utils.NewLoader(cfg.Fetch, logger), logger)
	router := server.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Infof("Server listening on %s", addr)
	logger.Info("Available endpoints:")
	logger.Info("  GET  /health               - Health check")
	logger.Info("  GET  /metrics              - Prometheus metrics")
	logger.Info("  POST /api/v1/classify      - Classify a page")
	logger.Info("  POST /api/v1/alternatives  - Price alternatives for product details")
	logger.Info("  POST /api/v1/issues        - Reported issues for product details")
	logger.Info("  POST /api/v1/analyze       - Classify and look up alternatives and issues")

	if err := router.Run(addr); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
