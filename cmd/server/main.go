package main

import (
	"fmt"
	"net/http"
	"os"

	"trader-bubblemap-go/internal/analysis"
	"trader-bubblemap-go/internal/config"
	"trader-bubblemap-go/internal/database"
	"trader-bubblemap-go/internal/flipside"
	"trader-bubblemap-go/internal/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the run-history database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Flipside client and analysis service
	client := flipside.NewClient(&cfg.Flipside, log)
	service := analysis.NewService(log, &cfg, client, db)

	// Setup HTTP server
	mux := http.NewServeMux()

	apiHandler := NewAPIHandler(log, db, service)

	// API endpoints
	mux.HandleFunc("/api/analyze", apiHandler.AnalyzeHandler)
	mux.HandleFunc("/api/runs", apiHandler.RunsHandler)

	// Rendered bubble maps
	mux.Handle("/maps/", http.StripPrefix("/maps/", http.FileServer(http.Dir(cfg.Output.Dir))))

	// HTML template serving
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/templates/index.html")
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting web server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}
