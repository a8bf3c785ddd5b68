package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreybb/ebookgen/api"
	"github.com/coreybb/ebookgen/authoring"
	"github.com/coreybb/ebookgen/config"
	"github.com/coreybb/ebookgen/conversion"
	"github.com/coreybb/ebookgen/cover"
	"github.com/coreybb/ebookgen/datastore"
	"github.com/coreybb/ebookgen/document"
	"github.com/coreybb/ebookgen/ebook"
	"github.com/coreybb/ebookgen/processing"
	rh "github.com/coreybb/ebookgen/route-handlers"
	"github.com/coreybb/ebookgen/storage"
	_ "github.com/lib/pq"
)

const (
	dbPingTimeout     = 5 * time.Second
	schemaTimeout     = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
	providerTimeout   = 5 * time.Minute
	dbMaxOpenConns    = 25
	dbMaxIdleConns    = 25
	dbConnMaxLifetime = 5 * time.Minute
)

func main() {
	cfg := config.Load()

	db, err := setupDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	defer db.Close()

	bookRepo := datastore.NewBookRepository(db)
	mediaStore := storage.NewMediaStore(cfg.MediaRoot)
	httpClient := &http.Client{Timeout: providerTimeout}

	author := authoring.NewAuthor(newTextGenerator(cfg, httpClient))
	coverAcquirer := cover.NewAcquirer(mediaStore, author, newImageGenerator(cfg, httpClient), cover.NewFetcher(httpClient))

	pipeline := processing.NewPipeline(
		bookRepo,
		author,
		coverAcquirer,
		document.NewComposer(cfg, mediaStore),
		conversion.NewConverter(cfg, mediaStore),
		ebook.NewGenerator(mediaStore, cfg.EPUBEnabled),
		processing.NewTitleGuard(cfg.GenerationTimeout),
	)

	bookHandler := rh.NewBookHandler(bookRepo, pipeline)

	router := api.SetupRoutes(bookHandler, api.RouteOptions{
		MediaRoot:               mediaStore.Root(),
		GenerationTimeout:       cfg.GenerationTimeout,
		CreateRequestsPerMinute: cfg.CreateRequestsPerMinute,
	})

	startServer(cfg.Port, router)
}

func newTextGenerator(cfg config.Config, httpClient *http.Client) authoring.TextGenerator {
	var text authoring.TextGenerator
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		log.Printf("INFO: Using Anthropic model %s for text generation", cfg.AnthropicModel)
		text = authoring.NewAnthropicText(cfg.AnthropicAPIKey, cfg.AnthropicModel, httpClient)
	default:
		if cfg.LLMProvider != config.ProviderOpenAI {
			log.Printf("WARNING: Unknown LLM_PROVIDER %q, falling back to %s", cfg.LLMProvider, config.ProviderOpenAI)
		}
		log.Printf("INFO: Using OpenAI model %s for text generation", cfg.ChatModel)
		text = authoring.NewOpenAIText(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, httpClient)
	}
	return authoring.NewThrottled(text, cfg.LLMRequestsPerMinute)
}

func newImageGenerator(cfg config.Config, httpClient *http.Client) cover.ImageGenerator {
	switch cfg.ImageProvider {
	case config.ProviderHorde:
		log.Println("INFO: Using AI Horde for cover generation")
		return cover.NewHordeImage(cfg.HordeAPIKey)
	case config.ProviderOpenAI:
		log.Printf("INFO: Using OpenAI model %s for cover generation", cfg.ImageModel)
		return cover.NewOpenAIImage(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ImageModel, cfg.ImageSize, httpClient)
	default:
		log.Printf("WARNING: Unknown IMAGE_PROVIDER %q, generated covers are unavailable", cfg.ImageProvider)
		return nil
	}
}

func setupDatabase(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancelSchema()
	if err := datastore.EnsureSchema(schemaCtx, db); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("Database connection successful")
	return db, nil
}

func startServer(port string, router http.Handler) {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownSignal
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
