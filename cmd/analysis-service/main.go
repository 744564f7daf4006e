package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-stock-insight/internal/analyzer/config"
	delivery "golang-stock-insight/internal/analyzer/delivery/http"
	"golang-stock-insight/internal/analyzer/repository"
	"golang-stock-insight/internal/analyzer/service"
	"golang-stock-insight/pkg/cache"
	"golang-stock-insight/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the analysis service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Analysis Service", logger.StringField("name", cfg.App.Name))

	// Initialize the shared data cache
	store := cache.NewStore(cfg.Cache)

	// Initialize repositories
	yahooRepo := repository.NewYahooFinanceRepository(cfg.YahooFinance, appLogger)
	newsRepo := repository.NewRSSNewsRepository(cfg.News, appLogger)

	aiRepo, err := buildAIRepository(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize AI providers", logger.ErrorField(err))
	}

	// Initialize scoring engines
	technical := service.NewTechnicalAnalyzer(cfg.Analyzer)
	fundamentalScorer := service.NewFundamentalScorer(cfg.Fundamental)
	sentiment := service.NewSentimentEngine(cfg.Analyzer, cfg.Lexicon)
	composite, err := service.NewCompositeScorer(cfg.Weights, cfg.Recommendation)
	if err != nil {
		appLogger.Fatal("Invalid scoring configuration", logger.ErrorField(err))
	}

	// Initialize services
	broadcaster := service.NewBroadcaster(cfg.Analyzer.ClientQueueSize, appLogger)
	analyzerSvc := service.NewAnalyzerService(cfg, store, yahooRepo, yahooRepo, newsRepo, aiRepo,
		technical, fundamentalScorer, sentiment, composite, broadcaster, appLogger)
	orchestrator := service.NewOrchestratorService(cfg, analyzerSvc, broadcaster, appLogger)

	if err := orchestrator.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start orchestrator", logger.ErrorField(err))
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize handlers and routes
	analysisHandler := delivery.NewAnalysisHandler(orchestrator, broadcaster, cfg.Analyzer.MaxConcurrentTasks, appLogger)
	apiGroup := e.Group("/api")
	analysisHandler.RegisterRoutes(apiGroup)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.StringField("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server, then drain the workers
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}
	orchestrator.Stop()

	appLogger.Info("Server exiting")
}

// buildAIRepository assembles the narrative provider chain in the configured
// order. An empty order disables AI narratives entirely.
func buildAIRepository(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (repository.AIRepository, error) {
	var providers []repository.AIRepository
	for _, name := range cfg.AI.ProviderOrder {
		switch name {
		case "openai":
			providers = append(providers, repository.NewOpenAIRepository(cfg.AI.OpenAI, appLogger))
		case "anthropic":
			providers = append(providers, repository.NewAnthropicAIRepository(cfg.AI.Anthropic, appLogger))
		case "gemini":
			genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  cfg.AI.Gemini.APIKey,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				return nil, fmt.Errorf("create gemini client: %w", err)
			}
			providers = append(providers, repository.NewGeminiAIRepository(cfg.AI.Gemini, appLogger, genAiClient))
		case "zhipu":
			providers = append(providers, repository.NewZhipuAIRepository(cfg.AI.Zhipu, appLogger))
		default:
			return nil, fmt.Errorf("unknown AI provider %q", name)
		}
	}
	if len(providers) == 0 {
		appLogger.Warn("No AI providers configured, narratives will be rule-based")
		return nil, nil
	}
	return repository.NewFallbackAIRepository(providers, appLogger)
}

func main() {
	rootCmd := &cobra.Command{Use: "analysis-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-analyzer.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing analysis-service CLI: %s\n", err)
		os.Exit(1)
	}
}
