package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"options-income-screener/internal/screener/config"
	delivery "options-income-screener/internal/screener/delivery/http"
	_ "options-income-screener/internal/screener/docs"
	"options-income-screener/internal/screener/repository"
	"options-income-screener/internal/screener/service"
	"options-income-screener/pkg/logger"
	"options-income-screener/pkg/postgres"
	"options-income-screener/pkg/redis"
	"options-income-screener/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the screener service with the daily schedule and API",
	Run:   runServe,
}

var runOnceCmd = &cobra.Command{
	Use:   "run",
	Short: "Executes one screening pipeline run and exits",
	Run:   runOnce,
}

var checkHealthCmd = &cobra.Command{
	Use:   "check-health",
	Short: "Prints the pipeline health status and exits non-zero when critical",
	Run:   runCheckHealth,
}

// app wires every collaborator of the screener service.
type app struct {
	cfg         *config.Config
	logger      *logger.Logger
	db          *postgres.DB
	redisClient *redis.Client

	picksRepo  repository.PicksRepository
	runRepo    repository.PipelineRunRepository
	pipeline   service.PipelineService
	monitoring service.MonitoringService

	closers []func()
}

func buildApp() *app {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	a := &app{cfg: cfg, logger: appLogger}
	a.closers = append(a.closers, func() { _ = appLogger.Sync() })

	db, err := postgres.NewDB(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	a.db = db
	if sqlDB, err := db.DB.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}

	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	a.redisClient = redisClient
	a.closers = append(a.closers, func() { _ = redisClient.Close() })

	var notifier telegram.Notifier
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
	}

	var aiRepo repository.AIRepository
	switch cfg.AI.Provider {
	case "gemini":
		genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: cfg.Gemini.APIKey,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini AI client", logger.ErrorField(err))
		}
		aiRepo, err = repository.NewGeminiAIRepository(cfg, appLogger, genAiClient)
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini AI repository", logger.ErrorField(err))
		}
	default:
		appLogger.Info("No AI provider configured, rationales disabled")
	}

	earningsRepo := repository.NewEarningsCalendarRepository(cfg, appLogger)
	marketData := repository.NewMarketDataRepository(cfg, appLogger, redisClient, earningsRepo)

	a.picksRepo = repository.NewPicksRepository(db.DB)
	a.runRepo = repository.NewPipelineRunRepository(db.DB)
	alertRepo := repository.NewMonitoringAlertRepository(db.DB)
	sentimentRepo := repository.NewSentimentRepository(db.DB)

	a.monitoring = service.NewMonitoringService(cfg, appLogger, a.runRepo, alertRepo, redisClient, notifier)

	aggregator := service.NewSentimentAggregator(marketData, appLogger)
	filter := service.NewSentimentFilter(0, appLogger)
	ccScreener := service.NewCoveredCallScreener(appLogger)
	cspScreener := service.NewCashSecuredPutScreener(appLogger)
	scorer := service.NewScorer()

	a.pipeline = service.NewPipelineService(cfg, appLogger, marketData, a.picksRepo, a.runRepo,
		sentimentRepo, aiRepo, notifier, aggregator, filter, ccScreener, cspScreener, scorer, a.monitoring)

	return a
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := buildApp()
	defer a.close()

	a.logger.Info("Starting Screener Service", logger.Field("name", a.cfg.App.Name))

	schedule := a.cfg.Screener.CronSchedule
	if schedule == "" {
		schedule = "30 16 * * 1-5"
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := a.pipeline.Run(ctx, a.cfg.Screener.Universe); err != nil {
			a.logger.Error("Scheduled pipeline run failed", logger.ErrorField(err))
		}
	}); err != nil {
		a.logger.Fatal("Invalid cron schedule", logger.ErrorField(err))
	}
	if _, err := c.AddFunc("0 * * * *", func() {
		if err := a.monitoring.CheckDeadMansSwitch(ctx); err != nil {
			a.logger.Error("Dead man's switch check failed", logger.ErrorField(err))
		}
	}); err != nil {
		a.logger.Fatal("Invalid monitoring schedule", logger.ErrorField(err))
	}
	c.Start()
	defer c.Stop()

	e := echo.New()
	e.HideBanner = true

	handler := delivery.NewScreenerHandler(a.picksRepo, a.runRepo, a.monitoring, a.logger)
	handler.RegisterRoutes(e.Group("/api/v1"))
	e.GET("/swagger/*", swagger.WrapHandler)

	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.API.Port)
		a.logger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	<-ctx.Done()

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server forced to shutdown", logger.ErrorField(err))
	}
	a.logger.Info("Server exiting")
}

func runOnce(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := buildApp()
	defer a.close()

	result, err := a.pipeline.Run(ctx, a.cfg.Screener.Universe)
	if err != nil {
		a.logger.Fatal("Pipeline run failed", logger.ErrorField(err))
	}

	a.logger.Info("Pipeline run completed",
		logger.IntField("succeeded", result.SymbolsSucceeded),
		logger.IntField("failed", result.SymbolsFailed),
		logger.IntField("cc_picks", result.CCPicks),
		logger.IntField("csp_picks", result.CSPPicks),
	)
}

func runCheckHealth(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := buildApp()
	defer a.close()

	if err := a.monitoring.CheckDeadMansSwitch(ctx); err != nil {
		a.logger.Error("Dead man's switch check failed", logger.ErrorField(err))
	}

	status, err := a.monitoring.GetHealthStatus(ctx)
	if err != nil {
		a.logger.Fatal("Failed to compute health status", logger.ErrorField(err))
	}

	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))

	if status.Status == "critical" {
		os.Exit(1)
	}
}

// @title Options Income Screener API
// @version 1.0
// @description Daily covered call and cash-secured put screening pipeline.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "screener-service"}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd, runOnceCmd, checkHealthCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing screener-service CLI: %s\n", err)
		os.Exit(1)
	}
}
