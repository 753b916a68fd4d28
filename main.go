package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tably/config"
	"tably/cron"
	"tably/database"
	catalogRepo "tably/database/repository/catalog"
	ledgerRepo "tably/database/repository/ledger"
	profileRepo "tably/database/repository/profile"
	"tably/handlers"
	"tably/middleware"
	"tably/routes"
	"tably/services/availability"
	"tably/services/catalog"
	"tably/services/intelligence"
	"tably/services/ledger"
	"tably/services/orchestrator"
	"tably/services/profile"
	"tably/services/tools"
	"tably/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(cors.New(routes.CORSConfig()))
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	// Repositories.
	catRepo := catalogRepo.NewMongoCatalogRepo()
	ledRepo := ledgerRepo.NewMongoLedgerRepo()
	profRepo := profileRepo.NewMongoProfileRepo()

	// Services.
	catalogSvc := catalog.NewService(catRepo, logger)
	if err := catalogSvc.Seed(context.Background()); err != nil {
		logger.Sugar().Fatalf("main: failed to seed catalog: %v", err)
	}

	holds := availability.NewHoldStore(utils.GetHoldCacheClient())
	engine := &availability.Engine{
		Catalog: catRepo,
		Ledger:  ledRepo,
		Holds:   holds,
		HoldTTL: time.Duration(config.AppConfig.HoldTTLMin) * time.Minute,
		Logger:  logger,
	}

	scheduler := cron.NewScheduler(logger)
	defer scheduler.Close()
	ledgerSvc := ledger.NewService(ledRepo, holds, scheduler, logger)
	profiles := profile.NewResolver(profRepo, logger)

	registry := tools.NewRegistry(config.AppConfig.ToolRetryMax, logger)
	if err := tools.RegisterBuiltin(registry, tools.Deps{
		Catalog:  catalogSvc,
		Engine:   engine,
		Ledger:   ledgerSvc,
		Profiles: profiles,
	}); err != nil {
		logger.Sugar().Fatalf("main: failed to register tools: %v", err)
	}

	var planner intelligence.Planner
	if key := config.AppConfig.GeminiAPIKey; key != "" {
		p, err := intelligence.NewGeminiPlanner(context.Background(), key, logger)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize Gemini planner: %v", err)
		}
		planner = p
	} else {
		logger.Warn("no Gemini API key configured, using the rule-based planner")
		planner = intelligence.NewRulePlanner()
	}

	sessionStore := orchestrator.NewSessionStore(
		utils.GetSessionCacheClient(),
		time.Duration(config.AppConfig.SessionTTLMin)*time.Minute,
	)
	orch := orchestrator.New(sessionStore, planner, registry, profiles, logger)

	// Background queue worker for reminders and completions.
	cron.InitWorker(ledgerSvc)

	handlerBundle := &handlers.HandlerBundle{
		Orchestrator: orch,
		Catalog:      catalogSvc,
		Engine:       engine,
		Ledger:       ledgerSvc,
		Profiles:     profiles,
	}
	routes.RegisterAll(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
