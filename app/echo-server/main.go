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

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"newsRanker/app/echo-server/router"
	"newsRanker/business/analytics"
	"newsRanker/business/bandit"
	"newsRanker/business/diversity"
	"newsRanker/business/experiment"
	"newsRanker/business/expmetrics"
	"newsRanker/business/personalization"
	"newsRanker/business/ranking"
	"newsRanker/business/similarity"
	psqlRepo "newsRanker/internal/repository/postgres"
	redisRepo "newsRanker/internal/repository/redis"
	"newsRanker/internal/rest"
	"newsRanker/pkg/config"
	"newsRanker/pkg/database"
	"newsRanker/pkg/logger"
	"newsRanker/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting news ranking engine", "version", cfg.App.Version)

	metrics.Init()

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	logger.Info("Database connected successfully")

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.RedisHost, cfg.Redis.RedisPort),
		Password: cfg.Redis.RedisPassword,
		DB:       cfg.Redis.RedisDB,
	})

	// Init repo
	experimentRepo := psqlRepo.NewExperimentRepository(db)
	alertRepo := psqlRepo.NewAlertRepository(db)
	profileRepo := psqlRepo.NewProfileRepository(db)
	impressionRepo := psqlRepo.NewImpressionRepository(db)
	clickRepo := psqlRepo.NewClickRepository(db)
	eventStatsRepo := psqlRepo.NewEventStatsRepository(db)
	metricRepo := psqlRepo.NewMetricRepository(db)
	armRepo := psqlRepo.NewBanditArmRepository(db)
	decisionRepo := psqlRepo.NewBanditDecisionRepository(db)
	rewardRepo := psqlRepo.NewBanditRewardRepository(db)
	vectorRepo := redisRepo.NewVectorRepository(redisClient)

	// Init service
	weights := personalization.Weights{
		Importance: cfg.Ranking.WImportance,
		Recency:    cfg.Ranking.WRecency,
		Relevance:  cfg.Ranking.WRelevance,
		Novelty:    cfg.Ranking.WNovelty,
	}

	vectorStore := similarity.NewBreakerVectorStore(vectorRepo, cfg.Strategy.Timeout)
	resolver := similarity.NewResolver(vectorStore)
	filter := diversity.NewFilter(resolver)
	personalizationService := personalization.NewService(profileRepo, clickRepo, weights)
	experimentService := experiment.NewService(experimentRepo)
	analyticsService := analytics.NewService(impressionRepo, clickRepo)
	rankingService := ranking.NewService(
		experimentService, personalizationService, filter, analyticsService,
		cfg.Ranking.DiversityWeight, cfg.Ranking.TopicCap,
	)

	registry := bandit.NewRegistry(armRepo)
	if err := registry.Load(context.Background()); err != nil {
		logger.Fatal("Failed to load bandit arms", "error", err)
	}

	var strategy bandit.StrategyClient
	if cfg.Strategy.URL != "" {
		strategy = bandit.NewRemoteStrategy(cfg.Strategy.URL, cfg.Strategy.Timeout)
		logger.Info("Using remote strategy service", "url", cfg.Strategy.URL)
	} else {
		strategy = bandit.NewSelector(cfg.Ranking.Epsilon, time.Now().UnixNano())
	}

	banditService := bandit.NewService(
		registry, strategy, decisionRepo, rewardRepo,
		personalizationService, filter,
		cfg.Ranking.DiversityWeight, cfg.Ranking.TopicCap,
	)

	aggregator := expmetrics.NewAggregator(experimentService, eventStatsRepo, metricRepo)
	monitor := expmetrics.NewMonitor(experimentService, metricRepo, alertRepo)
	scheduler := expmetrics.NewScheduler(aggregator, monitor, cfg.Jobs.AggregationInterval, cfg.Jobs.AutoStopInterval)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	go analyticsService.Run(workerCtx)
	go banditService.RunRewardWorker(workerCtx)
	go scheduler.Run(workerCtx)

	// Init handler
	experimentHandler := rest.NewExperimentHandler(experimentService, metricRepo)
	rankingHandler := rest.NewRankingHandler(rankingService)
	recommendationHandler := rest.NewRecommendationHandler(banditService)
	preferenceHandler := rest.NewPreferenceHandler(personalizationService, analyticsService)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// Setup routes
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	router.SetupExperimentRoutes(api, experimentHandler)
	router.SetupExperimentAdminRoutes(api, experimentHandler)
	router.SetupRankingRoutes(api, rankingHandler)
	router.SetupRecommendationRoutes(api, recommendationHandler)
	router.SetupPreferenceRoutes(api, preferenceHandler)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", "error", err)
	}

	logger.Info("Server stopped")
}
