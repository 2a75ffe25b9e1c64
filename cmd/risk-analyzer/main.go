package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	// Application
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/port"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/usecase"

	// Domain
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/repository"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/service"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"

	// Infrastructure
	redisCache "github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/cache/redis"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/diagnostics"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/marketdata"
	natsInfra "github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/messaging/nats"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/notification"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/notification/webhook"
	wsInfra "github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/notification/websocket"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/observability/cloudwatch"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/persistence/postgres"
	s3storage "github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/storage/s3"

	// Pipeline support
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/metrics"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/ratelimit"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/registry"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/stream"

	// Interfaces
	httpInterface "github.com/yyyooosi/stock-analyzer-2025-sub001/internal/interfaces/http"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/interfaces/http/handler"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/interfaces/http/middleware"

	// Shared
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/config"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting Risk Analyzer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Таблица индикаторов
	var reg *registry.Registry
	if cfg.Risk.IndicatorsFile != "" {
		reg, err = registry.NewRegistryFromFile(cfg.Risk.IndicatorsFile)
		if err != nil {
			log.Error("Failed to load indicators file", err, "path", cfg.Risk.IndicatorsFile)
			os.Exit(1)
		}
		log.Info("Indicator table loaded", "path", cfg.Risk.IndicatorsFile)

		if cfg.Risk.WatchIndicators {
			// Watch работает до отмены ctx
			go func() {
				if err := reg.Watch(ctx, cfg.Risk.IndicatorsFile, log); err != nil {
					log.Error("Indicators watcher stopped", err)
				}
			}()
		}
	} else {
		reg, err = registry.NewRegistry()
		if err != nil {
			log.Error("Failed to build default indicator table", err)
			os.Exit(1)
		}
	}

	// 4. Подключаемся к БД (история assessments)
	var assessmentRepo repository.AssessmentRepository
	var pgRepo *postgres.PostgresAssessmentRepository
	if cfg.Database.Enabled {
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			log.Error("Failed to connect to database", err)
			os.Exit(1)
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

		if err := db.Ping(); err != nil {
			log.Error("Failed to ping database", err)
			os.Exit(1)
		}
		log.Info("Database connected successfully")

		pgRepo = postgres.NewPostgresAssessmentRepository(db)
		assessmentRepo = pgRepo
	} else {
		log.Warn("Database is disabled, assessment history will not be persisted")
	}

	// 5. Dependency Injection - Infrastructure Layer

	// Источник сырых значений
	var source port.IndicatorSource
	if cfg.MarketData.Mode == "http" {
		source = marketdata.NewHTTPSource(cfg.MarketData.BaseURL, cfg.MarketData.APIKey, cfg.MarketData.RequestTimeout)
	} else {
		source = marketdata.NewStaticSource()
	}
	log.Info("Market data source initialized", "source", source.Name())

	// Cache
	var cache port.Cache
	if cfg.Redis.Enabled {
		rc, err := redisCache.NewRedisCache(cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis cache", err)
			os.Exit(1)
		}
		defer rc.Close()
		cache = rc
		log.Info("Redis cache connected")
	}

	// Event publisher
	var events port.EventPublisher
	if cfg.NATS.Enabled {
		publisher, err := natsInfra.NewNATSPublisher(cfg.NATS.URL, log)
		if err != nil {
			log.Error("Failed to connect to NATS", err)
			os.Exit(1)
		}
		defer publisher.Close()
		events = publisher
	}

	// CloudWatch score publisher
	var scores port.ScorePublisher
	var scorePublisher *cloudwatch.ScorePublisher
	if cfg.CloudWatch.MetricsEnabled {
		scorePublisher, err = cloudwatch.NewScorePublisher(ctx, cloudwatch.ScorePublisherConfig{
			Namespace:         cfg.CloudWatch.MetricsNamespace,
			Region:            cfg.CloudWatch.Region,
			Endpoint:          cfg.CloudWatch.Endpoint,
			AccessKeyID:       cfg.CloudWatch.AccessKeyID,
			SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
			BufferSize:        cfg.CloudWatch.BufferSize,
			FlushInterval:     cfg.CloudWatch.FlushInterval,
			StorageResolution: cfg.CloudWatch.StorageResolution,
		})
		if err != nil {
			log.Error("Failed to initialize CloudWatch score publisher", err)
			os.Exit(1)
		}
		scores = scorePublisher
	}

	// S3 report archiver
	var archiver port.ReportArchiver
	if cfg.S3.Enabled {
		reportArchiver, err := s3storage.NewReportArchiver(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			KeyPrefix:       cfg.S3.KeyPrefix,
		})
		if err != nil {
			log.Error("Failed to initialize report archiver", err)
			os.Exit(1)
		}
		archiver = reportArchiver
	}

	// WebSocket hub
	hub := wsInfra.NewHub(log)

	// Notification channels
	channels := make([]port.NotificationChannel, 0, len(cfg.Notification.WebhookURLs))
	for i, url := range cfg.Notification.WebhookURLs {
		name := fmt.Sprintf("webhook-%d", i+1)
		channels = append(channels, webhook.NewChannel(name, url, cfg.Notification.RequestTimeout, log))
	}
	if len(channels) == 0 {
		log.Warn("No notification channels configured")
	}

	// 6. Dependency Injection - Domain Layer

	bands := valueobject.Bands{
		Caution: cfg.Risk.BandCaution,
		Warning: cfg.Risk.BandWarning,
		Danger:  cfg.Risk.BandDanger,
	}
	if err := bands.Validate(); err != nil {
		log.Error("Invalid risk bands", err)
		os.Exit(1)
	}

	normalizer := service.NewNormalizer()
	aggregator := service.NewCategoryAggregator(bands)
	alertGenerator := service.NewAlertGenerator()
	notificationPolicy := service.NewNotificationPolicy(cfg.Notification.Cooldown)

	similarityEngine, err := service.NewSimilarityEngine()
	if err != nil {
		log.Error("Failed to initialize similarity engine", err)
		os.Exit(1)
	}

	dispatcher := notification.NewDispatcher(notificationPolicy, channels, log)

	// 7. Dependency Injection - Application Layer (Use Cases)

	weights := make(map[valueobject.Category]float64, len(cfg.Risk.CategoryWeights))
	for name, w := range cfg.Risk.CategoryWeights {
		category := valueobject.Category(name)
		if err := category.Validate(); err != nil {
			log.Error("Unknown category in RISK_CATEGORY_WEIGHTS", err, "category", name)
			os.Exit(1)
		}
		weights[category] = w
	}

	runAssessmentUC := usecase.NewRunAssessmentUseCase(
		reg,
		source,
		normalizer,
		aggregator,
		similarityEngine,
		alertGenerator,
		dispatcher,
		assessmentRepo,
		cache,
		events,
		scores,
		archiver,
		hub,
		usecase.RunAssessmentConfig{
			TopWarnings:     cfg.Risk.TopWarnings,
			CategoryWeights: weights,
		},
		log,
	)

	getAssessmentUC := usecase.NewGetAssessmentUseCase(runAssessmentUC, cache, log)
	listHistoryUC := usecase.NewListHistoryUseCase(assessmentRepo)

	// 8. Metrics, rate limiter и stream manager

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	limiter := ratelimit.NewLimiter(cfg.RateLimit.GlobalRPS, cfg.RateLimit.GlobalBurst, log)
	// Bucket считается брошенным после трех окон без запросов
	maxIdle := 3 * cfg.RateLimit.APIWindow
	if streamIdle := 3 * cfg.RateLimit.StreamWindow; streamIdle > maxIdle {
		maxIdle = streamIdle
	}
	limiter.StartSweeper(ctx, cfg.RateLimit.SweepInterval, maxIdle)

	streamManager := stream.NewManager(runAssessmentUC, stream.ManagerConfig{
		UpdateInterval:    cfg.Stream.UpdateInterval,
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
		EventBufferSize:   cfg.Stream.EventBufferSize,
	}, log)

	// 9. Dependency Injection - Interfaces Layer (HTTP Handlers)

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}

	assessmentHandler := handler.NewAssessmentHandler(getAssessmentUC, log)
	streamHandler := handler.NewStreamHandler(streamManager, m, log)
	historyHandler := handler.NewHistoryHandler(listHistoryUC, 30*24*time.Hour, log)
	indicatorsHandler := handler.NewIndicatorsHandler(reg)
	diagnosticsHandler := handler.NewDiagnosticsHandler(diagnostics.NewSystemProbe(), streamManager)
	websocketHandler := handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, log)

	router := httpInterface.NewRouter(
		assessmentHandler,
		streamHandler,
		historyHandler,
		indicatorsHandler,
		diagnosticsHandler,
		websocketHandler,
		limiter,
		m,
		promRegistry,
		cfg,
		log,
	)

	// 10. Запускаем фоновые процессы

	go hub.Run()

	// Периодический прогон pipeline
	go func() {
		ticker := time.NewTicker(cfg.Risk.RunInterval)
		defer ticker.Stop()

		log.Info("Assessment scheduler started", "interval", cfg.Risk.RunInterval.String())

		runOnce := func() {
			assessment, notified, err := runAssessmentUC.Execute(ctx)
			switch {
			case errors.Is(err, usecase.ErrRunInProgress):
				log.Debug("Skipping scheduled run, previous run still in progress")
			case err != nil:
				m.PipelineFailures.Inc()
				log.Error("Scheduled assessment run failed", err)
			default:
				m.PipelineRuns.Inc()
				m.OverallScore.Set(assessment.OverallScore)
				if notified {
					m.NotificationsSent.Inc()
				}
				for _, alert := range assessment.Alerts {
					m.AlertsGenerated.WithLabelValues(string(alert.Severity)).Inc()
				}
			}
		}

		// Первый прогон сразу, не дожидаясь первого tick
		runOnce()

		for {
			select {
			case <-ticker.C:
				runOnce()
			case <-ctx.Done():
				log.Info("Assessment scheduler stopped")
				return
			}
		}
	}()

	// Retention истории
	if pgRepo != nil && cfg.Risk.HistoryRetention > 0 {
		go func() {
			ticker := time.NewTicker(12 * time.Hour)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					cutoff := time.Now().Add(-cfg.Risk.HistoryRetention)
					removed, err := pgRepo.DeleteOlderThan(ctx, cutoff)
					if err != nil {
						log.Error("History retention sweep failed", err)
					} else if removed > 0 {
						log.Info("History retention sweep completed", "removed", removed)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// 11. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 12. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Сбрасываем буферизованные datapoints перед выходом
	if scorePublisher != nil {
		if err := scorePublisher.Close(shutdownCtx); err != nil {
			log.Error("CloudWatch publisher close error", err)
		}
	}

	log.Info("Server stopped gracefully")
}
