package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/dto"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/port"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/repository"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/service"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/registry"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

var (
	// ErrNoData возвращается при тотальном отказе источников данных:
	// ни один индикатор не получен, сфабрикованный нулевой assessment
	// не возвращается никогда
	ErrNoData = errors.New("no indicator data available from any source")

	// ErrRunInProgress возвращается когда прогон уже идет.
	// Прогоны не перекрываются: новый tick пропускается, не ставится в очередь.
	ErrRunInProgress = errors.New("assessment run already in progress")
)

// Notifier решает и выполняет отправку уведомлений о новом assessment
type Notifier interface {
	// MaybeNotify применяет throttle-политику и при положительном решении
	// рассылает по всем каналам; возвращает true если хотя бы один канал
	// принял payload
	MaybeNotify(ctx context.Context, assessment *entity.Assessment) bool
}

// CacheEntry - то, что кладется в cache для pull endpoint
type CacheEntry struct {
	Data              *dto.AssessmentDTO `json:"data"`
	NotificationsSent bool               `json:"notifications_sent"`
}

// CacheKeyLatest - ключ последнего assessment в cache
const CacheKeyLatest = "risk:assessment:latest"

// RunAssessmentConfig настраивает pipeline
type RunAssessmentConfig struct {
	TopWarnings     int
	CategoryWeights map[valueobject.Category]float64
	FetchTimeout    time.Duration
}

// RunAssessmentUseCase координирует один прогон pipeline:
// параллельный сбор -> нормализация -> агрегация -> overall/similarity ->
// alerts -> уведомления -> persist/publish/broadcast.
// Все sinks после уведомлений - best effort.
type RunAssessmentUseCase struct {
	registry    *registry.Registry
	source      port.IndicatorSource
	normalizer  *service.Normalizer
	aggregator  *service.CategoryAggregator
	similarity  *service.SimilarityEngine
	alerts      *service.AlertGenerator
	notifier    Notifier
	repository  repository.AssessmentRepository
	cache       port.Cache
	events      port.EventPublisher
	scores      port.ScorePublisher
	archiver    port.ReportArchiver
	broadcaster port.Broadcaster
	cfg         RunAssessmentConfig
	logger      *logger.Logger

	// runMu сериализует прогоны; previous защищен prevMu и всегда
	// указывает на последний полностью завершенный прогон
	runMu    sync.Mutex
	prevMu   sync.RWMutex
	previous *entity.Assessment

	now func() time.Time
}

// NewRunAssessmentUseCase создает pipeline use case.
// repository, cache, events, scores, archiver и broadcaster могут быть nil,
// если соответствующая подсистема выключена.
func NewRunAssessmentUseCase(
	reg *registry.Registry,
	source port.IndicatorSource,
	normalizer *service.Normalizer,
	aggregator *service.CategoryAggregator,
	similarity *service.SimilarityEngine,
	alerts *service.AlertGenerator,
	notifier Notifier,
	repo repository.AssessmentRepository,
	cache port.Cache,
	events port.EventPublisher,
	scores port.ScorePublisher,
	archiver port.ReportArchiver,
	broadcaster port.Broadcaster,
	cfg RunAssessmentConfig,
	log *logger.Logger,
) *RunAssessmentUseCase {
	if cfg.TopWarnings <= 0 {
		cfg.TopWarnings = 5
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}

	return &RunAssessmentUseCase{
		registry:    reg,
		source:      source,
		normalizer:  normalizer,
		aggregator:  aggregator,
		similarity:  similarity,
		alerts:      alerts,
		notifier:    notifier,
		repository:  repo,
		cache:       cache,
		events:      events,
		scores:      scores,
		archiver:    archiver,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      log,
		now:         time.Now,
	}
}

// Execute выполняет один прогон pipeline.
// Возвращает assessment и флаг "уведомления отправлены".
func (uc *RunAssessmentUseCase) Execute(ctx context.Context) (*entity.Assessment, bool, error) {
	if !uc.runMu.TryLock() {
		return nil, false, ErrRunInProgress
	}
	defer uc.runMu.Unlock()

	now := uc.now()

	// 1. Параллельный сбор сырых значений: каждый вызов в своей
	// failure boundary, медленный/упавший источник не блокирует остальные
	defs := uc.registry.Definitions()
	values := uc.fetchAll(ctx, defs)

	// 2. Нормализация на общую шкалу риска
	indicators := make([]*entity.Indicator, 0, len(defs))
	for i, def := range defs {
		value := values[i]
		if value == nil {
			// Upstream data failure: индикатор отсутствует в этом прогоне,
			// категория считается по оставшимся
			continue
		}

		score, err := uc.normalizer.Normalize(*value, def.Min, def.Max, def.Percentile90, def.HigherIsWorse)
		if err != nil {
			uc.logger.Error("Skipping indicator with invalid range", err, "indicator", def.ID)
			continue
		}
		percentile, err := uc.normalizer.Percentile(*value, def.Min, def.Max)
		if err != nil {
			uc.logger.Error("Skipping indicator with invalid range", err, "indicator", def.ID)
			continue
		}

		indicator, err := entity.NewIndicator(
			def.ID, def.Category, def.Name,
			*value, score, def.Threshold, def.HigherIsWorse, percentile, now,
		)
		if err != nil {
			uc.logger.Error("Skipping invalid indicator", err, "indicator", def.ID)
			continue
		}
		indicators = append(indicators, indicator)
	}

	if len(indicators) == 0 {
		uc.logger.Error("Assessment run failed: all indicator sources unavailable", nil,
			"definitions", len(defs))
		return nil, false, ErrNoData
	}

	// 3. Дельты к предыдущему завершенному прогону
	previous := uc.Latest()
	if previous != nil {
		for _, ind := range indicators {
			if prevValue, ok := previous.IndicatorValue(ind.ID()); ok {
				ind.ApplyPrevious(prevValue)
			}
		}
	}

	// 4. Агрегация начинается только после нормализации всех индикаторов
	categories := uc.aggregator.Aggregate(indicators)
	overall := uc.aggregator.OverallScore(categories, uc.cfg.CategoryWeights)

	assessment := &entity.Assessment{
		GeneratedAt:  now,
		OverallScore: overall,
		OverallLevel: uc.aggregator.LevelFor(overall),
		Categories:   categories,
		Indicators:   indicators,
		TopWarnings:  uc.aggregator.TopWarnings(indicators, uc.cfg.TopWarnings),
	}

	matches, err := uc.similarity.Match(assessment.CategoryVector())
	if err != nil {
		return nil, false, fmt.Errorf("similarity match: %w", err)
	}
	assessment.Similarity = matches

	// 5. Alerts генерируются после финализации overall score и similarity
	assessment.Alerts = uc.alerts.Generate(assessment, now)

	// 6. Уведомления - после финализации alerts
	notified := false
	if uc.notifier != nil {
		notified = uc.notifier.MaybeNotify(ctx, assessment)
	}

	// 7. Best-effort sinks
	uc.fanOut(ctx, assessment, notified)

	// 8. Прогон завершен - публикуем snapshot как "предыдущий"
	uc.prevMu.Lock()
	uc.previous = assessment
	uc.prevMu.Unlock()

	uc.logger.Info("Assessment run completed",
		"overall_score", fmt.Sprintf("%.1f", assessment.OverallScore),
		"overall_level", assessment.OverallLevel,
		"indicators", len(indicators),
		"alerts", len(assessment.Alerts),
		"notified", notified,
	)

	return assessment, notified, nil
}

// Latest возвращает последний полностью завершенный assessment (или nil)
func (uc *RunAssessmentUseCase) Latest() *entity.Assessment {
	uc.prevMu.RLock()
	defer uc.prevMu.RUnlock()
	return uc.previous
}

// fetchAll параллельно опрашивает источник по всем определениям.
// Результат позиционно соответствует defs; nil означает отсутствие данных.
func (uc *RunAssessmentUseCase) fetchAll(ctx context.Context, defs []registry.Definition) []*float64 {
	values := make([]*float64, len(defs))

	var wg sync.WaitGroup
	for i, def := range defs {
		wg.Add(1)
		go func(i int, def registry.Definition) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					uc.logger.Error("Indicator fetch panicked", fmt.Errorf("%v", r),
						"indicator", def.ID, "source", uc.source.Name())
				}
			}()

			fetchCtx, cancel := context.WithTimeout(ctx, uc.cfg.FetchTimeout)
			defer cancel()

			value, err := uc.source.Fetch(fetchCtx, def.SeriesID)
			if err != nil {
				uc.logger.Warn("Indicator fetch failed",
					"indicator", def.ID, "series", def.SeriesID, "error", err.Error())
				return
			}
			if value == nil {
				uc.logger.Debug("Indicator has no current value", "indicator", def.ID)
				return
			}
			values[i] = value
		}(i, def)
	}
	wg.Wait()

	return values
}

// fanOut доставляет завершенный assessment во вторичные sinks.
// Каждый sink изолирован: отказ логируется и не влияет на остальные.
func (uc *RunAssessmentUseCase) fanOut(ctx context.Context, assessment *entity.Assessment, notified bool) {
	assessmentDTO := dto.FromAssessment(assessment)

	if uc.repository != nil {
		if err := uc.repository.Save(ctx, assessment); err != nil {
			uc.logger.Error("Failed to persist assessment", err)
		}
	}

	if uc.cache != nil {
		entry := CacheEntry{Data: assessmentDTO, NotificationsSent: notified}
		if err := uc.cache.Set(ctx, CacheKeyLatest, entry); err != nil {
			uc.logger.Error("Failed to cache assessment", err)
		}
	}

	if uc.events != nil {
		if err := uc.events.PublishEvent(ctx, "risk.assessment", assessmentDTO); err != nil {
			uc.logger.Error("Failed to publish assessment event", err)
		}
		for _, alert := range assessmentDTO.Alerts {
			subject := "risk.alert." + alert.Severity
			if err := uc.events.PublishEvent(ctx, subject, alert); err != nil {
				uc.logger.Error("Failed to publish alert event", err, "alert", alert.ID)
			}
		}
	}

	if uc.scores != nil {
		if err := uc.scores.PublishAssessment(ctx, assessment); err != nil {
			uc.logger.Error("Failed to publish scores", err)
		}
	}

	if uc.archiver != nil {
		if key, err := uc.archiver.ArchiveAssessment(ctx, assessment); err != nil {
			uc.logger.Error("Failed to archive assessment report", err)
		} else {
			uc.logger.Debug("Assessment report archived", "key", key)
		}
	}

	if uc.broadcaster != nil {
		uc.broadcaster.Broadcast(assessmentDTO)
		for i := range assessmentDTO.Alerts {
			uc.broadcaster.BroadcastAlert(&assessmentDTO.Alerts[i])
		}
		uc.logger.Debug("Assessment broadcasted", "client_count", uc.broadcaster.ClientCount())
	}
}
